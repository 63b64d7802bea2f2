package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/importdir"
	"github.com/fintrack-dev/fintrack/internal/tracker"
)

func newExportCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dataset to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			path, err := svc.ExportToFile(owner)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Println("Nothing to export.")
				return nil
			}
			fmt.Printf("Exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func newImportCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import records from a CSV export (or scan the import directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if len(args) == 1 {
				return importOne(svc, owner, args[0], "")
			}

			dir, _ := cmd.Flags().GetString("dir")
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			files, err := importdir.Scan(absDir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("No files in import directory.")
				return nil
			}
			for _, f := range files {
				if err := importOne(svc, owner, f.Path, f.Name); err != nil {
					return err
				}
				if err := importdir.MarkProcessed(absDir, f.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func importOne(svc *tracker.Service, owner, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := svc.ImportFromFile(owner, f)
	if err != nil {
		return err
	}

	label := name
	if label == "" {
		label = path
	}
	fmt.Printf("%s: imported %d, skipped %d\n", label, res.ImportedCount, res.SkippedCount)
	for _, e := range res.Errors {
		fmt.Printf("  warning: %s\n", e)
	}
	if !res.Success {
		fmt.Println("  no valid records, dataset unchanged")
	}
	return nil
}
