package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackupCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a local snapshot of the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			records, err := svc.Load(owner)
			if err != nil {
				return err
			}

			name, err := svc.CreateBackup(owner, records)
			if err != nil {
				return err
			}
			fmt.Printf("Backup written: %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func newRestoreCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "restore <file-or-snapshot-stamp>",
		Short: "Restore the dataset from a backup file or local snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := svc.RestoreFromBackup(owner, args[0])
			if err != nil {
				return err
			}
			if !res.Success {
				fmt.Println("Restore rejected, dataset unchanged:")
				for _, e := range res.Errors {
					fmt.Printf("  %s\n", e)
				}
				return nil
			}

			fmt.Printf("Restored %d records (%d skipped)\n", res.RestoredCount, res.SkippedCount)
			for _, e := range res.Errors {
				fmt.Printf("  warning: %s\n", e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func newBackupsCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List local snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			metas, err := svc.ListLocalBackups(owner)
			if err != nil {
				return err
			}
			if len(metas) == 0 {
				fmt.Println("No local snapshots.")
				return nil
			}

			for _, m := range metas {
				fmt.Printf("%s  %4d records  total %s  checksum %s\n",
					m.CreatedAt.Format("2006-01-02 15:04:05"),
					m.RecordCount, m.TotalAmount.StringFixed(2), m.Checksum)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func newCleanupCommand() *cobra.Command {
	var owner string
	var retentionDays int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune local snapshots past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			removed, err := svc.CleanupOldBackups(owner, retentionDays)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d snapshots\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 30, "remove snapshots older than this many days")

	return cmd
}
