package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fintrack",
		Short:   "Personal finance tracking with durable backups",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("dir", ".", "data directory")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newBackupCommand())
	rootCmd.AddCommand(newRestoreCommand())
	rootCmd.AddCommand(newBackupsCommand())
	rootCmd.AddCommand(newCleanupCommand())
	rootCmd.AddCommand(newScheduleCommand())
	rootCmd.AddCommand(newPurgeCommand())

	return rootCmd
}
