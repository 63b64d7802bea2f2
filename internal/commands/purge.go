package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCommand() *cobra.Command {
	var owner string
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all data for an owner (dataset, metadata, schedule, snapshots)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete data for %q without --yes", owner)
			}

			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			ok, err := svc.DeleteAllData(owner)
			if err != nil {
				return err
			}
			if ok {
				fmt.Printf("All data for %s deleted\n", owner)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	return cmd
}
