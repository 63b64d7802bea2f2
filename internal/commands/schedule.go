package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/model"
)

func newScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage the automatic backup schedule",
	}
	cmd.AddCommand(newScheduleSetCommand())
	cmd.AddCommand(newScheduleShowCommand())
	return cmd
}

func newScheduleSetCommand() *cobra.Command {
	var (
		owner         string
		frequency     string
		retentionDays int
		disable       bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Enable, change, or disable automatic backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			sched := model.Schedule{
				Enabled:       !disable,
				Frequency:     model.Frequency(frequency),
				RetentionDays: retentionDays,
			}
			saved, err := svc.SetSchedule(owner, sched)
			if err != nil {
				return err
			}

			if !saved.Enabled {
				fmt.Println("Automatic backups disabled.")
				return nil
			}
			fmt.Printf("Automatic %s backups enabled, next at %s\n",
				saved.Frequency, saved.NextBackup.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().StringVar(&frequency, "frequency", "daily", "daily, weekly, or monthly")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 30, "snapshot retention window")
	cmd.Flags().BoolVar(&disable, "disable", false, "turn automatic backups off")

	return cmd
}

func newScheduleShowCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current backup schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			sched, err := svc.GetSchedule(owner)
			if err != nil {
				return err
			}
			if sched == nil {
				fmt.Println("No schedule set.")
				return nil
			}

			state := "disabled"
			if sched.Enabled {
				state = "enabled"
			}
			fmt.Printf("Automatic backups %s (%s, retention %d days)\n",
				state, sched.Frequency, sched.RetentionDays)
			if sched.LastBackup != nil {
				fmt.Printf("Last backup: %s\n", sched.LastBackup.Format("2006-01-02 15:04:05"))
			}
			if sched.NextBackup != nil {
				fmt.Printf("Next backup: %s\n", sched.NextBackup.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
