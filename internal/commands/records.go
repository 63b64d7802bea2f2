package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/model"
)

func newAddCommand() *cobra.Command {
	var (
		owner       string
		amount      string
		category    string
		description string
		dateStr     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record to the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amount, err)
			}

			date := time.Now().UTC().Truncate(24 * time.Hour)
			if dateStr != "" {
				date, err = time.ParseInLocation("2006-01-02", dateStr, time.UTC)
				if err != nil {
					return fmt.Errorf("parsing date %q: %w", dateStr, err)
				}
			}

			rec := model.Record{
				ID:          uuid.NewString(),
				Amount:      amt,
				Category:    category,
				Description: description,
				Date:        date,
			}

			records, err := svc.Load(owner)
			if err != nil {
				return err
			}
			if err := svc.Save(owner, append(records, rec)); err != nil {
				return err
			}

			fmt.Printf("Added record %s\n", rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&category, "category", "Other", "category")
	cmd.Flags().StringVar(&description, "description", "", "description (required)")
	_ = cmd.MarkFlagRequired("description")
	cmd.Flags().StringVar(&dateStr, "date", "", "date (YYYY-MM-DD, default today)")

	return cmd
}

func newListCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all records in the dataset",
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
			if len(records) == 0 {
				fmt.Println("No records.")
				return nil
			}

			for _, rec := range records {
				fmt.Printf("%s  %s  %-20s  %s  %s\n",
					rec.ID, rec.Date.Format("2006-01-02"), rec.Category,
					rec.Amount.StringFixed(2), rec.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identity (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
