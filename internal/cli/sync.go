package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronization commands",
	}

	cmd.AddCommand(newSyncRunCmd())
	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncUpdatesCmd())

	return cmd
}

func newSyncRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [provider] [account-id]",
		Short: "Trigger a sync for one account, or all accounts when omitted",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if len(args) == 0 {
				if err := apiClient.TriggerSyncAll(ctx); err != nil {
					return fmt.Errorf("failed to trigger sync: %w", err)
				}
				fmt.Println("Sync started for all accounts")
				return nil
			}

			if len(args) != 2 {
				return fmt.Errorf("provide both provider and account-id, or neither")
			}

			job, err := apiClient.TriggerSync(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to trigger sync: %w", err)
			}

			fmt.Printf("Sync started (job %s)\n", job.JobID)
			return nil
		},
	}
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync progress for all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			statuses, err := apiClient.SyncStatuses(ctx)
			if err != nil {
				return fmt.Errorf("failed to get sync status: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(statuses)
			}

			table := NewTable("PROVIDER", "ACCOUNT", "PROGRESS", "RECORDS", "MESSAGE", "UPDATED")
			for _, s := range statuses {
				progress := strconv.Itoa(s.Progress) + "%"
				if s.IsError {
					progress = "error"
				}
				table.AddRow(s.Provider, s.AccountID, progress,
					strconv.Itoa(s.RecordsProcessed),
					truncate(s.Message, 50),
					s.UpdatedAt.Local().Format(time.RFC3339))
			}
			table.Render()
			return nil
		},
	}
}

func newSyncUpdatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "updates",
		Short: "Check which accounts have pending remote changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			checks, err := apiClient.CheckUpdates(ctx)
			if err != nil {
				return fmt.Errorf("failed to check updates: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(checks)
			}

			table := NewTable("PROVIDER", "ACCOUNT", "PENDING", "ERROR")
			for _, c := range checks {
				pending := "no"
				if c.Pending {
					pending = "yes"
				}
				table.AddRow(c.Provider, c.AccountID, pending, truncate(c.Error, 50))
			}
			table.Render()
			return nil
		},
	}
}
