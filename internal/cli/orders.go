package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vendalink/ordersync/pkg/client"
)

func newOrderCmd() *cobra.Command {
	var provider, status string
	var page, pageSize int

	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order"},
		Short:   "List synchronized orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			result, err := apiClient.ListOrders(ctx, client.OrderListOptions{
				Provider: provider,
				Status:   status,
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return fmt.Errorf("failed to list orders: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(result)
			}

			table := NewTable("ID", "PROVIDER", "STATUS", "GROSS", "FEE", "SHIPPING", "CREATED")
			for _, o := range result.Data {
				table.AddRow(o.ID, o.Provider, formatStatus(o.Status),
					o.GrossAmount, o.PlatformFee, o.ShippingCost,
					o.CreatedAt.Local().Format(time.DateOnly))
			}
			table.Render()

			fmt.Printf("\nPage %d of %d (%d orders)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "filter by provider")
	cmd.Flags().StringVar(&status, "status", "", "filter by normalized status")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "orders per page")

	return cmd
}
