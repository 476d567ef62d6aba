package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vendalink/ordersync/pkg/client"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts"},
		Short:   "Connected account commands",
	}

	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountConnectCmd())
	cmd.AddCommand(newAccountDisconnectCmd())

	return cmd
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connected accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			accounts, err := apiClient.ListAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(accounts)
			}

			table := NewTable("PROVIDER", "ACCOUNT", "STATUS", "LAST SYNC", "LAST ERROR")
			for _, a := range accounts {
				lastSync := "never"
				if a.LastSyncAt != nil {
					lastSync = a.LastSyncAt.Local().Format(time.RFC3339)
				}
				table.AddRow(a.Provider, a.AccountID, formatStatus(a.Status), lastSync, truncate(a.LastError, 40))
			}
			table.Render()
			return nil
		},
	}
}

func newAccountConnectCmd() *cobra.Command {
	var accountID, accessToken, refreshToken string
	var expiresIn int64

	cmd := &cobra.Command{
		Use:   "connect <provider>",
		Short: "Connect a provider account with exchanged credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]

			if accountID == "" {
				accountID = promptInput("Account ID: ")
			}
			if accessToken == "" {
				accessToken = promptPassword("Access token: ")
			}

			ctx := context.Background()
			acct, err := apiClient.ConnectAccount(ctx, provider, client.ConnectAccountRequest{
				AccountID:    accountID,
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresIn:    expiresIn,
			})
			if err != nil {
				return fmt.Errorf("failed to connect account: %w", err)
			}

			fmt.Printf("Connected %s account %s\n", acct.Provider, acct.AccountID)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account-id", "", "provider-assigned account id")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "OAuth access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token")
	cmd.Flags().Int64Var(&expiresIn, "expires-in", 0, "token lifetime in seconds")

	return cmd
}

func newAccountDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <provider> <account-id>",
		Short: "Disconnect a provider account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := apiClient.DisconnectAccount(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to disconnect account: %w", err)
			}

			fmt.Printf("Disconnected %s account %s\n", args[0], args[1])
			return nil
		},
	}
}
