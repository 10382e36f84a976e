package cli

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/leadscore/internal/config"
	"github.com/turtacn/leadscore/internal/infrastructure/database/postgres"
	"github.com/turtacn/leadscore/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

// SubscriptionStore manages subscription to assistant mappings.
type SubscriptionStore interface {
	Upsert(ctx context.Context, subscriptionID, assistantID string) error
	List(ctx context.Context) ([]repositories.Subscription, error)
}

// openSubscriptionStore connects to the directory database. The returned
// func closes the connection.
var openSubscriptionStore = func(cfg config.DatabaseConfig, logger logging.Logger) (SubscriptionStore, func() error, error) {
	conn, err := postgres.NewConnection(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewSubscriptionRepository(conn, logger), conn.Close, nil
}

func newSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Manage the assistant assigned to each subscription",
	}

	setCmd := &cobra.Command{
		Use:   "set <subscription-id> <assistant-id>",
		Short: "Assign an assistant to a subscription",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscriptionStore(cmd, func(cliCtx *CLIContext, store SubscriptionStore) error {
				if err := store.Upsert(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("subscription %s uses assistant %s", args[0], args[1]))
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List subscription assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscriptionStore(cmd, func(cliCtx *CLIContext, store SubscriptionStore) error {
				subs, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if cliCtx.OutputFormat == "json" {
					return printJSON(cmd, subs)
				}
				if len(subs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No subscriptions configured.")
					return nil
				}
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"Subscription", "Assistant", "Updated"})
				for _, s := range subs {
					table.Append([]string{s.SubscriptionID, s.AssistantID, s.UpdatedAt.Format("2006-01-02 15:04:05")})
				}
				table.Render()
				return nil
			})
		},
	}

	cmd.AddCommand(setCmd, listCmd)
	return cmd
}

func withSubscriptionStore(cmd *cobra.Command, fn func(*CLIContext, SubscriptionStore) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	store, closeFn, err := openSubscriptionStore(cliCtx.Config.Database, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			cliCtx.Logger.Warn("close database", logging.Err(err))
		}
	}()
	return fn(cliCtx, store)
}

//Personal.AI order the ending
