package main

import (
	"fmt"

	"github.com/spf13/cobra"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	"github.com/catalogsync/backend/internal/bootstrap"
)

func newOutcomesCommand(ctx *commandContext) *cobra.Command {
	outcomesCmd := &cobra.Command{
		Use:   "outcomes",
		Short: "Inspect and reset stored per-item outcomes",
	}

	outcomesCmd.AddCommand(newOutcomesListCommand(ctx))
	outcomesCmd.AddCommand(newOutcomesGetCommand(ctx))
	outcomesCmd.AddCommand(newOutcomesResetCommand(ctx))

	return outcomesCmd
}

func newOutcomesListCommand(ctx *commandContext) *cobra.Command {
	var query appintegration.ListOutcomesQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List outcomes, alphabetically by title unless --sort-by is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				result, err := app.Outcomes.List(cmd.Context(), query)
				if err != nil {
					return err
				}
				return writeJSON(cmd, result)
			})
		},
	}

	cmd.Flags().StringVar(&query.Status, "status", "", "Filter by status: success or failed")
	cmd.Flags().StringVar(&query.Search, "search", "", "Match handle or title")
	cmd.Flags().IntVar(&query.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&query.PageSize, "page-size", 20, "Outcomes per page")
	cmd.Flags().StringVar(&query.SortBy, "sort-by", "", "Order by title, handle, source_id, last_attempt_at or updated_at")
	cmd.Flags().StringVar(&query.SortOrder, "sort-order", "", "asc or desc (default desc when --sort-by is set)")
	return cmd
}

func newOutcomesGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <source-id>",
		Short: "Show the outcome of one source item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				outcome, err := app.Outcomes.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, outcome)
			})
		},
	}
}

func newOutcomesResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <source-id>",
		Short: "Forget an outcome so the item is attempted again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				if err := app.Outcomes.Reset(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset outcome %s\n", args[0])
				return nil
			})
		},
	}
}
