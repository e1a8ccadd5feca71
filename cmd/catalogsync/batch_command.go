package main

import (
	"github.com/spf13/cobra"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	"github.com/catalogsync/backend/internal/bootstrap"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var req appintegration.BatchRequest

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process one page of the catalog and print the batch result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				result, err := app.Sync.RunBatch(cmd.Context(), req)
				if err != nil {
					return err
				}
				return writeJSON(cmd, result)
			})
		},
	}

	cmd.Flags().StringVar(&req.Cursor, "cursor", "", "Resume after this cursor (next_cursor of the previous batch)")
	cmd.Flags().IntVar(&req.PageSize, "page-size", 0, "Override the configured page size")
	cmd.Flags().StringVar(&req.FilterTag, "filter-tag", "", "Only consider products carrying this tag")
	cmd.Flags().StringVar(&req.BatchID, "batch-id", "", "Batch id used in logs and the archived report")
	return cmd
}
