package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/catalogsync/backend/internal/bootstrap"
	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/interfaces/http/handler"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var req scheduler.JobRequest

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Request batches until the catalog is exhausted",
		Long: "Run requests batches back to back, resuming from each next cursor, " +
			"until the source reports the end of the catalog or sync.max_batches is reached.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				job, runErr := app.Jobs.Trigger(cmd.Context(), req)
				if job != nil {
					if err := writeJSON(cmd, handler.ToJobResponse(job)); err != nil {
						return errors.Join(runErr, err)
					}
				}
				return runErr
			})
		},
	}

	cmd.Flags().StringVar(&req.Cursor, "cursor", "", "Start after this cursor instead of the beginning")
	cmd.Flags().IntVar(&req.PageSize, "page-size", 0, "Override the configured page size")
	cmd.Flags().StringVar(&req.FilterTag, "filter-tag", "", "Only consider products carrying this tag")
	return cmd
}
