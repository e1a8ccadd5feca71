package main

import (
	"github.com/spf13/cobra"

	"github.com/catalogsync/backend/internal/bootstrap"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "report <batch-id>",
		Short: "Print an archived batch report",
		Long:  "Report reads from object storage; without storage.enabled only reports of the current process exist.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				result, err := app.Reports.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, result)
			})
		},
	}
}
