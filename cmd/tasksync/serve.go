package main

import (
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local task API with background synchronization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApplication(cmd.Context(), func(app *application) error {
				if err := app.worker.Start(); err != nil {
					return err
				}
				defer app.worker.Stop()

				// Flush whatever was queued while the process was down.
				app.worker.Trigger()

				return serveHTTP(cmd.Context(), app.logger, app.config.Server.Port, app.router())
			})
		},
	}
}
