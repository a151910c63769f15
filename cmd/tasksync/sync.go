package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	errSyncIncomplete = errors.New("sync completed with errors")
	errUnreachable    = errors.New("remote authority is unreachable")
)

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass and print its result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApplication(cmd.Context(), func(app *application) error {
				result, err := app.coordinator.Sync(cmd.Context())
				if err != nil && result == nil {
					return fmt.Errorf("sync failed: %w", err)
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(result); encErr != nil {
					return encErr
				}
				if err != nil {
					// Partial result of an interrupted pass; unprocessed entries stay queued.
					return fmt.Errorf("sync interrupted: %w", err)
				}

				if !result.Success {
					return errSyncIncomplete
				}
				return nil
			})
		},
	}
}

func newProbeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether the remote authority is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApplication(cmd.Context(), func(app *application) error {
				pending, err := app.outbox.Count(cmd.Context())
				if err != nil {
					return err
				}

				reachable := app.remote.ProbeConnectivity(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "remote %s reachable=%t pending_changes=%d\n",
					app.config.Remote.BaseURL, reachable, pending)
				if !reachable {
					return errUnreachable
				}
				return nil
			})
		},
	}
}
