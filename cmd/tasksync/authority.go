package main

import (
	"github.com/phrazzld/tasksync/internal/authority"
	"github.com/phrazzld/tasksync/internal/platform/database"
	"github.com/phrazzld/tasksync/internal/platform/sqlstore"
	"github.com/spf13/cobra"
)

func newAuthorityCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "authority",
		Short: "Run a reference remote authority that clients can synchronize with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.load()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			cfg := rt.config.Authority
			log := rt.logger.With("role", "authority")

			db, err := database.Open(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := database.Migrate(ctx, db, cfg.Database.Driver, database.MigrateUp, log); err != nil {
				return err
			}

			handler := authority.NewHandler(db, sqlstore.NewTaskStore(db, log), log)
			return serveHTTP(ctx, log, cfg.Port, handler.Routes())
		},
	}
}
