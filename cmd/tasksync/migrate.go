package main

import (
	"fmt"

	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/platform/database"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var authority bool

	cmd := &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{database.MigrateUp, database.MigrateDown, database.MigrateStatus, database.MigrateVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := database.MigrateUp
			if len(args) == 1 {
				command = args[0]
			}

			rt, err := opts.load()
			if err != nil {
				return err
			}
			defer rt.close()

			dbCfg := rt.config.Database
			if authority {
				dbCfg = rt.config.Authority.Database
			}
			return runMigration(cmd, dbCfg, command, rt)
		},
	}
	cmd.Flags().BoolVar(&authority, "authority", false, "migrate the authority database instead of the local one")
	return cmd
}

func runMigration(cmd *cobra.Command, dbCfg config.DatabaseConfig, command string, rt *runtime) error {
	db, err := database.Open(cmd.Context(), dbCfg, rt.logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(cmd.Context(), db, dbCfg.Driver, command, rt.logger); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}
