package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "tasksync",
		Short:         "Offline-first task store with background synchronization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override server.log_level")

	cmd.AddCommand(
		newServeCommand(opts),
		newSyncCommand(opts),
		newProbeCommand(opts),
		newMigrateCommand(opts),
		newAuthorityCommand(opts),
	)
	return cmd
}

// runtime is what every subcommand needs before it does its own work.
type runtime struct {
	config *config.Config
	logger *slog.Logger
	closer io.Closer
}

// load reads configuration and sets up logging.
func (o *rootOptions) load() (*runtime, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Server.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	log, closer, err := logger.Setup(level, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Debug("configuration loaded",
		slog.String("config_file", o.configPath),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("remote_base_url", cfg.Remote.BaseURL))

	return &runtime{config: cfg, logger: log, closer: closer}, nil
}

func (r *runtime) close() {
	_ = r.closer.Close()
}

// withApplication loads the runtime, opens the local store and runs fn
// against a fully wired application.
func (o *rootOptions) withApplication(ctx context.Context, fn func(*application) error) error {
	rt, err := o.load()
	if err != nil {
		return err
	}
	defer rt.close()

	app, err := openApplication(ctx, rt.config, rt.logger)
	if err != nil {
		return err
	}
	defer app.cleanup()

	return fn(app)
}
