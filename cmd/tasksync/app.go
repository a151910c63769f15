package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/tasksync/internal/api"
	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/platform/database"
	"github.com/phrazzld/tasksync/internal/platform/sqlstore"
	"github.com/phrazzld/tasksync/internal/remote"
	"github.com/phrazzld/tasksync/internal/service"
	"github.com/phrazzld/tasksync/internal/syncer"
)

// application holds the wired dependencies of a local replica and ensures
// they are released on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	tasks  *sqlstore.TaskStore
	outbox *sqlstore.OutboxStore

	eventEmitter *events.InMemoryEventEmitter
	taskService  service.TaskService

	remote      *remote.HTTPClient
	coordinator *syncer.Coordinator
	worker      *syncer.Worker
}

// openApplication opens and migrates the local database, then wires the application.
func openApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db, cfg.Database.Driver, database.MigrateUp, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	app, err := newApplication(cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

// newApplication creates an application over an open, migrated database.
// The background worker is created but not started.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.tasks = sqlstore.NewTaskStore(db, logger)
	app.outbox = sqlstore.NewOutboxStore(db, logger)
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	var err error
	app.taskService, err = service.NewTaskService(db, app.tasks, app.outbox, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.remote, err = remote.NewHTTPClient(cfg.Remote, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote client: %w", err)
	}

	synchronizer, err := syncer.New(
		syncer.Config{BatchSize: cfg.Sync.BatchSize},
		app.outbox,
		app.tasks,
		db,
		app.remote,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create synchronizer: %w", err)
	}
	app.coordinator = syncer.NewCoordinator(synchronizer, logger)

	app.worker = syncer.NewWorker(app.coordinator, app.remote, syncer.WorkerConfig{
		Interval:    cfg.Sync.Interval,
		MaxRetries:  cfg.Sync.MaxRetries,
		BackoffBase: cfg.Sync.BackoffBase,
		BackoffMax:  cfg.Sync.BackoffMax,
	}, logger)
	app.eventEmitter.RegisterHandler(app.worker)

	logger.Info("application initialized",
		slog.String("database_driver", cfg.Database.Driver),
		slog.Int("batch_size", cfg.Sync.BatchSize))
	return app, nil
}

// router builds the local HTTP API.
func (app *application) router() http.Handler {
	return api.NewRouter(
		api.NewTaskHandler(app.taskService, app.logger),
		api.NewSyncHandler(app.coordinator, app.remote, app.outbox, app.logger),
		app.logger,
	)
}

// cleanup releases the database. Callers stop the worker first.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
}
