package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/store"
)

// OutboxStore implements the store.OutboxStore interface
// using a SQL database as the storage backend.
type OutboxStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewOutboxStore creates a new SQL implementation of the OutboxStore interface.
// If logger is nil, a default logger will be used.
func NewOutboxStore(db store.DBTX, logger *slog.Logger) *OutboxStore {
	if db == nil {
		// ALLOW-PANIC: constructor misuse
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OutboxStore{
		db:     db,
		logger: logger.With(slog.String("component", "outbox_store")),
	}
}

// Ensure OutboxStore implements store.OutboxStore interface
var _ store.OutboxStore = (*OutboxStore)(nil)

// Enqueue implements store.OutboxStore.Enqueue
func (s *OutboxStore) Enqueue(ctx context.Context, entry *domain.OutboxEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("outbox entry validation failed",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return err
	}

	query := `
		INSERT INTO outbox (id, task_id, operation, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.TaskID,
		string(entry.Operation),
		string(entry.Payload),
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrOutboxEntryExists, entry.ID)
		}
		log.Error("failed to enqueue outbox entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()),
			slog.String("task_id", entry.TaskID.String()))
		return MapError(err)
	}

	log.Debug("outbox entry enqueued",
		slog.String("entry_id", entry.ID.String()),
		slog.String("task_id", entry.TaskID.String()),
		slog.String("operation", string(entry.Operation)))
	return nil
}

// DrainOrdered implements store.OutboxStore.DrainOrdered
func (s *OutboxStore) DrainOrdered(ctx context.Context) ([]*domain.OutboxEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT o.seq, o.id, o.task_id, o.operation, o.payload, o.created_at,
		       COALESCE(a.attempts, 0)
		FROM outbox o
		LEFT JOIN outbox_attempts a ON a.entry_id = o.id
		ORDER BY o.created_at ASC, o.seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to read outbox", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*domain.OutboxEntry, 0)
	for rows.Next() {
		var (
			entry     domain.OutboxEntry
			operation string
			payload   []byte
			createdAt string
		)
		if err := rows.Scan(
			&entry.Seq,
			&entry.ID,
			&entry.TaskID,
			&operation,
			&payload,
			&createdAt,
			&entry.RetryCount,
		); err != nil {
			log.Error("failed to scan outbox row", slog.String("error", err.Error()))
			return nil, err
		}

		entry.Operation = domain.Operation(operation)
		entry.Payload = payload
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return entries, nil
}

// Acknowledge implements store.OutboxStore.Acknowledge
// When the store is bound to a *sql.DB the removal runs in its own transaction;
// when bound to a *sql.Tx it joins the caller's.
func (s *OutboxStore) Acknowledge(ctx context.Context, entryID uuid.UUID) error {
	return s.inTx(ctx, func(db store.DBTX) error {
		return s.acknowledge(ctx, db, entryID)
	})
}

func (s *OutboxStore) acknowledge(ctx context.Context, db store.DBTX, entryID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var taskID uuid.UUID
	err := db.QueryRowContext(ctx, `SELECT task_id FROM outbox WHERE id = $1`, entryID).Scan(&taskID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("acknowledged entry already gone", slog.String("entry_id", entryID.String()))
		return nil
	}
	if err != nil {
		return MapError(err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM outbox_attempts WHERE entry_id = $1`, entryID); err != nil {
		return MapError(err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM outbox WHERE id = $1`, entryID); err != nil {
		return MapError(err)
	}

	query := `
		UPDATE tasks SET sync_status = $1
		WHERE id = $2 AND NOT EXISTS (SELECT 1 FROM outbox WHERE task_id = $3)
	`
	result, err := db.ExecContext(ctx, query, string(domain.SyncStatusSynced), taskID, taskID)
	if err != nil {
		return MapError(err)
	}

	synced, _ := result.RowsAffected()
	log.Debug("outbox entry acknowledged",
		slog.String("entry_id", entryID.String()),
		slog.String("task_id", taskID.String()),
		slog.Bool("task_synced", synced > 0))
	return nil
}

// RecordAttempt implements store.OutboxStore.RecordAttempt
func (s *OutboxStore) RecordAttempt(ctx context.Context, entryID uuid.UUID, cause string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO outbox_attempts (entry_id, attempts, last_error, last_attempt_at)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (entry_id) DO UPDATE SET
			attempts = outbox_attempts.attempts + 1,
			last_error = excluded.last_error,
			last_attempt_at = excluded.last_attempt_at
	`
	_, err := s.db.ExecContext(ctx, query, entryID, cause, formatTime(time.Now()))
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrOutboxEntryNotFound, entryID)
		}
		log.Error("failed to record delivery attempt",
			slog.String("error", err.Error()),
			slog.String("entry_id", entryID.String()))
		return MapError(err)
	}

	return nil
}

// Count implements store.OutboxStore.Count
func (s *OutboxStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// WithTx implements store.OutboxStore.WithTx
func (s *OutboxStore) WithTx(tx *sql.Tx) store.OutboxStore {
	return &OutboxStore{
		db:     tx,
		logger: s.logger,
	}
}

// inTx runs fn inside a transaction, opening one only if the store is not
// already bound to a transaction.
func (s *OutboxStore) inTx(ctx context.Context, fn func(db store.DBTX) error) error {
	beginner, ok := s.db.(store.TxBeginner)
	if !ok {
		return fn(s.db)
	}
	return store.RunInTransaction(ctx, beginner, func(ctx context.Context, tx *sql.Tx) error {
		return fn(tx)
	})
}
