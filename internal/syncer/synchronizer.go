package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/remote"
	"github.com/phrazzld/tasksync/internal/store"
)

// DefaultBatchSize is the number of entries sent per remote call when unset.
const DefaultBatchSize = 10

// DefaultStuckAttempts is the failed-pass count from which an entry is reported as stuck.
const DefaultStuckAttempts = 5

// Config holds the settings a Synchronizer is constructed with.
type Config struct {
	// BatchSize is the maximum number of entries per remote call.
	// Zero means DefaultBatchSize.
	BatchSize int

	// StuckAttempts is the number of failed passes after which an entry is
	// logged as stuck on every further failure. Zero means DefaultStuckAttempts.
	StuckAttempts int
}

// Runner runs a single synchronization pass.
type Runner interface {
	Sync(ctx context.Context) (*Result, error)
}

// Synchronizer performs synchronization passes against one outbox and task store pair.
type Synchronizer struct {
	cfg     Config
	outbox  store.OutboxStore
	tasks   store.TaskStore
	db      store.TxBeginner
	client  remote.Client
	logger  *slog.Logger
	running atomic.Bool
}

// Ensure Synchronizer implements Runner interface
var _ Runner = (*Synchronizer)(nil)

// New creates a Synchronizer. db begins the transactions that tie conflict
// writes to their acknowledgments; the stores must be bound to the same database.
func New(
	cfg Config,
	outbox store.OutboxStore,
	tasks store.TaskStore,
	db store.TxBeginner,
	client remote.Client,
	logger *slog.Logger,
) (*Synchronizer, error) {
	if outbox == nil {
		return nil, fmt.Errorf("outbox store cannot be nil")
	}
	if tasks == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("remote client cannot be nil")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", cfg.BatchSize)
	}
	if cfg.StuckAttempts <= 0 {
		cfg.StuckAttempts = DefaultStuckAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Synchronizer{
		cfg:    cfg,
		outbox: outbox,
		tasks:  tasks,
		db:     db,
		client: client,
		logger: logger.With(slog.String("component", "synchronizer")),
	}, nil
}

// Sync runs one pass over a snapshot of the outbox.
//
// Transport failures, conflict resolution failures and missing outcomes are
// recorded in the result and never abort the pass. An error is returned only
// when ctx is done, a local store operation fails or a pass is already
// running; when ctx is done the partial result is returned with ctx.Err() and
// unprocessed entries are left queued.
func (s *Synchronizer) Sync(ctx context.Context) (*Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrPassInProgress
	}
	defer s.running.Store(false)

	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("pass_id", uuid.NewString()))
	ctx = logger.WithLogger(ctx, log)

	result := newResult()

	entries, err := s.outbox.DrainOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	if len(entries) == 0 {
		log.Debug("outbox empty, nothing to sync")
		return result.finish(), nil
	}

	batches := Partition(entries, s.cfg.BatchSize)
	log.Info("starting sync pass",
		slog.Int("entries", len(entries)),
		slog.Int("batches", len(batches)),
		slog.Int("batch_size", s.cfg.BatchSize))

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			log.Warn("sync pass cancelled", slog.Int("remaining_batches", len(batches)-i))
			return result.finish(), err
		}
		if err := s.processBatch(ctx, i+1, len(batches), batch, result); err != nil {
			return result.finish(), err
		}
	}

	result.finish()
	log.Info("sync pass finished",
		slog.Bool("success", result.Success),
		slog.Int("synced_items", result.SyncedItems),
		slog.Int("failed_items", result.FailedItems))
	return result, nil
}

// processBatch sends one batch and applies its outcomes. Only cancellation and
// local store failures are returned.
func (s *Synchronizer) processBatch(
	ctx context.Context,
	number, total int,
	batch []*domain.OutboxEntry,
	result *Result,
) error {
	log := logger.FromContext(ctx).With(slog.Int("batch", number))

	resp, err := s.client.SendBatch(ctx, batch)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn("batch failed", slog.Int("items", len(batch)), slog.String("error", err.Error()))
		result.batchFailed(number, batch,
			fmt.Errorf("batch %d of %d (%d items) failed: %w", number, total, len(batch), err))
		s.recordAttempts(ctx, batch, err)
		return nil
	}

	submitted := make(map[uuid.UUID]*domain.OutboxEntry, len(batch))
	for _, entry := range batch {
		submitted[entry.ID] = entry
	}
	answered := make(map[uuid.UUID]bool, len(batch))

	for _, item := range resp.ProcessedItems {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry, ok := submitted[item.ClientID]
		if !ok {
			log.Warn("ignoring outcome for unknown entry", slog.String("client_id", item.ClientID.String()))
			continue
		}
		if answered[item.ClientID] {
			log.Warn("ignoring duplicate outcome", slog.String("client_id", item.ClientID.String()))
			continue
		}

		switch item.Status {
		case remote.OutcomeOK:
			answered[entry.ID] = true
			if err := s.outbox.Acknowledge(ctx, entry.ID); err != nil {
				return fmt.Errorf("failed to acknowledge entry %s: %w", entry.ID, err)
			}
			result.synced()
		case remote.OutcomeConflict:
			answered[entry.ID] = true
			if err := s.applyConflict(ctx, entry, item.ResolvedData, result); err != nil {
				return err
			}
		case remote.OutcomeRejected:
			answered[entry.ID] = true
			err := fmt.Errorf("%w: %s", ErrRejectedByRemote, item.Error)
			log.Warn("entry rejected by remote",
				slog.String("entry_id", entry.ID.String()),
				slog.String("error", item.Error))
			result.entryFailed(KindRejected, entry, err)
			s.recordAttempt(ctx, entry, err)
		default:
			log.Warn("ignoring outcome with unknown status",
				slog.String("client_id", item.ClientID.String()),
				slog.String("status", string(item.Status)))
		}
	}

	for _, entry := range batch {
		if answered[entry.ID] {
			continue
		}
		result.entryFailed(KindMissingOutcome, entry, errOutcomeMissing)
		s.recordAttempt(ctx, entry, errOutcomeMissing)
	}

	return nil
}

// applyConflict resolves a conflict outcome. A resolution failure is recorded
// in result and leaves the entry queued; only local store failures are returned.
func (s *Synchronizer) applyConflict(
	ctx context.Context,
	entry *domain.OutboxEntry,
	resolved *domain.Task,
	result *Result,
) error {
	log := logger.FromContext(ctx).With(
		slog.String("entry_id", entry.ID.String()),
		slog.String("task_id", entry.TaskID.String()))

	fail := func(cause error) error {
		err := &ConflictResolutionError{EntryID: entry.ID, TaskID: entry.TaskID, Err: cause}
		log.Warn("conflict left unresolved", slog.String("error", err.Error()))
		result.entryFailed(KindConflictResolution, entry, err)
		s.recordAttempt(ctx, entry, err)
		return nil
	}

	if resolved == nil {
		return fail(ErrMissingResolvedData)
	}
	if resolved.ID != entry.TaskID {
		return fail(ErrMismatchedTask)
	}

	remoteTask := *resolved
	remoteTask.SyncStatus = domain.SyncStatusPending
	if err := remoteTask.Validate(); err != nil {
		return fail(err)
	}

	local, err := s.tasks.GetByIDIncludingDeleted(ctx, entry.TaskID)
	if errors.Is(err, store.ErrNotFound) {
		return fail(ErrLocalTaskMissing)
	}
	if err != nil {
		return fmt.Errorf("failed to load task %s for conflict resolution: %w", entry.TaskID, err)
	}

	winner := Resolve(local, &remoteTask)
	localWins := winner == local

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		outbox := s.outbox.WithTx(tx)

		if localWins {
			if err := s.requeueLocal(ctx, tasks, outbox, local); err != nil {
				return err
			}
		} else if err := tasks.Upsert(ctx, winner); err != nil {
			return fmt.Errorf("failed to write remote version: %w", err)
		}

		return outbox.Acknowledge(ctx, entry.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to apply conflict resolution for entry %s: %w", entry.ID, err)
	}

	log.Info("conflict resolved", slog.Bool("local_wins", localWins))
	result.synced()
	return nil
}

// requeueLocal keeps the local version and queues it again so the remote converges.
func (s *Synchronizer) requeueLocal(
	ctx context.Context,
	tasks store.TaskStore,
	outbox store.OutboxStore,
	local *domain.Task,
) error {
	op := domain.OperationUpdate
	if local.IsDeleted {
		op = domain.OperationDelete
	}

	snapshot := *local
	snapshot.SyncStatus = domain.SyncStatusPending
	entry, err := domain.NewTaskSnapshotEntry(&snapshot, op)
	if err != nil {
		return fmt.Errorf("failed to snapshot local version: %w", err)
	}
	if err := outbox.Enqueue(ctx, entry); err != nil {
		return fmt.Errorf("failed to requeue local version: %w", err)
	}
	if local.SyncStatus != domain.SyncStatusPending {
		if err := tasks.SetSyncStatus(ctx, local.ID, domain.SyncStatusPending); err != nil {
			return fmt.Errorf("failed to mark task pending: %w", err)
		}
	}
	return nil
}

func (s *Synchronizer) recordAttempts(ctx context.Context, entries []*domain.OutboxEntry, cause error) {
	for _, entry := range entries {
		s.recordAttempt(ctx, entry, cause)
	}
}

// recordAttempt updates retry bookkeeping and reports entries that keep
// failing. Bookkeeping failures are logged only and never decide whether an
// entry is delivered.
func (s *Synchronizer) recordAttempt(ctx context.Context, entry *domain.OutboxEntry, cause error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if err := s.outbox.RecordAttempt(ctx, entry.ID, cause.Error()); err != nil {
		log.Warn("failed to record delivery attempt",
			slog.String("entry_id", entry.ID.String()),
			slog.String("error", err.Error()))
	}

	if attempts := entry.RetryCount + 1; attempts >= s.cfg.StuckAttempts {
		log.Error("outbox entry keeps failing",
			slog.String("entry_id", entry.ID.String()),
			slog.String("task_id", entry.TaskID.String()),
			slog.String("operation", string(entry.Operation)),
			slog.Int("attempts", attempts),
			slog.String("error", cause.Error()))
	}
}
