package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/store"
)

// TaskService provides task CRUD whose writes are queued for synchronization.
type TaskService interface {
	// CreateTask creates a pending task and queues a create entry.
	CreateTask(ctx context.Context, title, description string) (*domain.Task, error)

	// GetTask retrieves a live task by ID.
	// Returns ErrTaskNotFound if it does not exist or is deleted.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListTasks returns all live tasks ordered by creation time.
	ListTasks(ctx context.Context) ([]*domain.Task, error)

	// UpdateTask applies a partial update and queues an update entry.
	// Returns ErrTaskNotFound if the task does not exist or is deleted.
	UpdateTask(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)

	// DeleteTask soft-deletes a task and queues a delete entry.
	// Returns ErrTaskNotFound if the task does not exist or is already deleted.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// EnqueueChange records a change intent for a task mutated outside this
	// service. It runs in its own transaction.
	EnqueueChange(ctx context.Context, taskID uuid.UUID, op domain.Operation, payload json.RawMessage) (*domain.OutboxEntry, error)

	// EnqueueChangeTx is EnqueueChange bound to the caller's transaction, for
	// callers that write the task row themselves.
	EnqueueChangeTx(ctx context.Context, tx *sql.Tx, taskID uuid.UUID, op domain.Operation, payload json.RawMessage) (*domain.OutboxEntry, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	db           store.TxBeginner
	tasks        store.TaskStore
	outbox       store.OutboxStore
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	db store.TxBeginner,
	tasks store.TaskStore,
	outbox store.OutboxStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	switch {
	case db == nil:
		return nil, &TaskServiceError{Operation: "create_service", Message: "db cannot be nil"}
	case tasks == nil:
		return nil, &TaskServiceError{Operation: "create_service", Message: "tasks cannot be nil"}
	case outbox == nil:
		return nil, &TaskServiceError{Operation: "create_service", Message: "outbox cannot be nil"}
	case eventEmitter == nil:
		return nil, &TaskServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		db:           db,
		tasks:        tasks,
		outbox:       outbox,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "task_service"),
	}, nil
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(ctx context.Context, title, description string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(title, description)
	if err != nil {
		log.Debug("rejected invalid task", "error", err)
		return nil, NewTaskServiceError("create_task", "invalid task", err)
	}

	var entry *domain.OutboxEntry
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.tasks.WithTx(tx).Create(ctx, task); err != nil {
			return NewTaskServiceError("create_task", "failed to save task", err)
		}
		entry, err = s.enqueueSnapshot(ctx, tx, task, domain.OperationCreate)
		return err
	})
	if err != nil {
		log.Error("failed to create task", "error", err, "task_id", task.ID)
		return nil, err
	}

	log.Info("task created", "task_id", task.ID, "entry_id", entry.ID)
	s.emit(ctx, entry)
	return task, nil
}

// GetTask implements TaskService.GetTask
func (s *taskServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// ListTasks implements TaskService.ListTasks
func (s *taskServiceImpl) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	id uuid.UUID,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		task  *domain.Task
		entry *domain.OutboxEntry
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		var err error
		task, err = txTasks.GetByID(ctx, id)
		if err != nil {
			return NewTaskServiceError("update_task", "failed to retrieve task", err)
		}
		if err := task.Apply(patch); err != nil {
			return NewTaskServiceError("update_task", "invalid update", err)
		}
		if err := txTasks.Update(ctx, task); err != nil {
			return NewTaskServiceError("update_task", "failed to save task", err)
		}
		entry, err = s.enqueueSnapshot(ctx, tx, task, domain.OperationUpdate)
		return err
	})
	if err != nil {
		log.Debug("task update failed", "error", err, "task_id", id)
		return nil, err
	}

	log.Info("task updated", "task_id", id, "entry_id", entry.ID)
	s.emit(ctx, entry)
	return task, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var entry *domain.OutboxEntry
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		task, err := txTasks.GetByID(ctx, id)
		if err != nil {
			return NewTaskServiceError("delete_task", "failed to retrieve task", err)
		}
		task.MarkDeleted()
		if err := txTasks.Update(ctx, task); err != nil {
			return NewTaskServiceError("delete_task", "failed to save task", err)
		}
		entry, err = s.enqueueSnapshot(ctx, tx, task, domain.OperationDelete)
		return err
	})
	if err != nil {
		log.Debug("task delete failed", "error", err, "task_id", id)
		return err
	}

	log.Info("task deleted", "task_id", id, "entry_id", entry.ID)
	s.emit(ctx, entry)
	return nil
}

// EnqueueChange implements TaskService.EnqueueChange
func (s *taskServiceImpl) EnqueueChange(
	ctx context.Context,
	taskID uuid.UUID,
	op domain.Operation,
	payload json.RawMessage,
) (*domain.OutboxEntry, error) {
	var entry *domain.OutboxEntry
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		entry, err = s.EnqueueChangeTx(ctx, tx, taskID, op, payload)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, entry)
	return entry, nil
}

// EnqueueChangeTx implements TaskService.EnqueueChangeTx
// The change event is not emitted here because the caller owns the commit.
func (s *taskServiceImpl) EnqueueChangeTx(
	ctx context.Context,
	tx *sql.Tx,
	taskID uuid.UUID,
	op domain.Operation,
	payload json.RawMessage,
) (*domain.OutboxEntry, error) {
	entry, err := domain.NewOutboxEntry(taskID, op, payload)
	if err != nil {
		return nil, NewTaskServiceError("enqueue_change", "invalid outbox entry", err)
	}
	if err := s.outbox.WithTx(tx).Enqueue(ctx, entry); err != nil {
		return nil, NewTaskServiceError("enqueue_change", "failed to enqueue change", err)
	}
	return entry, nil
}

func (s *taskServiceImpl) enqueueSnapshot(
	ctx context.Context,
	tx *sql.Tx,
	task *domain.Task,
	op domain.Operation,
) (*domain.OutboxEntry, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, NewTaskServiceError(string(op)+"_task", "failed to serialize task", err)
	}
	return s.EnqueueChangeTx(ctx, tx, task.ID, op, payload)
}

// emit announces a committed change. Failures are logged, not returned.
func (s *taskServiceImpl) emit(ctx context.Context, entry *domain.OutboxEntry) {
	if err := s.eventEmitter.EmitEvent(ctx, events.NewChangeEvent(entry)); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit change event",
			"error", err,
			"task_id", entry.TaskID,
			"entry_id", entry.ID)
	}
}
