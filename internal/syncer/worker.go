package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/phrazzld/tasksync/internal/events"
	"github.com/sethvargo/go-retry"
)

// errPassIncomplete marks a pass that finished with failed items.
var errPassIncomplete = errors.New("sync pass left failed items")

// maxBackoffShift bounds the doubling of retry delays by entry failure history.
const maxBackoffShift = 6

// Prober reports whether the remote authority is reachable.
type Prober interface {
	ProbeConnectivity(ctx context.Context) bool
}

// WorkerConfig holds configuration for the background worker
type WorkerConfig struct {
	// Interval between scheduled passes
	Interval time.Duration

	// MaxRetries bounds the retries of a failed pass before waiting for the next tick
	MaxRetries int

	// BackoffBase is the first retry delay; each retry doubles it, and so does
	// each earlier failed pass of the most-failed entry
	BackoffBase time.Duration

	// BackoffMax caps a single retry delay
	BackoffMax time.Duration
}

// DefaultWorkerConfig returns a WorkerConfig with reasonable defaults
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Interval:    30 * time.Second,
		MaxRetries:  3,
		BackoffBase: time.Second,
		BackoffMax:  time.Minute,
	}
}

// Worker runs passes in the background: on every interval tick and shortly
// after a task change event. Passes that fail in transport or locally are
// retried with capped exponential backoff. Passes are skipped while the
// remote is unreachable.
type Worker struct {
	runner  Runner
	prober  Prober
	config  WorkerConfig
	trigger chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
	logger  *slog.Logger
}

// Ensure Worker implements events.EventHandler interface
var _ events.EventHandler = (*Worker)(nil)

// NewWorker creates a worker. prober may be nil to skip connectivity checks.
func NewWorker(runner Runner, prober Prober, config WorkerConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = defaults.BackoffBase
	}
	if config.BackoffMax < config.BackoffBase {
		config.BackoffMax = config.BackoffBase
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		runner:  runner,
		prober:  prober,
		config:  config,
		trigger: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With(slog.String("component", "sync_worker")),
	}
}

// Start launches the background loop. It returns an error if called twice.
func (w *Worker) Start() error {
	started := false
	w.once.Do(func() {
		started = true
		w.wg.Add(1)
		go w.loop()
	})
	if !started {
		return fmt.Errorf("sync worker already started")
	}
	w.logger.Info("sync worker started", slog.Duration("interval", w.config.Interval))
	return nil
}

// Stop cancels any running pass and waits for the loop to exit.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	w.logger.Info("sync worker stopped")
}

// Trigger requests a pass as soon as the worker is idle. Requests made while
// one is already pending are coalesced.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// HandleEvent implements events.EventHandler by scheduling an early pass.
func (w *Worker) HandleEvent(_ context.Context, event *events.ChangeEvent) error {
	w.logger.Debug("change event received, scheduling sync",
		slog.String("task_id", event.TaskID.String()),
		slog.String("operation", string(event.Operation)))
	w.Trigger()
	return nil
}

func (w *Worker) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.runPass(w.ctx)
		case <-w.trigger:
			w.runPass(w.ctx)
		}
	}
}

// runPass runs one pass and retries it while it fails in a way a retry can
// fix: a local error or a transport failure. Retry delays grow with the
// failure count of the most-failed entry, so a remote that has been down for
// many passes is not hammered on every tick.
func (w *Worker) runPass(ctx context.Context) {
	if w.prober != nil && !w.prober.ProbeConnectivity(ctx) {
		w.logger.Debug("remote unreachable, skipping sync pass")
		return
	}

	shift := 0
	exponential := retry.NewExponential(w.config.BackoffBase)
	scaled := retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := exponential.Next()
		if stop {
			return 0, true
		}
		if d > time.Duration(math.MaxInt64>>shift) {
			return time.Duration(math.MaxInt64), false
		}
		return d << shift, false
	})
	backoff := retry.WithCappedDuration(w.config.BackoffMax, scaled)
	backoff = retry.WithMaxRetries(uint64(w.config.MaxRetries), backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		result, err := w.runner.Sync(ctx)
		switch {
		case errors.Is(err, ErrPassInProgress):
			return nil
		case err != nil && ctx.Err() != nil:
			return err
		case err != nil:
			w.logger.Warn("sync pass failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return retry.RetryableError(err)
		case result.Success:
			return nil
		case !result.Retryable():
			w.logger.Warn("sync pass left entries a retry cannot deliver",
				slog.Int("attempt", attempt),
				slog.Int("synced_items", result.SyncedItems),
				slog.Int("failed_items", result.FailedItems),
				slog.Int("max_attempts", result.MaxAttempts()))
			return nil
		}

		shift = min(max(result.MaxAttempts()-1, 0), maxBackoffShift)
		w.logger.Warn("sync pass incomplete",
			slog.Int("attempt", attempt),
			slog.Int("synced_items", result.SyncedItems),
			slog.Int("failed_items", result.FailedItems),
			slog.Int("max_attempts", result.MaxAttempts()))
		return retry.RetryableError(errPassIncomplete)
	})
	if err != nil && ctx.Err() == nil {
		w.logger.Error("sync pass gave up until next interval",
			slog.Int("attempts", attempt),
			slog.String("error", err.Error()))
	}
}
