package syncer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/tasksync/internal/platform/logger"
	"golang.org/x/sync/singleflight"
)

const passKey = "sync"

// Coordinator serializes passes: callers that arrive while a pass is running
// join it and receive its result instead of starting another.
//
// The shared pass does not run under any single caller's context. It keeps
// running while at least one caller is still waiting for it and is cancelled
// once the last one gives up.
type Coordinator struct {
	runner Runner
	group  singleflight.Group
	logger *slog.Logger

	mu      sync.Mutex
	current *flight
}

// flight is the state of the pass callers are currently joining.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Ensure Coordinator implements Runner interface
var _ Runner = (*Coordinator)(nil)

// NewCoordinator wraps runner so that at most one pass runs at a time.
func NewCoordinator(runner Runner, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		runner: runner,
		logger: logger.With(slog.String("component", "sync_coordinator")),
	}
}

// Sync runs a pass or joins the one in flight. A caller whose ctx is done
// stops waiting and gets ctx.Err(); the last caller to leave cancels the pass
// and receives its partial result.
func (c *Coordinator) Sync(ctx context.Context) (*Result, error) {
	f, ch := c.join(ctx)

	select {
	case res := <-ch:
		c.leave(f)
		if res.Shared {
			logger.FromContextOrDefault(ctx, c.logger).Debug("joined in-flight sync pass")
		}
		result, _ := res.Val.(*Result)
		return result, res.Err
	case <-ctx.Done():
	}

	if !c.leave(f) {
		logger.FromContextOrDefault(ctx, c.logger).Debug("left shared sync pass still in flight")
		return nil, ctx.Err()
	}

	res := <-ch
	result, _ := res.Val.(*Result)
	return result, res.Err
}

func (c *Coordinator) join(ctx context.Context) (*flight, <-chan singleflight.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		// Keep the first caller's values, such as its logger, but not its cancellation.
		passCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c.current = &flight{ctx: passCtx, cancel: cancel}
	}
	f := c.current
	f.waiters++

	ch := c.group.DoChan(passKey, func() (any, error) {
		return c.runner.Sync(f.ctx)
	})
	return f, ch
}

// leave drops a waiter and reports whether it was the last one, in which case
// the pass is cancelled and later callers start a fresh one.
func (c *Coordinator) leave(f *flight) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return false
	}

	f.cancel()
	if c.current == f {
		c.current = nil
		c.group.Forget(passKey)
	}
	return true
}
