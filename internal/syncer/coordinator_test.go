package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/tasksync/internal/mocks"
	"github.com/phrazzld/tasksync/internal/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorSharesInFlightPass(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	want := &syncer.Result{Success: true, SyncedItems: 4}
	runner := &mocks.MockSyncRunner{
		SyncFn: func(context.Context) (*syncer.Result, error) {
			close(started)
			<-release
			return want, nil
		},
	}
	c := syncer.NewCoordinator(runner, testLogger())

	const callers = 5
	results := make(chan *syncer.Result, callers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		r, err := c.Sync(context.Background())
		assert.NoError(t, err)
		results <- r
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Sync(context.Background())
			assert.NoError(t, err)
			results <- r
		}()
	}

	// Give the joiners time to reach the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	assert.Equal(t, 1, runner.Calls())
	for r := range results {
		assert.Same(t, want, r)
	}
}

func TestCoordinatorRunsSequentialPasses(t *testing.T) {
	t.Parallel()

	runner := &mocks.MockSyncRunner{Result: &syncer.Result{Success: true}}
	c := syncer.NewCoordinator(runner, nil)

	for i := 0; i < 3; i++ {
		_, err := c.Sync(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, runner.Calls())
}

func TestCoordinatorPropagatesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("commit failed")
	partial := &syncer.Result{SyncedItems: 1}
	c := syncer.NewCoordinator(&mocks.MockSyncRunner{Result: partial, Err: boom}, nil)

	result, err := c.Sync(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Same(t, partial, result)
}

func TestCoordinatorPassOutlivesDepartingCaller(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	want := &syncer.Result{Success: true, SyncedItems: 2}
	runner := &mocks.MockSyncRunner{
		SyncFn: func(ctx context.Context) (*syncer.Result, error) {
			close(started)
			select {
			case <-release:
				return want, nil
			case <-ctx.Done():
				return &syncer.Result{}, ctx.Err()
			}
		},
	}
	c := syncer.NewCoordinator(runner, testLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := c.Sync(firstCtx)
		firstDone <- err
	}()
	<-started

	secondDone := make(chan *syncer.Result, 1)
	go func() {
		r, err := c.Sync(context.Background())
		assert.NoError(t, err)
		secondDone <- r
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("departing caller kept waiting for the shared pass")
	}

	close(release)
	select {
	case r := <-secondDone:
		assert.Same(t, want, r, "the remaining caller gets the uncancelled pass")
	case <-time.After(time.Second):
		t.Fatal("shared pass did not finish")
	}
	assert.Equal(t, 1, runner.Calls())
}

func TestCoordinatorLastCallerCancelsPass(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	partial := &syncer.Result{SyncedItems: 1}
	runner := &mocks.MockSyncRunner{
		SyncFn: func(ctx context.Context) (*syncer.Result, error) {
			close(started)
			<-ctx.Done()
			return partial, ctx.Err()
		},
	}
	c := syncer.NewCoordinator(runner, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	result, err := c.Sync(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Same(t, partial, result)

	// The next caller starts a fresh pass.
	runner.SyncFn = nil
	runner.Result = &syncer.Result{Success: true}
	result, err = c.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, runner.Calls())
}
