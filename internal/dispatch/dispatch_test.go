package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/hrscore/internal/domain"
)

// fakeRescorer fails the first failFirst attempts of every job with err.
type fakeRescorer struct {
	mu        sync.Mutex
	calls     []domain.TaskCompletedEvent
	attempts  atomic.Int32
	failFirst int32
	err       error
	block     chan struct{}
}

func (f *fakeRescorer) RecomputeAndPersist(ctx context.Context, orgID, taskID, employeeID string) (*domain.ScoreLogEntry, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	n := f.attempts.Add(1)
	if n <= f.failFirst {
		return nil, f.err
	}

	f.mu.Lock()
	f.calls = append(f.calls, domain.TaskCompletedEvent{OrgID: orgID, TaskID: taskID, EmployeeID: employeeID})
	f.mu.Unlock()
	return &domain.ScoreLogEntry{ID: "entry", EmployeeID: employeeID, OrgID: orgID}, nil
}

func (f *fakeRescorer) completed() []domain.TaskCompletedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.TaskCompletedEvent, len(f.calls))
	copy(out, f.calls)
	return out
}

func event(i string) domain.TaskCompletedEvent {
	return domain.TaskCompletedEvent{OrgID: "org", TaskID: "task-" + i, EmployeeID: "emp-" + i}
}

func TestDispatcher_ProcessesEvents(t *testing.T) {
	r := &fakeRescorer{}
	d := New(r, WithWorkers(2), WithQueueSize(10))
	d.Start(context.Background())

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, d.OnTaskCompleted(context.Background(), event(id)))
	}

	require.NoError(t, d.Shutdown(context.Background()))
	assert.ElementsMatch(t, []domain.TaskCompletedEvent{event("1"), event("2"), event("3")}, r.completed())
}

func TestDispatcher_ReturnsBeforeJobRuns(t *testing.T) {
	r := &fakeRescorer{block: make(chan struct{})}
	d := New(r, WithWorkers(1))
	d.Start(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.OnTaskCompleted(context.Background(), event("1")) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("OnTaskCompleted blocked on the job")
	}

	close(r.block)
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Len(t, r.completed(), 1)
}

func TestDispatcher_RetriesTransientErrors(t *testing.T) {
	r := &fakeRescorer{failFirst: 2, err: errors.New("connection reset")}
	d := New(r, WithWorkers(1), WithRetry(3, time.Millisecond))
	d.Start(context.Background())

	require.NoError(t, d.OnTaskCompleted(context.Background(), event("1")))
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, int32(3), r.attempts.Load())
	assert.Len(t, r.completed(), 1)
}

func TestDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	r := &fakeRescorer{failFirst: 100, err: domain.ErrDependencyTimeout}
	d := New(r, WithWorkers(1), WithRetry(2, time.Millisecond))
	d.Start(context.Background())

	require.NoError(t, d.OnTaskCompleted(context.Background(), event("1")))
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, int32(3), r.attempts.Load())
	assert.Empty(t, r.completed())
}

func TestDispatcher_DoesNotRetryNotFound(t *testing.T) {
	r := &fakeRescorer{failFirst: 100, err: domain.ErrEmployeeNotFound}
	d := New(r, WithWorkers(1), WithRetry(3, time.Millisecond))
	d.Start(context.Background())

	require.NoError(t, d.OnTaskCompleted(context.Background(), event("1")))
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, int32(1), r.attempts.Load())
}

func TestDispatcher_QueueFull(t *testing.T) {
	r := &fakeRescorer{}
	d := New(r, WithQueueSize(1))

	require.NoError(t, d.OnTaskCompleted(context.Background(), event("1")))
	err := d.OnTaskCompleted(context.Background(), event("2"))
	assert.ErrorIs(t, err, domain.ErrRescoreQueueFull)

	d.Start(context.Background())
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, []domain.TaskCompletedEvent{event("1")}, r.completed())
}

func TestDispatcher_RejectsAfterShutdown(t *testing.T) {
	d := New(&fakeRescorer{})
	d.Start(context.Background())
	require.NoError(t, d.Shutdown(context.Background()))

	err := d.OnTaskCompleted(context.Background(), event("1"))
	assert.ErrorIs(t, err, domain.ErrDispatcherStopped)

	assert.NoError(t, d.Shutdown(context.Background()))
}

func TestDispatcher_IgnoresEventsWithoutEmployee(t *testing.T) {
	r := &fakeRescorer{}
	d := New(r, WithQueueSize(1))

	require.NoError(t, d.OnTaskCompleted(context.Background(), domain.TaskCompletedEvent{OrgID: "org", TaskID: "t"}))
	require.NoError(t, d.OnTaskCompleted(context.Background(), event("1")))
}

func TestDispatcher_ShutdownTimeoutCancelsJobs(t *testing.T) {
	r := &fakeRescorer{block: make(chan struct{})}
	d := New(r, WithWorkers(1), WithRetry(0, time.Millisecond))
	d.Start(context.Background())
	require.NoError(t, d.OnTaskCompleted(context.Background(), event("1")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, r.completed())
}
