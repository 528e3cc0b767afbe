// Package dispatch runs score recomputations out of band.
//
// OnTaskCompleted only enqueues; a fixed pool of workers drains the queue and
// calls the rescorer with a bounded exponential retry.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/metrics"
)

// Defaults used when no option overrides them.
const (
	DefaultQueueSize  = 1024
	DefaultWorkers    = 4
	DefaultMaxRetries = 3
	DefaultRetryBase  = 200 * time.Millisecond
	DefaultJobTimeout = 30 * time.Second
)

var tracer = otel.Tracer("github.com/mtlprog/hrscore/internal/dispatch")

// Rescorer recomputes and persists one employee's score.
type Rescorer interface {
	RecomputeAndPersist(ctx context.Context, orgID, taskID, employeeID string) (*domain.ScoreLogEntry, error)
}

// Dispatcher is a bounded queue of rescore jobs with a worker pool.
type Dispatcher struct {
	rescorer   Rescorer
	queueSize  int
	workers    int
	maxRetries uint64
	retryBase  time.Duration
	jobTimeout time.Duration

	jobs chan domain.TaskCompletedEvent

	mu      sync.RWMutex
	started bool
	stopped bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
	log    *slog.Logger
}

// New creates a dispatcher. Call Start before events are processed.
func New(rescorer Rescorer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		rescorer:   rescorer,
		queueSize:  DefaultQueueSize,
		workers:    DefaultWorkers,
		maxRetries: DefaultMaxRetries,
		retryBase:  DefaultRetryBase,
		jobTimeout: DefaultJobTimeout,
		log:        slog.With("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.jobs = make(chan domain.TaskCompletedEvent, d.queueSize)
	metrics.UpdateQueueCapacity(d.queueSize)
	metrics.UpdateQueueDepth(0)

	return d
}

// Start launches the workers. Jobs run under contexts derived from ctx with
// its cancellation removed; Shutdown decides when they stop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(runCtx, i)
	}

	d.log.Info("dispatcher started", "workers", d.workers, "queue_size", d.queueSize)
}

// OnTaskCompleted enqueues a rescore job and returns without waiting for it.
// Events without an employee are ignored.
func (d *Dispatcher) OnTaskCompleted(ctx context.Context, event domain.TaskCompletedEvent) error {
	if event.EmployeeID == "" {
		d.log.DebugContext(ctx, "completion without owner ignored", "task_id", event.TaskID)
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return domain.ErrDispatcherStopped
	}

	select {
	case d.jobs <- event:
		metrics.UpdateQueueDepth(len(d.jobs))
		return nil
	default:
		metrics.RecordRescore(metrics.RescoreDropped)
		d.log.WarnContext(ctx, "rescore queue full, job dropped",
			"org_id", event.OrgID,
			"task_id", event.TaskID,
			"employee_id", event.EmployeeID,
		)
		return domain.ErrRescoreQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. When ctx
// expires first, in-flight jobs are cancelled and ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if d.cancel != nil {
			d.cancel()
		}
		d.log.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
		d.log.Warn("dispatcher shutdown timed out", "pending", len(d.jobs))
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) run(ctx context.Context, id int) {
	defer d.wg.Done()

	for event := range d.jobs {
		metrics.UpdateQueueDepth(len(d.jobs))
		if ctx.Err() != nil {
			metrics.RecordRescore(metrics.RescoreDropped)
			continue
		}
		d.process(ctx, id, event)
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, event domain.TaskCompletedEvent) {
	ctx, span := tracer.Start(ctx, "Dispatcher.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("org.id", event.OrgID),
			attribute.String("task.id", event.TaskID),
			attribute.String("employee.id", event.EmployeeID),
			attribute.Int("worker.id", workerID),
		),
	)
	defer span.End()

	start := time.Now()
	attempts := 0

	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewExponential(d.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		jobCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
		defer cancel()

		_, err := d.rescorer.RecomputeAndPersist(jobCtx, event.OrgID, event.TaskID, event.EmployeeID)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		metrics.RecordRescore(metrics.RescoreRetried)
		return retry.RetryableError(err)
	})

	metrics.RecordRescoreDuration(time.Since(start))
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRescore(metrics.RescoreFailed)
		d.log.Error("rescore failed",
			"org_id", event.OrgID,
			"task_id", event.TaskID,
			"employee_id", event.EmployeeID,
			"attempts", attempts,
			"error", err,
		)
		return
	}

	metrics.RecordRescore(metrics.RescoreSucceeded)
}

// isRetryable reports whether another attempt may succeed.
func isRetryable(err error) bool {
	return !errors.Is(err, domain.ErrNotFound)
}
