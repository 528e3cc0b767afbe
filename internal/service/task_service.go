package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/logger"
)

// TaskService coordinates task state transitions and fires rescoring.
type TaskService struct {
	tasks      TaskStore
	events     TaskEventReader
	employees  EmployeeReader
	dispatcher Dispatcher
	cfg        settings
	views      *viewCache
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	tasks TaskStore,
	events TaskEventReader,
	employees EmployeeReader,
	dispatcher Dispatcher,
	opts ...Option,
) *TaskService {
	cfg := newSettings(opts)
	return &TaskService{
		tasks:      tasks,
		events:     events,
		employees:  employees,
		dispatcher: dispatcher,
		cfg:        cfg,
		views:      newViewCache(cfg),
	}
}

// TransitionStatus moves a task forward. When the task enters COMPLETED with
// an owner, a rescore of that owner is enqueued after the change is committed.
// A failed enqueue is logged and does not undo the transition.
func (s *TaskService) TransitionStatus(
	ctx context.Context,
	orgID string,
	taskID string,
	newStatus domain.TaskStatus,
) (_ *domain.TaskEvent, err error) {
	ctx, span := startSpan(ctx, "TaskService.TransitionStatus", orgID, trace.WithAttributes(taskAttr(taskID)))
	defer func() { endSpan(span, err) }()

	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, newStatus)
	}

	task, event, err := s.tasks.ApplyTransition(ctx, orgID, taskID, newStatus, s.cfg.clock(),
		func(t *domain.Task) error {
			return ValidateTransition(t, newStatus)
		})
	if err != nil {
		return nil, dependencyError(ctx, err)
	}

	log := logger.FromContext(ctx)
	log.Info("task status changed",
		"task_id", taskID,
		"old_status", event.OldStatus,
		"new_status", event.NewStatus,
		"event_id", event.ID,
	)

	s.views.invalidate(ctx, s.views.keys.Dashboard(orgID))

	if event.IsCompletion() && task.EmployeeID != nil {
		completed := domain.TaskCompletedEvent{
			OrgID:      orgID,
			TaskID:     taskID,
			EmployeeID: *task.EmployeeID,
		}
		if err := s.dispatcher.OnTaskCompleted(ctx, completed); err != nil {
			log.Error("failed to enqueue rescore",
				"task_id", taskID,
				"employee_id", completed.EmployeeID,
				"error", err,
			)
		}
	}

	return event, nil
}

// RequestRescore enqueues a recomputation of one employee's score.
func (s *TaskService) RequestRescore(ctx context.Context, orgID, employeeID string) (err error) {
	ctx, span := startSpan(ctx, "TaskService.RequestRescore", orgID, trace.WithAttributes(employeeAttr(employeeID)))
	defer func() { endSpan(span, err) }()

	if _, err := fetch(ctx, s.cfg, func(ctx context.Context) (*domain.Employee, error) {
		return s.employees.GetByID(ctx, orgID, employeeID)
	}); err != nil {
		return err
	}

	return s.dispatcher.OnTaskCompleted(ctx, domain.TaskCompletedEvent{
		OrgID:      orgID,
		EmployeeID: employeeID,
	})
}

// Events returns the status changes of a task, oldest first.
func (s *TaskService) Events(ctx context.Context, orgID, taskID string) (_ []*domain.TaskEvent, err error) {
	ctx, span := startSpan(ctx, "TaskService.Events", orgID, trace.WithAttributes(taskAttr(taskID)))
	defer func() { endSpan(span, err) }()

	if _, err := fetch(ctx, s.cfg, func(ctx context.Context) (*domain.Task, error) {
		return s.tasks.GetByID(ctx, orgID, taskID)
	}); err != nil {
		return nil, err
	}

	return fetch(ctx, s.cfg, func(ctx context.Context) ([]*domain.TaskEvent, error) {
		return s.events.GetByTaskID(ctx, orgID, taskID)
	})
}
