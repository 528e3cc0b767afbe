package domain

import "time"

// TaskStatus represents the status of a task in the forward-only state machine
// ASSIGNED -> IN_PROGRESS -> COMPLETED.
type TaskStatus string

const (
	TaskStatusAssigned   TaskStatus = "ASSIGNED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// MaxComplexity is the upper bound of Task.Complexity.
const MaxComplexity = 5

// order returns the position of the status in the state machine, or -1.
func (s TaskStatus) order() int {
	switch s {
	case TaskStatusAssigned:
		return 0
	case TaskStatusInProgress:
		return 1
	case TaskStatusCompleted:
		return 2
	default:
		return -1
	}
}

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	return s.order() >= 0
}

// IsTerminal returns true if no transition leaves this status.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted
}

// CanTransitionTo reports whether moving from s to next is a forward step.
// Skipping IN_PROGRESS is allowed; staying in place or moving back is not.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	return next.order() > s.order()
}

// Task is the subset of a task record consumed by the scoring engine.
type Task struct {
	ID             string
	OrgID          string
	Title          string
	Status         TaskStatus
	Complexity     int
	DueDate        *time.Time
	CompletedAt    *time.Time
	RequiredSkills []string
	EmployeeID     *string
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsCompleted returns true if the task reached the terminal status.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// CompletedOnTime reports whether a completed task with a due date finished
// no later than that date. Tasks without a due date are never on time.
func (t *Task) CompletedOnTime() bool {
	if !t.IsCompleted() || t.DueDate == nil || t.CompletedAt == nil {
		return false
	}
	return !t.CompletedAt.After(*t.DueDate)
}

// IsAssignedTo checks if the task is owned by the given employee.
func (t *Task) IsAssignedTo(employeeID string) bool {
	return t.EmployeeID != nil && *t.EmployeeID == employeeID
}

// TaskCompletedEvent is emitted exactly once when a task enters COMPLETED.
// EmployeeID is the owner at completion time. TaskID is empty for on-demand
// rescore requests.
type TaskCompletedEvent struct {
	OrgID      string
	TaskID     string
	EmployeeID string
}
