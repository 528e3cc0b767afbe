package domain

import "time"

// TaskEvent is an audit row written for every task status transition.
type TaskEvent struct {
	ID        string
	TaskID    string
	OrgID     string
	OldStatus TaskStatus
	NewStatus TaskStatus
	CreatedAt time.Time
}

// IsCompletion returns true if the event moved the task into COMPLETED.
func (e *TaskEvent) IsCompletion() bool {
	return e.OldStatus != TaskStatusCompleted && e.NewStatus == TaskStatusCompleted
}
