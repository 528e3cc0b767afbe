package dto

import (
	"time"

	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/scoring"
)

// ScoreLogEntryResponse is one persisted score in the history view.
type ScoreLogEntryResponse struct {
	ID         string            `json:"id"`
	Score      *float64          `json:"score"`
	Grade      *domain.Grade     `json:"grade"`
	Breakdown  *domain.Breakdown `json:"breakdown"`
	ComputedAt time.Time         `json:"computed_at"`
}

// ScoreHistoryResponse represents the response for GET /employees/{id}/score-history.
type ScoreHistoryResponse struct {
	EmployeeID string                  `json:"employee_id"`
	Since      time.Time               `json:"since"`
	Entries    []ScoreLogEntryResponse `json:"entries"`
}

// TaskEventResponse represents the audit event returned by a status change.
type TaskEventResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskEventsResponse lists the status history of one task, oldest first.
type TaskEventsResponse struct {
	TaskID string              `json:"task_id"`
	Events []TaskEventResponse `json:"events"`
}

// RescoreAcceptedResponse acknowledges a queued rescore.
type RescoreAcceptedResponse struct {
	EmployeeID string `json:"employee_id"`
	Status     string `json:"status"`
}

// ToScoreHistoryResponse converts score log entries to the history view.
func ToScoreHistoryResponse(employeeID string, since time.Time, entries []*domain.ScoreLogEntry) ScoreHistoryResponse {
	out := make([]ScoreLogEntryResponse, len(entries))
	for i, e := range entries {
		var grade *domain.Grade
		if e.Score != nil {
			g := scoring.GradeFor(*e.Score)
			grade = &g
		}
		out[i] = ScoreLogEntryResponse{
			ID:         e.ID,
			Score:      e.Score,
			Grade:      grade,
			Breakdown:  e.Breakdown,
			ComputedAt: e.ComputedAt,
		}
	}
	return ScoreHistoryResponse{
		EmployeeID: employeeID,
		Since:      since,
		Entries:    out,
	}
}

// ToTaskEventResponse converts domain.TaskEvent to TaskEventResponse.
func ToTaskEventResponse(event *domain.TaskEvent) TaskEventResponse {
	return TaskEventResponse{
		ID:        event.ID,
		TaskID:    event.TaskID,
		OldStatus: string(event.OldStatus),
		NewStatus: string(event.NewStatus),
		CreatedAt: event.CreatedAt,
	}
}

// ToTaskEventsResponse converts a task's events to the history view.
func ToTaskEventsResponse(taskID string, events []*domain.TaskEvent) TaskEventsResponse {
	out := make([]TaskEventResponse, len(events))
	for i, e := range events {
		out[i] = ToTaskEventResponse(e)
	}
	return TaskEventsResponse{TaskID: taskID, Events: out}
}
