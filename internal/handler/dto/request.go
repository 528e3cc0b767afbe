package dto

import (
	"fmt"
	"strconv"
)

// History window bounds for GET /employees/{id}/score-history.
const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 365
)

// TransitionStatusRequest represents the request body for PATCH /tasks/{id}/status.
type TransitionStatusRequest struct {
	Status string `json:"status"`
}

// ParseHistoryDays parses the ?days= query parameter.
// An empty value yields DefaultHistoryDays.
func ParseHistoryDays(raw string) (int, error) {
	if raw == "" {
		return DefaultHistoryDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > MaxHistoryDays {
		return 0, fmt.Errorf("days must be an integer between 1 and %d", MaxHistoryDays)
	}
	return days, nil
}
