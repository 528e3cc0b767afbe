package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// BreakdownVersion is the version tag written with every persisted breakdown.
const BreakdownVersion = 1

// Breakdown lists the factors that produced a productivity score.
// Rates are rounded to 3 decimals and AvgComplexity to 2 decimals.
type Breakdown struct {
	CompletionRate float64 `json:"completion_rate"`
	OnTimeRate     float64 `json:"on_time_rate"`
	AvgComplexity  float64 `json:"avg_complexity"`
	TotalAssigned  int     `json:"total_assigned"`
	TotalCompleted int     `json:"total_completed"`
	TotalOnTime    int     `json:"total_on_time"`
}

// ScoreLogEntry is one append-only row of the score history.
// A nil Score (and nil Breakdown) means the employee had no assigned tasks.
type ScoreLogEntry struct {
	ID         string
	EmployeeID string
	OrgID      string
	Score      *float64
	Breakdown  *Breakdown
	ComputedAt time.Time
}

// HasScore returns true if the entry carries a score.
func (e *ScoreLogEntry) HasScore() bool {
	return e.Score != nil
}

// breakdownV1 is the persisted shape of version 1. Pointers detect missing fields.
type breakdownV1 struct {
	Version        int      `json:"version"`
	CompletionRate *float64 `json:"completion_rate"`
	OnTimeRate     *float64 `json:"on_time_rate"`
	AvgComplexity  *float64 `json:"avg_complexity"`
	TotalAssigned  *int     `json:"total_assigned"`
	TotalCompleted *int     `json:"total_completed"`
	TotalOnTime    *int     `json:"total_on_time"`
}

// breakdownLegacy is the unversioned camelCase shape of rows written before
// the version tag existed.
type breakdownLegacy struct {
	CompletionRate *float64 `json:"completionRate"`
	OnTimeRate     *float64 `json:"onTimeRate"`
	AvgComplexity  *float64 `json:"avgComplexity"`
	TotalAssigned  *int     `json:"totalAssigned"`
	TotalCompleted *int     `json:"totalCompleted"`
	TotalOnTime    *int     `json:"totalOnTime"`
}

// EncodeBreakdown serializes a breakdown with the current version tag.
// A nil breakdown encodes to nil so the column stays NULL.
func EncodeBreakdown(b *Breakdown) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(breakdownV1{
		Version:        BreakdownVersion,
		CompletionRate: &b.CompletionRate,
		OnTimeRate:     &b.OnTimeRate,
		AvgComplexity:  &b.AvgComplexity,
		TotalAssigned:  &b.TotalAssigned,
		TotalCompleted: &b.TotalCompleted,
		TotalOnTime:    &b.TotalOnTime,
	})
}

// DecodeBreakdown parses a persisted breakdown. It never fails: NULL, unknown
// versions and shape mismatches all yield nil so old rows stay readable.
func DecodeBreakdown(raw []byte) *Breakdown {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}

	if probe.Version == nil {
		var legacy breakdownLegacy
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil
		}
		return assembleBreakdown(legacy.CompletionRate, legacy.OnTimeRate, legacy.AvgComplexity,
			legacy.TotalAssigned, legacy.TotalCompleted, legacy.TotalOnTime)
	}

	if *probe.Version != BreakdownVersion {
		return nil
	}
	var v1 breakdownV1
	if err := json.Unmarshal(raw, &v1); err != nil {
		return nil
	}
	return assembleBreakdown(v1.CompletionRate, v1.OnTimeRate, v1.AvgComplexity,
		v1.TotalAssigned, v1.TotalCompleted, v1.TotalOnTime)
}

func assembleBreakdown(completion, onTime, complexity *float64, assigned, completed, onTimeCount *int) *Breakdown {
	if completion == nil || onTime == nil || complexity == nil ||
		assigned == nil || completed == nil || onTimeCount == nil {
		return nil
	}
	return &Breakdown{
		CompletionRate: *completion,
		OnTimeRate:     *onTime,
		AvgComplexity:  *complexity,
		TotalAssigned:  *assigned,
		TotalCompleted: *completed,
		TotalOnTime:    *onTimeCount,
	}
}
