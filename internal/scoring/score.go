// Package scoring holds the pure computations of the engine: productivity
// score and grade, candidate rank, skill overlap and gaps, and score trends.
// Nothing here performs I/O or reads the wall clock, so every function is safe
// for concurrent use.
package scoring

import (
	"math"

	"github.com/mtlprog/hrscore/internal/domain"
)

// Score weights. They sum to 100 so a perfect record scores 100.
const (
	completionWeight = 40.0
	onTimeWeight     = 35.0
	complexityWeight = 25.0
)

// Grade thresholds, inclusive on the lower edge.
const (
	gradeAPlusMin = 90.0
	gradeAMin     = 80.0
	gradeBMin     = 70.0
	gradeCMin     = 60.0
)

// Result is the outcome of Score. All fields are nil when the employee had no
// tasks, which is distinct from a score of zero.
type Result struct {
	Score     *float64
	Grade     *domain.Grade
	Breakdown *domain.Breakdown
}

// IsEmpty returns true for the null variant.
func (r Result) IsEmpty() bool {
	return r.Score == nil
}

// Score computes the productivity score of an employee from the tasks assigned
// to them. The score is computed from unrounded intermediates and rounded to
// one decimal; breakdown fields are rounded independently for display.
func Score(tasks []*domain.Task) Result {
	if len(tasks) == 0 {
		return Result{}
	}

	var completed, withDue, onTime, complexitySum int
	for _, t := range tasks {
		complexitySum += t.Complexity
		if !t.IsCompleted() {
			continue
		}
		completed++
		if t.DueDate != nil {
			withDue++
			if t.CompletedOnTime() {
				onTime++
			}
		}
	}

	total := float64(len(tasks))
	completionRate := float64(completed) / total

	// No deadline data at all means the rate defaults to zero.
	onTimeRate := 0.0
	if withDue > 0 {
		onTimeRate = float64(onTime) / float64(withDue)
	}

	avgComplexity := float64(complexitySum) / total

	raw := completionRate*completionWeight +
		onTimeRate*onTimeWeight +
		(avgComplexity/domain.MaxComplexity)*complexityWeight

	score := RoundTo(raw, 1)
	grade := GradeFor(score)

	return Result{
		Score: &score,
		Grade: &grade,
		Breakdown: &domain.Breakdown{
			CompletionRate: RoundTo(completionRate, 3),
			OnTimeRate:     RoundTo(onTimeRate, 3),
			AvgComplexity:  RoundTo(avgComplexity, 2),
			TotalAssigned:  len(tasks),
			TotalCompleted: completed,
			TotalOnTime:    onTime,
		},
	}
}

// GradeFor maps a rounded score to its letter grade.
func GradeFor(score float64) domain.Grade {
	switch {
	case score >= gradeAPlusMin:
		return domain.GradeAPlus
	case score >= gradeAMin:
		return domain.GradeA
	case score >= gradeBMin:
		return domain.GradeB
	case score >= gradeCMin:
		return domain.GradeC
	default:
		return domain.GradeD
	}
}

// RoundTo rounds v half away from zero to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
