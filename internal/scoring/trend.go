package scoring

import (
	"time"

	"github.com/mtlprog/hrscore/internal/domain"
)

// Default trend policy: the last 7 days against the 23 days before them,
// with a one percent dead band.
const (
	DefaultTrendLookback  = 30 * 24 * time.Hour
	DefaultTrendRecent    = 7 * 24 * time.Hour
	DefaultTrendThreshold = 1.0
)

// TrendPolicy configures the windows compared by AnalyzeTrend.
type TrendPolicy struct {
	// Lookback is the full period examined, ending now.
	Lookback time.Duration
	// Recent is the trailing sub-window; the prior window is the rest of Lookback.
	Recent time.Duration
	// ThresholdPercent is the dead band around zero delta classified as stable.
	ThresholdPercent float64
}

// DefaultTrendPolicy returns the 7-vs-23 day policy.
func DefaultTrendPolicy() TrendPolicy {
	return TrendPolicy{
		Lookback:         DefaultTrendLookback,
		Recent:           DefaultTrendRecent,
		ThresholdPercent: DefaultTrendThreshold,
	}
}

// Since returns the earliest timestamp the policy looks at.
func (p TrendPolicy) Since(now time.Time) time.Time {
	return now.Add(-p.Lookback)
}

// AnalyzeTrend splits scored entries into the recent and prior windows ending
// at now and classifies the change of their averages. Entries without a score
// or outside the lookback are ignored. If either window is empty the result is
// TrendInsufficientData with nil delta and averages.
func AnalyzeTrend(entries []*domain.ScoreLogEntry, now time.Time, p TrendPolicy) domain.Trend {
	lookbackStart := now.Add(-p.Lookback)
	recentStart := now.Add(-p.Recent)

	var recentSum, priorSum float64
	var recentCount, priorCount int
	for _, e := range entries {
		if e == nil || e.Score == nil || e.ComputedAt.After(now) || e.ComputedAt.Before(lookbackStart) {
			continue
		}
		if e.ComputedAt.Before(recentStart) {
			priorSum += *e.Score
			priorCount++
		} else {
			recentSum += *e.Score
			recentCount++
		}
	}

	trend := domain.Trend{
		Direction:   domain.TrendInsufficientData,
		RecentCount: recentCount,
		PriorCount:  priorCount,
	}
	if recentCount == 0 || priorCount == 0 {
		return trend
	}

	recentAvg := recentSum / float64(recentCount)
	priorAvg := priorSum / float64(priorCount)
	roundedRecent := RoundTo(recentAvg, 1)
	roundedPrior := RoundTo(priorAvg, 1)
	trend.RecentAvg = &roundedRecent
	trend.PriorAvg = &roundedPrior

	// A zero baseline has no percentage change.
	if priorAvg == 0 {
		trend.Direction = domain.TrendStable
		if recentAvg > 0 {
			trend.Direction = domain.TrendImproving
		}
		return trend
	}

	delta := RoundTo((recentAvg-priorAvg)/priorAvg*100, 1)
	trend.DeltaPercent = &delta

	switch {
	case delta > p.ThresholdPercent:
		trend.Direction = domain.TrendImproving
	case delta < -p.ThresholdPercent:
		trend.Direction = domain.TrendDeclining
	default:
		trend.Direction = domain.TrendStable
	}
	return trend
}
