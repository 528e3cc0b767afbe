package scoring_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/scoring"
)

func entry(score float64, at time.Time) *domain.ScoreLogEntry {
	return &domain.ScoreLogEntry{Score: &score, ComputedAt: at}
}

func TestAnalyzeTrend(t *testing.T) {
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	policy := scoring.DefaultTrendPolicy()

	Convey("Given scores only in the recent window", t, func() {
		trend := scoring.AnalyzeTrend([]*domain.ScoreLogEntry{
			entry(70, now.Add(-2*day)),
		}, now, policy)

		Convey("Then the result is insufficient data, not a zero delta", func() {
			So(trend.Direction, ShouldEqual, domain.TrendInsufficientData)
			So(trend.DeltaPercent, ShouldBeNil)
			So(trend.RecentAvg, ShouldBeNil)
			So(trend.PriorAvg, ShouldBeNil)
			So(trend.RecentCount, ShouldEqual, 1)
			So(trend.PriorCount, ShouldEqual, 0)
		})
	})

	Convey("Given no entries", t, func() {
		trend := scoring.AnalyzeTrend(nil, now, policy)

		Convey("Then the result is insufficient data", func() {
			So(trend.Direction, ShouldEqual, domain.TrendInsufficientData)
		})
	})

	Convey("Given a rising series", t, func() {
		trend := scoring.AnalyzeTrend([]*domain.ScoreLogEntry{
			entry(60, now.Add(-20*day)),
			entry(60, now.Add(-10*day)),
			entry(66, now.Add(-3*day)),
		}, now, policy)

		Convey("Then the delta is a percentage of the prior average", func() {
			So(trend.Direction, ShouldEqual, domain.TrendImproving)
			So(*trend.DeltaPercent, ShouldEqual, 10.0)
			So(*trend.RecentAvg, ShouldEqual, 66.0)
			So(*trend.PriorAvg, ShouldEqual, 60.0)
		})
	})

	Convey("Given a falling series", t, func() {
		trend := scoring.AnalyzeTrend([]*domain.ScoreLogEntry{
			entry(80, now.Add(-15*day)),
			entry(60, now.Add(-1*day)),
		}, now, policy)

		Convey("Then the trend is declining", func() {
			So(trend.Direction, ShouldEqual, domain.TrendDeclining)
			So(*trend.DeltaPercent, ShouldEqual, -25.0)
		})
	})

	Convey("Given a change inside the dead band", t, func() {
		trend := scoring.AnalyzeTrend([]*domain.ScoreLogEntry{
			entry(80, now.Add(-15*day)),
			entry(80.5, now.Add(-1*day)),
		}, now, policy)

		Convey("Then the trend is stable", func() {
			So(trend.Direction, ShouldEqual, domain.TrendStable)
			So(*trend.DeltaPercent, ShouldEqual, 0.6)
		})
	})

	Convey("Given entries outside the lookback and null scores", t, func() {
		trend := scoring.AnalyzeTrend([]*domain.ScoreLogEntry{
			entry(10, now.Add(-45*day)),
			{ComputedAt: now.Add(-12 * day)},
			entry(50, now.Add(-12*day)),
			entry(50, now.Add(-1*day)),
			entry(99, now.Add(day)),
		}, now, policy)

		Convey("Then they are ignored", func() {
			So(trend.PriorCount, ShouldEqual, 1)
			So(trend.RecentCount, ShouldEqual, 1)
			So(trend.Direction, ShouldEqual, domain.TrendStable)
			So(*trend.DeltaPercent, ShouldEqual, 0.0)
		})
	})

	Convey("Given a zero prior average", t, func() {
		trend := scoring.AnalyzeTrend([]*domain.ScoreLogEntry{
			entry(0, now.Add(-15*day)),
			entry(40, now.Add(-1*day)),
		}, now, policy)

		Convey("Then no percentage is reported but the direction is improving", func() {
			So(trend.DeltaPercent, ShouldBeNil)
			So(trend.Direction, ShouldEqual, domain.TrendImproving)
		})
	})

	Convey("Given a custom policy", t, func() {
		custom := scoring.TrendPolicy{Lookback: 60 * day, Recent: 30 * day, ThresholdPercent: 1}
		trend := scoring.AnalyzeTrend([]*domain.ScoreLogEntry{
			entry(50, now.Add(-45*day)),
			entry(50, now.Add(-20*day)),
		}, now, custom)

		Convey("Then its windows are used", func() {
			So(trend.PriorCount, ShouldEqual, 1)
			So(trend.RecentCount, ShouldEqual, 1)
			So(custom.Since(now).Equal(now.Add(-60*day)), ShouldBeTrue)
		})
	})
}
