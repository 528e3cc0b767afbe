package scoring_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mtlprog/hrscore/internal/scoring"
)

func TestRank(t *testing.T) {
	Convey("Given a full skill match, two open tasks and a score of 80", t, func() {
		rank := scoring.Rank(5, 5, 2, 80)

		Convey("Then the normalized factors sum to 90", func() {
			So(rank, ShouldAlmostEqual, 90.0, 1e-9)
		})
	})

	Convey("Given a task with no required skills", t, func() {
		Convey("Then the overlap rate divides by one instead of zero", func() {
			So(scoring.OverlapRate(0, 0), ShouldEqual, 0.0)
			So(scoring.Rank(0, 0, 0, 100), ShouldAlmostEqual, 50.0, 1e-9)
		})
	})

	Convey("Given a candidate with ten or more open tasks", t, func() {
		Convey("Then the workload factor is zero and never negative", func() {
			So(scoring.Rank(0, 3, 10, 0), ShouldEqual, 0.0)
			So(scoring.Rank(0, 3, 25, 0), ShouldEqual, 0.0)
		})
	})

	Convey("Given out-of-range performance scores", t, func() {
		Convey("Then they are clamped to 0..100", func() {
			So(scoring.Rank(0, 1, 10, 150), ShouldAlmostEqual, 20.0, 1e-9)
			So(scoring.Rank(0, 1, 10, -20), ShouldEqual, 0.0)
		})
	})

	Convey("Given a candidate without history", t, func() {
		Convey("Then the default performance contributes half its weight", func() {
			So(scoring.Rank(0, 1, 10, scoring.DefaultPerfScore), ShouldAlmostEqual, 10.0, 1e-9)
		})
	})

	Convey("Given every input combination in a grid", t, func() {
		Convey("Then the rank stays within 0..100", func() {
			for overlap := 0; overlap <= 6; overlap++ {
				for active := 0; active <= 12; active++ {
					for perf := 0.0; perf <= 100; perf += 25 {
						r := scoring.Rank(overlap, 6, active, perf)
						So(r, ShouldBeBetweenOrEqual, 0, 100)
					}
				}
			}
		})

		Convey("Then more overlap never lowers the rank", func() {
			for active := 0; active <= 12; active++ {
				prev := -1.0
				for overlap := 0; overlap <= 6; overlap++ {
					r := scoring.Rank(overlap, 6, active, 70)
					So(r, ShouldBeGreaterThanOrEqualTo, prev)
					prev = r
				}
			}
		})

		Convey("Then more open tasks never raise the rank", func() {
			for overlap := 0; overlap <= 6; overlap++ {
				prev := 101.0
				for active := 0; active <= 12; active++ {
					r := scoring.Rank(overlap, 6, active, 70)
					So(r, ShouldBeLessThanOrEqualTo, prev)
					prev = r
				}
			}
		})

		Convey("Then a better performance score never lowers the rank", func() {
			prev := -1.0
			for perf := 0.0; perf <= 100; perf += 5 {
				r := scoring.Rank(3, 6, 4, perf)
				So(r, ShouldBeGreaterThanOrEqualTo, prev)
				prev = r
			}
		})
	})
}
