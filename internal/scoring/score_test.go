package scoring_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/scoring"
)

func task(status domain.TaskStatus, complexity int) *domain.Task {
	return &domain.Task{Status: status, Complexity: complexity}
}

func completedTask(complexity int, due, completed *time.Time) *domain.Task {
	return &domain.Task{
		Status:      domain.TaskStatusCompleted,
		Complexity:  complexity,
		DueDate:     due,
		CompletedAt: completed,
	}
}

func TestScore(t *testing.T) {
	Convey("Given an employee with no tasks", t, func() {
		result := scoring.Score(nil)

		Convey("Then the null variant is returned", func() {
			So(result.IsEmpty(), ShouldBeTrue)
			So(result.Score, ShouldBeNil)
			So(result.Grade, ShouldBeNil)
			So(result.Breakdown, ShouldBeNil)
		})
	})

	Convey("Given two completed tasks of complexity 5 without due dates", t, func() {
		now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		result := scoring.Score([]*domain.Task{
			completedTask(5, nil, &now),
			completedTask(5, nil, &now),
		})

		Convey("Then completion and complexity count but on-time defaults to zero", func() {
			So(*result.Score, ShouldEqual, 65.0)
			So(*result.Grade, ShouldEqual, domain.GradeC)
			So(result.Breakdown.CompletionRate, ShouldEqual, 1.0)
			So(result.Breakdown.OnTimeRate, ShouldEqual, 0.0)
			So(result.Breakdown.AvgComplexity, ShouldEqual, 5.0)
			So(result.Breakdown.TotalAssigned, ShouldEqual, 2)
			So(result.Breakdown.TotalCompleted, ShouldEqual, 2)
			So(result.Breakdown.TotalOnTime, ShouldEqual, 0)
		})
	})

	Convey("Given one open task of complexity 5 without a due date", t, func() {
		result := scoring.Score([]*domain.Task{task(domain.TaskStatusInProgress, 5)})

		Convey("Then only the complexity factor contributes", func() {
			So(*result.Score, ShouldEqual, 25.0)
			So(*result.Grade, ShouldEqual, domain.GradeD)
			So(result.Breakdown.CompletionRate, ShouldEqual, 0.0)
		})
	})

	Convey("Given a perfect record", t, func() {
		due := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
		done := due.Add(-24 * time.Hour)
		result := scoring.Score([]*domain.Task{
			completedTask(5, &due, &done),
			completedTask(5, &due, &due),
		})

		Convey("Then the score is 100 and the grade A+", func() {
			So(*result.Score, ShouldEqual, 100.0)
			So(*result.Grade, ShouldEqual, domain.GradeAPlus)
			So(result.Breakdown.TotalOnTime, ShouldEqual, 2)
		})
	})

	Convey("Given completed tasks with and without due dates", t, func() {
		due := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
		early := due.Add(-time.Hour)
		late := due.Add(time.Hour)
		result := scoring.Score([]*domain.Task{
			completedTask(3, &due, &early),
			completedTask(3, &due, &late),
			completedTask(3, nil, &late),
			task(domain.TaskStatusAssigned, 1),
		})

		Convey("Then tasks without deadlines are excluded from the on-time denominator", func() {
			So(result.Breakdown.OnTimeRate, ShouldEqual, 0.5)
			So(result.Breakdown.TotalOnTime, ShouldEqual, 1)
		})

		Convey("Then complexity averages over every assigned task", func() {
			So(result.Breakdown.AvgComplexity, ShouldEqual, 2.5)
		})

		Convey("Then the score uses unrounded intermediates", func() {
			// 0.75*40 + 0.5*35 + (2.5/5)*25 = 30 + 17.5 + 12.5
			So(*result.Score, ShouldEqual, 60.0)
			So(*result.Grade, ShouldEqual, domain.GradeC)
		})
	})

	Convey("Given rates that need rounding", t, func() {
		result := scoring.Score([]*domain.Task{
			completedTask(1, nil, nil),
			task(domain.TaskStatusAssigned, 2),
			task(domain.TaskStatusAssigned, 2),
		})

		Convey("Then breakdown fields are rounded separately from the score", func() {
			So(result.Breakdown.CompletionRate, ShouldEqual, 0.333)
			So(result.Breakdown.AvgComplexity, ShouldEqual, 1.67)
			// 1/3*40 + 0 + (5/3/5)*25 = 13.333.. + 8.333.. = 21.666..
			So(*result.Score, ShouldEqual, 21.7)
		})
	})
}

func TestGradeFor(t *testing.T) {
	Convey("Given scores around the grade boundaries", t, func() {
		cases := []struct {
			score float64
			grade domain.Grade
		}{
			{100, domain.GradeAPlus},
			{90.0, domain.GradeAPlus},
			{89.9, domain.GradeA},
			{80.0, domain.GradeA},
			{79.9, domain.GradeB},
			{70.0, domain.GradeB},
			{69.9, domain.GradeC},
			{60.0, domain.GradeC},
			{59.9, domain.GradeD},
			{0, domain.GradeD},
		}

		Convey("Then lower edges are inclusive", func() {
			for _, c := range cases {
				So(scoring.GradeFor(c.score), ShouldEqual, c.grade)
			}
		})
	})
}

func TestRoundTo(t *testing.T) {
	Convey("Given values to round", t, func() {
		So(scoring.RoundTo(65.04, 1), ShouldEqual, 65.0)
		So(scoring.RoundTo(65.06, 1), ShouldEqual, 65.1)
		So(scoring.RoundTo(0.6666, 3), ShouldEqual, 0.667)
		So(scoring.RoundTo(3.333, 2), ShouldEqual, 3.33)
	})
}
