package domain_test

import (
	"errors"
	"math"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/Clark-Hu/movie-scores/internal/domain"
)

const tolerance = 1e-9

func TestAddScore(t *testing.T) {
	convey.Convey("Given a movie aggregate", t, func() {
		convey.Convey("When the first score arrives", func() {
			agg, count, err := domain.AddScore(0, 0, 4.5)

			convey.Convey("Then the aggregate equals the score", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(count, convey.ShouldEqual, 1)
				convey.So(agg, convey.ShouldAlmostEqual, 4.5, tolerance)
			})
		})

		convey.Convey("When an empty movie carries a stale aggregate", func() {
			agg, count, err := domain.AddScore(3.2, 0, 1.0)

			convey.Convey("Then the stale value is ignored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(count, convey.ShouldEqual, 1)
				convey.So(agg, convey.ShouldAlmostEqual, 1.0, tolerance)
			})
		})

		convey.Convey("When a new scorer joins two existing ones", func() {
			agg, count, err := domain.AddScore(4.0, 2, 5.0)

			convey.Convey("Then the mean includes the new value", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(count, convey.ShouldEqual, 3)
				convey.So(agg, convey.ShouldAlmostEqual, 13.0/3.0, tolerance)
			})
		})

		convey.Convey("When the stored count is negative", func() {
			_, _, err := domain.AddScore(1, -1, 2)

			convey.Convey("Then it is an invariant violation", func() {
				convey.So(errors.Is(err, domain.ErrInvariantViolation), convey.ShouldBeTrue)
			})
		})
	})
}

func TestReviseScore(t *testing.T) {
	convey.Convey("Given a movie with three scorers averaging 13/3", t, func() {
		convey.Convey("When one scorer revises 5.0 down to 3.0", func() {
			agg, count, err := domain.ReviseScore(13.0/3.0, 3, 5.0, 3.0)

			convey.Convey("Then the count is unchanged and the mean drops", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(count, convey.ShouldEqual, 3)
				convey.So(agg, convey.ShouldAlmostEqual, 11.0/3.0, tolerance)
			})
		})

		convey.Convey("When a scorer resubmits the same value", func() {
			agg, count, err := domain.ReviseScore(13.0/3.0, 3, 5.0, 5.0)

			convey.Convey("Then nothing changes", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(count, convey.ShouldEqual, 3)
				convey.So(agg, convey.ShouldAlmostEqual, 13.0/3.0, tolerance)
			})
		})
	})

	convey.Convey("Given a movie without scorers", t, func() {
		_, _, err := domain.ReviseScore(0, 0, 2.0, 3.0)

		convey.Convey("Then a revision is an invariant violation", func() {
			convey.So(errors.Is(err, domain.ErrInvariantViolation), convey.ShouldBeTrue)
		})
	})
}

func TestScoreRange(t *testing.T) {
	convey.Convey("Given the default range", t, func() {
		r := domain.DefaultScoreRange

		convey.Convey("Bounds are inclusive and non-finite values rejected", func() {
			convey.So(r.Contains(0), convey.ShouldBeTrue)
			convey.So(r.Contains(5), convey.ShouldBeTrue)
			convey.So(r.Contains(-0.1), convey.ShouldBeFalse)
			convey.So(r.Contains(5.01), convey.ShouldBeFalse)
			convey.So(r.Contains(math.NaN()), convey.ShouldBeFalse)
			convey.So(r.Contains(math.Inf(1)), convey.ShouldBeFalse)
		})

		convey.Convey("Settle snaps drift and rejects real overflow", func() {
			v, err := r.Settle(5 + 1e-12)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, 5.0)

			v, err = r.Settle(-1e-12)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, 0.0)

			_, err = r.Settle(5.5)
			convey.So(errors.Is(err, domain.ErrInvariantViolation), convey.ShouldBeTrue)

			_, err = r.Settle(math.NaN())
			convey.So(errors.Is(err, domain.ErrInvariantViolation), convey.ShouldBeTrue)
		})
	})
}

func TestMovieView(t *testing.T) {
	m := domain.Movie{ID: "m1", Title: "Heat", Score: 4.25, ScoreCount: 4}
	v := m.View()
	if v.ID != "m1" || v.Title != "Heat" || v.Score != 4.25 || v.ScoreCount != 4 {
		t.Fatalf("View() = %+v", v)
	}
}
