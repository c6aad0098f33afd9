package diagnostics

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/niceyeti/mapcore/internal/demo"
)

func TestReportRecordFailure(t *testing.T) {
	Convey("Given a fresh report with 3 levels", t, func() {
		r := New(3)

		Convey("the first failure at a level sets the sample", func() {
			r.RecordFailure(1, demo.Mapping{ID: 7})
			So(r.Sample[1], ShouldResemble, demo.Mapping{ID: 7})
			So(r.Count[1], ShouldEqual, 1)
			So(r.Count[0], ShouldEqual, 0)
		})

		Convey("repeated failures at a level only increment the count", func() {
			r.RecordFailure(1, nil)
			r.RecordFailure(1, nil)
			r.RecordFailure(1, nil)
			So(r.Count[1], ShouldEqual, 3)
		})
	})
}

func TestReportMerge(t *testing.T) {
	Convey("Given reports from three workers over 2 levels", t, func() {
		a := New(2)
		a.RecordFailure(0, nil)
		a.RecordFailure(0, nil)

		b := New(2)
		b.RecordFailure(1, nil)

		c := New(2)
		c.RecordFailure(0, nil)

		agg := Merge(2, []*Report{a, b, c})

		Convey("counts sum across all workers", func() {
			So(agg.Count[0], ShouldEqual, 3)
			So(agg.Count[1], ShouldEqual, 1)
		})
	})

	Convey("Given a nil report in the slice", t, func() {
		a := New(1)
		a.RecordFailure(0, nil)

		Convey("merge tolerates it", func() {
			agg := Merge(1, []*Report{a, nil})
			So(agg.Count[0], ShouldEqual, 1)
		})
	})
}

func TestWorstLevel(t *testing.T) {
	Convey("Given a report with uneven failures", t, func() {
		r := New(3)
		r.RecordFailure(0, nil)
		r.RecordFailure(2, nil)
		r.RecordFailure(2, nil)
		r.RecordFailure(2, nil)

		level, count, found := r.WorstLevel()

		Convey("the worst level is the one with the most failures", func() {
			So(found, ShouldBeTrue)
			So(level, ShouldEqual, 2)
			So(count, ShouldEqual, 3)
		})
	})

	Convey("Given a report with no failures", t, func() {
		r := New(2)
		_, _, found := r.WorstLevel()

		Convey("nothing is found", func() {
			So(found, ShouldBeFalse)
		})
	})
}
