package stats

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCost(t *testing.T) {
	Convey("Given a Stats value", t, func() {
		s := Stats{Cycles: 10, Energy: 10}

		Convey("edp equals energy times delay", func() {
			So(Cost(s, MetricEDP), ShouldEqual, Cost(s, MetricEnergy)*Cost(s, MetricDelay))
		})

		Convey("delay is cycles", func() {
			So(Cost(s, MetricDelay), ShouldEqual, 10)
		})

		Convey("last-level-accesses reads LastLevelAccesses", func() {
			s.LastLevelAccesses = 42
			So(Cost(s, MetricLastLevelAccesses), ShouldEqual, 42)
		})
	})
}

func TestParseMetric(t *testing.T) {
	Convey("Given the closed metric set", t, func() {
		Convey("known tags parse", func() {
			for _, tag := range []string{"delay", "energy", "last-level-accesses", "edp"} {
				m, err := ParseMetric(tag)
				So(err, ShouldBeNil)
				So(string(m), ShouldEqual, tag)
			}
		})

		Convey("unknown tags are a setup error", func() {
			_, err := ParseMetric("throughput")
			So(err, ShouldNotBeNil)
		})
	})
}

// S1: metric=[delay], candidate.cycles == incumbent.cycles => no update, tie
// goes to the incumbent (SlightlyWorse).
func TestCompareS1(t *testing.T) {
	Convey("Given equal delay costs", t, func() {
		candidate := Stats{Cycles: 100}
		incumbent := Stats{Cycles: 100}

		Convey("compare is SlightlyWorse and IsBetter is false", func() {
			So(Compare(candidate, incumbent, []Metric{MetricDelay}), ShouldEqual, SlightlyWorse)
			So(IsBetter(candidate, incumbent, []Metric{MetricDelay}), ShouldBeFalse)
		})
	})
}

// S2: metric=[delay, energy]; within-tolerance delay recurses to energy.
func TestCompareS2(t *testing.T) {
	Convey("Given a=[1000 cyc, 50 nJ], b=[1000 cyc, 30 nJ]", t, func() {
		a := Stats{Cycles: 1000, Energy: 50}
		b := Stats{Cycles: 1000, Energy: 30}

		Convey("equal cycles tie on delay, energy decides on recurse", func() {
			metrics := []Metric{MetricDelay, MetricEnergy}
			So(Compare(b, a, metrics), ShouldEqual, Better)
			So(IsBetter(b, a, metrics), ShouldBeTrue)
		})
	})
}

// S3: metric=[edp]; a={10,10}=100, b={20,4}=80 -> b is Better.
func TestCompareS3(t *testing.T) {
	Convey("Given a={cycles:10,energy:10}, b={cycles:20,energy:4}", t, func() {
		a := Stats{Cycles: 10, Energy: 10}
		b := Stats{Cycles: 20, Energy: 4}

		Convey("edp favors b", func() {
			So(Cost(a, MetricEDP), ShouldEqual, 100)
			So(Cost(b, MetricEDP), ShouldEqual, 80)
			So(Compare(b, a, []Metric{MetricEDP}), ShouldEqual, Better)
		})
	})
}

func TestCompareTolerance(t *testing.T) {
	Convey("Given within-tolerance costs with no further metrics", t, func() {
		candidate := Stats{Cycles: 1000}
		incumbent := Stats{Cycles: 1000} // r == 0 exactly

		Convey("exact equality is SlightlyWorse, never SlightlyBetter", func() {
			So(Compare(candidate, incumbent, []Metric{MetricDelay}), ShouldEqual, SlightlyWorse)
		})
	})
}

// Property 2: tolerance symmetry - exactly one direction is Better/SlightlyBetter
// unless costs are exactly equal under every metric, in which case both
// directions are SlightlyWorse.
func TestCompareSymmetry(t *testing.T) {
	Convey("Given two distinct stats", t, func() {
		a := Stats{Cycles: 100, Energy: 5}
		b := Stats{Cycles: 150, Energy: 5}
		metrics := []Metric{MetricDelay, MetricEnergy}

		Convey("exactly one direction wins", func() {
			ab := Compare(a, b, metrics)
			ba := Compare(b, a, metrics)

			aWins := ab == Better || ab == SlightlyBetter
			bWins := ba == Better || ba == SlightlyBetter
			So(aWins != bWins, ShouldBeTrue)
		})
	})

	Convey("Given identical stats", t, func() {
		a := Stats{Cycles: 100, Energy: 5}
		b := Stats{Cycles: 100, Energy: 5}
		metrics := []Metric{MetricDelay, MetricEnergy}

		Convey("both directions tie toward the incumbent", func() {
			So(Compare(a, b, metrics), ShouldEqual, SlightlyWorse)
			So(Compare(b, a, metrics), ShouldEqual, SlightlyWorse)
		})
	})
}

// When every metric is within tolerance, the first (highest-priority)
// metric's sign decides the tie, not the last's.
func TestCompareTieBreaksOnFirstMetric(t *testing.T) {
	Convey("Given a candidate slightly ahead on the first metric but slightly behind on the second", t, func() {
		incumbent := Stats{Cycles: 1000000, Energy: 1000000}
		candidate := Stats{Cycles: 999500, Energy: 1000300}
		metrics := []Metric{MetricDelay, MetricEnergy}

		Convey("both metrics are within tolerance", func() {
			So(Compare(candidate, incumbent, metrics), ShouldNotEqual, Better)
			So(Compare(candidate, incumbent, metrics), ShouldNotEqual, Worse)
		})

		Convey("the first metric's sign wins: SlightlyBetter", func() {
			So(Compare(candidate, incumbent, metrics), ShouldEqual, SlightlyBetter)
		})

		Convey("reversing priority order flips the verdict", func() {
			So(Compare(candidate, incumbent, []Metric{MetricEnergy, MetricDelay}), ShouldEqual, SlightlyWorse)
		})
	})
}

func TestCompareIsPure(t *testing.T) {
	Convey("Given the same inputs compared repeatedly", t, func() {
		a := Stats{Cycles: 33, Energy: 7.5}
		b := Stats{Cycles: 40, Energy: 2.1}
		metrics := []Metric{MetricEDP, MetricDelay}

		Convey("the result never changes", func() {
			first := Compare(a, b, metrics)
			for i := 0; i < 10; i++ {
				So(Compare(a, b, metrics), ShouldEqual, first)
			}
		})
	})
}
