package coordinator

import (
	"context"
	"log"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/niceyeti/mapcore/internal/demo"
	"github.com/niceyeti/mapcore/pkg/engine"
	"github.com/niceyeti/mapcore/pkg/mapspace"
	"github.com/niceyeti/mapcore/pkg/search"
	"github.com/niceyeti/mapcore/pkg/stats"
	"github.com/niceyeti/mapcore/pkg/termination"
)

func discardLogger() *log.Logger {
	return log.New(discardWriter{}, "", 0)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestPartitionSoundness(t *testing.T) {
	Convey("Given a contiguous map space of size 100 split across 4 workers", t, func() {
		space := &demo.ContiguousMapSpace{Size: 100}

		subs, err := space.Split(4)
		So(err, ShouldBeNil)
		So(subs, ShouldHaveLength, 4)

		Convey("every id in [0,100) is constructible by exactly one subspace", func() {
			owners := make([]int, 100)
			for i := range owners {
				owners[i] = -1
			}
			for wi, s := range subs {
				for id := 0; id < 100; id++ {
					if _, ok := s.Construct(id); ok {
						So(owners[id], ShouldEqual, -1)
						owners[id] = wi
					}
				}
			}
			for id, owner := range owners {
				So(owner, ShouldBeBetween, -1, 4)
				_ = id
			}
		})
	})
}

func TestRunAggregatesBestAcrossWorkers(t *testing.T) {
	Convey("Given 4 workers searching a space where the global optimum sits in one worker's shard", t, func() {
		const size = 12
		space := &demo.ContiguousMapSpace{Size: size}

		newCursor := func(workerID int, sub mapspace.Subspace) (search.Algorithm, error) {
			cs := sub.(*demo.ContiguousSubspace)
			return &demo.SequentialCursor{Limit: cs.Hi}, nil
		}
		// LinearEngine costs a mapping at cost = id+1, so the lowest id
		// anywhere across all shards is the global optimum.
		newEngine := func(workerID int) (engine.Engine, error) {
			return &demo.LinearEngine{}, nil
		}

		cfg := Config{
			NumWorkers: 4,
			MapSpace:   space,
			NewCursor:  newCursor,
			NewEngine:  newEngine,
			NumLevels:  1,
			Timeout:    1000,
			Metrics:    []stats.Metric{stats.MetricDelay},
			Logger:     discardLogger(),
		}

		term := termination.New()
		res, err := Run(context.Background(), cfg, term)

		Convey("it completes without error and finds mapping id 0 as the best", func() {
			So(err, ShouldBeNil)
			So(res.Best.Valid, ShouldBeTrue)
			So(res.Best.Stats.Cycles, ShouldEqual, uint64(1))
		})
	})
}

func TestSearchSizeCeilingDivision(t *testing.T) {
	Convey("Given search-size=10 divided across 4 workers per §6.4's rule", t, func() {
		perWorker := uint64(1 + (10-1)/4)

		Convey("the per-worker share is 3, totaling 12 across all workers", func() {
			So(perWorker, ShouldEqual, uint64(3))
			So(perWorker*4, ShouldEqual, uint64(12))
		})
	})
}
