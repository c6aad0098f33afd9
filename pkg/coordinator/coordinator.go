// Package coordinator partitions a mapping space across workers, runs them
// concurrently, and aggregates their results into one run-wide outcome.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/niceyeti/mapcore/internal/events"
	"github.com/niceyeti/mapcore/pkg/diagnostics"
	"github.com/niceyeti/mapcore/pkg/engine"
	"github.com/niceyeti/mapcore/pkg/mapspace"
	"github.com/niceyeti/mapcore/pkg/result"
	"github.com/niceyeti/mapcore/pkg/search"
	"github.com/niceyeti/mapcore/pkg/stats"
	"github.com/niceyeti/mapcore/pkg/termination"
	"github.com/niceyeti/mapcore/pkg/worker"
)

// CursorFactory builds one worker's search cursor over its assigned
// subspace. Called once per worker, before that worker starts.
type CursorFactory func(workerID int, sub mapspace.Subspace) (search.Algorithm, error)

// EngineFactory builds one worker's cost-model instance. Called once per
// worker; the returned Engine is owned exclusively by that worker.
type EngineFactory func(workerID int) (engine.Engine, error)

// Config is the coordinator's run configuration. SearchSize is the
// already-divided per-worker share (see pkg/config.Config.PerWorkerSearchSize);
// the coordinator does not perform that division itself.
type Config struct {
	NumWorkers int
	MapSpace   mapspace.MapSpace
	NewCursor  CursorFactory
	NewEngine  EngineFactory

	ArchSpecs engine.ArchSpecs
	Workload  engine.Workload
	NumLevels int

	SearchSize       uint64
	Timeout          uint64
	VictoryCondition uint64
	SyncInterval     uint64
	Metrics          []stats.Metric

	Diagnostics   bool
	LogStats      bool
	LogSuboptimal bool

	Logger *log.Logger

	// EnableEvents, when true, gives every worker its own buffered
	// structured-event channel (see internal/events), exposed to
	// OnWorkersStarted alongside the workers themselves. A live-status
	// view merges these with channerics.Merge rather than the coordinator
	// doing so itself, since only the view cares about a combined stream.
	EnableEvents bool

	// OnWorkersStarted, if set, is called once with every worker and (if
	// EnableEvents) their event channels, after construction but before
	// Run blocks waiting for them to finish. It exists so a caller can
	// wire a live-status view against the workers' lock-free Snapshot
	// method and event stream while the search is still running.
	OnWorkersStarted func(workers []*worker.Worker, eventChans []<-chan events.Event)
}

// Result is the run-wide outcome: the best mapping found across every
// worker (if any), and the aggregated per-level rejection diagnostics.
type Result struct {
	Best        result.EvaluationResult
	Diagnostics *diagnostics.Report
}

// Run splits the configured MapSpace across NumWorkers workers, runs them
// to completion (or until ctx is canceled or term fires), and returns the
// aggregated result. It returns an error only for setup failures (split,
// cursor/engine construction); mapping-level failures never surface here.
func Run(ctx context.Context, cfg Config, term *termination.Controller) (*Result, error) {
	subspaces, err := cfg.MapSpace.Split(cfg.NumWorkers)
	if err != nil {
		return nil, fmt.Errorf("coordinator: splitting mapspace across %d workers: %w", cfg.NumWorkers, err)
	}
	if len(subspaces) != cfg.NumWorkers {
		return nil, fmt.Errorf("coordinator: mapspace split returned %d subspaces, want %d", len(subspaces), cfg.NumWorkers)
	}

	mu := &sync.Mutex{}
	globalBest := &result.EvaluationResult{}

	workers := make([]*worker.Worker, cfg.NumWorkers)
	var eventChans []<-chan events.Event
	if cfg.EnableEvents {
		eventChans = make([]<-chan events.Event, cfg.NumWorkers)
	}
	for i := 0; i < cfg.NumWorkers; i++ {
		cursor, err := cfg.NewCursor(i, subspaces[i])
		if err != nil {
			return nil, fmt.Errorf("coordinator: building search cursor for worker %d: %w", i, err)
		}
		eng, err := cfg.NewEngine(i)
		if err != nil {
			return nil, fmt.Errorf("coordinator: building engine for worker %d: %w", i, err)
		}

		var workerEvents chan events.Event
		if cfg.EnableEvents {
			workerEvents = make(chan events.Event, 64)
			eventChans[i] = workerEvents
		}

		workers[i] = worker.New(worker.Config{
			ThreadID:         i,
			Cursor:           cursor,
			Subspace:         subspaces[i],
			Engine:           eng,
			Mutex:            mu,
			GlobalBest:       globalBest,
			Logger:           cfg.Logger,
			Terminate:        term,
			SearchSize:       cfg.SearchSize,
			Timeout:          cfg.Timeout,
			VictoryCondition: cfg.VictoryCondition,
			SyncInterval:     cfg.SyncInterval,
			Metrics:          cfg.Metrics,
			ArchSpecs:        cfg.ArchSpecs,
			Workload:         cfg.Workload,
			Diagnostics:      cfg.Diagnostics,
			NumLevels:        cfg.NumLevels,
			LogStats:         cfg.LogStats,
			LogSuboptimal:    cfg.LogSuboptimal,
			Events:           workerEvents,
		})
	}

	if cfg.OnWorkersStarted != nil {
		cfg.OnWorkersStarted(workers, eventChans)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		group.Go(func() error {
			w.Run(groupCtx)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Final merge: a worker's last local best may not have been pushed to
	// the shared global best if it improved on its very last iteration,
	// after its last periodic sync.
	for _, w := range workers {
		globalBest.UpdateIfBetter(w.LocalBest(), cfg.Metrics)
	}

	reports := make([]*diagnostics.Report, len(workers))
	for i, w := range workers {
		reports[i] = w.Diagnostics()
	}

	return &Result{
		Best:        *globalBest,
		Diagnostics: diagnostics.Merge(cfg.NumLevels, reports),
	}, nil
}

// Snapshots returns a lock-free progress snapshot of every worker, for
// consumption by the live-status view. It is meaningless to call before
// Run, and harmless (but stale) to call after Run returns.
func Snapshots(workers []*worker.Worker) []worker.Snapshot {
	out := make([]worker.Snapshot, len(workers))
	for i, w := range workers {
		out[i] = w.Snapshot()
	}
	return out
}
