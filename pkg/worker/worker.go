// Package worker implements the per-thread search/evaluate/rank loop: one
// Worker owns one subspace, one search cursor, and one engine instance, and
// drives them to completion against a shared global best and log stream.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/niceyeti/mapcore/internal/atomicfloat"
	"github.com/niceyeti/mapcore/internal/events"
	"github.com/niceyeti/mapcore/pkg/diagnostics"
	"github.com/niceyeti/mapcore/pkg/engine"
	"github.com/niceyeti/mapcore/pkg/mapping"
	"github.com/niceyeti/mapcore/pkg/mapspace"
	"github.com/niceyeti/mapcore/pkg/result"
	"github.com/niceyeti/mapcore/pkg/search"
	"github.com/niceyeti/mapcore/pkg/stats"
	"github.com/niceyeti/mapcore/pkg/termination"
)

// Config is a Worker's immutable-after-construction configuration: the
// fields are set once by the coordinator and never mutated afterward.
type Config struct {
	ThreadID int

	Cursor   search.Algorithm
	Subspace mapspace.Subspace
	Engine   engine.Engine

	// Mutex guards both GlobalBest and Logger: the spec's "single coarse
	// mutex" protects exactly these two shared things.
	Mutex      *sync.Mutex
	GlobalBest *result.EvaluationResult
	Logger     *log.Logger

	Terminate *termination.Controller

	// SearchSize is the target valid-mapping count for this worker; 0
	// means unlimited.
	SearchSize uint64
	// Timeout is the number of consecutive invalid mappings (construction
	// plus evaluation failures, combined) tolerated since the last valid
	// mapping before giving up. Must be > 0.
	Timeout uint64
	// VictoryCondition is the number of consecutive valid-but-not-improving
	// mappings before declaring the search converged; 0 disables it.
	VictoryCondition uint64
	// SyncInterval is the number of total mappings between global-best
	// exchanges; 0 disables periodic sync.
	SyncInterval uint64

	Metrics   []stats.Metric
	ArchSpecs engine.ArchSpecs
	Workload  engine.Workload

	// Diagnostics enables per-level rejection sample collection.
	Diagnostics bool
	// NumLevels sizes the per-level diagnostics report.
	NumLevels int

	// LogStats logs a line for every valid mapping found.
	LogStats bool
	// LogSuboptimal logs a utilization line for every valid mapping that
	// does not improve the local best (improving ones are logged under
	// LogStats).
	LogSuboptimal bool

	// Events, if set, receives structured progress events for observers
	// such as the live-status view. Sends are best-effort: a full or nil
	// channel never blocks the search loop.
	Events chan<- events.Event
}

// Worker runs one thread's share of the search. All exported state is
// accessed either through atomics (safe from any goroutine, used by the
// live-status view) or, after Run returns, directly (the owning goroutine
// has exited, so there is no longer a race).
type Worker struct {
	cfg Config

	localBest result.EvaluationResult
	diag      *diagnostics.Report

	totalCount                atomic.Uint64
	validCount                atomic.Uint64
	consecInvalidMapcnstr     atomic.Uint64
	consecInvalidEval         atomic.Uint64
	cumulativeInvalidMapcnstr atomic.Uint64
	cumulativeInvalidEval     atomic.Uint64
	sinceLastUpdate           atomic.Uint64

	bestCost      *atomicfloat.Float64
	utilization   *atomicfloat.Float64
	energyPerMACC *atomicfloat.Float64
}

// New allocates a Worker ready to Run. cfg must not be mutated afterward.
func New(cfg Config) *Worker {
	return &Worker{
		cfg:           cfg,
		diag:          diagnostics.New(cfg.NumLevels),
		bestCost:      atomicfloat.New(0),
		utilization:   atomicfloat.New(0),
		energyPerMACC: atomicfloat.New(0),
	}
}

// Snapshot is a point-in-time, lock-free view of a Worker's progress,
// suitable for a live-status display that must never contend with the
// coarse mutex. The column set mirrors the original ncurses progress
// table: thread id, total, valid, invalid (cumulative), consecutive
// invalid (what actually drives the timeout), consecutive-since-update,
// utilization, and energy/MACC, all as of the most recent valid mapping.
type Snapshot struct {
	ThreadID int
	Total    uint64
	Valid    uint64
	// Invalid is cumulative: every construction or evaluation failure
	// since this worker started, never reset.
	Invalid uint64
	// ConsecutiveInvalid is the run of invalids since the last valid
	// mapping; it resets to 0 on every success and is what the Timeout
	// termination condition actually counts against.
	ConsecutiveInvalid uint64
	SinceLastUpdate    uint64
	// BestCost is the primary-metric cost of the most recent mapping that
	// improved this worker's local best; a best pulled from the global
	// best during sync is not reflected here.
	BestCost      float64
	Utilization   float64
	EnergyPerMACC float64
}

// Snapshot reads the worker's current progress without locking anything.
func (w *Worker) Snapshot() Snapshot {
	total := w.totalCount.Load()
	valid := w.validCount.Load()
	return Snapshot{
		ThreadID:           w.cfg.ThreadID,
		Total:              total,
		Valid:              valid,
		Invalid:            w.cumulativeInvalidMapcnstr.Load() + w.cumulativeInvalidEval.Load(),
		ConsecutiveInvalid: w.consecInvalidMapcnstr.Load() + w.consecInvalidEval.Load(),
		SinceLastUpdate:    w.sinceLastUpdate.Load(),
		BestCost:           w.bestCost.Load(),
		Utilization:        w.utilization.Load(),
		EnergyPerMACC:      w.energyPerMACC.Load(),
	}
}

// LocalBest returns the worker's best result found. Safe to call only
// after Run has returned.
func (w *Worker) LocalBest() result.EvaluationResult {
	return w.localBest
}

// Diagnostics returns the worker's per-level rejection report. Safe to
// call only after Run has returned.
func (w *Worker) Diagnostics() *diagnostics.Report {
	return w.diag
}

// Run drives the search to completion: it returns when any termination
// condition fires (global stop flag, search-size cap, victory condition,
// consecutive-invalid timeout, or cursor exhaustion) or ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	if err := w.cfg.Engine.Spec(w.cfg.ArchSpecs); err != nil {
		w.logStatement(fmt.Sprintf("engine configuration failed (%v)", err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Step 0: termination checks, in priority order.
		if reason, stop := w.checkTermination(); stop {
			w.logStatement(reason)
			w.emit(events.Event{WorkerID: w.cfg.ThreadID, Kind: events.Terminating, Reason: reason})
			return
		}

		// Step 2: obtain the next id. Folded into the termination check
		// per the spec's note that implementations may do so.
		id, ok := w.cfg.Cursor.Next()
		if !ok {
			const reason = "search algorithm is done"
			w.logStatement(reason)
			w.emit(events.Event{WorkerID: w.cfg.ThreadID, Kind: events.Terminating, Reason: reason})
			return
		}

		// Step 1: periodic sync, using the total count as of the start of
		// this iteration (before this id's construction is counted).
		total := w.totalCount.Load()
		if total != 0 && w.cfg.SyncInterval > 0 && total%w.cfg.SyncInterval == 0 {
			w.sync()
		}

		// Step 3: construct.
		m, ok := w.cfg.Subspace.Construct(id)
		w.totalCount.Add(1)
		if !ok {
			w.consecInvalidMapcnstr.Add(1)
			w.cumulativeInvalidMapcnstr.Add(1)
			w.cfg.Cursor.Report(search.MappingConstructionFailure, 0)
			w.emit(events.Event{WorkerID: w.cfg.ThreadID, Kind: events.InvalidCounted})
			continue
		}

		// Step 4: pre-evaluate.
		levels, err := w.cfg.Engine.PreEvaluate(m, w.cfg.Workload, !w.cfg.Diagnostics)
		if err != nil || !allSuccess(levels) {
			w.recordEvalFailure(levels, m)
			w.cfg.Cursor.Report(search.EvalFailure, 0)
			continue
		}

		// Step 5: evaluate.
		levels, err = w.cfg.Engine.Evaluate(m, w.cfg.Workload, !w.cfg.Diagnostics)
		if err != nil || !allSuccess(levels) {
			w.recordEvalFailure(levels, m)
			w.cfg.Cursor.Report(search.EvalFailure, 0)
			continue
		}

		st, err := w.cfg.Engine.Stats()
		if err != nil {
			w.recordEvalFailure([]engine.LevelStatus{{Success: false, FailReason: err.Error()}}, m)
			w.cfg.Cursor.Report(search.EvalFailure, 0)
			continue
		}

		// Step 6: success.
		w.onSuccess(m, st, total+1)
	}
}

func (w *Worker) checkTermination() (reason string, stop bool) {
	switch {
	case w.cfg.Terminate.Terminated():
		return "global termination flag activated", true
	case w.cfg.SearchSize > 0 && w.validCount.Load() == w.cfg.SearchSize:
		return fmt.Sprintf("%d valid mappings found", w.cfg.SearchSize), true
	case w.cfg.VictoryCondition > 0 && w.sinceLastUpdate.Load() == w.cfg.VictoryCondition:
		return fmt.Sprintf("%d suboptimal mappings found since the last upgrade", w.cfg.VictoryCondition), true
	default:
		consec := w.consecInvalidMapcnstr.Load() + w.consecInvalidEval.Load()
		if consec > 0 && consec == w.cfg.Timeout {
			return fmt.Sprintf("%d invalid mappings found since the last valid mapping", w.cfg.Timeout), true
		}
	}
	return "", false
}

func (w *Worker) sync() {
	w.cfg.Mutex.Lock()
	defer w.cfg.Mutex.Unlock()

	pulled := false
	if w.cfg.GlobalBest.Valid {
		if w.localBest.UpdateIfBetter(*w.cfg.GlobalBest, w.cfg.Metrics) {
			pulled = true
		}
	}
	if w.localBest.Valid && !pulled {
		w.cfg.GlobalBest.UpdateIfBetter(w.localBest, w.cfg.Metrics)
	}
}

func (w *Worker) recordEvalFailure(levels []engine.LevelStatus, m mapping.Mapping) {
	w.consecInvalidEval.Add(1)
	w.cumulativeInvalidEval.Add(1)
	if w.cfg.Diagnostics {
		for level, st := range levels {
			if !st.Success {
				w.diag.RecordFailure(level, m)
			}
		}
	}
	w.emit(events.Event{WorkerID: w.cfg.ThreadID, Kind: events.InvalidCounted})
}

// emit sends e to cfg.Events if one is configured, dropping it rather
// than blocking the search loop if the channel is unbuffered or full.
func (w *Worker) emit(e events.Event) {
	if w.cfg.Events == nil {
		return
	}
	select {
	case w.cfg.Events <- e:
	default:
	}
}

func (w *Worker) onSuccess(m mapping.Mapping, st stats.Stats, totalAfter uint64) {
	consecInvalid := w.consecInvalidMapcnstr.Load() + w.consecInvalidEval.Load()
	w.validCount.Add(1)

	if w.cfg.LogStats {
		w.logLocked(fmt.Sprintf("[%3d] PROGRESS total=%d valid=%d invalid-run=%d",
			w.cfg.ThreadID, totalAfter, w.validCount.Load(), consecInvalid))
	}

	w.consecInvalidMapcnstr.Store(0)
	w.consecInvalidEval.Store(0)

	cost := stats.Cost(st, w.cfg.Metrics[0])
	w.cfg.Cursor.Report(search.Success, cost)

	w.utilization.Store(st.Utilization)
	w.energyPerMACC.Store(energyPerMACC(st))

	candidate := result.EvaluationResult{Valid: true, Mapping: m, Stats: st}
	if w.localBest.UpdateIfBetter(candidate, w.cfg.Metrics) {
		w.sinceLastUpdate.Store(0)
		w.bestCost.Store(cost)
		if w.cfg.LogStats {
			w.logLocked(fmt.Sprintf("[%3d] UPDATE total=%d valid=%d utilization=%.2f energy/maccs=%.3f",
				w.cfg.ThreadID, totalAfter, w.validCount.Load(), st.Utilization, energyPerMACC(st)))
		}
		w.emit(events.Event{WorkerID: w.cfg.ThreadID, Kind: events.BestUpdated, Cost: cost})
	} else {
		w.sinceLastUpdate.Add(1)
		if w.cfg.LogSuboptimal {
			w.logLocked(fmt.Sprintf("[%3d] utilization=%.2f energy/maccs=%.3f",
				w.cfg.ThreadID, st.Utilization, energyPerMACC(st)))
		}
	}
}

func energyPerMACC(st stats.Stats) float64 {
	if st.MACCs == 0 {
		return 0
	}
	return st.Energy / float64(st.MACCs)
}

func (w *Worker) logStatement(reason string) {
	w.logLocked(fmt.Sprintf("[%3d] STATEMENT: %s, terminating search.", w.cfg.ThreadID, reason))
}

func (w *Worker) logLocked(line string) {
	w.cfg.Mutex.Lock()
	w.cfg.Logger.Println(line)
	w.cfg.Mutex.Unlock()
}

func allSuccess(levels []engine.LevelStatus) bool {
	for _, l := range levels {
		if !l.Success {
			return false
		}
	}
	return true
}
