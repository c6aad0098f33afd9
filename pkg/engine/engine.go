// Package engine declares the external cost/energy model collaborator.
// The core never implements a cost model itself; it only drives one
// through this interface, one instance per worker (an Engine is not
// required to be safe for concurrent use across workers).
package engine

import (
	"github.com/niceyeti/mapcore/pkg/mapping"
	"github.com/niceyeti/mapcore/pkg/stats"
)

// LevelStatus is the per-topology-level outcome of a legality check.
type LevelStatus struct {
	Success    bool
	FailReason string
}

// ArchSpecs is an opaque hardware topology description. Its shape is
// entirely engine-defined; the core treats it as an opaque value passed
// through at Spec time.
type ArchSpecs interface{}

// Workload is an opaque problem-shape description, entirely engine- and
// workload-parser-defined.
type Workload interface{}

// Engine is the cost model. Implementations are stateful and owned
// exclusively by one worker for the worker's lifetime.
type Engine interface {
	// Spec configures the engine for a given hardware topology. Idempotent.
	Spec(arch ArchSpecs) error

	// PreEvaluate runs cheap, per-level legality checks. A mapping that
	// fails here is never passed to Evaluate. quiet suppresses detailed
	// diagnostic collection inside the engine itself (the core's own
	// diagnostics bookkeeping is independent of this flag).
	PreEvaluate(m mapping.Mapping, w Workload, quiet bool) ([]LevelStatus, error)

	// Evaluate runs the full cost evaluation. Only called after
	// PreEvaluate reports success at every level.
	Evaluate(m mapping.Mapping, w Workload, quiet bool) ([]LevelStatus, error)

	// Stats returns the figures from the most recent successful Evaluate.
	Stats() (stats.Stats, error)
}
