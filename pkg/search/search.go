// Package search declares the external per-worker search algorithm
// collaborator: a stateful cursor over one subspace. Concrete search
// heuristics (random, linear, hybrid, ...) are out of this repo's scope;
// only the interface and status vocabulary live here.
package search

import "github.com/niceyeti/mapcore/pkg/mapspace"

// Status is the outcome a worker reports back to the cursor for the id it
// most recently handed out, so the cursor can steer subsequent ids.
type Status int

const (
	// Success means the mapping constructed from the id was legal and
	// evaluated; Cost carries its cost under the primary metric.
	Success Status = iota
	// MappingConstructionFailure means Subspace.Construct rejected the id.
	MappingConstructionFailure
	// EvalFailure means construction succeeded but the engine rejected
	// the mapping during pre-evaluation or evaluation.
	EvalFailure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case MappingConstructionFailure:
		return "MappingConstructionFailure"
	case EvalFailure:
		return "EvalFailure"
	default:
		return "Status(?)"
	}
}

// Algorithm is a stateful cursor over one Subspace, owned exclusively by
// one worker for the worker's lifetime. Calls are serialized by
// construction: a worker never calls Next/Report from more than one
// goroutine.
type Algorithm interface {
	// Next returns the next id to try, or ok=false when the cursor is
	// exhausted.
	Next() (id mapspace.ID, ok bool)
	// Report tells the cursor what became of the last id it returned.
	// cost is only meaningful when status is Success.
	Report(status Status, cost float64)
}
