// Package result holds the single-mapping "best found so far" value that
// flows between a worker and the shared global best.
package result

import (
	"github.com/niceyeti/mapcore/pkg/mapping"
	"github.com/niceyeti/mapcore/pkg/stats"
)

// EvaluationResult carries one mapping's validity, the mapping itself, and
// its stats. When Valid is false, Mapping and Stats must never be
// inspected — their zero values carry no meaning.
type EvaluationResult struct {
	Valid   bool
	Mapping mapping.Mapping
	Stats   stats.Stats
}

// UpdateIfBetter overwrites r with a copy of other when other is valid and
// is either the first valid result r has seen, or strictly better than r
// under metrics (per stats.IsBetter's tie-breaking rules, which prefer the
// incumbent on an exact tie). Returns whether r was overwritten.
func (r *EvaluationResult) UpdateIfBetter(other EvaluationResult, metrics []stats.Metric) bool {
	if !other.Valid {
		return false
	}
	if r.Valid && !stats.IsBetter(other.Stats, r.Stats, metrics) {
		return false
	}

	r.Valid = true
	if other.Mapping != nil {
		r.Mapping = other.Mapping.Clone()
	} else {
		r.Mapping = nil
	}
	r.Stats = other.Stats
	return true
}
