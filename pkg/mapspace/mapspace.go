// Package mapspace declares the external mapping-space collaborator. The
// space and its partitioning are owned outside this repo; the core only
// consumes the interfaces below.
package mapspace

import "github.com/niceyeti/mapcore/pkg/mapping"

// ID is an abstract handle into a Subspace's id domain. Not every ID yields
// a legal mapping — the space is not dense in legal mappings.
type ID interface{}

// MapSpace is the opaque, enumerable space of candidate mappings.
type MapSpace interface {
	// Split partitions the space into n disjoint subspaces whose union
	// covers the original space. Called once, by the coordinator, before
	// workers start.
	Split(n int) ([]Subspace, error)
}

// Subspace is one worker's disjoint share of a MapSpace's id domain.
type Subspace interface {
	// Construct realizes the mapping named by id, or reports that id does
	// not name a legal mapping. A false ok is an expected, frequent
	// outcome, not an error: the id domain is not dense in legal mappings.
	Construct(id ID) (m mapping.Mapping, ok bool)
}
