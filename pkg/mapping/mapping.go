// Package mapping defines the opaque value produced by a mapspace.
package mapping

// Mapping is an opaque assignment of a workload onto a hardware topology.
// The core never inspects a Mapping's contents; it only copies, stores, and
// eventually hands it back to the engine or to a reporting collaborator
// outside this repo's scope. Producers (the mapspace implementation) define
// the concrete type satisfying this interface.
type Mapping interface {
	// Clone returns an independent copy, so that a worker may retain a
	// Mapping (as a diagnostics sample, or as part of a best-so-far
	// result) beyond the iteration that produced it.
	Clone() Mapping
}
