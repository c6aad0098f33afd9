// Package demo provides toy Engine, MapSpace, Subspace, and search.Algorithm
// implementations. These exist only to drive worker and coordinator tests
// (and the cmd/mapper smoke path) against something concrete; none of them
// is a production cost model, mapping-space factory, or search heuristic.
package demo

import (
	"math/rand"

	"github.com/niceyeti/mapcore/pkg/engine"
	"github.com/niceyeti/mapcore/pkg/mapping"
	"github.com/niceyeti/mapcore/pkg/mapspace"
	"github.com/niceyeti/mapcore/pkg/search"
	"github.com/niceyeti/mapcore/pkg/stats"
)

// Mapping is a placeholder mapping identified by the id it was constructed
// from. It carries no structure of its own.
type Mapping struct {
	ID int
}

// Clone returns m unchanged: Mapping is a plain value type, so a copy is a
// clone.
func (m Mapping) Clone() mapping.Mapping {
	return m
}

// Outcome scripts what happens when a given id is processed: whether
// construction succeeds, whether evaluation succeeds, and (when both do)
// the resulting stats.
type Outcome struct {
	ConstructOK bool
	EvalOK      bool
	Stats       stats.Stats
}

// ScriptedSubspace constructs a Mapping for id iff Outcomes[id].ConstructOK.
// Ids absent from Outcomes are treated as construction failures.
type ScriptedSubspace struct {
	Outcomes map[int]Outcome
}

func (s *ScriptedSubspace) Construct(id mapspace.ID) (mapping.Mapping, bool) {
	i := id.(int)
	o, known := s.Outcomes[i]
	if !known || !o.ConstructOK {
		return nil, false
	}
	return Mapping{ID: i}, true
}

// ScriptedEngine evaluates a Mapping according to the Outcome recorded
// under its id. Spec is a no-op; Stats returns the figures from the most
// recent successful Evaluate, matching the real Engine contract.
type ScriptedEngine struct {
	Outcomes map[int]Outcome
	last     stats.Stats
}

func (e *ScriptedEngine) Spec(_ engine.ArchSpecs) error {
	return nil
}

func (e *ScriptedEngine) PreEvaluate(m mapping.Mapping, _ engine.Workload, _ bool) ([]engine.LevelStatus, error) {
	return e.check(m)
}

func (e *ScriptedEngine) Evaluate(m mapping.Mapping, _ engine.Workload, _ bool) ([]engine.LevelStatus, error) {
	statuses, err := e.check(m)
	if err == nil && statuses[0].Success {
		dm := m.(Mapping)
		e.last = e.Outcomes[dm.ID].Stats
	}
	return statuses, err
}

func (e *ScriptedEngine) check(m mapping.Mapping) ([]engine.LevelStatus, error) {
	dm := m.(Mapping)
	o := e.Outcomes[dm.ID]
	if !o.EvalOK {
		return []engine.LevelStatus{{Success: false, FailReason: "scripted failure"}}, nil
	}
	return []engine.LevelStatus{{Success: true}}, nil
}

func (e *ScriptedEngine) Stats() (stats.Stats, error) {
	return e.last, nil
}

// SequentialCursor hands out ids Lo, Lo+1, ... up to (but excluding) Limit,
// then reports exhaustion. Lo defaults to 0 (the zero value), so a worker
// scanning its own disjoint subspace sets Lo to that subspace's lower
// bound rather than always starting from the whole space's beginning.
// Reports is an optional log of every status handed to Report, in order,
// for assertions.
type SequentialCursor struct {
	next    int
	started bool

	Lo      int
	Limit   int
	Reports []search.Status
}

func (c *SequentialCursor) Next() (mapspace.ID, bool) {
	if !c.started {
		c.next = c.Lo
		c.started = true
	}
	if c.next >= c.Limit {
		return nil, false
	}
	id := c.next
	c.next++
	return id, true
}

func (c *SequentialCursor) Report(status search.Status, _ float64) {
	c.Reports = append(c.Reports, status)
}

// RandomCursor hands out a random permutation of [0, Limit) drawn from rng,
// then reports exhaustion. Unlike SequentialCursor's fixed order, this
// exercises workers against an unpredictable id stream.
type RandomCursor struct {
	ids []int
	pos int
}

// NewRandomCursor builds a cursor over a random permutation of [0, limit).
func NewRandomCursor(rng *rand.Rand, limit int) *RandomCursor {
	return &RandomCursor{ids: rng.Perm(limit)}
}

func (c *RandomCursor) Next() (mapspace.ID, bool) {
	if c.pos >= len(c.ids) {
		return nil, false
	}
	id := c.ids[c.pos]
	c.pos++
	return id, true
}

func (c *RandomCursor) Report(_ search.Status, _ float64) {}

// ContiguousSubspace constructs a Mapping for every id in [Lo, Hi), and
// rejects everything else. It is dense (no construction failures) within
// its range, the simplest possible Subspace.
type ContiguousSubspace struct {
	Lo, Hi int
}

func (s *ContiguousSubspace) Construct(id mapspace.ID) (mapping.Mapping, bool) {
	i := id.(int)
	if i < s.Lo || i >= s.Hi {
		return nil, false
	}
	return Mapping{ID: i}, true
}

// ContiguousMapSpace splits the integer range [0, Size) into n contiguous,
// roughly equal subspaces. The last subspace absorbs any remainder.
type ContiguousMapSpace struct {
	Size int
}

func (sp *ContiguousMapSpace) Split(n int) ([]mapspace.Subspace, error) {
	chunk := sp.Size / n
	subs := make([]mapspace.Subspace, n)
	lo := 0
	for i := 0; i < n; i++ {
		hi := lo + chunk
		if i == n-1 {
			hi = sp.Size
		}
		subs[i] = &ContiguousSubspace{Lo: lo, Hi: hi}
		lo = hi
	}
	return subs, nil
}

// DeterministicEngine derives Stats from a Mapping's id via a simple
// closed-form hash, so the same id always costs the same, and treats ids
// matching IllegalID (if set) as evaluation failures. It is dense enough to
// keep a search busy and varied enough to exercise the diagnostics and
// victory-condition paths, without claiming to model any real hardware.
type DeterministicEngine struct {
	IllegalID func(id int) bool
	last      stats.Stats
}

func (e *DeterministicEngine) Spec(_ engine.ArchSpecs) error { return nil }

func (e *DeterministicEngine) PreEvaluate(m mapping.Mapping, _ engine.Workload, _ bool) ([]engine.LevelStatus, error) {
	return e.evaluate(m)
}

func (e *DeterministicEngine) Evaluate(m mapping.Mapping, _ engine.Workload, _ bool) ([]engine.LevelStatus, error) {
	return e.evaluate(m)
}

func (e *DeterministicEngine) evaluate(m mapping.Mapping) ([]engine.LevelStatus, error) {
	dm := m.(Mapping)
	if e.IllegalID != nil && e.IllegalID(dm.ID) {
		return []engine.LevelStatus{{Success: false, FailReason: "illegal id"}}, nil
	}

	id := uint64(dm.ID)
	cycles := 1000 + (id*2654435761+11)%5000
	e.last = stats.Stats{
		Cycles:            cycles,
		Energy:            float64(cycles) * 1.5,
		LastLevelAccesses: id%64 + 1,
		Utilization:       0.5 + float64(id%50)/100,
		MACCs:             cycles * 8,
	}
	return []engine.LevelStatus{{Success: true}}, nil
}

func (e *DeterministicEngine) Stats() (stats.Stats, error) {
	return e.last, nil
}

// LinearEngine evaluates every mapping as legal and assigns it cycles and
// energy equal to its id plus one, so lower ids are better under the delay
// metric. It is dense:
// every constructed mapping also evaluates successfully.
type LinearEngine struct {
	last stats.Stats
}

func (e *LinearEngine) Spec(_ engine.ArchSpecs) error { return nil }

func (e *LinearEngine) PreEvaluate(_ mapping.Mapping, _ engine.Workload, _ bool) ([]engine.LevelStatus, error) {
	return []engine.LevelStatus{{Success: true}}, nil
}

func (e *LinearEngine) Evaluate(m mapping.Mapping, _ engine.Workload, _ bool) ([]engine.LevelStatus, error) {
	dm := m.(Mapping)
	e.last = stats.Stats{Cycles: uint64(dm.ID + 1), Energy: float64(dm.ID + 1)}
	return []engine.LevelStatus{{Success: true}}, nil
}

func (e *LinearEngine) Stats() (stats.Stats, error) {
	return e.last, nil
}
