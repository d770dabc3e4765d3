// Package slru implements the Segmented LRU eviction policy over a shared
// stable-index table.
//
// Two independent LRU chains partition the policy's entries:
//
//   - probationary: entries seen once, inserted on miss
//   - protected:    entries that took a hit while probationary
//
// A hit on a probationary entry promotes it to the protected head. When the
// protected segment overflows, its tail is demoted back to the probationary
// head (not evicted); only the probationary tail is ever removed from the
// table. An entry is in exactly one segment at any time, tracked by its owner
// tag.
package slru

import (
	"github.com/slotcache/slotcache/policy"
	"github.com/slotcache/slotcache/table"
)

// DefaultProbationRatio is the probationary share of the total capacity used
// by NewStandard (the 20/80 split from the TinyLFU paper).
const DefaultProbationRatio = 0.2

// Policy is a Segmented LRU instance over two owner tags.
type Policy[K comparable, V, M any, E table.Entry[K, V, M]] struct {
	t         *table.Table[K, V, M, E]
	probation *policy.Chain[K, V, M, E]
	protected *policy.Chain[K, V, M, E]
}

// New builds an SLRU with explicit segment capacities. probTag and protTag
// must be distinct: the owner tag is what places an entry in its segment.
func New[K comparable, V, M any, E table.Entry[K, V, M]](t *table.Table[K, V, M, E], probTag, protTag table.Tag, probCap, protCap int) *Policy[K, V, M, E] {
	if probTag == protTag {
		panic("slru: probation and protected tags must differ")
	}
	return &Policy[K, V, M, E]{
		t:         t,
		probation: policy.NewChain(t, probTag, probCap),
		protected: policy.NewChain(t, protTag, protCap),
	}
}

// NewStandard builds an SLRU splitting capacity 20/80 between the
// probationary and protected segments, at least one entry each.
func NewStandard[K comparable, V, M any, E table.Entry[K, V, M]](t *table.Table[K, V, M, E], probTag, protTag table.Tag, capacity int) *Policy[K, V, M, E] {
	probCap := int(float64(capacity) * DefaultProbationRatio)
	if probCap < 1 {
		probCap = 1
	}
	protCap := capacity - probCap
	if protCap < 1 {
		protCap = 1
	}
	return New(t, probTag, protTag, probCap, protCap)
}

// OnInsert links a new entry at the probationary head, evicting the
// probationary tail when the segment overflows.
func (p *Policy[K, V, M, E]) OnInsert(h table.Handle) (policy.Eviction[E], bool) {
	p.probation.PushFront(h)
	return p.trimProbation()
}

// OnGet promotes a probationary entry to protected (demoting the protected
// tail back to probation when needed) and touches a protected entry in place.
func (p *Policy[K, V, M, E]) OnGet(h table.Handle) (policy.Eviction[E], bool) {
	e, err := p.t.Get(h)
	if err != nil {
		panic("slru: OnGet with invalid handle: " + err.Error())
	}
	switch e.Owner() {
	case p.protected.Tag():
		p.protected.MoveToFront(h)
		return policy.Eviction[E]{}, false
	case p.probation.Tag():
		return p.promote(h)
	default:
		panic("slru: OnGet on entry owned by another policy")
	}
}

// promote moves h from probation to the protected head. The demotion keeps
// both segments within capacity except when probation was already full, in
// which case its tail is evicted for real.
func (p *Policy[K, V, M, E]) promote(h table.Handle) (policy.Eviction[E], bool) {
	p.probation.Unlink(h)
	p.protected.PushFront(h)
	if p.protected.Len() <= p.protected.Capacity() {
		return policy.Eviction[E]{}, false
	}
	demoted := p.protected.Back()
	p.protected.Unlink(demoted)
	p.probation.PushFront(demoted)
	return p.trimProbation()
}

func (p *Policy[K, V, M, E]) trimProbation() (policy.Eviction[E], bool) {
	if p.probation.Len() <= p.probation.Capacity() {
		return policy.Eviction[E]{}, false
	}
	tail := p.probation.Back()
	p.probation.Unlink(tail)
	e, err := p.t.Remove(tail)
	if err != nil {
		panic("slru: evicting unlinked tail: " + err.Error())
	}
	return policy.Eviction[E]{Entry: e, Handle: tail, Reason: policy.ReasonCapacity}, true
}

// OnRemove detaches h from whichever segment owns it.
func (p *Policy[K, V, M, E]) OnRemove(h table.Handle) {
	p.owningChain(h).Unlink(h)
}

// Relink re-attaches h at the head of the segment its owner tag names
// (compaction path; no promotion or eviction logic).
func (p *Policy[K, V, M, E]) Relink(h table.Handle) {
	p.owningChain(h).PushFront(h)
}

func (p *Policy[K, V, M, E]) owningChain(h table.Handle) *policy.Chain[K, V, M, E] {
	e, err := p.t.Get(h)
	if err != nil {
		panic("slru: invalid handle: " + err.Error())
	}
	switch e.Owner() {
	case p.probation.Tag():
		return p.probation
	case p.protected.Tag():
		return p.protected
	default:
		panic("slru: entry owned by another policy")
	}
}

// Victim returns the current eviction victim: the probationary tail, falling
// back to the protected tail when probation is empty. table.None when empty.
func (p *Policy[K, V, M, E]) Victim() table.Handle {
	if v := p.probation.Back(); v != table.None {
		return v
	}
	return p.protected.Back()
}

// Drain empties both segments, probationary first, MRU first within each.
func (p *Policy[K, V, M, E]) Drain() []E {
	out := p.probation.Drain()
	return append(out, p.protected.Drain()...)
}

// Len returns resident entries across both segments.
func (p *Policy[K, V, M, E]) Len() int { return p.probation.Len() + p.protected.Len() }

// Capacity returns the summed segment capacities.
func (p *Policy[K, V, M, E]) Capacity() int {
	return p.probation.Capacity() + p.protected.Capacity()
}

// Tags returns the probationary and protected owner tags, in that order.
func (p *Policy[K, V, M, E]) Tags() []table.Tag {
	return []table.Tag{p.probation.Tag(), p.protected.Tag()}
}

var _ policy.Policy[string, int, struct{}, *table.Record[string, int, struct{}]] = (*Policy[string, int, struct{}, *table.Record[string, int, struct{}]])(nil)
