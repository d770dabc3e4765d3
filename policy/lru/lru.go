// Package lru implements the Least-Recently-Used eviction policy over a
// shared stable-index table.
package lru

import (
	"github.com/slotcache/slotcache/policy"
	"github.com/slotcache/slotcache/table"
)

// Policy is a classic move-to-front LRU: one intrusive chain over handles,
// front = most recently used. When the chain outgrows its capacity the back
// handle is evicted from the table.
type Policy[K comparable, V, M any, E table.Entry[K, V, M]] struct {
	t     *table.Table[K, V, M, E]
	chain *policy.Chain[K, V, M, E]
}

// New builds an LRU policy with the given owner tag and entry capacity,
// borrowing t for the lifetime of the policy.
func New[K comparable, V, M any, E table.Entry[K, V, M]](t *table.Table[K, V, M, E], tag table.Tag, capacity int) *Policy[K, V, M, E] {
	return &Policy[K, V, M, E]{
		t:     t,
		chain: policy.NewChain(t, tag, capacity),
	}
}

// OnInsert links h at MRU. If the chain is now over capacity the LRU tail is
// removed from the table and returned.
func (p *Policy[K, V, M, E]) OnInsert(h table.Handle) (policy.Eviction[E], bool) {
	p.chain.PushFront(h)
	if p.chain.Len() <= p.chain.Capacity() {
		return policy.Eviction[E]{}, false
	}
	tail := p.chain.Back()
	p.chain.Unlink(tail)
	e, err := p.t.Remove(tail)
	if err != nil {
		panic("lru: evicting unlinked tail: " + err.Error())
	}
	return policy.Eviction[E]{Entry: e, Handle: tail, Reason: policy.ReasonCapacity}, true
}

// OnGet promotes h to MRU. LRU never evicts on a hit.
func (p *Policy[K, V, M, E]) OnGet(h table.Handle) (policy.Eviction[E], bool) {
	p.chain.MoveToFront(h)
	return policy.Eviction[E]{}, false
}

// OnRemove detaches h ahead of an external removal.
func (p *Policy[K, V, M, E]) OnRemove(h table.Handle) { p.chain.Unlink(h) }

// Relink re-attaches h at MRU without capacity checks (compaction path).
func (p *Policy[K, V, M, E]) Relink(h table.Handle) { p.chain.PushFront(h) }

// Drain empties the chain and returns its entries, MRU first.
func (p *Policy[K, V, M, E]) Drain() []E { return p.chain.Drain() }

// Len returns the number of resident entries.
func (p *Policy[K, V, M, E]) Len() int { return p.chain.Len() }

// Capacity returns the entry capacity.
func (p *Policy[K, V, M, E]) Capacity() int { return p.chain.Capacity() }

// Tags returns the single owner tag this policy stamps on its entries.
func (p *Policy[K, V, M, E]) Tags() []table.Tag { return []table.Tag{p.chain.Tag()} }

// Back exposes the current eviction victim (LRU tail); table.None when empty.
func (p *Policy[K, V, M, E]) Back() table.Handle { return p.chain.Back() }

var _ policy.Policy[string, int, struct{}, *table.Record[string, int, struct{}]] = (*Policy[string, int, struct{}, *table.Record[string, int, struct{}]])(nil)
