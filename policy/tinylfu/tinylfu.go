// Package tinylfu implements the Scan-Window TinyLFU eviction policy over a
// shared stable-index table.
//
// Layout: a small LRU window in front of an SLRU main region. New keys enter
// the window; when the window overflows, its tail becomes an admission
// candidate and is compared by estimated frequency against the main region's
// eviction victim. The candidate is admitted only if strictly more frequent,
// otherwise it is dropped and the main region is untouched.
//
// Frequency lives in each entry's packed (generation, counter) word. Classic
// TinyLFU halves every counter once per sample period, a stop-the-world pass
// over the whole cache. Here the halving is lazy: a policy-wide generation
// bit flips every K accesses (K = total capacity), and an entry whose stamp
// disagrees with the current generation has its counter halved the next time
// it is looked at — on its own access, or when the steady one-extra-entry
// scan that every access performs reaches it. That scan bounds the aging
// cost per access to O(1) while guaranteeing every resident entry is
// revisited within one table sweep.
package tinylfu

import (
	"github.com/slotcache/slotcache/policy"
	"github.com/slotcache/slotcache/policy/slru"
	"github.com/slotcache/slotcache/table"
)

// DefaultWindowRatio is the window share of total capacity used by
// NewStandard (1%, from the W-TinyLFU paper).
const DefaultWindowRatio = 0.01

// Policy is a Scan-Window TinyLFU instance over three owner tags: one for
// the window chain, two for the SLRU main region's segments.
//
// The current generation is policy-wide (one bit shared by all entries of
// this sub-cache), not per-entry relative to its own last scan: it flips on
// a fixed access schedule, so one flip halves the whole population exactly
// once as the lazy scans catch up.
type Policy[K comparable, V, M any, E table.Entry[K, V, M]] struct {
	t      *table.Table[K, V, M, E]
	window *policy.Chain[K, V, M, E]
	main   *slru.Policy[K, V, M, E]

	gen       Generation
	accesses  int
	flipEvery int

	// cursor walks the shared table in slot order for the one-extra-entry
	// scan. Entries owned by other policies are skipped untouched.
	cursor int
}

// New builds a SW-TinyLFU with explicit window and main-segment capacities.
func New[K comparable, V, M any, E table.Entry[K, V, M]](t *table.Table[K, V, M, E], windowTag, probTag, protTag table.Tag, windowCap, probCap, protCap int) *Policy[K, V, M, E] {
	if windowCap < 1 {
		windowCap = 1
	}
	total := windowCap + probCap + protCap
	return &Policy[K, V, M, E]{
		t:         t,
		window:    policy.NewChain(t, windowTag, windowCap),
		main:      slru.New(t, probTag, protTag, probCap, protCap),
		flipEvery: total,
	}
}

// NewStandard builds a SW-TinyLFU with the paper's proportions: a window of
// 1% of capacity (at least one entry) and the rest split 20/80 between the
// main region's probationary and protected segments.
func NewStandard[K comparable, V, M any, E table.Entry[K, V, M]](t *table.Table[K, V, M, E], windowTag, probTag, protTag table.Tag, capacity int) *Policy[K, V, M, E] {
	windowCap := int(float64(capacity) * DefaultWindowRatio)
	if windowCap < 1 {
		windowCap = 1
	}
	mainCap := capacity - windowCap
	probCap := int(float64(mainCap) * slru.DefaultProbationRatio)
	if probCap < 1 {
		probCap = 1
	}
	protCap := mainCap - probCap
	if protCap < 1 {
		protCap = 1
	}
	return New(t, windowTag, probTag, protTag, windowCap, probCap, protCap)
}

// OnInsert admits a new key into the window. On window overflow the tail
// becomes the admission candidate: it either replaces the main region's
// victim (strictly higher scanned counter) or is dropped from the table.
func (p *Policy[K, V, M, E]) OnInsert(h table.Handle) (policy.Eviction[E], bool) {
	e := p.entry(h)
	e.SetFreq(Pack(p.gen, 1))
	p.scanOne()
	p.tick()

	p.window.PushFront(h)
	if p.window.Len() <= p.window.Capacity() {
		return policy.Eviction[E]{}, false
	}

	cand := p.window.Back()
	if p.main.Len() < p.main.Capacity() {
		// Room in main: admit without a comparison.
		p.window.Unlink(cand)
		return p.main.OnInsert(cand)
	}

	victim := p.main.Victim()
	cf := p.scannedCounter(cand)
	vf := p.scannedCounter(victim)
	if cf > vf {
		p.main.OnRemove(victim)
		ve, err := p.t.Remove(victim)
		if err != nil {
			panic("tinylfu: evicting unlinked victim: " + err.Error())
		}
		p.window.Unlink(cand)
		p.main.OnInsert(cand)
		return policy.Eviction[E]{Entry: ve, Handle: victim, Reason: policy.ReasonCapacity}, true
	}

	// Candidate lost the admission comparison (ties reject): drop it.
	p.window.Unlink(cand)
	ce, err := p.t.Remove(cand)
	if err != nil {
		panic("tinylfu: dropping unlinked candidate: " + err.Error())
	}
	return policy.Eviction[E]{Entry: ce, Handle: cand, Reason: policy.ReasonAdmission}, true
}

// OnGet records an access: frequency bookkeeping plus the owning chain's
// reordering (window move-to-front, or SLRU promotion in the main region).
func (p *Policy[K, V, M, E]) OnGet(h table.Handle) (policy.Eviction[E], bool) {
	e := p.entry(h)
	p.recordAccess(e)
	p.scanOne()
	p.tick()

	if e.Owner() == p.window.Tag() {
		p.window.MoveToFront(h)
		return policy.Eviction[E]{}, false
	}
	return p.main.OnGet(h)
}

// recordAccess increments the counter when the entry's generation is
// current; otherwise this access is the entry's scan event: the counter is
// halved (floor) once and restamped, not incremented.
func (p *Policy[K, V, M, E]) recordAccess(e E) {
	g, c := Unpack(e.Freq())
	if g == p.gen {
		if c < CounterMax {
			c++
		}
		e.SetFreq(Pack(g, c))
		return
	}
	e.SetFreq(Pack(p.gen, c/2))
}

// scanOne ages one extra entry in table iteration order, spreading the decay
// cost across accesses instead of concentrating it in a global halving pass.
func (p *Policy[K, V, M, E]) scanOne() {
	h, next, ok := p.t.NextOccupied(p.cursor)
	if !ok {
		return
	}
	p.cursor = next
	e, err := p.t.Get(h)
	if err != nil {
		return
	}
	if !p.owns(e.Owner()) {
		// Another policy's entry; its frequency word is not ours to touch.
		return
	}
	if g, c := Unpack(e.Freq()); g != p.gen {
		e.SetFreq(Pack(p.gen, c/2))
	}
}

// scannedCounter reads the counter for an admission comparison, applying the
// scan rule (halve if stale) without counting the read as an access.
func (p *Policy[K, V, M, E]) scannedCounter(h table.Handle) uint32 {
	e := p.entry(h)
	g, c := Unpack(e.Freq())
	if g != p.gen {
		c /= 2
		e.SetFreq(Pack(p.gen, c))
	}
	return c
}

// tick advances the access clock; every flipEvery accesses the current
// generation flips, scheduling a lazy halving of every stamped counter.
func (p *Policy[K, V, M, E]) tick() {
	p.accesses++
	if p.accesses >= p.flipEvery {
		p.accesses = 0
		p.gen = p.gen.Flip()
	}
}

// OnRemove detaches h from the window or the main region.
func (p *Policy[K, V, M, E]) OnRemove(h table.Handle) {
	if p.entry(h).Owner() == p.window.Tag() {
		p.window.Unlink(h)
		return
	}
	p.main.OnRemove(h)
}

// Relink re-attaches h to the chain its owner tag names (compaction path).
// The frequency word travels inside the entry, so no estimate is lost.
func (p *Policy[K, V, M, E]) Relink(h table.Handle) {
	if p.entry(h).Owner() == p.window.Tag() {
		p.window.PushFront(h)
		return
	}
	p.main.Relink(h)
}

// Drain empties the window and main region, window first. The scan cursor
// restarts from slot zero afterwards.
func (p *Policy[K, V, M, E]) Drain() []E {
	out := p.window.Drain()
	out = append(out, p.main.Drain()...)
	p.cursor = 0
	return out
}

// Len returns resident entries across window and main.
func (p *Policy[K, V, M, E]) Len() int { return p.window.Len() + p.main.Len() }

// Capacity returns the summed window and main capacities.
func (p *Policy[K, V, M, E]) Capacity() int {
	return p.window.Capacity() + p.main.Capacity()
}

// Tags returns the window, probationary and protected owner tags.
func (p *Policy[K, V, M, E]) Tags() []table.Tag {
	return append([]table.Tag{p.window.Tag()}, p.main.Tags()...)
}

func (p *Policy[K, V, M, E]) owns(tag table.Tag) bool {
	if tag == p.window.Tag() {
		return true
	}
	for _, t := range p.main.Tags() {
		if tag == t {
			return true
		}
	}
	return false
}

func (p *Policy[K, V, M, E]) entry(h table.Handle) E {
	e, err := p.t.Get(h)
	if err != nil {
		panic("tinylfu: invalid handle: " + err.Error())
	}
	return e
}

var _ policy.Policy[string, int, struct{}, *table.Record[string, int, struct{}]] = (*Policy[string, int, struct{}, *table.Record[string, int, struct{}]])(nil)
