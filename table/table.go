// Package table implements an open-addressing hashmap whose occupied slots
// are addressable through stable, generation-checked integer handles.
//
// Standard map implementations relocate entries on mutation and forbid
// index-based access; the eviction policies in this module keep intrusive
// linked orderings expressed as slot indices, so they need a table where an
// entry stays put from insertion until its own removal. Slots are reused via
// tombstones, and every reuse bumps a per-slot generation so that a stale
// Handle is detected instead of silently reading unrelated data.
//
// The table is single-writer: no internal locking, callers serialize access.
package table

import (
	"github.com/slotcache/slotcache/internal/util"
)

// Handle is a stable reference to an occupied slot: the slot index packed
// with the slot generation observed at insertion time. A Handle is valid from
// the insert that returned it until that slot's entry is removed or the table
// is resized; afterwards Get/Remove fail with ErrStaleHandle or ErrVacantSlot.
//
// The zero Handle is never issued and acts as the "no handle" sentinel.
type Handle uint64

// None is the zero Handle, used by policies as the nil link.
const None Handle = 0

func makeHandle(idx int, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(uint32(idx)))
}

func (h Handle) index() int   { return int(uint32(h)) }
func (h Handle) gen() uint32  { return uint32(h >> 32) }

// IsNone reports whether h is the sentinel Handle.
func (h Handle) IsNone() bool { return h == None }

// Control byte per slot: empty, tombstone, or occupied carrying a 7-bit
// fragment of the key hash for fast probe rejection.
const (
	ctrlEmpty byte = 0x00
	ctrlTomb  byte = 0x01
)

func ctrlFrag(hash uint64) byte { return 0x80 | byte(hash>>57) }

func isOccupied(c byte) bool { return c&0x80 != 0 }

// Options configures a Table.
type Options[K comparable] struct {
	// Capacity is the minimum number of usable entries. The slot count is
	// rounded up to a power of two large enough to keep the load factor
	// (occupied + tombstones) below 7/8.
	Capacity int

	// Hasher maps a key to 64 bits. Nil selects util.Hash64 (xxhash over
	// common key types).
	Hasher func(K) uint64

	// Eq compares two keys for equality. Nil selects ==.
	Eq func(K, K) bool

	// Growable permits automatic resizing when the load bound is crossed.
	// A resize rehashes into a larger table and invalidates every Handle
	// issued so far; callers keeping handles must leave this off.
	Growable bool
}

// Table is the stable-index open-addressing hashmap. E is the entry type,
// normally *Record; custom layouts satisfy the Entry contract.
type Table[K comparable, V, M any, E Entry[K, V, M]] struct {
	slots []E
	ctrl  []byte
	gens  []uint32

	used  int
	tombs int
	mask  int

	// maxGen is the highest generation ever issued; resizes and Clear seed
	// fresh slots above it so pre-existing handles can never match again.
	maxGen uint32

	hash     func(K) uint64
	eq       func(K, K) bool
	growable bool
}

// New constructs a Table for a caller-chosen entry type.
func New[K comparable, V, M any, E Entry[K, V, M]](opts Options[K]) *Table[K, V, M, E] {
	if opts.Capacity <= 0 {
		panic("table: Capacity must be > 0")
	}
	h := opts.Hasher
	if h == nil {
		h = util.Hash64[K]
	}
	eq := opts.Eq
	if eq == nil {
		eq = func(a, b K) bool { return a == b }
	}
	t := &Table[K, V, M, E]{
		hash:     h,
		eq:       eq,
		growable: opts.Growable,
	}
	t.alloc(slotCountFor(opts.Capacity), 1)
	return t
}

// NewRecords constructs a Table storing the stock *Record entry type.
func NewRecords[K comparable, V, M any](opts Options[K]) *Table[K, V, M, *Record[K, V, M]] {
	return New[K, V, M, *Record[K, V, M]](opts)
}

// slotCountFor returns the smallest power-of-two slot count whose 7/8 load
// bound admits capacity entries.
func slotCountFor(capacity int) int {
	n := int(util.NextPow2(uint64(capacity)))
	for n-n/8 < capacity {
		n *= 2
	}
	return n
}

func (t *Table[K, V, M, E]) alloc(slots int, gen uint32) {
	t.slots = make([]E, slots)
	t.ctrl = make([]byte, slots)
	t.gens = make([]uint32, slots)
	for i := range t.gens {
		t.gens[i] = gen
	}
	t.mask = slots - 1
	t.used = 0
	t.tombs = 0
	if gen > t.maxGen {
		t.maxGen = gen
	}
}

// maxLoad is the resize/refusal threshold: occupied+tombstone slots must stay
// at or below 7/8 of the slot count, guaranteeing an empty probe sentinel.
func (t *Table[K, V, M, E]) maxLoad() int { return len(t.slots) - len(t.slots)/8 }

// Capacity returns the number of entries the table admits before growing or
// refusing inserts.
func (t *Table[K, V, M, E]) Capacity() int { return t.maxLoad() }

// Len returns the number of resident entries.
func (t *Table[K, V, M, E]) Len() int { return t.used }

// Find probes for key and returns the Handle of its slot.
func (t *Table[K, V, M, E]) Find(key K) (Handle, bool) {
	h := t.hash(key)
	frag := ctrlFrag(h)
	i := int(h) & t.mask
	for n := 0; n < len(t.slots); n++ {
		switch c := t.ctrl[i]; {
		case c == ctrlEmpty:
			return None, false
		case c == frag && t.eq(key, t.slots[i].Key()):
			return makeHandle(i, t.gens[i]), true
		}
		i = (i + 1) & t.mask
	}
	return None, false
}

// Insert places e into the table and returns its Handle.
//
// If the key is already present the entry is replaced in the same slot; the
// displaced entry is returned with true and the existing Handle (same slot,
// same generation) stays valid for the new entry.
//
// With growth disabled, Insert fails with ErrCapacityExceeded when admitting
// the entry would cross the load bound. With growth enabled it may resize,
// which invalidates all previously issued Handles.
func (t *Table[K, V, M, E]) Insert(e E) (Handle, E, bool, error) {
	var zero E
	h := t.hash(e.Key())
	frag := ctrlFrag(h)

	// Same-key replace does not change occupancy; probe for it first.
	i := int(h) & t.mask
	firstTomb := -1
	for n := 0; n < len(t.slots); n++ {
		c := t.ctrl[i]
		if c == ctrlEmpty {
			break
		}
		if c == ctrlTomb {
			if firstTomb < 0 {
				firstTomb = i
			}
		} else if c == frag && t.eq(e.Key(), t.slots[i].Key()) {
			old := t.slots[i]
			t.slots[i] = e
			return makeHandle(i, t.gens[i]), old, true, nil
		}
		i = (i + 1) & t.mask
	}

	// Fresh key: check the load bound before consuming a slot. Reusing a
	// tombstone keeps the load constant, so it is always admitted.
	if firstTomb >= 0 {
		return t.place(firstTomb, frag, e, true), zero, false, nil
	}
	if t.used+t.tombs+1 > t.maxLoad() {
		if !t.growable {
			return None, zero, false, ErrCapacityExceeded
		}
		t.grow()
		// Re-probe: slot layout changed.
		i = int(h) & t.mask
		for t.ctrl[i] != ctrlEmpty {
			i = (i + 1) & t.mask
		}
	}
	return t.place(i, frag, e, false), zero, false, nil
}

// place writes e into slot i. Reusing a freed slot bumps its generation so
// that handles to the previous occupant become stale (ABA protection).
func (t *Table[K, V, M, E]) place(i int, frag byte, e E, reuse bool) Handle {
	if reuse {
		t.tombs--
		t.gens[i]++
		if t.gens[i] > t.maxGen {
			t.maxGen = t.gens[i]
		}
	}
	t.ctrl[i] = frag
	t.slots[i] = e
	t.used++
	return makeHandle(i, t.gens[i])
}

// Get returns the entry h refers to. It fails with ErrStaleHandle when the
// slot has been reused or the table resized since h was issued, and with
// ErrVacantSlot when the slot is currently unoccupied.
func (t *Table[K, V, M, E]) Get(h Handle) (E, error) {
	var zero E
	i := h.index()
	if h == None || i >= len(t.slots) || t.gens[i] != h.gen() {
		return zero, ErrStaleHandle
	}
	if !isOccupied(t.ctrl[i]) {
		return zero, ErrVacantSlot
	}
	return t.slots[i], nil
}

// Remove deletes the entry h refers to and returns it. The slot becomes a
// tombstone and its generation is bumped, invalidating h and any copies.
func (t *Table[K, V, M, E]) Remove(h Handle) (E, error) {
	var zero E
	i := h.index()
	if h == None || i >= len(t.slots) || t.gens[i] != h.gen() {
		return zero, ErrStaleHandle
	}
	if !isOccupied(t.ctrl[i]) {
		return zero, ErrVacantSlot
	}
	e := t.slots[i]
	t.slots[i] = zero
	t.ctrl[i] = ctrlTomb
	t.gens[i]++
	if t.gens[i] > t.maxGen {
		t.maxGen = t.gens[i]
	}
	t.used--
	t.tombs++
	return e, nil
}

// Clear removes every entry. All outstanding handles become stale: the fresh
// slots are seeded with a generation above any ever issued.
func (t *Table[K, V, M, E]) Clear() {
	t.alloc(len(t.slots), t.maxGen+1)
}

// NextOccupied returns the handle of the first occupied slot at or after
// cursor (wrapping around), plus the cursor to resume from. It reports false
// when the table is empty. Policies use it to spread lazy per-entry work
// (counter aging) across accesses in table iteration order.
func (t *Table[K, V, M, E]) NextOccupied(cursor int) (Handle, int, bool) {
	if t.used == 0 {
		return None, cursor, false
	}
	i := cursor & t.mask
	for n := 0; n < len(t.slots); n++ {
		if isOccupied(t.ctrl[i]) {
			return makeHandle(i, t.gens[i]), i + 1, true
		}
		i = (i + 1) & t.mask
	}
	return None, cursor, false
}

// grow rehashes into a slot count large enough to keep the resident entries
// (tombstones are dropped) under the load bound with room for one more.
func (t *Table[K, V, M, E]) grow() {
	newSlots := len(t.slots)
	for newSlots-newSlots/8 < t.used+1 {
		newSlots *= 2
	}
	if newSlots == len(t.slots) && t.tombs == 0 {
		newSlots *= 2
	}
	old := t.slots
	oldCtrl := t.ctrl
	t.alloc(newSlots, t.maxGen+1)
	for i, c := range oldCtrl {
		if !isOccupied(c) {
			continue
		}
		e := old[i]
		h := t.hash(e.Key())
		j := int(h) & t.mask
		for t.ctrl[j] != ctrlEmpty {
			j = (j + 1) & t.mask
		}
		t.ctrl[j] = ctrlFrag(h)
		t.slots[j] = e
		t.used++
	}
}
