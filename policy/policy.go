// Package policy defines the contract eviction policies implement on top of
// the stable-index table, plus the intrusive handle chain they share.
//
// A policy never owns entry storage: it borrows the Table held by the engine
// and maintains only ordering/frequency structure, expressed as Handles and
// as the intrusive fields reserved by the Entry contract. All methods are
// single-writer, called by the engine with handles that are valid at call
// time.
package policy

import "github.com/slotcache/slotcache/table"

// Reason explains why an entry left the table.
type Reason int

const (
	// ReasonCapacity — the owning policy evicted its least valuable entry to
	// make room.
	ReasonCapacity Reason = iota
	// ReasonAdmission — a TinyLFU window candidate lost the frequency
	// comparison against the main-cache victim and was dropped.
	ReasonAdmission
	// ReasonDisplaced — the key was re-inserted into a different sub-cache
	// sharing the table, displacing this entry.
	ReasonDisplaced
)

// String returns a stable label for metrics backends.
func (r Reason) String() string {
	switch r {
	case ReasonAdmission:
		return "admission"
	case ReasonDisplaced:
		return "displaced"
	default:
		return "capacity"
	}
}

// Eviction reports an entry a policy removed from the table. Handle is the
// handle the entry had before removal; it is stale by the time the caller
// sees it and must only be used as an identifier (e.g. in callbacks).
type Eviction[E any] struct {
	Entry  E
	Handle table.Handle
	Reason Reason
}

// Policy is a per-sub-cache eviction policy instance bound to a shared table.
//
// Semantics:
//   - OnInsert links the just-inserted handle into the policy's structure and
//     may evict one entry from the table to honor its capacity, returning it.
//   - OnGet records a hit: reordering (move-to-front, segment promotion)
//     and/or frequency accounting. Segmented policies may evict while
//     rebalancing segments, so OnGet can also report an eviction.
//   - OnRemove detaches the handle from policy structure prior to an external
//     removal; the caller performs the table removal itself.
//   - Relink re-attaches a handle after an engine compaction without running
//     capacity or admission logic. The engine feeds entries back in reverse
//     recency order so front-insertion reproduces the original ordering.
//   - Drain detaches and returns all entries in recency order (most recent
//     first per internal chain) and resets policy state, leaving owner tags
//     on the entries so Relink can route them back.
type Policy[K comparable, V, M any, E table.Entry[K, V, M]] interface {
	OnInsert(h table.Handle) (Eviction[E], bool)
	OnGet(h table.Handle) (Eviction[E], bool)
	OnRemove(h table.Handle)
	Relink(h table.Handle)
	Drain() []E
	Len() int
	Capacity() int
	Tags() []table.Tag
}
