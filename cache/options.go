package cache

import (
	"github.com/slotcache/slotcache/policy"
	"github.com/slotcache/slotcache/table"
)

// Op identifies the operation that triggered a callback.
type Op int

const (
	OpGet Op = iota
	OpInsert
	OpEvict
)

// EvictReason explains why an entry left the table.
type EvictReason = policy.Reason

const (
	// EvictCapacity — removed by the owning policy to make room.
	EvictCapacity = policy.ReasonCapacity
	// EvictAdmission — TinyLFU window candidate rejected by the frequency
	// comparison.
	EvictAdmission = policy.ReasonAdmission
	// EvictDisplaced — key re-inserted into a different sub-cache sharing
	// the table.
	EvictDisplaced = policy.ReasonDisplaced
)

// Callback observes engine operations synchronously. It receives the affected
// handle, the entry's metadata verbatim, and the operation kind. For OpEvict
// the handle is already stale and is only an identifier.
//
// Callbacks must not call back into the engine or mutate the table;
// reentrancy from within a callback is undefined behavior.
type Callback[M any] func(h table.Handle, meta M, op Op)

// PolicyKind selects the eviction policy of a sub-cache.
type PolicyKind int

const (
	// PolicyLRU — classic move-to-front LRU. Uses 1 owner tag.
	PolicyLRU PolicyKind = iota
	// PolicySLRU — segmented LRU, 20/80 probationary/protected. 2 tags.
	PolicySLRU
	// PolicyTinyLFU — scan-window TinyLFU: 1% LRU window in front of an
	// SLRU main region with frequency-based admission. 3 tags.
	PolicyTinyLFU
)

// SubCacheSpec declares one named sub-cache partition of the engine.
// Exactly one of Capacity (absolute entries) or Ratio (fraction of
// TotalCapacity) must be set; Capacity wins when both are.
type SubCacheSpec struct {
	Name     string
	Kind     PolicyKind
	Capacity int
	Ratio    float64
}

// Options configures an Engine. Zero values are safe; defaults are applied
// in New():
//   - nil SubCaches => a single LRU sub-cache named "main" at TotalCapacity
//   - nil Hasher    => util.Hash64 (xxhash over common key types)
//   - nil Eq        => ==
//   - nil Metrics   => NoopMetrics
type Options[K comparable, V, M any] struct {
	// TotalCapacity is the summed entry budget across all sub-caches.
	TotalCapacity int

	// SubCaches declares the partitions in order. Their resolved capacities
	// must not exceed TotalCapacity.
	SubCaches []SubCacheSpec

	// Hasher maps keys to 64 bits for the shared table.
	Hasher func(K) uint64

	// Eq compares keys; the default is ==.
	Eq func(K, K) bool

	// Headroom adds slack table slots beyond TotalCapacity so that
	// tombstones from normal churn rarely force a compaction.
	// Zero selects TotalCapacity/8 + 8.
	Headroom int

	// OnEvent is the optional per-operation hook (get/insert/evict).
	OnEvent Callback[M]

	// Metrics receives Hit/Miss/Evict/Size signals.
	Metrics Metrics
}
