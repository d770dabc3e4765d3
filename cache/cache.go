package cache

import (
	"errors"
	"fmt"

	"github.com/slotcache/slotcache/policy"
	"github.com/slotcache/slotcache/policy/lru"
	"github.com/slotcache/slotcache/policy/slru"
	"github.com/slotcache/slotcache/policy/tinylfu"
	"github.com/slotcache/slotcache/table"
)

// Evicted is an entry that left the table as a side effect of an Insert.
type Evicted[K comparable, V, M any] struct {
	Key    K
	Value  V
	Meta   M
	Reason EvictReason
}

// Engine composes one stable-index table with one or more eviction policies
// (sub-caches) that partition its key space. The engine owns the table and
// every policy instance; policies borrow the table per call and never
// outlive it.
//
// The engine is single-writer: no internal locking. Callers needing
// concurrent access wrap the whole engine in their own exclusion.
type Engine[K comparable, V, M any, E table.Entry[K, V, M]] struct {
	tab      *table.Table[K, V, M, E]
	subs     []*SubCache[K, V, M, E]
	byName   map[string]*SubCache[K, V, M, E]
	byTag    map[table.Tag]*SubCache[K, V, M, E]
	newEntry func(K, V, M) E

	totalCap int
	cb       Callback[M]
	metrics  Metrics
}

// SubCache is a named partition of the engine: one policy instance over the
// shared table, addressed through Engine.Sub.
type SubCache[K comparable, V, M any, E table.Entry[K, V, M]] struct {
	name string
	eng  *Engine[K, V, M, E]
	pol  policy.Policy[K, V, M, E]
}

// New constructs an Engine storing the stock *Record entry type.
func New[K comparable, V, M any](opt Options[K, V, M]) (*Engine[K, V, M, *table.Record[K, V, M]], error) {
	return NewWithEntry(opt, table.NewRecord[K, V, M])
}

// NewWithEntry constructs an Engine over a caller-supplied entry layout.
// newEntry builds one entry per insert; the returned type must satisfy the
// table.Entry contract, including the intrusive fields the chosen policies
// need (LRU: 2 handles; SLRU: 2 handles + owner tag; TinyLFU: those plus the
// packed frequency word).
func NewWithEntry[K comparable, V, M any, E table.Entry[K, V, M]](opt Options[K, V, M], newEntry func(K, V, M) E) (*Engine[K, V, M, E], error) {
	if opt.TotalCapacity <= 0 {
		return nil, errors.New("cache: TotalCapacity must be > 0")
	}
	if newEntry == nil {
		return nil, errors.New("cache: entry factory must not be nil")
	}
	specs := opt.SubCaches
	if len(specs) == 0 {
		specs = []SubCacheSpec{{Name: "main", Kind: PolicyLRU, Capacity: opt.TotalCapacity}}
	}
	metrics := opt.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	headroom := opt.Headroom
	if headroom <= 0 {
		headroom = opt.TotalCapacity/8 + 8
	}

	// The table is sized for every sub-cache plus headroom with growth
	// disabled: policies keep handles in their chains, and a resize would
	// invalidate all of them mid-operation.
	tab := table.New[K, V, M, E](table.Options[K]{
		Capacity: opt.TotalCapacity + headroom,
		Hasher:   opt.Hasher,
		Eq:       opt.Eq,
	})

	e := &Engine[K, V, M, E]{
		tab:      tab,
		byName:   make(map[string]*SubCache[K, V, M, E], len(specs)),
		byTag:    make(map[table.Tag]*SubCache[K, V, M, E]),
		newEntry: newEntry,
		totalCap: opt.TotalCapacity,
		cb:       opt.OnEvent,
		metrics:  metrics,
	}

	nextTag := table.Tag(1)
	budget := opt.TotalCapacity
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, errors.New("cache: sub-cache name must not be empty")
		}
		if _, dup := e.byName[spec.Name]; dup {
			return nil, fmt.Errorf("cache: duplicate sub-cache name %q", spec.Name)
		}
		capacity := spec.Capacity
		if capacity <= 0 {
			capacity = int(spec.Ratio * float64(opt.TotalCapacity))
		}
		if capacity <= 0 {
			return nil, fmt.Errorf("cache: sub-cache %q has no capacity", spec.Name)
		}
		budget -= capacity
		if budget < 0 {
			return nil, fmt.Errorf("cache: sub-cache capacities exceed TotalCapacity %d", opt.TotalCapacity)
		}

		var used int
		switch spec.Kind {
		case PolicyLRU:
			used = 1
		case PolicySLRU:
			used = 2
		case PolicyTinyLFU:
			used = 3
		default:
			return nil, fmt.Errorf("cache: unknown policy kind %d", spec.Kind)
		}
		if int(nextTag)+used > 256 {
			return nil, errors.New("cache: too many sub-caches (owner tag space exhausted)")
		}

		var pol policy.Policy[K, V, M, E]
		switch spec.Kind {
		case PolicyLRU:
			pol = lru.New(tab, nextTag, capacity)
		case PolicySLRU:
			pol = slru.NewStandard(tab, nextTag, nextTag+1, capacity)
		case PolicyTinyLFU:
			pol = tinylfu.NewStandard(tab, nextTag, nextTag+1, nextTag+2, capacity)
		}

		sub := &SubCache[K, V, M, E]{name: spec.Name, eng: e, pol: pol}
		e.subs = append(e.subs, sub)
		e.byName[spec.Name] = sub
		for _, tag := range pol.Tags() {
			e.byTag[tag] = sub
		}
		nextTag += table.Tag(used)
	}
	return e, nil
}

// Sub returns the sub-cache registered under name.
func (e *Engine[K, V, M, E_]) Sub(name string) (*SubCache[K, V, M, E_], bool) {
	s, ok := e.byName[name]
	return s, ok
}

// Len returns the total number of resident entries across all sub-caches.
func (e *Engine[K, V, M, E_]) Len() int { return e.tab.Len() }

// Capacity returns the summed sub-cache entry budget.
func (e *Engine[K, V, M, E_]) Capacity() int { return e.totalCap }

// Entry resolves a handle to its entry, for callback consumers that want to
// inspect more than the metadata. Fails with the table's handle errors.
func (e *Engine[K, V, M, E_]) Entry(h table.Handle) (E_, error) { return e.tab.Get(h) }

// Compact rebuilds the shared table in place, dropping accumulated
// tombstones. Every outstanding Handle is invalidated; sub-cache recency
// order and frequency state are preserved. The engine calls this itself when
// tombstone load makes the table refuse an insert.
func (e *Engine[K, V, M, E_]) Compact() {
	drained := make([][]E_, len(e.subs))
	for i, sub := range e.subs {
		drained[i] = sub.pol.Drain()
	}
	e.tab.Clear()
	for i, sub := range e.subs {
		entries := drained[i]
		// Reverse order: Relink front-inserts, so feeding least recent
		// first reproduces the original ordering of each chain.
		for j := len(entries) - 1; j >= 0; j-- {
			h, _, _, err := e.tab.Insert(entries[j])
			if err != nil {
				panic("cache: compaction reinsert failed: " + err.Error())
			}
			sub.pol.Relink(h)
		}
	}
}

func (e *Engine[K, V, M, E_]) emitEvict(h table.Handle, meta M, r EvictReason) {
	e.metrics.Evict(r)
	if e.cb != nil {
		e.cb(h, meta, OpEvict)
	}
}

// ---- SubCache operations ----

// Name returns the sub-cache name.
func (s *SubCache[K, V, M, E]) Name() string { return s.name }

// Len returns the number of entries resident in this sub-cache.
func (s *SubCache[K, V, M, E]) Len() int { return s.pol.Len() }

// Capacity returns this sub-cache's entry budget.
func (s *SubCache[K, V, M, E]) Capacity() int { return s.pol.Capacity() }

// Get returns the value for k and records the hit with the policy
// (promotion, frequency accounting). A key resident in a different sub-cache
// of the same engine is a miss here.
func (s *SubCache[K, V, M, E]) Get(k K) (V, bool) {
	var zero V
	e := s.eng
	h, ok := e.tab.Find(k)
	if !ok {
		e.metrics.Miss()
		return zero, false
	}
	ent, err := e.tab.Get(h)
	if err != nil || e.byTag[ent.Owner()] != s {
		e.metrics.Miss()
		return zero, false
	}
	ev, evicted := s.pol.OnGet(h)
	e.metrics.Hit()
	if e.cb != nil {
		e.cb(h, ent.Meta(), OpGet)
	}
	if evicted {
		e.emitEvict(ev.Handle, ev.Entry.Meta(), ev.Reason)
	}
	return ent.Value(), true
}

// Insert places k→v with metadata m into this sub-cache and returns the
// entry evicted to make room, if any.
//
// A key already resident here is updated in place and touched like a hit.
// A key resident in another sub-cache is displaced first (reported through
// the evict callback with EvictDisplaced). When both a displacement and a
// policy eviction occur, the returned Evicted is the policy's; callbacks and
// metrics still report every removal.
func (s *SubCache[K, V, M, E]) Insert(k K, v V, m M) (Evicted[K, V, M], bool, error) {
	var out Evicted[K, V, M]
	var has bool
	e := s.eng

	if h, ok := e.tab.Find(k); ok {
		ent, err := e.tab.Get(h)
		if err != nil {
			return out, false, err
		}
		if owner := e.byTag[ent.Owner()]; owner == s {
			// In-place update; an update counts as recent use.
			ent.SetValue(v)
			ent.SetMeta(m)
			ev, evicted := s.pol.OnGet(h)
			if e.cb != nil {
				e.cb(h, m, OpInsert)
			}
			if evicted {
				e.emitEvict(ev.Handle, ev.Entry.Meta(), ev.Reason)
				out = Evicted[K, V, M]{Key: ev.Entry.Key(), Value: ev.Entry.Value(), Meta: ev.Entry.Meta(), Reason: ev.Reason}
				has = true
			}
			return out, has, nil
		} else if owner != nil {
			// The key lives in a sibling sub-cache: displace it.
			owner.pol.OnRemove(h)
			de, err := e.tab.Remove(h)
			if err != nil {
				return out, false, err
			}
			e.emitEvict(h, de.Meta(), EvictDisplaced)
			out = Evicted[K, V, M]{Key: de.Key(), Value: de.Value(), Meta: de.Meta(), Reason: EvictDisplaced}
			has = true
		}
	}

	ent := e.newEntry(k, v, m)
	h, _, _, err := e.tab.Insert(ent)
	if errors.Is(err, table.ErrCapacityExceeded) {
		// Tombstone buildup, not real occupancy: rebuild and retry once.
		e.Compact()
		h, _, _, err = e.tab.Insert(ent)
	}
	if err != nil {
		return out, has, err
	}
	if e.cb != nil {
		e.cb(h, m, OpInsert)
	}
	if ev, evicted := s.pol.OnInsert(h); evicted {
		e.emitEvict(ev.Handle, ev.Entry.Meta(), ev.Reason)
		out = Evicted[K, V, M]{Key: ev.Entry.Key(), Value: ev.Entry.Value(), Meta: ev.Entry.Meta(), Reason: ev.Reason}
		has = true
	}
	e.metrics.Size(e.tab.Len())
	return out, has, nil
}

// Remove deletes k from this sub-cache and returns its value and metadata.
// An explicit Remove is not an eviction: no evict callback fires.
func (s *SubCache[K, V, M, E]) Remove(k K) (V, M, bool) {
	var zv V
	var zm M
	e := s.eng
	h, ok := e.tab.Find(k)
	if !ok {
		return zv, zm, false
	}
	ent, err := e.tab.Get(h)
	if err != nil || e.byTag[ent.Owner()] != s {
		return zv, zm, false
	}
	s.pol.OnRemove(h)
	if _, err := e.tab.Remove(h); err != nil {
		return zv, zm, false
	}
	e.metrics.Size(e.tab.Len())
	return ent.Value(), ent.Meta(), true
}
