package lru

import (
	"fmt"
	"testing"

	"github.com/slotcache/slotcache/policy"
	"github.com/slotcache/slotcache/table"
)

type fixture struct {
	tab *table.Table[string, int, struct{}, *table.Record[string, int, struct{}]]
	pol *Policy[string, int, struct{}, *table.Record[string, int, struct{}]]
}

func newFixture(capacity int) *fixture {
	tab := table.NewRecords[string, int, struct{}](table.Options[string]{Capacity: 64})
	return &fixture{tab: tab, pol: New(tab, table.Tag(1), capacity)}
}

func (f *fixture) insert(t *testing.T, k string) (policy.Eviction[*table.Record[string, int, struct{}]], bool) {
	t.Helper()
	h, _, _, err := f.tab.Insert(table.NewRecord(k, 0, struct{}{}))
	if err != nil {
		t.Fatalf("insert %s: %v", k, err)
	}
	return f.pol.OnInsert(h)
}

func (f *fixture) get(t *testing.T, k string) {
	t.Helper()
	h, ok := f.tab.Find(k)
	if !ok {
		t.Fatalf("get %s: not found", k)
	}
	f.pol.OnGet(h)
}

// Inserting within capacity must never propose an eviction.
func TestLRU_OnInsert_NoEvictUnderCapacity(t *testing.T) {
	t.Parallel()

	f := newFixture(3)
	for _, k := range []string{"a", "b", "c"} {
		if _, evicted := f.insert(t, k); evicted {
			t.Fatalf("insert %s must not evict under capacity", k)
		}
	}
	if f.pol.Len() != 3 {
		t.Fatalf("Len = %d, want 3", f.pol.Len())
	}
}

// With capacity N, the N+1th insert evicts exactly the least recently used
// key, with the capacity reason.
func TestLRU_OnInsert_EvictsLeastRecent(t *testing.T) {
	t.Parallel()

	f := newFixture(3)
	f.insert(t, "a")
	f.insert(t, "b")
	f.insert(t, "c")

	ev, evicted := f.insert(t, "d")
	if !evicted {
		t.Fatalf("insert beyond capacity must evict")
	}
	if ev.Entry.Key() != "a" {
		t.Fatalf("evicted %s, want a", ev.Entry.Key())
	}
	if ev.Reason != policy.ReasonCapacity {
		t.Fatalf("reason = %v, want capacity", ev.Reason)
	}
	if _, ok := f.tab.Find("a"); ok {
		t.Fatalf("evicted entry must leave the table")
	}
	if f.pol.Len() != 3 {
		t.Fatalf("Len = %d, want 3 after eviction", f.pol.Len())
	}
}

// A hit promotes to MRU: after get(a), a survives the next overflow and the
// new least-recent key goes instead.
func TestLRU_OnGet_PromotionChangesVictim(t *testing.T) {
	t.Parallel()

	f := newFixture(3)
	f.insert(t, "a")
	f.insert(t, "b")
	f.insert(t, "c")
	f.get(t, "a")

	ev, evicted := f.insert(t, "d")
	if !evicted || ev.Entry.Key() != "b" {
		t.Fatalf("victim after promoting a must be b, got %v", ev.Entry)
	}
	if _, ok := f.tab.Find("a"); !ok {
		t.Fatalf("promoted key must survive")
	}
}

// The full recency order is observable through repeated eviction: keys leave
// in exactly the reverse of their last-use order.
func TestLRU_EvictionFollowsUseOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(4)
	for i := 0; i < 4; i++ {
		f.insert(t, fmt.Sprintf("k%d", i))
	}
	f.get(t, "k1")
	f.get(t, "k0")
	// Recency now (MRU..LRU): k0 k1 k3 k2.

	want := []string{"k2", "k3", "k1", "k0"}
	for i, w := range want {
		ev, evicted := f.insert(t, fmt.Sprintf("new%d", i))
		if !evicted || ev.Entry.Key() != w {
			t.Fatalf("eviction %d: got %v, want %s", i, ev.Entry, w)
		}
	}
}

func TestLRU_OnRemoveDetaches(t *testing.T) {
	t.Parallel()

	f := newFixture(2)
	f.insert(t, "a")
	f.insert(t, "b")

	h, _ := f.tab.Find("a")
	f.pol.OnRemove(h)
	if _, err := f.tab.Remove(h); err != nil {
		t.Fatalf("remove after detach: %v", err)
	}
	if f.pol.Len() != 1 {
		t.Fatalf("Len = %d, want 1", f.pol.Len())
	}

	// Capacity freed by the removal: the next insert must not evict.
	if _, evicted := f.insert(t, "c"); evicted {
		t.Fatalf("insert into freed capacity must not evict")
	}
}

// Drain + reverse Relink must reproduce the original recency order, the
// protocol the engine's compaction relies on.
func TestLRU_DrainRelinkRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(3)
	f.insert(t, "a")
	f.insert(t, "b")
	f.insert(t, "c")
	f.get(t, "a") // MRU..LRU: a c b

	drained := f.pol.Drain()
	if f.pol.Len() != 0 {
		t.Fatalf("policy must be empty after drain")
	}
	for i, want := range []string{"a", "c", "b"} {
		if drained[i].Key() != want {
			t.Fatalf("drain order at %d: got %s, want %s", i, drained[i].Key(), want)
		}
	}

	// Feed back least recent first, as the engine does.
	for i := len(drained) - 1; i >= 0; i-- {
		h, ok := f.tab.Find(drained[i].Key())
		if !ok {
			t.Fatalf("drained entry %s vanished from table", drained[i].Key())
		}
		f.pol.Relink(h)
	}

	ev, evicted := f.insert(t, "d")
	if !evicted || ev.Entry.Key() != "b" {
		t.Fatalf("post-relink victim = %v, want b", ev.Entry)
	}
}

func TestLRU_Tags(t *testing.T) {
	t.Parallel()

	f := newFixture(2)
	tags := f.pol.Tags()
	if len(tags) != 1 || tags[0] != table.Tag(1) {
		t.Fatalf("Tags = %v, want [1]", tags)
	}
}
