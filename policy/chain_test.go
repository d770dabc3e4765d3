package policy

import (
	"testing"

	"github.com/slotcache/slotcache/table"
)

func newChainFixture(t *testing.T, capacity int) (*table.Table[string, int, struct{}, *table.Record[string, int, struct{}]], *Chain[string, int, struct{}, *table.Record[string, int, struct{}]]) {
	t.Helper()
	tab := table.NewRecords[string, int, struct{}](table.Options[string]{Capacity: 32})
	return tab, NewChain(tab, table.Tag(7), capacity)
}

func insertLinked(t *testing.T, tab *table.Table[string, int, struct{}, *table.Record[string, int, struct{}]], c *Chain[string, int, struct{}, *table.Record[string, int, struct{}]], k string) table.Handle {
	t.Helper()
	h, _, _, err := tab.Insert(table.NewRecord(k, 0, struct{}{}))
	if err != nil {
		t.Fatalf("insert %s: %v", k, err)
	}
	c.PushFront(h)
	return h
}

func chainKeys(t *testing.T, c *Chain[string, int, struct{}, *table.Record[string, int, struct{}]]) []string {
	t.Helper()
	var keys []string
	c.Walk(func(_ table.Handle, e *table.Record[string, int, struct{}]) bool {
		keys = append(keys, e.Key())
		return true
	})
	return keys
}

func wantOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("chain order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chain order = %v, want %v", got, want)
		}
	}
}

// PushFront must order entries MRU-first and stamp the chain's owner tag.
func TestChain_PushFrontOrderAndTag(t *testing.T) {
	t.Parallel()

	tab, c := newChainFixture(t, 8)
	ha := insertLinked(t, tab, c, "a")
	insertLinked(t, tab, c, "b")
	hc := insertLinked(t, tab, c, "c")

	wantOrder(t, chainKeys(t, c), []string{"c", "b", "a"})
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if c.Front() != hc || c.Back() != ha {
		t.Fatalf("front/back handles wrong")
	}

	e, err := tab.Get(ha)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.Owner() != c.Tag() {
		t.Fatalf("owner = %d, want chain tag %d", e.Owner(), c.Tag())
	}
}

func TestChain_MoveToFront(t *testing.T) {
	t.Parallel()

	tab, c := newChainFixture(t, 8)
	ha := insertLinked(t, tab, c, "a")
	hb := insertLinked(t, tab, c, "b")
	insertLinked(t, tab, c, "c")

	c.MoveToFront(ha) // back to front
	wantOrder(t, chainKeys(t, c), []string{"a", "c", "b"})

	c.MoveToFront(hb) // middle to front
	wantOrder(t, chainKeys(t, c), []string{"b", "a", "c"})

	c.MoveToFront(hb) // already front: no-op
	wantOrder(t, chainKeys(t, c), []string{"b", "a", "c"})
	if hc, ok := tab.Find("c"); !ok || c.Back() != hc {
		t.Fatalf("back must be the untouched tail")
	}
}

func TestChain_Unlink(t *testing.T) {
	t.Parallel()

	tab, c := newChainFixture(t, 8)
	ha := insertLinked(t, tab, c, "a")
	hb := insertLinked(t, tab, c, "b")
	hc := insertLinked(t, tab, c, "c")

	c.Unlink(hb) // middle
	wantOrder(t, chainKeys(t, c), []string{"c", "a"})

	e, err := tab.Get(hb)
	if err != nil {
		t.Fatalf("unlinked entry must stay in the table: %v", err)
	}
	if e.Owner() != table.NoTag || e.Prev() != table.None || e.Next() != table.None {
		t.Fatalf("unlink must clear owner tag and links")
	}

	c.Unlink(hc) // front
	wantOrder(t, chainKeys(t, c), []string{"a"})
	c.Unlink(ha) // last
	if c.Len() != 0 || c.Front() != table.None || c.Back() != table.None {
		t.Fatalf("empty chain must have zero len and sentinel ends")
	}
}

func TestChain_DrainOrderAndReset(t *testing.T) {
	t.Parallel()

	tab, c := newChainFixture(t, 8)
	insertLinked(t, tab, c, "a")
	insertLinked(t, tab, c, "b")
	insertLinked(t, tab, c, "c")

	drained := c.Drain()
	if len(drained) != 3 {
		t.Fatalf("drained %d entries, want 3", len(drained))
	}
	for i, want := range []string{"c", "b", "a"} {
		if drained[i].Key() != want {
			t.Fatalf("drain order wrong at %d: got %s, want %s", i, drained[i].Key(), want)
		}
	}
	if c.Len() != 0 {
		t.Fatalf("chain must be empty after drain")
	}
	// Owner tags stay on drained entries so Relink can route them.
	if drained[0].Owner() != c.Tag() {
		t.Fatalf("drain must preserve owner tags")
	}
}

func TestChain_WalkEarlyStop(t *testing.T) {
	t.Parallel()

	tab, c := newChainFixture(t, 8)
	insertLinked(t, tab, c, "a")
	insertLinked(t, tab, c, "b")
	insertLinked(t, tab, c, "c")

	visited := 0
	c.Walk(func(table.Handle, *table.Record[string, int, struct{}]) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Fatalf("walk visited %d, want 2", visited)
	}
}

func TestChain_MinimumCapacity(t *testing.T) {
	t.Parallel()

	tab := table.NewRecords[string, int, struct{}](table.Options[string]{Capacity: 8})
	c := NewChain(tab, table.Tag(1), 0)
	if c.Capacity() != 1 {
		t.Fatalf("capacity clamps to 1, got %d", c.Capacity())
	}
}
