package policy

import (
	"fmt"

	"github.com/slotcache/slotcache/table"
)

// Chain is an intrusive doubly linked ordering over table handles:
// front = most recently used, back = least. The prev/next links live inside
// the entries themselves (Entry contract), so linking and unlinking are O(1)
// plus a constant number of handle dereferences.
//
// Pushing an entry stamps the chain's owner tag on it; unlinking clears it.
type Chain[K comparable, V, M any, E table.Entry[K, V, M]] struct {
	t   *table.Table[K, V, M, E]
	tag table.Tag

	front table.Handle
	back  table.Handle
	size  int
	cap   int
}

// NewChain builds an empty chain over t with the given owner tag and capacity.
// Capacity is advisory: the chain itself never evicts, policies compare
// Len against Capacity and decide.
func NewChain[K comparable, V, M any, E table.Entry[K, V, M]](t *table.Table[K, V, M, E], tag table.Tag, capacity int) *Chain[K, V, M, E] {
	if capacity < 1 {
		capacity = 1
	}
	return &Chain[K, V, M, E]{t: t, tag: tag, cap: capacity}
}

// entry resolves h or panics: policies only hold handles the engine keeps
// valid, so a failure here is a logic fault (stale handle across a resize).
func (c *Chain[K, V, M, E]) entry(h table.Handle) E {
	e, err := c.t.Get(h)
	if err != nil {
		panic(fmt.Sprintf("policy: broken chain link: %v", err))
	}
	return e
}

// Tag returns the owner tag stamped on chain members.
func (c *Chain[K, V, M, E]) Tag() table.Tag { return c.tag }

// Len returns the number of linked handles.
func (c *Chain[K, V, M, E]) Len() int { return c.size }

// Capacity returns the advisory capacity.
func (c *Chain[K, V, M, E]) Capacity() int { return c.cap }

// Front returns the MRU handle, or table.None when empty.
func (c *Chain[K, V, M, E]) Front() table.Handle { return c.front }

// Back returns the LRU handle, or table.None when empty.
func (c *Chain[K, V, M, E]) Back() table.Handle { return c.back }

// PushFront links h at MRU and stamps the chain's owner tag.
func (c *Chain[K, V, M, E]) PushFront(h table.Handle) {
	e := c.entry(h)
	e.SetOwner(c.tag)
	e.SetPrev(table.None)
	e.SetNext(c.front)
	if c.front != table.None {
		c.entry(c.front).SetPrev(h)
	}
	c.front = h
	if c.back == table.None {
		c.back = h
	}
	c.size++
}

// MoveToFront promotes h to MRU.
func (c *Chain[K, V, M, E]) MoveToFront(h table.Handle) {
	if h == c.front {
		return
	}
	e := c.entry(h)
	c.detach(e, h)
	e.SetPrev(table.None)
	e.SetNext(c.front)
	if c.front != table.None {
		c.entry(c.front).SetPrev(h)
	}
	c.front = h
	if c.back == table.None {
		c.back = h
	}
}

// Unlink detaches h from the chain and clears its owner tag and links.
func (c *Chain[K, V, M, E]) Unlink(h table.Handle) {
	e := c.entry(h)
	c.detach(e, h)
	e.SetPrev(table.None)
	e.SetNext(table.None)
	e.SetOwner(table.NoTag)
	c.size--
}

// detach splices h out of the list without touching its own fields or size.
func (c *Chain[K, V, M, E]) detach(e E, h table.Handle) {
	p, n := e.Prev(), e.Next()
	if p != table.None {
		c.entry(p).SetNext(n)
	} else {
		c.front = n
	}
	if n != table.None {
		c.entry(n).SetPrev(p)
	} else {
		c.back = p
	}
}

// Drain returns all entries front-to-back and empties the chain. Owner tags
// are left on the entries so a later Relink can route them; the handle links
// are meaningless afterwards and are overwritten on re-linking.
func (c *Chain[K, V, M, E]) Drain() []E {
	out := make([]E, 0, c.size)
	for h := c.front; h != table.None; {
		e := c.entry(h)
		out = append(out, e)
		h = e.Next()
	}
	c.front = table.None
	c.back = table.None
	c.size = 0
	return out
}

// Walk visits handles front-to-back until fn returns false.
func (c *Chain[K, V, M, E]) Walk(fn func(h table.Handle, e E) bool) {
	for h := c.front; h != table.None; {
		e := c.entry(h)
		next := e.Next()
		if !fn(h, e) {
			return
		}
		h = next
	}
}
