// Package pagecache implements an Adaptive Replacement Cache (ARC) for
// raw encoded content pages, keyed by block id. ARC adapts between
// recency (T1/B1) and frequency (T2/B2) pressure automatically, which
// suits a container workload that mixes one-shot reads (backups,
// exports) with hot small files reread repeatedly, without needing a
// tunable like a plain LRU's size or a two-queue's fixed split.
//
// The four-list bookkeeping is grounded on the classic ARC paper's
// structure; container/list supplies the doubly linked lists themselves
// since no third-party package in the pack implements ARC (the pack's
// github.com/hashicorp/golang-lru/v2, used elsewhere by this project for
// the policy decision cache, only offers plain LRU/2Q, not ARC - see
// DESIGN.md). Locking follows pkg/vkern's pattern of a single mutex
// guarding an in-memory manager distinct from the façade's own lock.
package pagecache

import (
	"container/list"
	"sync"
)

// entry is the value stored in every list element. owner records which
// of the four lists currently holds it, so callers never need to scan
// lists to find an element's home.
type entry struct {
	key   int64
	page  []byte // nil for ghost entries (b1/b2)
	owner *list.List
}

// Cache is a fixed-capacity ARC page cache. Capacity is measured in
// pages, not bytes: all content pages are the same fixed size, so a
// page count is a byte budget in disguise without needing to track
// variable-length ghost payloads.
type Cache struct {
	mu sync.Mutex

	capacity int
	target   int // adaptive split point "p" within capacity, favoring t1

	t1 *list.List // recent cache entries (have payload)
	t2 *list.List // frequent cache entries (have payload)
	b1 *list.List // recent ghost entries (key only)
	b2 *list.List // frequent ghost entries (key only)

	index map[int64]*list.Element // key -> element, across all four lists
}

// New constructs a Cache holding up to capacity pages.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		t1:       list.New(),
		t2:       list.New(),
		b1:       list.New(),
		b2:       list.New(),
		index:    make(map[int64]*list.Element),
	}
}

// Get returns the cached page for key and whether it was present,
// promoting it to the frequent list (T2) on a hit per the ARC
// algorithm. A ghost hit (b1/b2) is reported as a miss since ghosts
// carry no payload.
func (c *Cache) Get(key int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)

	switch e.owner {
	case c.t1:
		c.t1.Remove(el)
		e.owner = c.t2
		c.index[key] = c.t2.PushFront(e)
		return e.page, true
	case c.t2:
		c.t2.MoveToFront(el)
		return e.page, true
	default:
		return nil, false
	}
}

// Put inserts or updates the cached page for key, running the full ARC
// replacement policy (cases I-IV of the original algorithm).
func (c *Cache) Put(key int64, page []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := append([]byte(nil), page...)

	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry)
		switch e.owner {
		case c.t1:
			c.t1.Remove(el)
			c.index[key] = c.t2.PushFront(&entry{key: key, page: cp, owner: c.t2})
			return
		case c.t2:
			e.page = cp
			c.t2.MoveToFront(el)
			return
		case c.b1:
			delta := c.b2.Len() / maxInt(c.b1.Len(), 1)
			c.adapt(maxInt(1, delta))
			c.replace(nil)
			c.b1.Remove(el)
			delete(c.index, key)
			c.index[key] = c.t2.PushFront(&entry{key: key, page: cp, owner: c.t2})
			return
		case c.b2:
			delta := c.b1.Len() / maxInt(c.b2.Len(), 1)
			c.adapt(-maxInt(1, delta))
			c.replace(c.b2)
			c.b2.Remove(el)
			delete(c.index, key)
			c.index[key] = c.t2.PushFront(&entry{key: key, page: cp, owner: c.t2})
			return
		}
	}

	// case IV: key seen nowhere yet.
	total := c.t1.Len() + c.t2.Len() + c.b1.Len() + c.b2.Len()
	if c.t1.Len()+c.b1.Len() == c.capacity {
		if c.t1.Len() < c.capacity {
			c.evictGhost(c.b1)
			c.replace(nil)
		} else {
			c.evictLRU(c.t1)
		}
	} else if total >= c.capacity {
		if total == 2*c.capacity {
			c.evictGhost(c.b2)
		}
		c.replace(nil)
	}

	c.index[key] = c.t1.PushFront(&entry{key: key, page: cp, owner: c.t1})
}

// Invalidate removes key from the cache entirely, including any ghost
// record, used when a block is freed or overwritten out from under the
// cache.
func (c *Cache) Invalidate(key int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return
	}
	el.Value.(*entry).owner.Remove(el)
	delete(c.index, key)
}

// Len returns the number of resident (non-ghost) entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t1.Len() + c.t2.Len()
}

// adapt nudges the target split point p by delta blocks, clamped to
// [0, capacity].
func (c *Cache) adapt(delta int) {
	c.target += delta
	if c.target < 0 {
		c.target = 0
	}
	if c.target > c.capacity {
		c.target = c.capacity
	}
}

// replace evicts one resident entry (from t1 or t2) into its
// corresponding ghost list, per the ARC REPLACE subroutine. favorB2
// is non-nil when the caller is mid-adaptation on a b2 ghost hit,
// which biases the t1-vs-t2 choice at the boundary case.
func (c *Cache) replace(favorB2 *list.List) {
	if c.t1.Len() > 0 && (c.t1.Len() > c.target || (c.t1.Len() == c.target && favorB2 == c.b2)) {
		c.moveToGhost(c.t1, c.b1)
		return
	}
	if c.t2.Len() > 0 {
		c.moveToGhost(c.t2, c.b2)
		return
	}
	if c.t1.Len() > 0 {
		c.moveToGhost(c.t1, c.b1)
	}
}

func (c *Cache) moveToGhost(from, to *list.List) {
	back := from.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	from.Remove(back)
	e.owner = to
	e.page = nil
	c.index[e.key] = to.PushFront(e)
	c.trimGhost(to)
}

// trimGhost caps a ghost list so the combined cache directory
// (t1+t2+b1+b2) never exceeds 2*capacity.
func (c *Cache) trimGhost(ghost *list.List) {
	for c.t1.Len()+c.t2.Len()+c.b1.Len()+c.b2.Len() > 2*c.capacity && ghost.Len() > 0 {
		c.evictGhost(ghost)
	}
}

func (c *Cache) evictGhost(ghost *list.List) {
	back := ghost.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	ghost.Remove(back)
	delete(c.index, e.key)
}

func (c *Cache) evictLRU(resident *list.List) {
	back := resident.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	resident.Remove(back)
	delete(c.index, e.key)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
