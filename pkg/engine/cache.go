package engine

import (
	"container/list"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lemonberrylabs/eggexpr/pkg/expr"
)

// DefaultCacheSize is the capacity used when none is configured.
const DefaultCacheSize = 1024

// Cache memoizes parse results by source text, keeping at most capacity
// entries and evicting the least recently used. Concurrent first requests for
// the same source share one parse. Parse errors are cached too.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List               // front is most recently used
	items    map[string]*list.Element // source -> element holding *cacheEntry

	hits   atomic.Int64
	misses atomic.Int64
	evicts atomic.Int64
}

type cacheEntry struct {
	source  string
	once    sync.Once
	tree    *expr.Tree
	err     error
	done    atomic.Bool
	hits    atomic.Int64
	created time.Time
}

// CacheStats summarizes cache usage.
type CacheStats struct {
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// CacheEntry describes one cached source.
type CacheEntry struct {
	Source  string    `json:"source"`
	Hits    int64     `json:"hits"`
	Valid   bool      `json:"valid"`
	Created time.Time `json:"created"`
}

// NewCache creates an empty cache holding up to capacity entries. A
// capacity <= 0 selects DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the cached result for source, calling parse on the first
// request. hit reports whether the entry already existed. A panic in parse
// is returned as an error.
func (c *Cache) Get(source string, parse func(string) (*expr.Tree, error)) (tree *expr.Tree, hit bool, err error) {
	e, loaded := c.entry(source)
	e.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				e.tree, e.err = nil, fmt.Errorf("parsing %q: panic: %v", truncate(e.source), r)
			}
			e.done.Store(true)
		}()
		e.tree, e.err = parse(e.source)
	})
	if loaded {
		c.hits.Add(1)
		e.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return e.tree, loaded, e.err
}

// entry finds or inserts the entry for source and marks it most recently
// used. An entry evicted while its parse is running still completes for the
// callers already holding it.
func (c *Cache) entry(source string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[source]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*cacheEntry), true
	}
	// Callers may pass strings backed by reused request buffers.
	e := &cacheEntry{source: strings.Clone(source), created: time.Now()}
	c.items[e.source] = c.ll.PushFront(e)
	for c.ll.Len() > c.capacity {
		c.evictLocked()
	}
	return e, false
}

// evictLocked removes the least recently used entry. c.mu must be held.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*cacheEntry).source)
	c.evicts.Add(1)
}

// Evict drops source from the cache and reports whether it was present.
func (c *Cache) Evict(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[source]
	if ok {
		c.ll.Remove(el)
		delete(c.items, source)
	}
	return ok
}

// Purge drops every entry. Counters are kept.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int { return c.capacity }

// Stats returns current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	n := c.ll.Len()
	c.mu.Unlock()
	return CacheStats{
		Entries:   n,
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evicts.Load(),
	}
}

// Entries lists cached sources sorted by text. Parses still in flight are
// left out.
func (c *Cache) Entries() []CacheEntry {
	c.mu.Lock()
	var out []CacheEntry
	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*cacheEntry)
		if !e.done.Load() {
			continue
		}
		out = append(out, CacheEntry{
			Source:  e.source,
			Hits:    e.hits.Load(),
			Valid:   e.err == nil,
			Created: e.created,
		})
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
