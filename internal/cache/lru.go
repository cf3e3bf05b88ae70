package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache evicts the least recently used entry beyond maxSize and treats
// entries older than ttl as missing.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[entryKey]*list.Element
	byWS    map[string]map[string]struct{}
	lru     *list.List
}

type entryKey struct {
	workspace string
	key       string
}

type cacheItem[T any] struct {
	key       entryKey
	data      T
	expiresAt time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[entryKey]*list.Element),
		byWS:    make(map[string]map[string]struct{}),
		lru:     list.New(),
	}
}

func (c *LRUCache[T]) Get(workspace, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[entryKey{workspace, key}]
	if !ok {
		return zero, false
	}
	item := elem.Value.(*cacheItem[T])
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *LRUCache[T]) Set(workspace, key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := entryKey{workspace, key}
	item := &cacheItem[T]{key: k, data: data, expiresAt: c.now().Add(c.ttl)}

	if elem, ok := c.items[k]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[k] = c.lru.PushFront(item)
	keys, ok := c.byWS[workspace]
	if !ok {
		keys = make(map[string]struct{})
		c.byWS[workspace] = keys
	}
	keys[key] = struct{}{}

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *LRUCache[T]) Invalidate(workspace string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.byWS[workspace] {
		if elem, ok := c.items[entryKey{workspace, key}]; ok {
			c.removeElement(elem)
		}
	}
	delete(c.byWS, workspace)
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	if keys, ok := c.byWS[item.key.workspace]; ok {
		delete(keys, item.key.key)
		if len(keys) == 0 {
			delete(c.byWS, item.key.workspace)
		}
	}
	c.lru.Remove(elem)
}

// CleanExpired removes expired entries and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		c.removeElement(elem)
	}
	return len(expired)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
