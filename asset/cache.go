package asset

import "sync"

// CacheStats contains resolve cache statistics.
type CacheStats struct {
	Len      int
	Capacity int
	Hits     uint64
	Misses   uint64
}

// resolveCache is a thread-safe LRU map from request string to resolved path.
type resolveCache struct {
	mu       sync.Mutex
	entries  map[string]*resolveEntry
	lru      lruList
	capacity int
	hits     uint64
	misses   uint64
}

type resolveEntry struct {
	value ResPath
	node  *lruNode
}

func newResolveCache(capacity int) *resolveCache {
	return &resolveCache{
		entries:  make(map[string]*resolveEntry, capacity),
		capacity: capacity,
	}
}

// Get returns the cached resolution for key and marks it most recently used.
func (c *resolveCache) Get(key string) (ResPath, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return ResPath{}, false
	}
	c.hits++
	c.lru.MoveToFront(e.node)
	return e.value, true
}

// Set stores a resolution, evicting the least recently used entry when full.
func (c *resolveCache) Set(key string, value ResPath) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.lru.MoveToFront(e.node)
		return
	}

	for c.lru.Len() >= c.capacity {
		oldest, ok := c.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(c.entries, oldest)
	}
	c.entries[key] = &resolveEntry{value: value, node: c.lru.PushFront(key)}
}

// Clear removes all entries. Counters are kept.
func (c *resolveCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*resolveEntry, c.capacity)
	c.lru.Clear()
}

func (c *resolveCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Len:      len(c.entries),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

// lruNode is a node in a doubly-linked LRU list.
// The node stores its key for O(1) deletion from the parent map.
type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

// lruList is a doubly-linked list, head most recently used.
// Not thread-safe; resolveCache holds its mutex around every call.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

func (l *lruList) Len() int { return l.len }

// PushFront adds a new node at the front and returns it.
func (l *lruList) PushFront(key string) *lruNode {
	node := &lruNode{key: key}
	l.linkFront(node)
	return node
}

// MoveToFront moves an existing node to the front.
func (l *lruList) MoveToFront(node *lruNode) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	l.linkFront(node)
}

// RemoveOldest removes the tail and returns its key.
func (l *lruList) RemoveOldest() (string, bool) {
	if l.tail == nil {
		return "", false
	}
	node := l.tail
	l.unlink(node)
	return node.key, true
}

func (l *lruList) Clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}

func (l *lruList) linkFront(node *lruNode) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

func (l *lruList) unlink(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}
