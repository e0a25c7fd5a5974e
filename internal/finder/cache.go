package finder

// Cache stores lookup results together with the search paths each result
// was computed from. It is not safe for concurrent use; the Finder
// serializes access.
type Cache struct {
	entries map[Key]cacheEntry
	byPath  map[string]map[Key]struct{}
}

type cacheEntry struct {
	result Result
	deps   []string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[Key]cacheEntry),
		byPath:  make(map[string]map[Key]struct{}),
	}
}

// Get returns the result stored under key.
func (c *Cache) Get(key Key) (Result, bool) {
	e, ok := c.entries[key]
	return e.result, ok
}

// Put stores result under key, replacing any previous entry. The entry is
// dropped as soon as any path in deps is invalidated.
func (c *Cache) Put(key Key, result Result, deps []string) {
	c.remove(key)

	stored := make([]string, len(deps))
	copy(stored, deps)
	c.entries[key] = cacheEntry{result: result.clone(), deps: stored}

	for _, dep := range stored {
		keys, ok := c.byPath[dep]
		if !ok {
			keys = make(map[Key]struct{})
			c.byPath[dep] = keys
		}
		keys[key] = struct{}{}
	}
}

// InvalidateByPath drops every entry that depends on path and reports how
// many were dropped.
func (c *Cache) InvalidateByPath(path string) int {
	keys := c.byPath[path]
	n := 0
	for key := range keys {
		if c.remove(key) {
			n++
		}
	}
	delete(c.byPath, path)
	return n
}

// InvalidateAll drops every entry and reports how many were dropped.
func (c *Cache) InvalidateAll() int {
	n := len(c.entries)
	c.entries = make(map[Key]cacheEntry)
	c.byPath = make(map[string]map[Key]struct{})
	return n
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

func (c *Cache) remove(key Key) bool {
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	for _, dep := range e.deps {
		keys := c.byPath[dep]
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byPath, dep)
		}
	}
	return true
}
