package zipr

import "sync"

// DirCache holds parsed central directories keyed by archive URL for the
// life of the process. Hits require the archive size to match, so a
// republished archive of a different length invalidates its entry.
type DirCache struct {
	mu sync.Mutex
	m  map[string]cached
}

type cached struct {
	entries []Entry
	size    int64
}

// NewDirCache creates an empty directory cache.
func NewDirCache() *DirCache {
	return &DirCache{m: make(map[string]cached)}
}

// Get returns the cached directory for url if its size matches.
func (c *DirCache) Get(url string, size int64) ([]Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[url]
	if !ok || e.size != size {
		return nil, false
	}
	return e.entries, true
}

// Put stores the directory for url at the given archive size.
func (c *DirCache) Put(url string, size int64, entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[url] = cached{entries: entries, size: size}
}
