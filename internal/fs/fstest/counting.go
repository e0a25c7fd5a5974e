// Package fstest provides FileSystem wrappers for tests.
package fstest

import (
	"sync"

	mfs "github.com/CageChen/layerhub/internal/fs"
)

// CountingFS wraps a FileSystem and counts calls per operation.
type CountingFS struct {
	mfs.FileSystem

	mu    sync.Mutex
	stats map[string]int
	reads int
	lists int
}

// NewCountingFS wraps fsys. A nil fsys wraps the local filesystem.
func NewCountingFS(fsys mfs.FileSystem) *CountingFS {
	return &CountingFS{FileSystem: mfs.OrDefault(fsys), stats: make(map[string]int)}
}

func (c *CountingFS) Stat(path string) (mfs.FileInfo, error) {
	c.mu.Lock()
	c.stats[path]++
	c.mu.Unlock()
	return c.FileSystem.Stat(path)
}

func (c *CountingFS) ReadDir(path string) ([]mfs.DirEntry, error) {
	c.mu.Lock()
	c.lists++
	c.mu.Unlock()
	return c.FileSystem.ReadDir(path)
}

func (c *CountingFS) ReadFile(path string) ([]byte, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.FileSystem.ReadFile(path)
}

// Stats returns the total number of Stat calls.
func (c *CountingFS) Stats() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.stats {
		n += v
	}
	return n
}

// StatsFor returns the number of Stat calls for path.
func (c *CountingFS) StatsFor(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats[path]
}

// Lists returns the number of ReadDir calls.
func (c *CountingFS) Lists() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists
}

// Reset zeroes all counters.
func (c *CountingFS) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]int)
	c.reads, c.lists = 0, 0
}
