// Copyright (c) binyomen
// Licensed under the MIT license

// Package entrycache keeps recently materialized archive entries in memory.
//
// Every file-data request materializes a whole entry (the stored format has
// no random access within one entry), so a process that rereads the same
// file would otherwise reread the archive each time. Admission is
// frequency-based rather than plain LRU, which keeps one-shot directory
// scans from flushing the entries a program actually runs from.
package entrycache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

type Cache struct {
	mu  sync.Mutex
	lfu *tinylfu.T[string, []byte]
}

// New creates a cache holding up to n entries.
func New(n int) *Cache {
	return &Cache{
		lfu: tinylfu.New[string, []byte](n, n*10, func(k string) uint64 {
			return xxhash.Sum64String(k)
		}),
	}
}

// Get returns the cached bytes for name, calling load on a miss. The
// returned slice is shared; callers must not modify it.
func (c *Cache) Get(name string, load func() ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	b, ok := c.lfu.Get(name)
	c.mu.Unlock()
	if ok {
		return b, nil
	}

	b, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lfu.Add(name, b)
	c.mu.Unlock()
	return b, nil
}
