// Package rangecache is a small in-process LRU of previously fetched
// (source, offset, length) byte windows, shared by HTTP byte sources and
// keyed by each source's identity. It exists purely
// to avoid re-issuing HTTP range requests when the same archive is listed
// or extracted from more than once in a session (repeated `ls`/`view` of
// the same ZIP over HTTP, for instance) — grounded on the teacher's own
// internal/spinner block cache, which caches decompressed blocks behind a
// TinyLFU policy keyed by a hash of the block identity. This package keeps
// the same cache family but stores raw fetched byte ranges instead of
// decompressed blocks, since ZipReader already does its own decompression.
package rangecache

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// Key identifies one cached window: a source identity plus the byte range.
type Key struct {
	Source uint64
	Offset uint64
	Length uint64
}

func (k Key) hash() uint64 {
	var buf [24]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(k.Source >> (8 * i))
		buf[8+i] = byte(k.Offset >> (8 * i))
		buf[16+i] = byte(k.Length >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

// Cache is a bounded, concurrency-safe cache of byte slices keyed by Key.
type Cache struct {
	mu sync.Mutex
	t  *tinylfu.T[uint64, []byte]

	hits, misses uint64
}

// New returns a Cache holding up to capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		t: tinylfu.New[uint64, []byte](capacity, capacity*10, func(k uint64) uint64 { return k }),
	}
}

// Get returns a cached copy of the range, if present.
func (c *Cache) Get(k Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.t.Get(k.hash())
	if ok {
		c.hits++
		out := make([]byte, len(v))
		copy(out, v)
		return out, true
	}
	c.misses++
	return nil, false
}

// Set stores a copy of buf under k.
func (c *Cache) Set(k Key, buf []byte) {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Add(k.hash(), cp)
}

// Stats reports cumulative hit/miss counters, for slog.Debug logging only.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) String() string {
	hits, misses := c.Stats()
	return fmt.Sprintf("rangecache{hits=%d misses=%d}", hits, misses)
}
