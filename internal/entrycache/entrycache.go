// Package entrycache is a bounded, in-memory, process-lifetime cache of
// decompressed ZIP entry bytes and serialized directory-listing rows. It
// exists so that repeatedly viewing or listing the same archive entry in a
// session — common when a user `cd`s back into the same ZIP, or re-lists a
// directory to refresh — does not re-fetch and re-decompress from scratch.
//
// Grounded on the teacher's internal/decompressioncache package, which
// caches decompressed blocks behind github.com/allegro/bigcache/v3. This
// package keeps the same backing store but drops the Stepper/checkpoint
// machinery: ZipReader.ExtractEntry already returns an entry's full
// decompressed content in one call, so there is no partial-block state to
// remember between reads, only a flat key -> bytes mapping.
package entrycache

import (
	"context"
	"fmt"

	"github.com/allegro/bigcache/v3"
)

// Cache is a concurrency-safe key/value store of small-to-medium byte
// blobs, evicted by age and shard pressure once it reaches its configured
// size. A nil *Cache is valid and behaves as an always-miss, always-discard
// cache, so callers can wire caching in optionally without nil checks at
// every call site.
type Cache struct {
	bc *bigcache.BigCache
}

// New returns a Cache holding up to maxSizeMB megabytes across shardCount
// shards. Matching the teacher's defaults is a reasonable starting point
// (1024 MB, 1024 shards) for a long-running browsing session.
func New(ctx context.Context, maxSizeMB int, shardCount int) (*Cache, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 256
	}
	if shardCount <= 0 {
		shardCount = 256
	}
	bc, err := bigcache.New(ctx, bigcache.Config{
		HardMaxCacheSize: maxSizeMB,
		Shards:           shardCount,
	})
	if err != nil {
		return nil, fmt.Errorf("entrycache: %w", err)
	}
	return &Cache{bc: bc}, nil
}

// EntryKey builds the cache key for a decompressed ZIP entry's content.
func EntryKey(endpoint, name string) string {
	return "entry\x00" + endpoint + "\x00" + name
}

// ListingKey builds the cache key for a serialized directory listing.
func ListingKey(endpoint, dir string) string {
	return "listing\x00" + endpoint + "\x00" + dir
}

// Get returns a copy of the cached value for key, if present.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	v, err := c.bc.Get(key)
	if err != nil {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Set stores a copy of value under key. Errors from the underlying store
// (e.g. an oversized entry) are swallowed: the cache is strictly an
// optimization, never a correctness requirement, so a failed Set just means
// the next Get for that key misses.
func (c *Cache) Set(key string, value []byte) {
	if c == nil {
		return
	}
	_ = c.bc.Set(key, value)
}

// Invalidate removes a previously cached value, e.g. after the browser
// changes directory away from an endpoint whose listing might have become
// stale between visits.
func (c *Cache) Invalidate(key string) {
	if c == nil {
		return
	}
	_ = c.bc.Delete(key)
}
