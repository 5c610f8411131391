package bytesource

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mixaal/parquet-viewer-go/internal/rangecache"
)

// sourceID derives the range-cache identity of a source from its URL, so
// separate HTTP values for the same URL share cached ranges.
func sourceID(url string) uint64 {
	f := fnv.New64a()
	f.Write([]byte(url))
	return f.Sum64()
}

// HTTP is a ByteSource backed by a remote object served over HTTP range
// requests. It issues one HEAD to discover Content-Length, caching it for
// the lifetime of the value, and satisfies every ReadRange with a ranged
// GET. Transient failures (network errors, 429 and most 5xx responses) are
// retried with backoff by the underlying retryablehttp client; any other
// response that is neither 206 nor a 200 of exactly the requested length
// fails without retry.
type HTTP struct {
	url    string
	client *retryablehttp.Client
	cache  *rangecache.Cache
	id     uint64

	once   sync.Once
	size   uint64
	sizeOK bool
	err    error
}

// Option configures an HTTP byte source.
type Option func(*HTTP)

// WithClient overrides the retryablehttp client (for timeouts, retry
// counts, custom transports, etc). If unset, a client with sane defaults
// is constructed.
func WithClient(c *retryablehttp.Client) Option {
	return func(h *HTTP) { h.client = c }
}

// WithRangeCache enables a bounded in-memory cache of previously fetched
// byte ranges for this source, avoiding duplicate network requests when
// the same range (e.g. the EOCD tail) is read more than once in a session.
func WithRangeCache(c *rangecache.Cache) Option {
	return func(h *HTTP) { h.cache = c }
}

// NewHTTP returns a ByteSource reading url via byte-range requests.
func NewHTTP(url string, opts ...Option) *HTTP {
	h := &HTTP{url: url, id: sourceID(url)}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = retryablehttp.NewClient()
		h.client.Logger = nil
		h.client.RetryMax = 3
	}
	return h
}

func (h *HTTP) discoverSize(ctx context.Context) {
	h.once.Do(func() {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, h.url, nil)
		if err != nil {
			h.err = newErr("Length", KindTransport, err)
			return
		}
		resp, err := h.client.Do(req)
		if err != nil {
			h.err = newErr("Length", KindTransport, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			h.err = newErr("Length", KindTransport, fmt.Errorf("HEAD %s: unexpected status %s", h.url, resp.Status))
			return
		}
		if resp.ContentLength < 0 {
			h.err = newErr("Length", KindUnsupportedSource, fmt.Errorf("HEAD %s: server did not advertise Content-Length", h.url))
			return
		}
		h.size = uint64(resp.ContentLength)
		h.sizeOK = true
	})
}

func (h *HTTP) Length(ctx context.Context) (uint64, error) {
	h.discoverSize(ctx)
	if h.err != nil {
		return 0, h.err
	}
	return h.size, nil
}

func (h *HTTP) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	h.discoverSize(ctx)
	if h.err != nil {
		return nil, h.err
	}
	if err := CheckRange("ReadRange", offset, length, h.size); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}

	var key rangecache.Key
	if h.cache != nil {
		key = rangecache.Key{Source: h.id, Offset: offset, Length: length}
		if buf, ok := h.cache.Get(key); ok {
			return buf, nil
		}
	}

	endInclusive := offset + length - 1
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, newErr("ReadRange", KindTransport, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, endInclusive))

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, newErr("ReadRange", KindTransport, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// expected
	case http.StatusOK:
		// A server that ignores Range answers 200 with the whole object.
		// Tolerate 200 only when Content-Length proves the body is exactly
		// the requested range; otherwise reading length bytes off the front
		// of the object would silently return the wrong window.
		if resp.ContentLength != int64(length) {
			return nil, newErr("ReadRange", KindTransport, fmt.Errorf("GET %s: status 200 with Content-Length %d, want %d (server ignored Range)", h.url, resp.ContentLength, length))
		}
	default:
		return nil, newErr("ReadRange", KindTransport, fmt.Errorf("GET %s: unexpected status %s", h.url, resp.Status))
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(resp.Body, buf)
	if uint64(n) != length {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, newErr("ReadRange", KindTransport, fmt.Errorf("short read: %w", err))
	}

	if h.cache != nil {
		h.cache.Set(key, buf)
	}
	return buf, nil
}
