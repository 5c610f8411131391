package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mixaal/parquet-viewer-go/internal/bytesource"
	"github.com/mixaal/parquet-viewer-go/internal/entrycache"
	"github.com/mixaal/parquet-viewer-go/internal/rangecache"
	izip "github.com/mixaal/parquet-viewer-go/internal/zip"
)

// listResponse is the shape of a remote object-store listing endpoint's
// JSON body: {"objects": [{"name": "..."}]}.
type listResponse struct {
	Objects []struct {
		Name *string `json:"name"`
	} `json:"objects"`
}

// HTTPEndpoint is a Provider over a remote HTTP object-store listing
// endpoint, and over ZIP archives addressable only through HTTP byte-range
// requests.
//
// Grounded on the original source's provider::http::PublicHttpEndpoint.
type HTTPEndpoint struct {
	client     *retryablehttp.Client
	rangeCache *rangecache.Cache
	cache      *entrycache.Cache
}

// NewHTTPEndpoint returns an HTTPEndpoint provider. client and caches may be
// nil; sane defaults are used where nil.
func NewHTTPEndpoint(client *retryablehttp.Client, rangeCache *rangecache.Cache, cache *entrycache.Cache) *HTTPEndpoint {
	if client == nil {
		client = retryablehttp.NewClient()
		client.Logger = nil
		client.RetryMax = 3
	}
	return &HTTPEndpoint{client: client, rangeCache: rangeCache, cache: cache}
}

func (h *HTTPEndpoint) ListDir(ctx context.Context, cwd, pattern string) ([][]string, error) {
	key := entrycache.ListingKey(cwd, pattern)
	if buf, ok := h.cache.Get(key); ok {
		if rows, ok := decodeRows(buf); ok {
			return rows, nil
		}
	}

	url := cwd + pattern
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: "ListDir", Err: err}
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: "ListDir", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Kind: KindTransport, Op: "ListDir", Err: fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: "ListDir", Err: err}
	}
	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Kind: KindTransport, Op: "ListDir", Err: fmt.Errorf("decoding listing body: %w", err)}
	}
	var rows [][]string
	for _, obj := range parsed.Objects {
		if obj.Name != nil {
			rows = append(rows, []string{*obj.Name})
		}
	}
	h.cache.Set(key, encodeRows(rows))
	return rows, nil
}

func (h *HTTPEndpoint) ListZip(ctx context.Context, archive, pattern string) ([][]string, error) {
	key := entrycache.ListingKey(archive, pattern)
	if buf, ok := h.cache.Get(key); ok {
		if rows, ok := decodeRows(buf); ok {
			return rows, nil
		}
	}

	entries, err := h.listZipEntries(ctx, archive)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	for _, e := range entries {
		if pattern != "" && !hasPrefix(e.Name, pattern) {
			continue
		}
		rows = append(rows, []string{
			e.Name,
			strconv.FormatUint(e.LocalHeaderOffset, 10),
			strconv.FormatUint(e.CompressedSize, 10),
		})
	}
	h.cache.Set(key, encodeRows(rows))
	return rows, nil
}

func (h *HTTPEndpoint) GetFile(ctx context.Context, url string) ([]FileContent, error) {
	src := h.byteSource(url)
	size, err := src.Length(ctx)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: "GetFile", Err: err}
	}
	data, err := src.ReadRange(ctx, 0, size)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: "GetFile", Err: err}
	}
	return []FileContent{{Filename: url, Content: data}}, nil
}

func (h *HTTPEndpoint) GetFileFromZip(ctx context.Context, archive, prefix string) ([]FileContent, error) {
	entries, err := h.listZipEntries(ctx, archive)
	if err != nil {
		return nil, err
	}
	src := h.byteSource(archive)
	var out []FileContent
	for _, e := range entries {
		if prefix != "" && !hasPrefix(e.Name, prefix) {
			continue
		}
		content, ok := h.extractCached(ctx, archive, src, e)
		if !ok {
			continue
		}
		out = append(out, FileContent{Filename: e.Name, Content: content})
	}
	return out, nil
}

func (h *HTTPEndpoint) listZipEntries(ctx context.Context, archive string) ([]izip.Entry, error) {
	entries, err := izip.ListEntries(ctx, h.byteSource(archive))
	if err != nil {
		return nil, &Error{Kind: KindArchive, Op: "ListZip", Err: err}
	}
	return entries, nil
}

func (h *HTTPEndpoint) extractCached(ctx context.Context, archive string, src bytesource.ByteSource, e izip.Entry) ([]byte, bool) {
	key := entrycache.EntryKey(archive, e.Name)
	if buf, ok := h.cache.Get(key); ok {
		return buf, true
	}
	data, err := izip.ExtractEntry(ctx, src, e)
	if err != nil {
		slog.Warn("skipping zip entry", "archive", archive, "name", e.Name, "error", err)
		return nil, false
	}
	h.cache.Set(key, data)
	return data, true
}

func (h *HTTPEndpoint) byteSource(url string) *bytesource.HTTP {
	opts := []bytesource.Option{bytesource.WithClient(h.client)}
	if h.rangeCache != nil {
		opts = append(opts, bytesource.WithRangeCache(h.rangeCache))
	}
	return bytesource.NewHTTP(url, opts...)
}
