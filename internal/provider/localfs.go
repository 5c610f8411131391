package provider

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mixaal/parquet-viewer-go/internal/bytesource"
	"github.com/mixaal/parquet-viewer-go/internal/entrycache"
	izip "github.com/mixaal/parquet-viewer-go/internal/zip"
)

// LocalFS is a Provider over the local filesystem, reading ZIP archives
// directly from disk through a buffered bytesource.Local.
//
// Grounded on the original source's provider::fs::LocalFs.
type LocalFS struct {
	cache *entrycache.Cache
}

// NewLocalFS returns a LocalFS provider. cache may be nil to disable
// caching of decompressed entry content.
func NewLocalFS(cache *entrycache.Cache) *LocalFS {
	return &LocalFS{cache: cache}
}

func (l *LocalFS) ListDir(ctx context.Context, cwd, pattern string) ([][]string, error) {
	key := entrycache.ListingKey(cwd, pattern)
	if buf, ok := l.cache.Get(key); ok {
		if rows, ok := decodeRows(buf); ok {
			return rows, nil
		}
	}
	entries, err := os.ReadDir(cwd)
	if err != nil {
		return nil, &Error{Kind: KindIO, Op: "ListDir", Err: err}
	}
	var rows [][]string
	for _, e := range entries {
		name := e.Name()
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, name); !ok {
				continue
			}
		}
		rows = append(rows, []string{name})
	}
	l.cache.Set(key, encodeRows(rows))
	return rows, nil
}

func (l *LocalFS) ListZip(ctx context.Context, archive, pattern string) ([][]string, error) {
	key := entrycache.ListingKey(archive, pattern)
	if buf, ok := l.cache.Get(key); ok {
		if rows, ok := decodeRows(buf); ok {
			return rows, nil
		}
	}
	entries, err := l.listZipEntries(ctx, archive)
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
	l.cache.Set(key, encodeRows(rows))
	return rows, nil
}

func (l *LocalFS) GetFile(ctx context.Context, path string) ([]FileContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindIO, Op: "GetFile", Err: err}
	}
	return []FileContent{{Filename: path, Content: data}}, nil
}

func (l *LocalFS) GetFileFromZip(ctx context.Context, archive, prefix string) ([]FileContent, error) {
	entries, err := l.listZipEntries(ctx, archive)
	if err != nil {
		return nil, err
	}
	src := bytesource.NewLocal(archive)
	defer src.Close()
	var out []FileContent
	for _, e := range entries {
		if prefix != "" && !hasPrefix(e.Name, prefix) {
			continue
		}
		content, ok := l.extractCached(ctx, archive, src, e)
		if !ok {
			continue
		}
		out = append(out, FileContent{Filename: e.Name, Content: content})
	}
	return out, nil
}

func (l *LocalFS) listZipEntries(ctx context.Context, archive string) ([]izip.Entry, error) {
	src := bytesource.NewLocal(archive)
	defer src.Close()
	entries, err := izip.ListEntries(ctx, src)
	if err != nil {
		return nil, &Error{Kind: KindArchive, Op: "ListZip", Err: err}
	}
	return entries, nil
}

// extractCached extracts e's content, consulting and populating the entry
// cache keyed by archive path. A failure to extract is logged and the
// entry is dropped rather than aborting the surrounding batch, per the
// batch error-propagation policy.
func (l *LocalFS) extractCached(ctx context.Context, archive string, src bytesource.ByteSource, e izip.Entry) ([]byte, bool) {
	key := entrycache.EntryKey(archive, e.Name)
	if buf, ok := l.cache.Get(key); ok {
		return buf, true
	}
	data, err := izip.ExtractEntry(ctx, src, e)
	if err != nil {
		slog.Warn("skipping zip entry", "archive", archive, "name", e.Name, "error", err)
		return nil, false
	}
	l.cache.Set(key, data)
	return data, true
}

func hasPrefix(name, prefix string) bool {
	if len(name) < len(prefix) {
		return false
	}
	return name[:len(prefix)] == prefix
}
