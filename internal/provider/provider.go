// Package provider implements the uniform listing/reading capability
// consumed by FileBrowser: list_dir, list_zip, get_file, get_file_from_zip.
// Two concrete implementations exist, LocalFS and HTTPEndpoint, routed to by
// the scheme of the endpoint string; both satisfy the same Provider
// interface so the browser never branches on which kind of location it is
// looking at.
//
// Grounded on the original source's provider::Provider trait (mod.rs) for
// the capability set and its fs.rs/http.rs implementations for behavior,
// reworked into a Go interface with context-aware, error-returning methods.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// FileContent is the bytes of one resolved file plus the name it was
// resolved under: the original entry name inside a ZIP, or the URL/path for
// a direct read.
type FileContent struct {
	Filename string
	Content  []byte
}

// Provider is the capability set a FileBrowser drives. ListDir and ListZip
// both return rows of strings for backward-compatible table rendering:
// ListDir rows are a single name column; ListZip rows are
// [name, offset-as-decimal-string, compressed-size-as-decimal-string].
type Provider interface {
	// ListDir lists the contents of cwd, optionally narrowed by pattern (a
	// glob for LocalFS, an HTTP query suffix for HTTPEndpoint).
	ListDir(ctx context.Context, cwd, pattern string) ([][]string, error)

	// ListZip lists entries of the ZIP archive at archive whose name
	// begins with pattern (empty matches everything), in
	// central-directory order.
	ListZip(ctx context.Context, archive, pattern string) ([][]string, error)

	// GetFile reads a single location verbatim.
	GetFile(ctx context.Context, url string) ([]FileContent, error)

	// GetFileFromZip extracts every entry of archive whose name begins
	// with prefix, in central-directory order. A failure extracting one
	// entry does not abort the others: that entry is logged and left out.
	GetFileFromZip(ctx context.Context, archive, prefix string) ([]FileContent, error)
}

// Kind classifies a provider-level failure.
type Kind int

const (
	// KindArchive covers a failure in the archive-level operations (EOCD
	// or central directory parsing): these abort the whole call.
	KindArchive Kind = iota
	// KindTransport covers listing failures talking to an HTTP endpoint.
	KindTransport
	// KindIO covers local filesystem failures.
	KindIO
)

// Error is the concrete error type returned by Provider methods.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// EntrySkipped describes one entry dropped from a multi-entry operation.
// The providers in this package do not return or emit it: they log a
// dropped entry with slog.Warn and leave it out of the result.
type EntrySkipped struct {
	Name string
	Err  error
}

func (s EntrySkipped) Error() string {
	return fmt.Sprintf("skipped %q: %v", s.Name, s.Err)
}

// encodeRows serializes a directory or ZIP listing for storage in
// entrycache under a ListingKey. json is used for consistency with the
// HTTPEndpoint listing wire format decoded elsewhere in this package.
func encodeRows(rows [][]string) []byte {
	b, err := json.Marshal(rows)
	if err != nil {
		return nil
	}
	return b
}

// decodeRows is the inverse of encodeRows. false means the cached blob
// could not be decoded and the listing must be rebuilt.
func decodeRows(b []byte) ([][]string, bool) {
	var rows [][]string
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, false
	}
	return rows, true
}
