// Package browser implements FileBrowser: a single mutable endpoint string,
// relative-path resolution, and dispatch of list/view operations to the
// Provider appropriate for that endpoint's scheme.
//
// Grounded on the original source's browser::FileBrowser (change_dir,
// get_full_path, get_parent, list, view), reworked to hold its two
// Providers behind the shared provider.Provider interface and to delegate
// Parquet rendering to an injected ParquetRenderer rather than a bare
// function.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/mixaal/parquet-viewer-go/internal/provider"
)

// Kind classifies a FileBrowser failure.
type Kind int

const (
	// KindCannotDescend is returned when ChangeDir is asked to descend into
	// a relative path from an endpoint that ends in "zip".
	KindCannotDescend Kind = iota
	// KindDecode covers a hard UTF-8 decode failure (never produced by
	// the default lossy-replacement rendering path).
	KindDecode
)

// Error is the concrete error type returned by FileBrowser methods.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func cannotDescend() error {
	return &Error{Kind: KindCannotDescend, Msg: "cannot change directory inside a ZIP file"}
}

// ParquetRenderer turns a Parquet byte buffer into printable rows: the
// first row is column headers, the rest up to maxRows data rows.
type ParquetRenderer interface {
	Render(data []byte, maxRows int) ([][]string, error)
}

// ViewedFile is one rendered result of a View call: either Rows (a Parquet
// preview) or Text (everything else, decoded as UTF-8 with replacement).
type ViewedFile struct {
	Filename string
	Rows     [][]string // non-nil for .parquet files
	Text     string     // set when Rows is nil
	Err      error      // set when this entry's rendering failed; entry still included
}

// FileBrowser holds a single endpoint and the two Providers it can route
// to, chosen by the endpoint's scheme.
type FileBrowser struct {
	endpoint string
	http     provider.Provider
	localfs  provider.Provider
	renderer ParquetRenderer
}

// New returns a FileBrowser rooted at endpoint, routing HTTP and local-FS
// operations to the given Providers.
func New(endpoint string, httpProvider, localProvider provider.Provider, renderer ParquetRenderer) *FileBrowser {
	return &FileBrowser{endpoint: endpoint, http: httpProvider, localfs: localProvider, renderer: renderer}
}

// CurrentDir returns the endpoint verbatim.
func (b *FileBrowser) CurrentDir() string { return b.endpoint }

// ChangeDir applies the navigation rules from the spec to path, mutating
// the endpoint on success. The endpoint is never mutated on failure.
func (b *FileBrowser) ChangeDir(path string) error {
	if path == "" || path == "." || path == "./" {
		return nil
	}
	if path == ".." {
		b.endpoint = parentOf(b.endpoint)
		return nil
	}
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "http") {
		b.endpoint = path
		return nil
	}
	if isZipEndpoint(b.endpoint) {
		return cannotDescend()
	}
	b.endpoint = joinEndpoint(b.endpoint, path)
	return nil
}

// parentOf returns the longest prefix of endpoint up to but excluding the
// trailing path separator; if there is no separator, endpoint is returned
// unchanged.
func parentOf(endpoint string) string {
	trimmed := strings.TrimSuffix(endpoint, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return endpoint
	}
	if i == 0 {
		return "/"
	}
	return trimmed[:i]
}

func joinEndpoint(endpoint, path string) string {
	if strings.HasSuffix(endpoint, "/") {
		return endpoint + path
	}
	return endpoint + "/" + path
}

func isZipEndpoint(endpoint string) bool {
	return strings.HasSuffix(endpoint, "zip")
}

func isHTTPEndpoint(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

func (b *FileBrowser) providerFor(endpoint string) provider.Provider {
	if isHTTPEndpoint(endpoint) {
		return b.http
	}
	return b.localfs
}

func (b *FileBrowser) fullPath(path string) string {
	if path == "" {
		return b.endpoint
	}
	return joinEndpoint(b.endpoint, path)
}

// List resolves the current endpoint's Provider and lists it, using
// list_zip when the endpoint denotes an archive and list_dir otherwise.
func (b *FileBrowser) List(ctx context.Context, subpath string) ([][]string, error) {
	p := b.providerFor(b.endpoint)
	if isZipEndpoint(b.endpoint) {
		return p.ListZip(ctx, b.endpoint, subpath)
	}
	return p.ListDir(ctx, b.endpoint, subpath)
}

// View resolves FileContents for subpath (from inside a ZIP endpoint, or
// directly) and renders each: Parquet files through the ParquetRenderer,
// everything else as UTF-8-with-replacement text. A failure rendering one
// file is carried on that ViewedFile's Err rather than aborting the batch.
func (b *FileBrowser) View(ctx context.Context, subpath string, maxRows int) ([]ViewedFile, error) {
	p := b.providerFor(b.endpoint)

	var files []provider.FileContent
	var err error
	if isZipEndpoint(b.endpoint) {
		files, err = p.GetFileFromZip(ctx, b.endpoint, subpath)
	} else {
		files, err = p.GetFile(ctx, b.fullPath(subpath))
	}
	if err != nil {
		return nil, err
	}

	out := make([]ViewedFile, 0, len(files))
	for _, f := range files {
		vf := ViewedFile{Filename: f.Filename}
		if strings.HasSuffix(f.Filename, ".parquet") {
			rows, rerr := b.renderer.Render(f.Content, maxRows)
			if rerr != nil {
				vf.Err = fmt.Errorf("rendering %s: %w", f.Filename, rerr)
			} else {
				vf.Rows = rows
			}
		} else {
			vf.Text = strings.ToValidUTF8(string(f.Content), "�")
		}
		out = append(out, vf)
	}
	return out, nil
}
