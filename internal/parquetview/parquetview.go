// Package parquetview is the concrete ParquetRenderer: it turns a Parquet
// byte buffer into printable rows using github.com/minio/parquet-go.
//
// The reference implementation wrote a Parquet buffer to a fixed-name temp
// file before decoding it (see pqt.rs); two concurrent views would clobber
// each other. minio/parquet-go reads from anything satisfying
// source.ParquetFile, so this package adapts the in-memory buffer directly
// — no temp file, no collision, nothing to clean up.
package parquetview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/minio/parquet-go/reader"
	"github.com/minio/parquet-go/source"
)

// Renderer implements browser.ParquetRenderer.
type Renderer struct{}

// New returns a Renderer. It holds no state; one instance can be shared
// across an entire browsing session.
func New() *Renderer { return &Renderer{} }

// Render decodes data as a Parquet file and returns up to maxRows+1 rows:
// the first is column headers, read from the file's flattened schema path
// names, and the rest are the first maxRows records in file order. A
// maxRows of zero or less returns every record.
func (Renderer) Render(data []byte, maxRows int) ([][]string, error) {
	file := newMemFile(data)
	pr, err := reader.NewParquetColumnReader(file, 4)
	if err != nil {
		return nil, fmt.Errorf("parquetview: opening reader: %w", err)
	}
	defer pr.ReadStop()
	defer file.Close()

	total := int(pr.GetNumRows())
	want := total
	if maxRows > 0 && maxRows < want {
		want = maxRows
	}

	paths := pr.SchemaHandler.ValueColumns
	header := make([]string, len(paths))
	columns := make([][]interface{}, len(paths))
	for i, path := range paths {
		values, _, _, err := pr.ReadColumnByPath(path, int64(want))
		if err != nil {
			return nil, fmt.Errorf("parquetview: reading column %s: %w", path, err)
		}
		header[i] = lastSegment(path)
		columns[i] = values
	}

	rows := make([][]string, 0, want+1)
	rows = append(rows, header)
	for r := 0; r < want; r++ {
		row := make([]string, len(columns))
		for c, col := range columns {
			if r < len(col) {
				row[c] = fmt.Sprint(col[r])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// memFile adapts an in-memory byte slice to source.ParquetFile, so a
// Parquet buffer fetched from a ZIP entry or an HTTP GET can be decoded
// without ever touching disk.
type memFile struct {
	*bytes.Reader
	data []byte
}

func newMemFile(data []byte) *memFile {
	return &memFile{Reader: bytes.NewReader(data), data: data}
}

func (f *memFile) Close() error { return nil }

func (f *memFile) Open(name string) (source.ParquetFile, error) {
	return newMemFile(f.data), nil
}

func (f *memFile) Create(name string) (source.ParquetFile, error) {
	return nil, fmt.Errorf("parquetview: write access not supported")
}

func (f *memFile) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("parquetview: write access not supported")
}
