package zip

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sort"
	"strings"
	"testing"

	bsource "github.com/mixaal/parquet-viewer-go/internal/bytesource"
)

// memSource is a ByteSource over an in-memory buffer, for tests.
type memSource struct{ buf []byte }

func (m *memSource) Length(ctx context.Context) (uint64, error) { return uint64(len(m.buf)), nil }

func (m *memSource) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	if err := bsource.CheckRange("ReadRange", offset, length, uint64(len(m.buf))); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.buf[offset:offset+length])
	return out, nil
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range sortedKeys(files) {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	var keys []string
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestListAndExtractRegularZip(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range []string{"a.txt", "b.txt"} {
		content := map[string]string{"a.txt": "hello", "b.txt": "world"}[name]
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		f.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	src := &memSource{buf: buf.Bytes()}
	entries, err := ListEntries(context.Background(), src)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "a.txt" || entries[1].Name != "b.txt" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	want := []string{"hello", "world"}
	for i, e := range entries {
		got, err := ExtractEntry(context.Background(), src, e)
		if err != nil {
			t.Fatalf("ExtractEntry(%d): %v", i, err)
		}
		if string(got) != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestExtractDeflateEntry(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{Name: "big.txt", Method: zip.Deflate}
	f, err := w.CreateHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	payload := strings.Repeat("A", 10000)
	if _, err := f.Write([]byte(payload)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	src := &memSource{buf: buf.Bytes()}
	entries, err := ListEntries(context.Background(), src)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	got, err := ExtractEntry(context.Background(), src, entries[0])
	if err != nil {
		t.Fatalf("ExtractEntry: %v", err)
	}
	if string(got) != payload {
		t.Errorf("got %d bytes, want %d bytes of %q", len(got), len(payload), "A")
	}
}

func TestPrefixFiltering(t *testing.T) {
	buf := buildZipOrdered(t, []namedContent{
		{"logs/a", "A"},
		{"logs/b", "B"},
		{"data/x", "X"},
	})
	src := &memSource{buf: buf}
	entries, err := ListEntries(context.Background(), src)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}

	filter := func(prefix string) []string {
		var names []string
		for _, e := range entries {
			if strings.HasPrefix(e.Name, prefix) {
				names = append(names, e.Name)
			}
		}
		return names
	}

	if got := filter("logs/"); !equalSlices(got, []string{"logs/a", "logs/b"}) {
		t.Errorf("logs/ filter = %v", got)
	}
	if got := filter("data/x"); !equalSlices(got, []string{"data/x"}) {
		t.Errorf("data/x filter = %v", got)
	}
	if got := filter("none"); len(got) != 0 {
		t.Errorf("none filter = %v, want empty", got)
	}
}

type namedContent struct{ name, content string }

func buildZipOrdered(t *testing.T, files []namedContent) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, nc := range files {
		f, err := w.Create(nc.name)
		if err != nil {
			t.Fatal(err)
		}
		f.Write([]byte(nc.content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMalformedArchiveNoEOCD(t *testing.T) {
	src := &memSource{buf: bytes.Repeat([]byte{0}, 100)}
	_, err := ListEntries(context.Background(), src)
	if err == nil {
		t.Fatal("expected error for archive with no EOCD")
	}
	var zerr *Error
	if !errors.As(err, &zerr) || zerr.Kind != KindMalformed {
		t.Errorf("got %v, want *Error{Kind: KindMalformed}", err)
	}
}

func TestEOCDScanToleratesTrailingBytesAfterEOCD(t *testing.T) {
	// Bytes appended after a complete archive (its own EOCD included) do
	// not shift the central directory's recorded offset/size, so the scan
	// still finds the real EOCD and the archive still lists correctly.
	archive := buildZip(t, map[string]string{"only.txt": "x"})
	withTrailer := append(append([]byte{}, archive...), []byte("trailing, not part of the zip")...)

	src := &memSource{buf: withTrailer}
	entries, err := ListEntries(context.Background(), src)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "only.txt" {
		t.Fatalf("got %+v, want one entry named only.txt", entries)
	}
}

// TestParseZip64ExtraFieldPairing exercises the sentinel-pairing rule
// directly: only the fields whose regular-header value was 0xFFFFFFFF are
// present in the extra field, and they must be paired correctly even when
// uncompressed size was not itself a sentinel.
func TestParseZip64ExtraFieldPairing(t *testing.T) {
	// Case 1: only local header offset is a sentinel. The extra field
	// therefore contains a single 8-byte slot: the offset.
	offsetOnly := extraField(0x0001, le64bytes(0x1_0000_0001))
	cs, off, err := parseZip64Extra(offsetOnly, false, true)
	if err != nil {
		t.Fatalf("offset-only: %v", err)
	}
	if off != 0x1_0000_0001 {
		t.Errorf("offset-only: got offset=%d", off)
	}
	_ = cs

	// Case 2: both compressed size and offset are sentinels (uncompressed
	// size was small enough not to need ZIP64), so two slots are present
	// in order (compressed size, offset).
	both := extraField(0x0001, append(le64bytes(555), le64bytes(0x1_0000_0002)...))
	cs, off, err = parseZip64Extra(both, true, true)
	if err != nil {
		t.Fatalf("both: %v", err)
	}
	if cs != 555 || off != 0x1_0000_0002 {
		t.Errorf("both: got cs=%d off=%d", cs, off)
	}

	// Case 3: all three slots present (uncompressed, compressed, offset);
	// only compressed and offset were requested, so the leading
	// uncompressed-size slot must be skipped.
	all := extraField(0x0001, concatAll(le64bytes(1), le64bytes(2), le64bytes(3)))
	cs, off, err = parseZip64Extra(all, true, true)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if cs != 2 || off != 3 {
		t.Errorf("all: got cs=%d off=%d, want cs=2 off=3", cs, off)
	}
}

func extraField(id uint16, data []byte) []byte {
	var b bytes.Buffer
	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[0:], id)
	binary.LittleEndian.PutUint16(hdr[2:], uint16(len(data)))
	b.Write(hdr[:])
	b.Write(data)
	return b.Bytes()
}

func le64bytes(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func concatAll(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestUnsupportedCompressionMethod(t *testing.T) {
	// Patch a valid archive's local header to claim an unknown compression
	// method; ExtractEntry must reject it without attempting to decompress.
	raw := buildZip(t, map[string]string{"only.txt": "x"})
	src := &memSource{buf: raw}
	entries, err := ListEntries(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	patched := append([]byte{}, raw...)
	// Local file header compression method field is at offset 8 of the header.
	binary.LittleEndian.PutUint16(patched[entries[0].LocalHeaderOffset+8:], 99)
	src2 := &memSource{buf: patched}
	_, err = ExtractEntry(context.Background(), src2, entries[0])
	var zerr *Error
	if !errors.As(err, &zerr) || zerr.Kind != KindUnsupportedCompression {
		t.Fatalf("got %v, want KindUnsupportedCompression", err)
	}
}
