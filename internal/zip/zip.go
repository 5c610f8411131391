// Package zip implements random-access reading of ZIP archives over an
// arbitrary [bytesource.ByteSource] — a local file or an HTTP endpoint
// addressed purely through byte-range requests. It never reads more of
// the archive than it needs: the EOCD tail, the central directory, and
// (per extracted entry) the local file header plus compressed payload.
//
// Grounded on the teacher's internal/zip package for the EOCD scan and
// central-directory walk, reworked for ByteSource random access instead of
// a single io.ReaderAt, and fixing the ZIP64 extended-info sentinel
// pairing bug present in the original Rust implementation (see
// parseZip64Extra below).
package zip

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/mixaal/parquet-viewer-go/internal/bytesource"
)

// Entry is one record from a ZIP central directory.
type Entry struct {
	Name              string
	LocalHeaderOffset uint64
	CompressedSize    uint64
}

// Kind classifies a Reader failure.
type Kind int

const (
	// KindMalformed covers any structural problem in the archive itself:
	// missing EOCD, bad signature, truncated central directory.
	KindMalformed Kind = iota
	// KindUnsupportedCompression covers a compression method other than
	// store (0) or deflate (8).
	KindUnsupportedCompression
)

// Error is the concrete error type returned for archive-level failures.
type Error struct {
	Kind   Kind
	Reason string
	Method uint16
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnsupportedCompression:
		return fmt.Sprintf("zip: unsupported compression method %d", e.Method)
	default:
		return fmt.Sprintf("zip: malformed archive: %s", e.Reason)
	}
}

func malformed(format string, args ...any) error {
	return &Error{Kind: KindMalformed, Reason: fmt.Sprintf(format, args...)}
}

func unsupportedCompression(method uint16) error {
	return &Error{Kind: KindUnsupportedCompression, Method: method}
}

const (
	sigEOCD          = 0x06054B50
	sigEOCD64        = 0x06064B50
	sigEOCD64Locator = 0x07064B50
	sigCentralDir    = 0x02014B50
	sigLocalFile     = 0x04034B50

	eocdFixedSize  = 22
	maxCommentSize = 65535
	maxTailSize    = eocdFixedSize + maxCommentSize // 65557
)

// ListEntries enumerates the central directory of the archive backed by
// src, in central-directory order. That order is the index space used by
// ExtractEntry.
func ListEntries(ctx context.Context, src bytesource.ByteSource) ([]Entry, error) {
	size, err := src.Length(ctx)
	if err != nil {
		return nil, err
	}

	tailSize := uint64(maxTailSize)
	if tailSize > size {
		tailSize = size
	}
	tailStart := size - tailSize
	tail, err := src.ReadRange(ctx, tailStart, tailSize)
	if err != nil {
		return nil, err
	}

	eocdPos := findEOCD(tail)
	if eocdPos < 0 {
		return nil, malformed("EOCD not found")
	}

	var cdOffset, cdSize uint64
	isZip64 := false

	if eocdPos >= 20 && le32(tail[eocdPos-20:]) == sigEOCD64Locator {
		isZip64 = true
		locator := tail[eocdPos-20:]
		eocd64Offset := le64(locator[8:])

		var eocd64 []byte
		if eocd64Offset >= tailStart {
			local := eocd64Offset - tailStart
			if local+56 <= uint64(len(tail)) {
				eocd64 = tail[local : local+56]
			}
		}
		if eocd64 == nil {
			// EOCD64 lies earlier than our tail window; fetch it directly.
			eocd64, err = src.ReadRange(ctx, eocd64Offset, 56)
			if err != nil {
				return nil, err
			}
		}
		if le32(eocd64) != sigEOCD64 {
			return nil, malformed("EOCD64 signature mismatch")
		}
		// skip: signature(4) size_of_eocd64(8) version_made_by(2) version_needed(2)
		// disk_number(4) disk_with_cd(4) entries_on_disk(8) total_entries(8)
		cdSize = le64(eocd64[40:])
		cdOffset = le64(eocd64[48:])
	} else {
		eocd := tail[eocdPos:]
		if len(eocd) < eocdFixedSize {
			return nil, malformed("truncated EOCD")
		}
		cdSize = uint64(le32(eocd[12:]))
		cdOffset = uint64(le32(eocd[16:]))
	}

	if cdOffset+cdSize > size {
		return nil, malformed("central directory extends past end of archive")
	}

	cd, err := src.ReadRange(ctx, cdOffset, cdSize)
	if err != nil {
		return nil, err
	}

	return parseCentralDirectory(cd, isZip64)
}

// findEOCD scans buf from the end toward the beginning for the EOCD
// signature, returning the first (rightmost) match, or -1.
func findEOCD(buf []byte) int {
	for i := len(buf) - eocdFixedSize; i >= 0; i-- {
		if le32(buf[i:]) == sigEOCD {
			return i
		}
	}
	return -1
}

func parseCentralDirectory(cd []byte, isZip64 bool) ([]Entry, error) {
	var entries []Entry
	for len(cd) >= 4 {
		if le32(cd) != sigCentralDir {
			break // tolerate trailing padding
		}
		if len(cd) < 46 {
			return nil, malformed("truncated central directory record")
		}

		compressedSize := uint64(le32(cd[20:]))
		filenameLen := int(le16(cd[28:]))
		extraLen := int(le16(cd[30:]))
		commentLen := int(le16(cd[32:]))
		localHeaderOffset := uint64(le32(cd[42:]))

		need := 46 + filenameLen + extraLen + commentLen
		if len(cd) < need {
			return nil, malformed("truncated central directory entry")
		}

		name := decodeUTF8Lossy(cd[46 : 46+filenameLen])
		extra := cd[46+filenameLen : 46+filenameLen+extraLen]

		if compressedSize == 0xFFFFFFFF || localHeaderOffset == 0xFFFFFFFF {
			cs, off, err := parseZip64Extra(extra, compressedSize == 0xFFFFFFFF, localHeaderOffset == 0xFFFFFFFF)
			if err != nil {
				return nil, err
			}
			if compressedSize == 0xFFFFFFFF {
				compressedSize = cs
			}
			if localHeaderOffset == 0xFFFFFFFF {
				localHeaderOffset = off
			}
		}

		entries = append(entries, Entry{
			Name:              name,
			LocalHeaderOffset: localHeaderOffset,
			CompressedSize:    compressedSize,
		})

		cd = cd[need:]
	}
	return entries, nil
}

// parseZip64Extra reads the ZIP64 extended-information extra field
// (header id 0x0001). Its fields always appear in the fixed relative
// order (uncompressed size, compressed size, local header offset, disk
// start number), but ONLY the subset whose regular central-directory
// value was the 0xFFFFFFFF sentinel is actually present. The naive
// reading — always uncompressed, then compressed, then offset — is wrong
// whenever uncompressed size was NOT itself a sentinel (e.g. a small file
// whose only oversized field is the local header offset, because it sits
// very late in a huge archive). We instead infer how many leading slots
// belong to fields the caller didn't ask for (i.e. uncompressed size) from
// the field's total length versus how many trailing slots are wanted.
func parseZip64Extra(extra []byte, wantCompressed, wantOffset bool) (compressedSize, offset uint64, err error) {
	for len(extra) >= 4 {
		id := le16(extra)
		size := int(le16(extra[2:]))
		if len(extra) < 4+size {
			return 0, 0, malformed("truncated extra field")
		}
		if id == 0x0001 {
			field := extra[4 : 4+size]
			want := 0
			if wantCompressed {
				want++
			}
			if wantOffset {
				want++
			}
			leading := len(field)/8 - want
			if leading < 0 {
				return 0, 0, malformed("zip64 extra field shorter than sentinel fields require")
			}
			pos := leading * 8
			if wantCompressed {
				if pos+8 > len(field) {
					return 0, 0, malformed("zip64 extra field too short for compressed size")
				}
				compressedSize = le64(field[pos:])
				pos += 8
			}
			if wantOffset {
				if pos+8 > len(field) {
					return 0, 0, malformed("zip64 extra field too short for local header offset")
				}
				offset = le64(field[pos:])
				pos += 8
			}
			return compressedSize, offset, nil
		}
		extra = extra[4+size:]
	}
	return 0, 0, malformed("sentinel field(s) present but no zip64 extended-information extra field found")
}

// ExtractEntry reads the local file header and compressed payload for e
// and decompresses it.
func ExtractEntry(ctx context.Context, src bytesource.ByteSource, e Entry) ([]byte, error) {
	header, err := src.ReadRange(ctx, e.LocalHeaderOffset, 30)
	if err != nil {
		return nil, err
	}
	if le32(header) != sigLocalFile {
		return nil, malformed("local file header signature mismatch at offset %d", e.LocalHeaderOffset)
	}
	method := le16(header[8:])
	filenameLen := uint64(le16(header[26:]))
	extraLen := uint64(le16(header[28:]))

	payloadOffset := e.LocalHeaderOffset + 30 + filenameLen + extraLen
	payload, err := src.ReadRange(ctx, payloadOffset, e.CompressedSize)
	if err != nil {
		return nil, err
	}

	switch method {
	case 0:
		return payload, nil
	case 8:
		fr := flate.NewReader(bytes.NewReader(payload))
		defer fr.Close()
		out, err := io.ReadAll(fr)
		if err != nil {
			return nil, malformed("deflate stream corrupt: %v", err)
		}
		return out, nil
	default:
		return nil, unsupportedCompression(method)
	}
}

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func le64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

func decodeUTF8Lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
