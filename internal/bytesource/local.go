package bytesource

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	bufra "github.com/avvmoto/buf-readerat"
)

// Local is a ByteSource backed by a file on disk. The file handle is
// opened lazily on first use and kept for the lifetime of the Local value;
// reads are buffered (the teacher buffers local opens the same way in its
// own cookedOpen path) since central-directory and local-header parsing
// issues many small adjacent reads.
type Local struct {
	path string

	once sync.Once
	f    *os.File
	ra   io.ReaderAt
	size int64
	err  error
}

// NewLocal returns a ByteSource reading the file at path.
func NewLocal(path string) *Local {
	return &Local{path: path}
}

func (l *Local) open() {
	l.once.Do(func() {
		f, err := os.Open(l.path)
		if err != nil {
			l.err = newErr("open", KindIO, err)
			return
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			l.err = newErr("stat", KindIO, err)
			return
		}
		l.f = f
		l.size = info.Size()
		l.ra = bufra.NewBufReaderAt(f, 4096)
	})
}

func (l *Local) Length(ctx context.Context) (uint64, error) {
	l.open()
	if l.err != nil {
		return 0, l.err
	}
	return uint64(l.size), nil
}

func (l *Local) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	l.open()
	if l.err != nil {
		return nil, l.err
	}
	if err := CheckRange("ReadRange", offset, length, uint64(l.size)); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := l.ra.ReadAt(buf, int64(offset))
	if n != len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, newErr("ReadRange", KindIO, fmt.Errorf("short read at %d: %w", offset, err))
	}
	return buf, nil
}

// Close releases the underlying file handle, if one was opened.
func (l *Local) Close() error {
	if l.f != nil {
		return l.f.Close()
	}
	return nil
}
