package bytesource

import (
	"errors"
	"testing"
)

func TestCheckRange(t *testing.T) {
	cases := []struct {
		name           string
		offset, length uint64
		size           uint64
		wantErr        bool
	}{
		{"zero length always ok", 1000, 0, 10, false},
		{"exact fit", 0, 10, 10, false},
		{"within bounds", 2, 3, 10, false},
		{"offset past end", 11, 1, 10, true},
		{"offset at end nonzero length", 10, 1, 10, true},
		{"length overruns", 5, 10, 10, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := CheckRange("ReadRange", c.offset, c.length, c.size)
			if (err != nil) != c.wantErr {
				t.Fatalf("CheckRange(%d,%d,%d) = %v, wantErr=%v", c.offset, c.length, c.size, err, c.wantErr)
			}
			if err != nil {
				var be *Error
				if !errors.As(err, &be) || be.Kind != KindOutOfRange {
					t.Errorf("got %v, want *Error{Kind: KindOutOfRange}", err)
				}
				if !errors.Is(err, ErrOutOfRange) {
					t.Errorf("errors.Is(err, ErrOutOfRange) = false")
				}
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := newErr("ReadRange", KindIO, inner)
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false")
	}
	var be *Error
	if !errors.As(err, &be) || be.Kind != KindIO || be.Op != "ReadRange" {
		t.Fatalf("got %+v", be)
	}
}
