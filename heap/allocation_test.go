package heap

import (
	"testing"

	"github.com/symexec/engine/term"
)

// TestReadWriteByte is spec.md §8 scenario 3: allocation of size 8, write
// const_i8(0xAB) at offset 3, then read i8 at offset 3 yields 0xAB.
func TestReadWriteByte(t *testing.T) {
	s := term.NewStore()
	data := term.NewSymbolicAlloc(s, 32, 8, term.NewConstInt(s, 0, 8))
	size := term.NewConstInt(s, 8, 32)
	base := term.NewConstInt(s, 0, 32)
	alloc := NewAllocation(1, base, size, data, 32)

	offset := term.NewConstInt(s, 3, 32)
	value := term.NewConstInt(s, 0xAB, 8)
	updated := alloc.Write(s, offset, value, term.IntType(8), true)

	got := updated.Read(s, offset, term.IntType(8), true)
	if s.Kind(got) != term.KindConstInt || s.IntValue(got) != 0xAB {
		t.Fatalf("read after write = %s, want const 0xAB", s.String(got))
	}
}

// TestReadWriteRoundTrip is spec.md §8's array round-trip invariant: for
// every allocation, type of store size k, in-bounds offset, and value of
// that type, read(write(A, o, T, v), o, T) == v.
func TestReadWriteRoundTrip(t *testing.T) {
	widths := []uint32{8, 16, 32, 64}
	for _, w := range widths {
		w := w
		t.Run(term.IntType(w).String(), func(t *testing.T) {
			s := term.NewStore()
			data := term.NewSymbolicAlloc(s, 32, 16, term.NewConstInt(s, 0, 8))
			size := term.NewConstInt(s, 16, 32)
			base := term.NewConstInt(s, 0, 32)
			alloc := NewAllocation(1, base, size, data, 32)

			offset := term.NewConstInt(s, 0, 32)
			value := term.NewConstInt(s, 0x1122334455667788, w)
			updated := alloc.Write(s, offset, value, term.IntType(w), true)
			got := updated.Read(s, offset, term.IntType(w), true)

			if got != value {
				t.Fatalf("round-trip mismatch for width %d: got %s, want %s", w, s.String(got), s.String(value))
			}
		})
	}
}

func TestReadWriteRoundTripBigEndian(t *testing.T) {
	s := term.NewStore()
	data := term.NewSymbolicAlloc(s, 32, 16, term.NewConstInt(s, 0, 8))
	size := term.NewConstInt(s, 16, 32)
	base := term.NewConstInt(s, 0, 32)
	alloc := NewAllocation(1, base, size, data, 32)

	offset := term.NewConstInt(s, 2, 32)
	value := term.NewConstInt(s, 0xDEAD, 16)
	updated := alloc.Write(s, offset, value, term.IntType(16), false)
	got := updated.Read(s, offset, term.IntType(16), false)

	if got != value {
		t.Fatalf("big-endian round-trip mismatch: got %s, want %s", s.String(got), s.String(value))
	}
}

func TestCheckInbounds(t *testing.T) {
	s := term.NewStore()
	data := term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8))
	size := term.NewConstInt(s, 4, 32)
	base := term.NewConstInt(s, 0, 32)
	alloc := NewAllocation(1, base, size, data, 32)

	inbounds := alloc.CheckInbounds(s, term.NewConstInt(s, 0, 32), term.NewConstInt(s, 4, 32))
	if !s.IsConstTrue(inbounds.Value) {
		t.Fatalf("check_inbounds(0, 4) on a size-4 allocation should fold to true, got %s", s.String(inbounds.Value))
	}

	outOfBounds := alloc.CheckInbounds(s, term.NewConstInt(s, 2, 32), term.NewConstInt(s, 4, 32))
	if !s.IsConstFalse(outOfBounds.Value) {
		t.Fatalf("check_inbounds(2, 4) on a size-4 allocation should fold to false, got %s", s.String(outOfBounds.Value))
	}
}
