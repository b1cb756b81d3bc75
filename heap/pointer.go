package heap

import "github.com/symexec/engine/term"

// HeapID names which heap (stack frame, global, dynamic heap, ...) an
// allocation lives in (spec.md §3 "Heap. Keyed by a small heap id").
type HeapID uint8

const (
	HeapStack HeapID = iota
	HeapGlobal
	HeapDynamic
)

// Pointer is either resolved (heap id + allocation id + in-allocation
// offset term) or unresolved (a single address term with no known owning
// allocation) — spec.md §3 "Pointer".
type Pointer struct {
	resolved bool

	Heap   HeapID
	Alloc  AllocID
	Offset term.Handle // valid iff resolved

	Address term.Handle // valid iff !resolved
}

// ResolvedPointer returns a pointer pinned to a specific allocation.
func ResolvedPointer(h HeapID, alloc AllocID, offset term.Handle) Pointer {
	return Pointer{resolved: true, Heap: h, Alloc: alloc, Offset: offset}
}

// UnresolvedPointer returns a pointer known only by its raw address term.
func UnresolvedPointer(address term.Handle) Pointer {
	return Pointer{resolved: false, Address: address}
}

// IsResolved reports whether the pointer is pinned to an allocation.
func (p Pointer) IsResolved() bool { return p.resolved }
