// Package heap implements the symbolic byte-array allocation model and
// pointer resolution (spec.md §4.3): allocations are array-sorted terms
// addressed by byte offset, and pointers are resolved against the live
// allocation table by querying the solver for disjoint feasible aliases.
//
// Grounded on the teacher's array.go (Array/ArrayUpdate byte composition,
// little/big-endian read/write loops) and execution_state.go (the heap as
// an immutable.SortedMap keyed by an integer id, giving forks their cheap
// structural-sharing copy).
package heap

import (
	"github.com/benbjohnson/immutable"

	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/term"
)

// AllocID identifies one allocation within a single Heap.
type AllocID uint64

// Allocation is a mutable-by-replacement byte-array abstraction: base and
// size are pointer-width integer terms, data is an array-sorted term
// holding the current byte contents (spec.md §4.3 "Allocation").
type Allocation struct {
	ID       AllocID
	Base     term.Handle
	Size     term.Handle
	Data     term.Handle
	IdxWidth uint32
}

// NewAllocation constructs an allocation backed by a freshly symbolic or
// zero-initialized byte array of the given size. data must have array
// sort with index width idxWidth.
func NewAllocation(id AllocID, base, size, data term.Handle, idxWidth uint32) *Allocation {
	return &Allocation{ID: id, Base: base, Size: size, Data: data, IdxWidth: idxWidth}
}

func byteCount(width uint32) uint64 {
	assertx.True(width%8 == 0, "heap: type width %d is not a whole number of bytes", width)
	return uint64(width / 8)
}

// Read assembles a typ-typed value starting at the byte offset given by
// the offset term, little-endian unless littleEndian is false, by
// composing repeated loads from the allocation's data term (spec.md §4.3
// "all byte-level operations compose via repeated store/select").
//
// Supported types are TInt, TFloat and TPointer (the LLVMScalar sorts);
// vector assembly is done one level up, in package path's ReadVector, via
// repeated calls to Read at element stride.
func (a *Allocation) Read(s *term.Store, offset term.Handle, typ term.Type, littleEndian bool) term.Handle {
	nbytes := byteCount(scalarWidth(typ))
	result := term.NewConstInt(s, 0, scalarWidth(typ))

	for i := uint64(0); i < nbytes; i++ {
		shiftIdx := i
		if !littleEndian {
			shiftIdx = nbytes - 1 - i
		}
		addr := term.NewBinOp(s, term.Add, offset, term.NewConstInt(s, i, a.IdxWidth))
		b := term.NewLoad(s, a.Data, addr)
		ext := term.NewUnOp(s, term.ZExt, b, term.IntType(scalarWidth(typ)))
		shifted := term.NewBinOp(s, term.Shl, ext, term.NewConstInt(s, shiftIdx*8, scalarWidth(typ)))
		result = term.NewBinOp(s, term.Or, result, shifted)
	}

	if typ.Kind == term.TFloat {
		return term.NewUnOp(s, term.BitCast, result, typ)
	}
	return result
}

// Write is the dual of Read: it decomposes value into bytes and stores
// each one via NewArrayStore, returning the updated Allocation (the
// original is left untouched — terms and Allocations are both treated as
// immutable values so callers can hold onto a prior snapshot).
func (a *Allocation) Write(s *term.Store, offset term.Handle, value term.Handle, typ term.Type, littleEndian bool) *Allocation {
	bits := value
	if typ.Kind == term.TFloat {
		bits = term.NewUnOp(s, term.BitCast, value, term.IntType(scalarWidth(typ)))
	}

	nbytes := byteCount(scalarWidth(typ))
	data := a.Data
	for i := uint64(0); i < nbytes; i++ {
		shiftIdx := i
		if !littleEndian {
			shiftIdx = nbytes - 1 - i
		}
		shifted := term.NewBinOp(s, term.LShr, bits, term.NewConstInt(s, shiftIdx*8, scalarWidth(typ)))
		b := term.NewUnOp(s, term.Trunc, shifted, term.IntType(8))
		addr := term.NewBinOp(s, term.Add, offset, term.NewConstInt(s, i, a.IdxWidth))
		data = term.NewArrayStore(s, data, addr, b)
	}

	return &Allocation{ID: a.ID, Base: a.Base, Size: a.Size, Data: data, IdxWidth: a.IdxWidth}
}

// TypeByteWidth returns the number of bytes a scalar-sorted typ (TInt,
// TFloat or TPointer) occupies in memory. Exported so package path can
// compute per-element strides when assembling or decomposing vector-typed
// values around repeated Read/Write calls (spec.md §3 "LLVMValue ... vector
// (ordered sequence of scalars)").
func TypeByteWidth(typ term.Type) uint64 {
	return byteCount(scalarWidth(typ))
}

// scalarWidth returns the bit width occupied by typ in memory.
func scalarWidth(typ term.Type) uint32 {
	switch typ.Kind {
	case term.TInt:
		return typ.Width
	case term.TFloat:
		return typ.Exp + typ.Mant + 1
	case term.TPointer:
		return 64
	default:
		assertx.True(false, "heap: %s has no scalar memory width", typ)
		return 0
	}
}

// CheckInbounds returns the assertion that [offset, offset+lenBytes) lies
// within this allocation without address overflow (spec.md §4.3
// "offset + len ≤ size ∧ offset + len ≥ offset").
func (a *Allocation) CheckInbounds(s *term.Store, offset, lenBytes term.Handle) term.Assertion {
	end := term.NewBinOp(s, term.Add, offset, lenBytes)
	within := term.NewICmp(s, term.IUle, end, a.Size)
	noOverflow := term.NewICmp(s, term.IUge, end, offset)
	cond := term.NewBinOp(s, term.And, within, noOverflow)
	return term.NewAssertion(s, cond)
}

// allocIDComparer orders AllocIDs for immutable.SortedMap, mirroring the
// teacher's uint64Comparer for ExecutionState.heap.
type allocIDComparer struct{}

// Compare returns -1 if a is less than b, 1 if a is greater, 0 if equal.
func (*allocIDComparer) Compare(a, b interface{}) int {
	x, y := a.(AllocID), b.(AllocID)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

var _ immutable.Comparer = (*allocIDComparer)(nil)
