// Package path implements the per-path execution context: stack frames,
// the SSA value environment, and the owned heap and path condition
// (spec.md §4.4 "Context"). Grounded in the teacher's execution_state.go
// (ExecutionState/StackFrame/Binding), generalized from glee's single
// Expr-or-Array binding to the spec's richer scalar/vector/aggregate
// LLVMValue sum.
package path

import (
	"fmt"

	"github.com/symexec/engine/heap"
	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/term"
)

// LLVMScalar is a sum over a pure term or a pointer (spec.md §3
// "LLVMScalar is a sum over: a pure term OR a pointer").
type LLVMScalar struct {
	isPointer bool
	term      term.Handle
	ptr       heap.Pointer
}

// ScalarTerm wraps a plain term as a scalar.
func ScalarTerm(h term.Handle) LLVMScalar { return LLVMScalar{term: h} }

// ScalarPointer wraps a pointer as a scalar.
func ScalarPointer(p heap.Pointer) LLVMScalar { return LLVMScalar{isPointer: true, ptr: p} }

// IsPointer reports whether the scalar holds a pointer rather than a term.
func (s LLVMScalar) IsPointer() bool { return s.isPointer }

// Term returns the wrapped term. Only valid when !IsPointer().
func (s LLVMScalar) Term() term.Handle {
	assertx.True(!s.isPointer, "path: Term() on a pointer-valued scalar")
	return s.term
}

// Pointer returns the wrapped pointer. Only valid when IsPointer().
func (s LLVMScalar) Pointer() heap.Pointer {
	assertx.True(s.isPointer, "path: Pointer() on a term-valued scalar")
	return s.ptr
}

func (s LLVMScalar) String() string {
	if s.isPointer {
		return fmt.Sprintf("ptr(resolved=%v)", s.ptr.IsResolved())
	}
	return fmt.Sprintf("term(%d)", s.term)
}

// valueKind discriminates the three LLVMValue variants.
type valueKind uint8

const (
	kindScalar valueKind = iota
	kindVector
	kindAggregate
)

// LLVMValue is a sum over scalar, vector (ordered scalars) and aggregate
// (ordered LLVMValues) — spec.md §3 "LLVMValue".
type LLVMValue struct {
	kind   valueKind
	scalar LLVMScalar
	elems  []LLVMValue
}

// Scalar wraps a single scalar as an LLVMValue.
func Scalar(s LLVMScalar) LLVMValue { return LLVMValue{kind: kindScalar, scalar: s} }

// Vector wraps an ordered sequence of scalars as a vector LLVMValue.
func Vector(elems []LLVMValue) LLVMValue { return LLVMValue{kind: kindVector, elems: elems} }

// Aggregate wraps an ordered sequence of LLVMValues as an aggregate.
func Aggregate(elems []LLVMValue) LLVMValue { return LLVMValue{kind: kindAggregate, elems: elems} }

// IsScalar reports whether v is the scalar variant.
func (v LLVMValue) IsScalar() bool { return v.kind == kindScalar }

// IsVector reports whether v is the vector variant.
func (v LLVMValue) IsVector() bool { return v.kind == kindVector }

// IsAggregate reports whether v is the aggregate variant.
func (v LLVMValue) IsAggregate() bool { return v.kind == kindAggregate }

// AsScalar returns the wrapped scalar. Only valid when IsScalar().
func (v LLVMValue) AsScalar() LLVMScalar {
	assertx.True(v.kind == kindScalar, "path: AsScalar() on a non-scalar value")
	return v.scalar
}

// Elements returns the ordered member values. Only valid for
// vector/aggregate variants.
func (v LLVMValue) Elements() []LLVMValue {
	assertx.True(v.kind != kindScalar, "path: Elements() on a scalar value")
	return v.elems
}

// ReadVector assembles a vector-typed value by calling alloc.Read once per
// element at its natural byte stride, the composition heap.Allocation.Read's
// doc comment promises happens "one level up, in package path" (spec.md §3
// "LLVMValue ... vector (ordered sequence of scalars)"). typ.Kind must be
// term.TVector.
func ReadVector(s *term.Store, alloc *heap.Allocation, offset term.Handle, typ term.Type, littleEndian bool) LLVMValue {
	elemTyp := typ.ElemType()
	stride := heap.TypeByteWidth(elemTyp)

	elems := make([]LLVMValue, typ.VecLen)
	for i := uint32(0); i < typ.VecLen; i++ {
		eoff := term.NewBinOp(s, term.Add, offset, term.NewConstInt(s, uint64(i)*stride, alloc.IdxWidth))
		raw := alloc.Read(s, eoff, elemTyp, littleEndian)
		elems[i] = Scalar(ScalarTerm(raw))
	}
	return Vector(elems)
}

// WriteVector is the dual of ReadVector: it decomposes a vector-typed value
// into its elements and writes each one via alloc.Write at its natural byte
// stride, returning the updated allocation.
func WriteVector(s *term.Store, alloc *heap.Allocation, offset term.Handle, value LLVMValue, typ term.Type, littleEndian bool) *heap.Allocation {
	elemTyp := typ.ElemType()
	stride := heap.TypeByteWidth(elemTyp)

	elems := value.Elements()
	assertx.True(uint32(len(elems)) == typ.VecLen, "path: WriteVector value has %d elements, type wants %d", len(elems), typ.VecLen)

	for i, elem := range elems {
		eoff := term.NewBinOp(s, term.Add, offset, term.NewConstInt(s, uint64(i)*stride, alloc.IdxWidth))
		alloc = alloc.Write(s, eoff, elem.AsScalar().Term(), elemTyp, littleEndian)
	}
	return alloc
}

func (v LLVMValue) String() string {
	switch v.kind {
	case kindScalar:
		return v.scalar.String()
	case kindVector:
		return fmt.Sprintf("vector(%d)", len(v.elems))
	default:
		return fmt.Sprintf("aggregate(%d)", len(v.elems))
	}
}
