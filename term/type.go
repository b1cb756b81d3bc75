package term

import (
	"fmt"

	"github.com/symexec/engine/internal/assertx"
)

// TypeKind enumerates the sorts a Term may carry (spec.md §3).
type TypeKind uint8

const (
	TInt TypeKind = iota
	TFloat
	TArray
	TPointer
	TVoid
	TVector
	TFunc
)

// Type is a value type so it can be used directly as part of a hash-consing
// key; it never contains a pointer to another Type so two logically equal
// types always compare `==`.
type Type struct {
	Kind TypeKind

	Width uint32 // TInt: bit width. TArray: index width (element width is fixed at 8).

	Exp  uint32 // TFloat: exponent width
	Mant uint32 // TFloat: mantissa width (excluding implicit leading bit)

	ElemKind  TypeKind // TVector: element kind
	ElemWidth uint32   // TVector: element bit width (TInt element)
	ElemExp   uint32   // TVector: element exponent width (TFloat element)
	ElemMant  uint32   // TVector: element mantissa width (TFloat element)
	VecLen    uint32   // TVector: number of elements
}

// IntType returns an integer type of the given bit width.
func IntType(width uint32) Type { return Type{Kind: TInt, Width: width} }

// BoolType is the 1-bit integer type used for all boolean-valued terms.
var BoolType = IntType(1)

// FloatType returns a floating-point type with the given exponent/mantissa
// widths (e.g. FloatType(11, 52) is IEEE double precision).
func FloatType(exp, mant uint32) Type { return Type{Kind: TFloat, Exp: exp, Mant: mant} }

// ArrayType returns a byte array type indexed by idxWidth-bit integers.
// Element sort is always an 8-bit integer (spec.md §3 invariant).
func ArrayType(idxWidth uint32) Type { return Type{Kind: TArray, Width: idxWidth} }

// PointerType is the single pointer sort.
var PointerType = Type{Kind: TPointer}

// VoidType is the type of instructions with no result.
var VoidType = Type{Kind: TVoid}

// FuncType is the type carried by function-value constants.
var FuncType = Type{Kind: TFunc}

// VectorType returns a fixed-length vector of a scalar int/float element type.
func VectorType(elem Type, n uint32) Type {
	return Type{Kind: TVector, ElemKind: elem.Kind, ElemWidth: elem.Width, ElemExp: elem.Exp, ElemMant: elem.Mant, VecLen: n}
}

// ElemType reconstructs the scalar element type of a vector type. Only
// valid when t.Kind == TVector.
func (t Type) ElemType() Type {
	assertx.True(t.Kind == TVector, "term: ElemType() on non-vector type %s", t)
	if t.ElemKind == TFloat {
		return FloatType(t.ElemExp, t.ElemMant)
	}
	return IntType(t.ElemWidth)
}

// IsBoolean reports whether t is the 1-bit integer type.
func (t Type) IsBoolean() bool { return t.Kind == TInt && t.Width == 1 }

func (t Type) String() string {
	switch t.Kind {
	case TInt:
		return fmt.Sprintf("int(%d)", t.Width)
	case TFloat:
		return fmt.Sprintf("float(%d,%d)", t.Exp, t.Mant)
	case TArray:
		return fmt.Sprintf("array(%d,8)", t.Width)
	case TPointer:
		return "pointer"
	case TVoid:
		return "void"
	case TVector:
		return fmt.Sprintf("vector(%s(%d),%d)", t.ElemKind, t.ElemWidth, t.VecLen)
	case TFunc:
		return "function"
	default:
		return "type<?>"
	}
}

func (k TypeKind) String() string {
	switch k {
	case TInt:
		return "int"
	case TFloat:
		return "float"
	case TArray:
		return "array"
	case TPointer:
		return "pointer"
	case TVoid:
		return "void"
	case TVector:
		return "vector"
	case TFunc:
		return "function"
	default:
		return "?"
	}
}
