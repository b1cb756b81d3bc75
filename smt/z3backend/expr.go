package z3backend

import (
	"fmt"
	"unsafe"

	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

/*
#include <z3.h>
#include <stdlib.h>
*/
import "C"

// ConstBool returns the Z3 boolean literal.
func (b *Backend) ConstBool(v bool) smt.Expr {
	if v {
		return C.Z3_mk_true(b.raw)
	}
	return C.Z3_mk_false(b.raw)
}

// ConstBV returns a bit-vector literal for widths that fit a uint64.
func (b *Backend) ConstBV(value uint64, width uint32) smt.Expr {
	sort := b.bvSort(width)
	if width <= 32 {
		return C.Z3_mk_unsigned_int(b.raw, C.unsigned(value), sort)
	}
	return C.Z3_mk_unsigned_int64(b.raw, C.uint64_t(value), sort)
}

// ConstBVDecimal returns a bit-vector literal from a decimal string, used
// for widths above 64 bits (spec.md §4.6 "wider use decimal-string
// conversion").
func (b *Backend) ConstBVDecimal(decimal string, width uint32) smt.Expr {
	cstr := C.CString(decimal)
	defer C.free(unsafe.Pointer(cstr))
	return C.Z3_mk_numeral(b.raw, cstr, b.bvSort(width))
}

// ConstFloat returns an FPA literal assembled from its raw sign/exponent/
// mantissa bits via Z3_mk_fpa_fp, the bit-exact constructor (rather than a
// rounded-decimal one) so NaN/Inf payloads survive exactly.
func (b *Backend) ConstFloat(bits term.FloatBits, exp, mant uint32) smt.Expr {
	sign := C.Z3_mk_unsigned_int(b.raw, boolToUint(bits.Sign), b.bvSort(1))
	expBV := C.Z3_mk_unsigned_int64(b.raw, C.uint64_t(bits.Exp), b.bvSort(exp))
	mantBV := C.Z3_mk_unsigned_int64(b.raw, C.uint64_t(bits.Mant), b.bvSort(mant))
	return C.Z3_mk_fpa_fp(b.raw, sign, expBV, mantBV)
}

func boolToUint(v bool) C.unsigned {
	if v {
		return 1
	}
	return 0
}

// Symbol returns a fresh named constant of the appropriate sort for typ
// (spec.md §4.6 "Symbolic constants are materialized once per name").
func (b *Backend) Symbol(name string, typ term.Type) smt.Expr {
	cstr := C.CString(name)
	defer C.free(unsafe.Pointer(cstr))
	sym := C.Z3_mk_string_symbol(b.raw, cstr)

	switch typ.Kind {
	case term.TFloat:
		return C.Z3_mk_const(b.raw, sym, b.fpaSort(typ.Exp, typ.Mant))
	case term.TArray:
		domain := b.bvSort(typ.Width)
		rng := b.bvSort(8)
		return C.Z3_mk_const(b.raw, sym, C.Z3_mk_array_sort(b.raw, domain, rng))
	case term.TPointer:
		return C.Z3_mk_const(b.raw, sym, b.bvSort(64))
	default:
		return C.Z3_mk_const(b.raw, sym, b.bvSort(typ.Width))
	}
}

func (b *Backend) BoolNot(x smt.Expr) smt.Expr { return C.Z3_mk_not(b.raw, asAST(x)) }

func (b *Backend) BVNot(x smt.Expr, width uint32) smt.Expr { return C.Z3_mk_bvnot(b.raw, asAST(x)) }

func (b *Backend) FNeg(x smt.Expr) smt.Expr { return C.Z3_mk_fpa_neg(b.raw, asAST(x)) }

func (b *Backend) FIsNaN(x smt.Expr) smt.Expr { return C.Z3_mk_fpa_is_nan(b.raw, asAST(x)) }

func (b *Backend) BoolAnd(l, r smt.Expr) smt.Expr {
	args := [2]C.Z3_ast{asAST(l), asAST(r)}
	return C.Z3_mk_and(b.raw, 2, &args[0])
}

func (b *Backend) BoolOr(l, r smt.Expr) smt.Expr {
	args := [2]C.Z3_ast{asAST(l), asAST(r)}
	return C.Z3_mk_or(b.raw, 2, &args[0])
}

func (b *Backend) BVAnd(l, r smt.Expr, width uint32) smt.Expr { return C.Z3_mk_bvand(b.raw, asAST(l), asAST(r)) }
func (b *Backend) BVOr(l, r smt.Expr, width uint32) smt.Expr  { return C.Z3_mk_bvor(b.raw, asAST(l), asAST(r)) }
func (b *Backend) BVXor(l, r smt.Expr, width uint32) smt.Expr { return C.Z3_mk_bvxor(b.raw, asAST(l), asAST(r)) }

// BVBinOp dispatches the remaining arithmetic/shift operators, one
// Z3_mk_bvXXX call per opcode, mirroring the teacher's toBinaryAST switch.
func (b *Backend) BVBinOp(op term.BinaryOp, l, r smt.Expr, width uint32) smt.Expr {
	lhs, rhs := asAST(l), asAST(r)
	switch op {
	case term.Add:
		return C.Z3_mk_bvadd(b.raw, lhs, rhs)
	case term.Sub:
		return C.Z3_mk_bvsub(b.raw, lhs, rhs)
	case term.Mul:
		return C.Z3_mk_bvmul(b.raw, lhs, rhs)
	case term.UDiv:
		return C.Z3_mk_bvudiv(b.raw, lhs, rhs)
	case term.SDiv:
		return C.Z3_mk_bvsdiv(b.raw, lhs, rhs)
	case term.URem:
		return C.Z3_mk_bvurem(b.raw, lhs, rhs)
	case term.SRem:
		return C.Z3_mk_bvsrem(b.raw, lhs, rhs)
	case term.Shl:
		return C.Z3_mk_bvshl(b.raw, lhs, rhs)
	case term.LShr:
		return C.Z3_mk_bvlshr(b.raw, lhs, rhs)
	case term.AShr:
		return C.Z3_mk_bvashr(b.raw, lhs, rhs)
	default:
		assertx.True(false, "z3backend: unexpected bitvector op %s", op)
		return nil
	}
}

// FBinOp dispatches the FPA arithmetic operators. All take Z3's rounding
// mode as their first argument; round-nearest-ties-to-even matches LLVM's
// default and the source engine's assumption (spec.md §9 does not name an
// alternate rounding mode).
func (b *Backend) FBinOp(op term.BinaryOp, l, r smt.Expr) smt.Expr {
	rm := C.Z3_mk_fpa_round_nearest_ties_to_even(b.raw)
	lhs, rhs := asAST(l), asAST(r)
	switch op {
	case term.FAdd:
		return C.Z3_mk_fpa_add(b.raw, rm, lhs, rhs)
	case term.FSub:
		return C.Z3_mk_fpa_sub(b.raw, rm, lhs, rhs)
	case term.FMul:
		return C.Z3_mk_fpa_mul(b.raw, rm, lhs, rhs)
	case term.FDiv:
		return C.Z3_mk_fpa_div(b.raw, rm, lhs, rhs)
	case term.FRem:
		return C.Z3_mk_fpa_rem(b.raw, lhs, rhs)
	default:
		assertx.True(false, "z3backend: unexpected float op %s", op)
		return nil
	}
}

func (b *Backend) ICmp(pred term.ICmpPred, l, r smt.Expr) smt.Expr {
	lhs, rhs := asAST(l), asAST(r)
	switch pred {
	case term.IEq:
		return C.Z3_mk_eq(b.raw, lhs, rhs)
	case term.INe:
		return C.Z3_mk_not(b.raw, C.Z3_mk_eq(b.raw, lhs, rhs))
	case term.IUgt:
		return C.Z3_mk_bvugt(b.raw, lhs, rhs)
	case term.IUge:
		return C.Z3_mk_bvuge(b.raw, lhs, rhs)
	case term.IUlt:
		return C.Z3_mk_bvult(b.raw, lhs, rhs)
	case term.IUle:
		return C.Z3_mk_bvule(b.raw, lhs, rhs)
	case term.ISgt:
		return C.Z3_mk_bvsgt(b.raw, lhs, rhs)
	case term.ISge:
		return C.Z3_mk_bvsge(b.raw, lhs, rhs)
	case term.ISlt:
		return C.Z3_mk_bvslt(b.raw, lhs, rhs)
	case term.ISle:
		return C.Z3_mk_bvsle(b.raw, lhs, rhs)
	default:
		assertx.True(false, "z3backend: unexpected icmp predicate %s", pred)
		return nil
	}
}

// FCmp dispatches the FPA comparison predicates. Z3's FPA relations
// already implement IEEE-754 unordered-with-NaN semantics natively
// (spec.md §4.6 "NaN handling is the solver's standard IEEE semantics").
func (b *Backend) FCmp(pred term.FCmpPred, l, r smt.Expr) smt.Expr {
	lhs, rhs := asAST(l), asAST(r)
	switch pred {
	case term.FEq:
		return C.Z3_mk_fpa_eq(b.raw, lhs, rhs)
	case term.FNe:
		return C.Z3_mk_not(b.raw, C.Z3_mk_fpa_eq(b.raw, lhs, rhs))
	case term.FGt:
		return C.Z3_mk_fpa_gt(b.raw, lhs, rhs)
	case term.FGe:
		return C.Z3_mk_fpa_geq(b.raw, lhs, rhs)
	case term.FLt:
		return C.Z3_mk_fpa_lt(b.raw, lhs, rhs)
	case term.FLe:
		return C.Z3_mk_fpa_leq(b.raw, lhs, rhs)
	default:
		assertx.True(false, "z3backend: unexpected fcmp predicate %s", pred)
		return nil
	}
}

func (b *Backend) ZExt(x smt.Expr, fromWidth, toWidth uint32) smt.Expr {
	return C.Z3_mk_zero_ext(b.raw, C.uint(toWidth-fromWidth), asAST(x))
}

func (b *Backend) SExt(x smt.Expr, fromWidth, toWidth uint32) smt.Expr {
	return C.Z3_mk_sign_ext(b.raw, C.uint(toWidth-fromWidth), asAST(x))
}

func (b *Backend) Trunc(x smt.Expr, toWidth uint32) smt.Expr {
	return C.Z3_mk_extract(b.raw, C.uint(toWidth-1), 0, asAST(x))
}

// BitcastIntToFloat reinterprets a raw bit-vector's bits as an FPA value
// via Z3_mk_fpa_to_fp_bv, the bit-exact (non-rounding) conversion.
func (b *Backend) BitcastIntToFloat(x smt.Expr, exp, mant uint32) smt.Expr {
	return C.Z3_mk_fpa_to_fp_bv(b.raw, asAST(x), b.fpaSort(exp, mant))
}

// BitcastFloatToInt reinterprets an FPA value's bits as a bit-vector via
// Z3_mk_fpa_to_ieee_bv.
func (b *Backend) BitcastFloatToInt(x smt.Expr, width uint32) smt.Expr {
	return C.Z3_mk_fpa_to_ieee_bv(b.raw, asAST(x))
}

func (b *Backend) Select(cond, a, bExpr smt.Expr) smt.Expr {
	return C.Z3_mk_ite(b.raw, asAST(cond), asAST(a), asAST(bExpr))
}

func (b *Backend) ArraySelect(array, index smt.Expr) smt.Expr {
	return C.Z3_mk_select(b.raw, asAST(array), asAST(index))
}

func (b *Backend) ArrayStore(array, index, value smt.Expr) smt.Expr {
	return C.Z3_mk_store(b.raw, asAST(array), asAST(index), asAST(value))
}

func (b *Backend) ArrayConstDefault(elem smt.Expr, idxWidth uint32) smt.Expr {
	return C.Z3_mk_const_array(b.raw, b.bvSort(idxWidth), asAST(elem))
}

// NormalizeToBool converts a 1-bit bit-vector to Z3's native bool sort via
// an equality-with-one test, matching the teacher's extract-then-eq
// pattern in toExtractAST.
func (b *Backend) NormalizeToBool(x smt.Expr, isBool bool) smt.Expr {
	if isBool {
		return x
	}
	one := C.Z3_mk_unsigned_int(b.raw, 1, b.bvSort(1))
	return C.Z3_mk_eq(b.raw, asAST(x), one)
}

// NormalizeToBV converts a native bool to a 1-bit bit-vector via
// ite(b, #b1, #b0).
func (b *Backend) NormalizeToBV(x smt.Expr, isBool bool) smt.Expr {
	if !isBool {
		return x
	}
	one := C.Z3_mk_unsigned_int(b.raw, 1, b.bvSort(1))
	zero := C.Z3_mk_unsigned_int(b.raw, 0, b.bvSort(1))
	return C.Z3_mk_ite(b.raw, asAST(x), one, zero)
}

var _ = fmt.Sprintf // fmt has no other use in this file
