package smt

import (
	"fmt"

	"github.com/symexec/engine/term"
)

// fexpr is the fake Backend's Expr representation: a lisp-ish rendering of
// the expression tree, good enough to assert dispatch and normalization
// behavior by string comparison without a real SMT backend.
type fexpr struct{ s string }

func lit(format string, args ...interface{}) *fexpr { return &fexpr{s: fmt.Sprintf(format, args...)} }

func as(e Expr) *fexpr { return e.(*fexpr) }

// fakeBackend is a structural Backend double: every method renders its
// arguments into a fexpr instead of building a real solver term. It also
// counts calls to a few methods so tests can assert the Translator's
// memoization behavior.
type fakeBackend struct {
	symbolCalls map[string]int
	bvBinOpN    int
	checkSatN   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{symbolCalls: make(map[string]int)}
}

func (b *fakeBackend) ConstBool(v bool) Expr                   { return lit("(cbool %v)", v) }
func (b *fakeBackend) ConstBV(value uint64, width uint32) Expr { return lit("(cbv %d %d)", value, width) }
func (b *fakeBackend) ConstBVDecimal(decimal string, width uint32) Expr {
	return lit("(cbvd %s %d)", decimal, width)
}
func (b *fakeBackend) ConstFloat(bits term.FloatBits, exp, mant uint32) Expr {
	return lit("(cfloat %v %d %d %d %d)", bits.Sign, bits.Exp, bits.Mant, exp, mant)
}
func (b *fakeBackend) Symbol(name string, typ term.Type) Expr {
	b.symbolCalls[name]++
	return lit("(sym %s)", name)
}

func (b *fakeBackend) BoolNot(x Expr) Expr        { return lit("(bnot %s)", as(x).s) }
func (b *fakeBackend) BVNot(x Expr, w uint32) Expr { return lit("(vnot %s %d)", as(x).s, w) }
func (b *fakeBackend) FNeg(x Expr) Expr           { return lit("(fneg %s)", as(x).s) }
func (b *fakeBackend) FIsNaN(x Expr) Expr         { return lit("(fisnan %s)", as(x).s) }

func (b *fakeBackend) BVBinOp(op term.BinaryOp, l, r Expr, width uint32) Expr {
	b.bvBinOpN++
	return lit("(%s %s %s %d)", op, as(l).s, as(r).s, width)
}
func (b *fakeBackend) FBinOp(op term.BinaryOp, l, r Expr) Expr {
	return lit("(%s %s %s)", op, as(l).s, as(r).s)
}
func (b *fakeBackend) BoolAnd(l, r Expr) Expr { return lit("(band %s %s)", as(l).s, as(r).s) }
func (b *fakeBackend) BoolOr(l, r Expr) Expr  { return lit("(bor %s %s)", as(l).s, as(r).s) }
func (b *fakeBackend) BVAnd(l, r Expr, w uint32) Expr {
	return lit("(vand %s %s %d)", as(l).s, as(r).s, w)
}
func (b *fakeBackend) BVOr(l, r Expr, w uint32) Expr {
	return lit("(vor %s %s %d)", as(l).s, as(r).s, w)
}
func (b *fakeBackend) BVXor(l, r Expr, w uint32) Expr {
	return lit("(vxor %s %s %d)", as(l).s, as(r).s, w)
}

func (b *fakeBackend) ICmp(pred term.ICmpPred, l, r Expr) Expr {
	return lit("(icmp.%s %s %s)", pred, as(l).s, as(r).s)
}
func (b *fakeBackend) FCmp(pred term.FCmpPred, l, r Expr) Expr {
	return lit("(fcmp.%s %s %s)", pred, as(l).s, as(r).s)
}

func (b *fakeBackend) ZExt(x Expr, from, to uint32) Expr {
	return lit("(zext %s %d %d)", as(x).s, from, to)
}
func (b *fakeBackend) SExt(x Expr, from, to uint32) Expr {
	return lit("(sext %s %d %d)", as(x).s, from, to)
}
func (b *fakeBackend) Trunc(x Expr, to uint32) Expr { return lit("(trunc %s %d)", as(x).s, to) }
func (b *fakeBackend) BitcastIntToFloat(x Expr, exp, mant uint32) Expr {
	return lit("(i2f %s %d %d)", as(x).s, exp, mant)
}
func (b *fakeBackend) BitcastFloatToInt(x Expr, width uint32) Expr {
	return lit("(f2i %s %d)", as(x).s, width)
}

func (b *fakeBackend) Select(cond, a, c Expr) Expr {
	return lit("(ite %s %s %s)", as(cond).s, as(a).s, as(c).s)
}
func (b *fakeBackend) ArraySelect(array, index Expr) Expr {
	return lit("(select %s %s)", as(array).s, as(index).s)
}
func (b *fakeBackend) ArrayStore(array, index, value Expr) Expr {
	return lit("(store %s %s %s)", as(array).s, as(index).s, as(value).s)
}
func (b *fakeBackend) ArrayConstDefault(elem Expr, idxWidth uint32) Expr {
	return lit("(const-array %s %d)", as(elem).s, idxWidth)
}

func (b *fakeBackend) NormalizeToBool(x Expr, isBool bool) Expr {
	if isBool {
		return x
	}
	return lit("(tobool %s)", as(x).s)
}
func (b *fakeBackend) NormalizeToBV(x Expr, isBool bool) Expr {
	if !isBool {
		return x
	}
	return lit("(tobv %s)", as(x).s)
}

func (b *fakeBackend) CheckSat(assertions []Expr) (ResultKind, error) {
	b.checkSatN++
	for _, e := range assertions {
		if as(e).s == "(cbool false)" {
			return UNSAT, nil
		}
	}
	return SAT, nil
}

func (b *fakeBackend) Model(assertions []Expr) (ResultKind, ModelReader, error) {
	kind, err := b.CheckSat(assertions)
	if err != nil || kind != SAT {
		return kind, nil, err
	}
	return SAT, &fakeModelReader{}, nil
}

// fakeModelReader answers every query with a fixed configured value; it is
// only meant to exercise Model.Lookup's decode arithmetic, not real
// constraint solving.
type fakeModelReader struct {
	bv   map[string]uint64
	bool map[string]bool
}

func (r *fakeModelReader) EvalBV(e Expr, width uint32) (uint64, error) {
	if r.bv != nil {
		if v, ok := r.bv[as(e).s]; ok {
			return v, nil
		}
	}
	return 0, nil
}

func (r *fakeModelReader) EvalBool(e Expr) (bool, error) {
	if r.bool != nil {
		if v, ok := r.bool[as(e).s]; ok {
			return v, nil
		}
	}
	return false, nil
}
