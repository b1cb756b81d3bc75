package smt

import (
	"fmt"

	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/term"
)

// Translator walks term.Handle terms into Backend expressions, memoized
// per term.Handle so a shared subterm is translated once (spec.md §4.6
// "a per-visit cache keyed by the term's identity eliminates exponential
// duplication"). One Translator is created per solver query; its symbol
// table (symbolExpr) lives as long as the Translator, so within that query
// a repeated reference to the same Symbol reuses one SMT identifier
// (spec.md §4.6, §6 "name→expr map passed to the model").
type Translator struct {
	store   *term.Store
	backend Backend

	cache      map[term.Handle]cached
	symbolExpr map[string]Expr // Symbol.String() -> backend symbol expr
}

type cached struct {
	expr   Expr
	isBool bool // true if expr is the backend's native boolean sort
}

// NewTranslator returns a Translator over store using backend to build
// expressions.
func NewTranslator(store *term.Store, backend Backend) *Translator {
	return &Translator{
		store:      store,
		backend:    backend,
		cache:      make(map[term.Handle]cached),
		symbolExpr: make(map[string]Expr),
	}
}

// Visit translates h, returning its natural-form expression (boolean
// native for bool-like terms per term.IsBoolLike, bit-vector otherwise).
func (t *Translator) Visit(h term.Handle) (Expr, error) {
	if c, ok := t.cache[h]; ok {
		return c.expr, nil
	}
	e, isBool, err := t.visit(h)
	if err != nil {
		return nil, err
	}
	t.cache[h] = cached{expr: e, isBool: isBool}
	return e, nil
}

// AsBool translates h and normalizes it to the backend's boolean sort.
func (t *Translator) AsBool(h term.Handle) (Expr, error) {
	e, err := t.Visit(h)
	if err != nil {
		return nil, err
	}
	return t.backend.NormalizeToBool(e, t.cache[h].isBool), nil
}

// AsBV translates h and normalizes a native-boolean translation to a 1-bit
// bit-vector; a bit-vector translation is returned unchanged.
func (t *Translator) AsBV(h term.Handle) (Expr, error) {
	e, err := t.Visit(h)
	if err != nil {
		return nil, err
	}
	return t.backend.NormalizeToBV(e, t.cache[h].isBool), nil
}

func (t *Translator) visit(h term.Handle) (e Expr, isBool bool, err error) {
	s := t.store
	n := s.Kind(h)
	isBool = term.IsBoolLike(s, h)

	switch n {
	case term.KindConstInt:
		v := s.IntValue(h)
		w := s.Type(h).Width
		if s.Type(h).IsBoolean() {
			return t.backend.ConstBool(v != 0), true, nil
		}
		if w <= 64 {
			return t.backend.ConstBV(v, w), false, nil
		}
		return t.backend.ConstBVDecimal(fmt.Sprintf("%d", v), w), false, nil

	case term.KindConstFloat:
		typ := s.Type(h)
		return t.backend.ConstFloat(s.FloatValue(h), typ.Exp, typ.Mant), false, nil

	case term.KindSymbolic:
		sym := s.SymbolOf(h)
		key := sym.String()
		if e, ok := t.symbolExpr[key]; ok {
			return e, isBool, nil
		}
		e := t.backend.Symbol(key, s.Type(h))
		t.symbolExpr[key] = e
		return e, isBool, nil

	case term.KindUndef:
		// Open question (spec.md §9): undef currently decodes to zero;
		// a fresh symbolic constant per use is a documented refinement.
		typ := s.Type(h)
		if typ.Kind == term.TFloat {
			return t.backend.ConstFloat(term.FloatBits{}, typ.Exp, typ.Mant), false, nil
		}
		return t.backend.ConstBV(0, typ.Width), false, nil

	case term.KindUnary:
		return t.visitUnary(h)
	case term.KindBinary:
		return t.visitBinary(h)
	case term.KindICmp:
		return t.visitICmp(h)
	case term.KindFCmp:
		return t.visitFCmp(h)
	case term.KindSelect:
		return t.visitSelect(h)
	case term.KindArrayLoad:
		return t.visitLoad(h)
	case term.KindArrayStore:
		return t.visitStore(h)
	case term.KindFixedArray:
		return t.visitFixedArray(h)
	case term.KindSymbolicAlloc:
		return t.visitSymbolicAlloc(h)
	default:
		assertx.True(false, "smt: unsupported term kind %s", n)
		return nil, false, nil
	}
}

func (t *Translator) visitUnary(h term.Handle) (Expr, bool, error) {
	s := t.store
	op := s.UnaryOpOf(h)
	operands := s.Operands(h)

	switch op {
	case term.Not:
		if term.IsBoolLike(s, operands[0]) {
			x, err := t.AsBool(operands[0])
			if err != nil {
				return nil, false, err
			}
			return t.backend.BoolNot(x), true, nil
		}
		x, err := t.Visit(operands[0])
		if err != nil {
			return nil, false, err
		}
		return t.backend.BVNot(x, s.Type(operands[0]).Width), false, nil

	case term.FNeg:
		x, err := t.Visit(operands[0])
		if err != nil {
			return nil, false, err
		}
		return t.backend.FNeg(x), false, nil

	case term.FIsNaN:
		x, err := t.Visit(operands[0])
		if err != nil {
			return nil, false, err
		}
		return t.backend.FIsNaN(x), false, nil

	case term.Trunc, term.ZExt, term.SExt:
		x, err := t.Visit(operands[0])
		if err != nil {
			return nil, false, err
		}
		from, to := s.Type(operands[0]).Width, s.Type(h).Width
		switch op {
		case term.Trunc:
			return t.backend.Trunc(x, to), false, nil
		case term.ZExt:
			return t.backend.ZExt(x, from, to), false, nil
		default:
			return t.backend.SExt(x, from, to), false, nil
		}

	case term.BitCast:
		x, err := t.Visit(operands[0])
		if err != nil {
			return nil, false, err
		}
		toType, fromType := s.Type(h), s.Type(operands[0])
		if toType.Kind == term.TFloat && fromType.Kind == term.TInt {
			return t.backend.BitcastIntToFloat(x, toType.Exp, toType.Mant), false, nil
		}
		if toType.Kind == term.TInt && fromType.Kind == term.TFloat {
			return t.backend.BitcastFloatToInt(x, toType.Width), false, nil
		}
		return x, false, nil // identical-type bitcast: identity

	default:
		assertx.True(false, "smt: unsupported unary op %s", op)
		return nil, false, nil
	}
}

func (t *Translator) visitBinary(h term.Handle) (Expr, bool, error) {
	s := t.store
	op := s.BinaryOpOf(h)
	operands := s.Operands(h)
	l, r := operands[0], operands[1]

	if op.IsFloat() {
		le, err := t.Visit(l)
		if err != nil {
			return nil, false, err
		}
		re, err := t.Visit(r)
		if err != nil {
			return nil, false, err
		}
		return t.backend.FBinOp(op, le, re), false, nil
	}

	if op == term.And || op == term.Or {
		if term.IsBoolLike(s, l) && term.IsBoolLike(s, r) {
			le, err := t.AsBool(l)
			if err != nil {
				return nil, false, err
			}
			re, err := t.AsBool(r)
			if err != nil {
				return nil, false, err
			}
			if op == term.And {
				return t.backend.BoolAnd(le, re), true, nil
			}
			return t.backend.BoolOr(le, re), true, nil
		}
	}

	// l and/or r may be bool-sorted (an unpaired And/Or/Xor operand, or an
	// Xor of two bool-like operands — Xor has no native bool counterpart
	// to BoolAnd/BoolOr, so it always normalizes to bit-vectors here).
	le, err := t.AsBV(l)
	if err != nil {
		return nil, false, err
	}
	re, err := t.AsBV(r)
	if err != nil {
		return nil, false, err
	}
	width := s.Type(l).Width

	switch op {
	case term.And:
		return t.backend.BVAnd(le, re, width), false, nil
	case term.Or:
		return t.backend.BVOr(le, re, width), false, nil
	case term.Xor:
		return t.backend.BVXor(le, re, width), false, nil
	default:
		return t.backend.BVBinOp(op, le, re, width), false, nil
	}
}

func (t *Translator) visitICmp(h term.Handle) (Expr, bool, error) {
	operands := t.store.Operands(h)
	l, err := t.Visit(operands[0])
	if err != nil {
		return nil, false, err
	}
	r, err := t.Visit(operands[1])
	if err != nil {
		return nil, false, err
	}
	return t.backend.ICmp(t.store.ICmpPredOf(h), l, r), true, nil
}

func (t *Translator) visitFCmp(h term.Handle) (Expr, bool, error) {
	operands := t.store.Operands(h)
	l, err := t.Visit(operands[0])
	if err != nil {
		return nil, false, err
	}
	r, err := t.Visit(operands[1])
	if err != nil {
		return nil, false, err
	}
	return t.backend.FCmp(t.store.FCmpPredOf(h), l, r), true, nil
}

func (t *Translator) visitSelect(h term.Handle) (Expr, bool, error) {
	operands := t.store.Operands(h)
	cond, err := t.AsBool(operands[0])
	if err != nil {
		return nil, false, err
	}
	a, err := t.Visit(operands[1])
	if err != nil {
		return nil, false, err
	}
	b, err := t.Visit(operands[2])
	if err != nil {
		return nil, false, err
	}
	return t.backend.Select(cond, a, b), term.IsBoolLike(t.store, operands[1]), nil
}

func (t *Translator) visitLoad(h term.Handle) (Expr, bool, error) {
	operands := t.store.Operands(h)
	array, err := t.Visit(operands[0])
	if err != nil {
		return nil, false, err
	}
	index, err := t.Visit(operands[1])
	if err != nil {
		return nil, false, err
	}
	return t.backend.ArraySelect(array, index), false, nil
}

func (t *Translator) visitStore(h term.Handle) (Expr, bool, error) {
	operands := t.store.Operands(h)
	array, err := t.Visit(operands[0])
	if err != nil {
		return nil, false, err
	}
	index, err := t.Visit(operands[1])
	if err != nil {
		return nil, false, err
	}
	value, err := t.Visit(operands[2])
	if err != nil {
		return nil, false, err
	}
	return t.backend.ArrayStore(array, index, value), false, nil
}

func (t *Translator) visitFixedArray(h term.Handle) (Expr, bool, error) {
	s := t.store
	typ := s.Type(h)
	operands := s.Operands(h)

	zero := t.backend.ConstBV(0, 8)
	arr := t.backend.ArrayConstDefault(zero, typ.Width)
	for i, elem := range operands {
		ee, err := t.Visit(elem)
		if err != nil {
			return nil, false, err
		}
		idx := t.backend.ConstBV(uint64(i), typ.Width)
		arr = t.backend.ArrayStore(arr, idx, ee)
	}
	return arr, false, nil
}

// visitSymbolicAlloc translates alloc(default, size) to a constant array
// over the translated default element, matching the original C++
// visitAllocOp (spec.md §4.6 "alloc(default, size) → constant array with
// given element"). Every index reads back the same default until a store
// overwrites it.
func (t *Translator) visitSymbolicAlloc(h term.Handle) (Expr, bool, error) {
	s := t.store
	typ := s.Type(h)
	defaultExpr, err := t.Visit(s.DefaultOf(h))
	if err != nil {
		return nil, false, err
	}
	return t.backend.ArrayConstDefault(defaultExpr, typ.Width), false, nil
}
