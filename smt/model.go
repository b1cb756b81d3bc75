package smt

import (
	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/term"
)

// Value is a decoded concrete scalar pulled out of a Model (spec.md §4.6
// "Model decoding ... returns a value of the appropriate abstract type").
type Value struct {
	Type  term.Type
	Int   uint64          // valid when Type.Kind == TInt or TPointer
	Float term.FloatBits  // valid when Type.Kind == TFloat
}

// Model is a solver-provided satisfying assignment, decoded back through
// the same Translator (and its symbol table) used to pose the query, so a
// symbol referenced during translation and one looked up afterward
// resolve to the same backend identifier (spec.md §4.6 "repeated
// references reuse the same SMT identifier").
type Model struct {
	store   *term.Store
	backend Backend
	trans   *Translator
	reader  ModelReader
}

func newModel(store *term.Store, backend Backend, trans *Translator, reader ModelReader) *Model {
	return &Model{store: store, backend: backend, trans: trans, reader: reader}
}

// Lookup decodes the value bound to a symbolic scalar term (TInt, TFloat
// or TPointer-width address). h must be a KindSymbolic term that was part
// of (or shares a Translator with) the query this Model answers.
func (m *Model) Lookup(h term.Handle) (Value, error) {
	typ := m.store.Type(h)
	e, err := m.trans.Visit(h)
	if err != nil {
		return Value{}, err
	}

	if typ.Kind == term.TFloat {
		width := typ.Exp + typ.Mant + 1
		bitsExpr := m.backend.BitcastFloatToInt(e, width)
		raw, err := m.reader.EvalBV(bitsExpr, width)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: typ, Float: decodeFloatBits(raw, typ)}, nil
	}

	width := typ.Width
	if typ.Kind == term.TPointer {
		width = 64
	}
	raw, err := m.reader.EvalBV(e, width)
	if err != nil {
		return Value{}, err
	}
	return Value{Type: typ, Int: raw}, nil
}

// LookupArray decodes size bytes of a symbolic array term (e.g. a
// KindSymbolicAlloc) by repeated select (spec.md §4.6 "the decoder reads
// bytes 0..size via repeated select").
func (m *Model) LookupArray(h term.Handle, size uint64) ([]byte, error) {
	typ := m.store.Type(h)
	assertx.True(typ.Kind == term.TArray, "smt: LookupArray on non-array type %s", typ)

	arrExpr, err := m.trans.Visit(h)
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		idx := m.backend.ConstBV(i, typ.Width)
		byteExpr := m.backend.ArraySelect(arrExpr, idx)
		v, err := m.reader.EvalBV(byteExpr, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

// decodeFloatBits splits a raw IEEE bit pattern into sign/exponent/
// mantissa. NaN payloads have their sign forced to 0, matching spec.md §8
// scenario 6 and the §9 open question on NaN sign decoding.
func decodeFloatBits(raw uint64, typ term.Type) term.FloatBits {
	mantMask := uint64(1)<<typ.Mant - 1
	expMask := uint64(1)<<typ.Exp - 1

	mant := raw & mantMask
	exp := (raw >> typ.Mant) & expMask
	sign := (raw>>(typ.Mant+typ.Exp))&1 != 0

	if exp == expMask && mant != 0 {
		sign = false // NaN: sign bit is not meaningfully recoverable (spec.md §9)
	}

	return term.FloatBits{Sign: sign, Exp: exp, Mant: mant}
}
