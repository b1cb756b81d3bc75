// Package smttest is a test-only smt.Solver implementation used by
// package heap, path, transform and exec tests that need real feasibility
// answers without pulling in cgo/Z3. It decides SAT/UNSAT by brute-force
// enumeration over a caller-supplied domain of concrete values for every
// free symbol appearing in the query, rather than by translation to an
// actual SMT backend.
//
// This is deliberately not a general-purpose solver: it panics on term
// kinds it does not understand (floats, arrays) since none of the
// scenarios it backs need them.
package smttest

import (
	"fmt"

	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

// BruteForceSolver implements smt.Solver by trying every combination of
// Domain values for the free symbols referenced in a query.
type BruteForceSolver struct {
	Domain []uint64
}

func (b *BruteForceSolver) Check(s *term.Store, pc *term.AssertionList, extra term.Assertion) (smt.Result, error) {
	if b.satisfiable(s, gather(pc, extra)) {
		return smt.Result{Kind: smt.SAT}, nil
	}
	return smt.Result{Kind: smt.UNSAT}, nil
}

// Resolve behaves like Check; it never attaches a Model since none of the
// transform/heap/path tests built on this fake inspect one.
func (b *BruteForceSolver) Resolve(s *term.Store, pc *term.AssertionList, extra term.Assertion) (smt.Result, error) {
	return b.Check(s, pc, extra)
}

func gather(pc *term.AssertionList, extra term.Assertion) []term.Handle {
	items := pc.Items()
	hs := make([]term.Handle, 0, len(items)+1)
	for _, a := range items {
		hs = append(hs, a.Value)
	}
	if !extra.IsEmpty() {
		hs = append(hs, extra.Value)
	}
	return hs
}

func (b *BruteForceSolver) satisfiable(s *term.Store, hs []term.Handle) bool {
	domain := b.Domain
	if len(domain) == 0 {
		domain = []uint64{0}
	}

	seen := map[term.Symbol]bool{}
	visited := map[term.Handle]bool{}
	var order []term.Symbol
	for _, h := range hs {
		collectSymbols(s, h, seen, &order, visited)
	}

	assign := make(map[term.Symbol]uint64, len(order))
	return search(s, hs, order, domain, assign, 0)
}

func search(s *term.Store, hs []term.Handle, order []term.Symbol, domain []uint64, assign map[term.Symbol]uint64, i int) bool {
	if i == len(order) {
		for _, h := range hs {
			if evalInt(s, h, assign) == 0 {
				return false
			}
		}
		return true
	}
	for _, v := range domain {
		assign[order[i]] = v
		if search(s, hs, order, domain, assign, i+1) {
			return true
		}
	}
	return false
}

func collectSymbols(s *term.Store, h term.Handle, seen map[term.Symbol]bool, order *[]term.Symbol, visited map[term.Handle]bool) {
	if visited[h] {
		return
	}
	visited[h] = true

	if s.Kind(h) == term.KindSymbolic {
		sym := s.SymbolOf(h)
		if !seen[sym] {
			seen[sym] = true
			*order = append(*order, sym)
		}
		return
	}
	for _, o := range s.Operands(h) {
		collectSymbols(s, o, seen, order, visited)
	}
}

func mask(v uint64, width uint32) uint64 {
	if width >= 64 {
		return v
	}
	return v & ((uint64(1) << width) - 1)
}

func signExtend(v uint64, fromWidth, toWidth uint32) uint64 {
	v = mask(v, fromWidth)
	if fromWidth >= 64 || fromWidth == 0 {
		return v
	}
	signBit := uint64(1) << (fromWidth - 1)
	if v&signBit != 0 {
		v |= ^uint64(0) << fromWidth
	}
	return mask(v, toWidth)
}

// evalInt evaluates the integer/bool value of h under assign. Only the
// node kinds and operators exercised by pointer arithmetic, bounds
// checking and boolean path conditions are supported.
func evalInt(s *term.Store, h term.Handle, assign map[term.Symbol]uint64) uint64 {
	typ := s.Type(h)
	switch s.Kind(h) {
	case term.KindConstInt:
		return s.IntValue(h)
	case term.KindSymbolic:
		return assign[s.SymbolOf(h)]
	case term.KindUnary:
		ops := s.Operands(h)
		v := evalInt(s, ops[0], assign)
		fromWidth := s.Type(ops[0]).Width
		switch s.UnaryOpOf(h) {
		case term.Not:
			if v == 0 {
				return 1
			}
			return 0
		case term.Trunc, term.BitCast:
			return mask(v, typ.Width)
		case term.ZExt:
			return mask(v, typ.Width)
		case term.SExt:
			return signExtend(v, fromWidth, typ.Width)
		default:
			panic(fmt.Sprintf("smttest: unsupported unary op %s", s.UnaryOpOf(h)))
		}
	case term.KindBinary:
		ops := s.Operands(h)
		a := evalInt(s, ops[0], assign)
		b := evalInt(s, ops[1], assign)
		width := typ.Width
		switch s.BinaryOpOf(h) {
		case term.Add:
			return mask(a+b, width)
		case term.Sub:
			return mask(a-b, width)
		case term.Mul:
			return mask(a*b, width)
		case term.UDiv:
			if b == 0 {
				return 0
			}
			return mask(a/b, width)
		case term.URem:
			if b == 0 {
				return 0
			}
			return mask(a%b, width)
		case term.And:
			return mask(a&b, width)
		case term.Or:
			return mask(a|b, width)
		case term.Xor:
			return mask(a^b, width)
		case term.Shl:
			return mask(a<<uint(b), width)
		case term.LShr:
			return mask(a>>uint(b), width)
		default:
			panic(fmt.Sprintf("smttest: unsupported binary op %s", s.BinaryOpOf(h)))
		}
	case term.KindICmp:
		ops := s.Operands(h)
		opWidth := s.Type(ops[0]).Width
		a := evalInt(s, ops[0], assign)
		b := evalInt(s, ops[1], assign)
		if boolICmp(s.ICmpPredOf(h), a, b, opWidth) {
			return 1
		}
		return 0
	case term.KindSelect:
		ops := s.Operands(h)
		if evalInt(s, ops[0], assign) != 0 {
			return evalInt(s, ops[1], assign)
		}
		return evalInt(s, ops[2], assign)
	default:
		panic(fmt.Sprintf("smttest: unsupported term kind %s", s.Kind(h)))
	}
}

func boolICmp(pred term.ICmpPred, a, b uint64, width uint32) bool {
	switch pred {
	case term.IEq:
		return a == b
	case term.INe:
		return a != b
	case term.IUgt:
		return a > b
	case term.IUge:
		return a >= b
	case term.IUlt:
		return a < b
	case term.IUle:
		return a <= b
	case term.ISgt:
		return int64(signExtend(a, width, 64)) > int64(signExtend(b, width, 64))
	case term.ISge:
		return int64(signExtend(a, width, 64)) >= int64(signExtend(b, width, 64))
	case term.ISlt:
		return int64(signExtend(a, width, 64)) < int64(signExtend(b, width, 64))
	case term.ISle:
		return int64(signExtend(a, width, 64)) <= int64(signExtend(b, width, 64))
	default:
		panic(fmt.Sprintf("smttest: unsupported icmp predicate %s", pred))
	}
}
