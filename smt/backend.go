// Package smt is the solver translation layer (spec.md §4.6): a visitor
// that walks term.Handle terms into backend SMT expressions with
// memoization, explicit bool/bit-vector normalization, model decoding,
// and a Solver facade with the spec's mandatory fast paths.
//
// Grounded on the teacher's z3/z3.go (toAST dispatch table keyed by
// concrete Expr type, one helper per opcode) generalized behind a Backend
// interface so the translator itself stays solver-agnostic; smt/z3backend
// supplies the only production Backend, the same way z3.Solver is glee's
// only glee.Solver implementation.
package smt

import "github.com/symexec/engine/term"

// Expr is an opaque backend-native SMT expression handle. The translator
// never inspects it; only the Backend that produced it does.
type Expr interface{}

// ResultKind is the three-valued feasibility outcome (spec.md §4.6, §7
// "solver unknown").
type ResultKind uint8

const (
	Unknown ResultKind = iota
	SAT
	UNSAT
)

func (k ResultKind) String() string {
	switch k {
	case SAT:
		return "sat"
	case UNSAT:
		return "unsat"
	default:
		return "unknown"
	}
}

// Backend builds SMT expressions for every term.Kind and evaluates
// satisfiability. Implementations are not required to be safe for
// concurrent use by multiple goroutines (spec.md §5 "solver instance is
// not assumed thread-safe; one per worker thread").
type Backend interface {
	ConstBool(v bool) Expr
	ConstBV(value uint64, width uint32) Expr
	ConstBVDecimal(decimal string, width uint32) Expr
	ConstFloat(bits term.FloatBits, exp, mant uint32) Expr
	Symbol(name string, typ term.Type) Expr

	BoolNot(x Expr) Expr
	BVNot(x Expr, width uint32) Expr
	FNeg(x Expr) Expr
	FIsNaN(x Expr) Expr

	BVBinOp(op term.BinaryOp, l, r Expr, width uint32) Expr
	FBinOp(op term.BinaryOp, l, r Expr) Expr
	BoolAnd(l, r Expr) Expr
	BoolOr(l, r Expr) Expr
	BVAnd(l, r Expr, width uint32) Expr
	BVOr(l, r Expr, width uint32) Expr
	BVXor(l, r Expr, width uint32) Expr

	ICmp(pred term.ICmpPred, l, r Expr) Expr
	FCmp(pred term.FCmpPred, l, r Expr) Expr

	ZExt(x Expr, fromWidth, toWidth uint32) Expr
	SExt(x Expr, fromWidth, toWidth uint32) Expr
	Trunc(x Expr, toWidth uint32) Expr
	BitcastIntToFloat(x Expr, exp, mant uint32) Expr
	BitcastFloatToInt(x Expr, width uint32) Expr

	Select(cond, a, b Expr) Expr
	ArraySelect(array, index Expr) Expr
	ArrayStore(array, index, value Expr) Expr
	ArrayConstDefault(elem Expr, idxWidth uint32) Expr

	// NormalizeToBool converts a 1-bit bit-vector to the backend's native
	// boolean sort; a no-op if isBool already holds.
	NormalizeToBool(x Expr, isBool bool) Expr
	// NormalizeToBV converts a native boolean to a 1-bit bit-vector via
	// ite(b, #b1, #b0); a no-op if isBool is already false.
	NormalizeToBV(x Expr, isBool bool) Expr

	// CheckSat returns feasibility of the conjunction of assertions,
	// without constructing a model.
	CheckSat(assertions []Expr) (ResultKind, error)
	// Model returns feasibility and, on SAT, a ModelReader over the
	// satisfying assignment.
	Model(assertions []Expr) (ResultKind, ModelReader, error)
}

// ModelReader evaluates backend expressions against one satisfying
// assignment (spec.md §4.6 "Model decoding").
type ModelReader interface {
	EvalBV(e Expr, width uint32) (uint64, error)
	EvalBool(e Expr) (bool, error)
}
