// Package term implements the engine's symbolic IR: an immutable,
// hash-consed DAG of algebraic terms over bit-vectors, IEEE floats and
// byte-indexed arrays (spec.md §3, §4.1).
//
// Terms are never allocated directly. They are arena entries addressed by
// a 32-bit Handle inside a Store, the way the design notes (spec.md §9)
// ask for in place of the source's shared-ownership/intrusive-cache
// scheme. The folding discipline itself — one constructor per opcode,
// operands canonicalized and collapsed at construction time — follows the
// teacher's expr.go (NewBinaryExpr / newAddExpr / newEqExpr, ...) almost
// rule for rule.
package term

import (
	"fmt"
	"sync"

	"github.com/symexec/engine/internal/assertx"
)

// Handle addresses one entry in a Store's arena. The zero Handle is never
// valid; Store reserves index 0.
type Handle uint32

// Kind enumerates the node kinds from spec.md §3.
type Kind uint8

const (
	KindConstInt Kind = iota
	KindConstFloat
	KindUndef
	KindSymbolic
	KindUnary
	KindBinary
	KindICmp
	KindFCmp
	KindSelect
	KindArrayLoad
	KindArrayStore
	KindFixedArray
	KindSymbolicAlloc
)

func (k Kind) String() string {
	switch k {
	case KindConstInt:
		return "const_int"
	case KindConstFloat:
		return "const_float"
	case KindUndef:
		return "undef"
	case KindSymbolic:
		return "symbolic"
	case KindUnary:
		return "unary"
	case KindBinary:
		return "binary"
	case KindICmp:
		return "icmp"
	case KindFCmp:
		return "fcmp"
	case KindSelect:
		return "select"
	case KindArrayLoad:
		return "load"
	case KindArrayStore:
		return "store"
	case KindFixedArray:
		return "fixed_array"
	case KindSymbolicAlloc:
		return "symbolic_alloc"
	default:
		return "kind<?>"
	}
}

// UnaryOp enumerates spec.md §3 unary operations.
type UnaryOp uint8

const (
	Not UnaryOp = iota
	FNeg
	Trunc
	ZExt
	SExt
	BitCast
	FIsNaN
)

var unaryOpNames = [...]string{Not: "not", FNeg: "fneg", Trunc: "trunc", ZExt: "zext", SExt: "sext", BitCast: "bitcast", FIsNaN: "fisnan"}

func (op UnaryOp) String() string { return unaryOpNames[op] }

// BinaryOp enumerates spec.md §3 binary arithmetic/bitwise operations
// (comparisons are their own node kinds — ICmp/FCmp below).
type BinaryOp uint8

const (
	Add BinaryOp = iota
	Sub
	Mul
	UDiv
	SDiv
	URem
	SRem
	FAdd
	FSub
	FMul
	FDiv
	FRem
	And
	Or
	Xor
	Shl
	LShr
	AShr
)

var binaryOpNames = [...]string{
	Add: "add", Sub: "sub", Mul: "mul", UDiv: "udiv", SDiv: "sdiv", URem: "urem", SRem: "srem",
	FAdd: "fadd", FSub: "fsub", FMul: "fmul", FDiv: "fdiv", FRem: "frem",
	And: "and", Or: "or", Xor: "xor", Shl: "shl", LShr: "lshr", AShr: "ashr",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// IsFloat reports whether op operates on floating-point operands.
func (op BinaryOp) IsFloat() bool { return op >= FAdd && op <= FRem }

// ICmpPred enumerates spec.md §3 integer comparison predicates.
type ICmpPred uint8

const (
	IEq ICmpPred = iota
	INe
	IUgt
	IUge
	IUlt
	IUle
	ISgt
	ISge
	ISlt
	ISle
)

var icmpPredNames = [...]string{IEq: "eq", INe: "ne", IUgt: "ugt", IUge: "uge", IUlt: "ult", IUle: "ule", ISgt: "sgt", ISge: "sge", ISlt: "slt", ISle: "sle"}

func (p ICmpPred) String() string { return icmpPredNames[p] }

// FCmpPred enumerates spec.md §3 floating-point comparison predicates.
type FCmpPred uint8

const (
	FEq FCmpPred = iota
	FNe
	FGt
	FGe
	FLt
	FLe
)

var fcmpPredNames = [...]string{FEq: "eq", FNe: "ne", FGt: "gt", FGe: "ge", FLt: "lt", FLe: "le"}

func (p FCmpPred) String() string { return fcmpPredNames[p] }

// FloatBits is the raw IEEE-754-style (sign, exponent, mantissa) encoding of
// a float constant, kept untruncated so a Model's NaN/Inf payloads survive
// round-tripping through the IR (spec.md §4.6, §8 scenario 6).
type FloatBits struct {
	Sign bool
	Exp  uint64
	Mant uint64
}

// node is one arena entry. Only the fields relevant to its Kind are set.
type node struct {
	kind     Kind
	typ      Type
	op       uint8 // UnaryOp | BinaryOp | ICmpPred | FCmpPred depending on kind
	operands []Handle

	intVal uint64    // KindConstInt value; KindSymbolicAlloc byte size
	fbits  FloatBits // KindConstFloat
	sym    Symbol    // KindSymbolic
}

// Store is a hash-consing arena: structurally identical terms share one
// Handle (spec.md §3 "term equality is structural; identical subterms are
// shared", §8 "hash-consing" invariant). One Store is owned by the
// surrounding LIR module and shared across every Context forked from it
// (spec.md §5); the mutex guards both insertion and node lookup.
type Store struct {
	mu    sync.Mutex
	nodes []node
	index map[string]Handle
}

// NewStore returns an empty term arena. Handle 0 is reserved as invalid.
func NewStore() *Store {
	return &Store{nodes: make([]node, 1), index: make(map[string]Handle)}
}

func (s *Store) intern(n node) Handle {
	key := nodeKey(n)

	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.index[key]; ok {
		return h
	}
	s.nodes = append(s.nodes, n)
	h := Handle(len(s.nodes) - 1)
	s.index[key] = h
	return h
}

func (s *Store) node(h Handle) node {
	s.mu.Lock()
	defer s.mu.Unlock()
	assertx.True(h != 0 && int(h) < len(s.nodes), "term: invalid handle %d", h)
	return s.nodes[h]
}

// Kind returns the node kind of h.
func (s *Store) Kind(h Handle) Kind { return s.node(h).kind }

// Type returns the result type of h.
func (s *Store) Type(h Handle) Type { return s.node(h).typ }

// Operands returns the child handles of h, in evaluation order.
func (s *Store) Operands(h Handle) []Handle { return s.node(h).operands }

// IntValue returns the constant value of a KindConstInt term.
func (s *Store) IntValue(h Handle) uint64 {
	n := s.node(h)
	assertx.True(n.kind == KindConstInt, "term: IntValue on non-const-int %s", n.kind)
	return n.intVal
}

// FloatValue returns the constant bits of a KindConstFloat term.
func (s *Store) FloatValue(h Handle) FloatBits {
	n := s.node(h)
	assertx.True(n.kind == KindConstFloat, "term: FloatValue on non-const-float %s", n.kind)
	return n.fbits
}

// SymbolOf returns the symbol identifying a KindSymbolic term.
func (s *Store) SymbolOf(h Handle) Symbol {
	n := s.node(h)
	assertx.True(n.kind == KindSymbolic, "term: SymbolOf on non-symbolic %s", n.kind)
	return n.sym
}

// UnaryOpOf returns the operator of a KindUnary term.
func (s *Store) UnaryOpOf(h Handle) UnaryOp {
	n := s.node(h)
	assertx.True(n.kind == KindUnary, "term: UnaryOpOf on non-unary %s", n.kind)
	return UnaryOp(n.op)
}

// BinaryOpOf returns the operator of a KindBinary term.
func (s *Store) BinaryOpOf(h Handle) BinaryOp {
	n := s.node(h)
	assertx.True(n.kind == KindBinary, "term: BinaryOpOf on non-binary %s", n.kind)
	return BinaryOp(n.op)
}

// ICmpPredOf returns the predicate of a KindICmp term.
func (s *Store) ICmpPredOf(h Handle) ICmpPred {
	n := s.node(h)
	assertx.True(n.kind == KindICmp, "term: ICmpPredOf on non-icmp %s", n.kind)
	return ICmpPred(n.op)
}

// FCmpPredOf returns the predicate of a KindFCmp term.
func (s *Store) FCmpPredOf(h Handle) FCmpPred {
	n := s.node(h)
	assertx.True(n.kind == KindFCmp, "term: FCmpPredOf on non-fcmp %s", n.kind)
	return FCmpPred(n.op)
}

// AllocSize returns the byte size of a KindSymbolicAlloc term.
func (s *Store) AllocSize(h Handle) uint64 {
	n := s.node(h)
	assertx.True(n.kind == KindSymbolicAlloc, "term: AllocSize on non-alloc %s", n.kind)
	return n.intVal
}

// DefaultOf returns the default element of a KindSymbolicAlloc term
// (spec.md §4.6 "alloc(default, size) → constant array with given
// element").
func (s *Store) DefaultOf(h Handle) Handle {
	n := s.node(h)
	assertx.True(n.kind == KindSymbolicAlloc, "term: DefaultOf on non-alloc %s", n.kind)
	return n.operands[0]
}

// IsConst reports whether h is a constant int or float term.
func (s *Store) IsConst(h Handle) bool {
	k := s.Kind(h)
	return k == KindConstInt || k == KindConstFloat
}

// IsConstTrue reports whether h is the boolean constant true.
func (s *Store) IsConstTrue(h Handle) bool {
	n := s.node(h)
	return n.kind == KindConstInt && n.typ.IsBoolean() && n.intVal != 0
}

// IsConstFalse reports whether h is the boolean constant false.
func (s *Store) IsConstFalse(h Handle) bool {
	n := s.node(h)
	return n.kind == KindConstInt && n.typ.IsBoolean() && n.intVal == 0
}

// String renders h and its subterms, in the teacher's lisp-ish style
// ("(add (const 3 32) (const 4 32))").
func (s *Store) String(h Handle) string {
	n := s.node(h)
	switch n.kind {
	case KindConstInt:
		return fmt.Sprintf("(const %d %d)", n.intVal, n.typ.Width)
	case KindConstFloat:
		return fmt.Sprintf("(fconst sign=%v exp=%#x mant=%#x)", n.fbits.Sign, n.fbits.Exp, n.fbits.Mant)
	case KindUndef:
		return fmt.Sprintf("(undef %s)", n.typ)
	case KindSymbolic:
		return fmt.Sprintf("(sym %s)", n.sym)
	case KindUnary:
		return fmt.Sprintf("(%s %s)", UnaryOp(n.op), s.String(n.operands[0]))
	case KindBinary:
		return fmt.Sprintf("(%s %s %s)", BinaryOp(n.op), s.String(n.operands[0]), s.String(n.operands[1]))
	case KindICmp:
		return fmt.Sprintf("(icmp.%s %s %s)", ICmpPred(n.op), s.String(n.operands[0]), s.String(n.operands[1]))
	case KindFCmp:
		return fmt.Sprintf("(fcmp.%s %s %s)", FCmpPred(n.op), s.String(n.operands[0]), s.String(n.operands[1]))
	case KindSelect:
		return fmt.Sprintf("(select %s %s %s)", s.String(n.operands[0]), s.String(n.operands[1]), s.String(n.operands[2]))
	case KindArrayLoad:
		return fmt.Sprintf("(load %s %s)", s.String(n.operands[0]), s.String(n.operands[1]))
	case KindArrayStore:
		return fmt.Sprintf("(store %s %s %s)", s.String(n.operands[0]), s.String(n.operands[1]), s.String(n.operands[2]))
	case KindFixedArray:
		return fmt.Sprintf("(array %d elems)", len(n.operands))
	case KindSymbolicAlloc:
		return fmt.Sprintf("(alloc %s %d)", s.String(n.operands[0]), n.intVal)
	default:
		return "<?>"
	}
}

// nodeKey renders a node to a string unique per (kind, type, operands,
// payload) tuple, used as the hash-consing key.
func nodeKey(n node) string {
	key := fmt.Sprintf("%d|%s|%d|", n.kind, n.typ, n.op)
	for _, o := range n.operands {
		key += fmt.Sprintf("%d,", o)
	}
	switch n.kind {
	case KindConstInt, KindSymbolicAlloc:
		key += fmt.Sprintf("|%d", n.intVal)
	case KindConstFloat:
		key += fmt.Sprintf("|%v,%d,%d", n.fbits.Sign, n.fbits.Exp, n.fbits.Mant)
	case KindSymbolic:
		key += "|" + n.sym.key()
	}
	return key
}
