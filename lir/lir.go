// Package lir is the front-end boundary this core consumes but does not
// implement (spec.md §1 "Out of scope: the LIR front-end/parser"). It
// defines just enough of a typed, SSA-form low-level IR — values,
// instructions, functions, a module, and a data layout — for package exec
// to dispatch instructions and package path to bind SSA values, without
// pulling in any concrete front-end (e.g. go/ssa, which the teacher uses
// as its own program's LIR and which this spec explicitly treats as an
// external concern).
package lir

import "github.com/symexec/engine/term"

// Value identifies one SSA value definition. Identity is pointer
// identity, the same convention the teacher uses for ssa.Value keys in
// StackFrame.bindings.
type Value struct {
	Name string
	Typ  term.Type
}

// Opcode names an instruction's operation. The execution loop (package
// exec) switches on this the way the teacher's executeNextInstruction
// switches on the concrete ssa.Instruction type.
type Opcode string

const (
	OpAlloc    Opcode = "alloc"
	OpLoad     Opcode = "load"
	OpStore    Opcode = "store"
	OpBinOp    Opcode = "binop"
	OpUnOp     Opcode = "unop"
	OpICmp     Opcode = "icmp"
	OpFCmp     Opcode = "fcmp"
	OpSelect   Opcode = "select"
	OpCall     Opcode = "call"
	OpReturn   Opcode = "return"
	OpBranch   Opcode = "branch"
	OpCondBr   Opcode = "condbr"
	OpAssert   Opcode = "assert"
	OpPhi      Opcode = "phi"
)

// Instruction is one SSA-form operation within a Block. Result is nil for
// void-typed instructions (store, return, branch, assert).
type Instruction struct {
	Op       Opcode
	Result   *Value
	Operands []*Value
	Type     term.Type // operand type for binop/icmp/fcmp/load/store/alloc
	Targets  []*Block   // successor blocks, for branch/condbr
	Callee   *Function  // for call
	Incoming []string   // predecessor block names, parallel to Operands, for phi only

	BinOp    term.BinaryOp // for OpBinOp
	UnOp     term.UnaryOp  // for OpUnOp
	ICmpPred term.ICmpPred // for OpICmp
	FCmpPred term.FCmpPred // for OpFCmp
}

// Block is a single-entry, single-exit straight-line sequence of
// instructions terminated by a control-flow instruction.
type Block struct {
	Name   string
	Instrs []*Instruction
}

// Function is one SSA-form function body: a parameter list and an
// ordered sequence of basic blocks, entry block first.
type Function struct {
	Name    string
	Params  []*Value
	Blocks  []*Block
	RetType term.Type
}

// DataLayout mirrors the subset of llvm::DataLayout the original
// InterpreterContext::layout() exposes: pointer width, byte order, and
// per-type store size (spec.md §6 "data layout (type store sizes,
// endianness, pointer width)").
type DataLayout struct {
	PointerWidth  uint32
	LittleEndian bool
}

// TypeStoreSize returns the number of bytes typ occupies in memory.
func (d DataLayout) TypeStoreSize(typ term.Type) uint64 {
	switch typ.Kind {
	case term.TInt:
		return uint64(typ.Width+7) / 8
	case term.TFloat:
		return uint64(typ.Exp+typ.Mant+1+7) / 8
	case term.TPointer:
		return uint64(d.PointerWidth) / 8
	case term.TVector:
		return (uint64(typ.ElemWidth+7) / 8) * uint64(typ.VecLen)
	default:
		return 0
	}
}

// Module is the read-only, shared LIR surface: one term.Store plus the
// functions defined over it (spec.md §6 "LIR module (read-only, shared)").
type Module struct {
	Store     *term.Store
	Functions map[string]*Function
	Layout    DataLayout
}

// NewModule returns an empty module over a fresh term.Store.
func NewModule(layout DataLayout) *Module {
	return &Module{Store: term.NewStore(), Functions: make(map[string]*Function), Layout: layout}
}
