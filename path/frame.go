package path

import (
	"fmt"
	"strings"

	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/lir"
)

// StackFrame holds one function activation's SSA value environment and
// control-flow position (spec.md §3 "StackFrame"), grounded on the
// teacher's StackFrame in execution_state.go.
type StackFrame struct {
	Fn       *lir.Function
	RetDest  *lir.Value // where the caller wants this call's result bound, if any
	Block    *lir.Block
	PC       int    // index of the next instruction to execute within Block
	PredName string // name of the predecessor block, for phi resolution

	bindings map[*lir.Value]LLVMValue
}

// NewStackFrame starts a fresh activation of fn at its entry block.
func NewStackFrame(fn *lir.Function, retDest *lir.Value) *StackFrame {
	assertx.True(len(fn.Blocks) > 0, "path: function %s has no blocks", fn.Name)
	return &StackFrame{
		Fn:       fn,
		RetDest:  retDest,
		Block:    fn.Blocks[0],
		bindings: make(map[*lir.Value]LLVMValue),
	}
}

// Bind assigns val to v. Per spec.md §3 "an SSA identifier, once assigned
// in a frame, is never reassigned"; rebinding the same *lir.Value is an
// internal invariant violation.
func (f *StackFrame) Bind(v *lir.Value, val LLVMValue) {
	_, exists := f.bindings[v]
	assertx.True(!exists, "path: SSA value %q rebound within its frame", v.Name)
	f.bindings[v] = val
}

// Lookup returns the value bound to v.
func (f *StackFrame) Lookup(v *lir.Value) (LLVMValue, bool) {
	val, ok := f.bindings[v]
	return val, ok
}

// Instr returns the instruction at PC, or nil if Block has been exhausted.
func (f *StackFrame) Instr() *lir.Instruction {
	if f.PC >= len(f.Block.Instrs) {
		return nil
	}
	return f.Block.Instrs[f.PC]
}

// Advance moves PC to the next instruction within the current block.
func (f *StackFrame) Advance() { f.PC++ }

// Jump transfers control to dst, recording the outgoing block for phi
// resolution, matching the teacher's jump()/prev bookkeeping.
func (f *StackFrame) Jump(dst *lir.Block) {
	f.PredName = f.Block.Name
	f.Block = dst
	f.PC = 0
}

// Clone returns an independent copy of f: a new bindings map (so callers
// may continue to reference the original frame's environment
// unaffected), matching the teacher's StackFrame.Clone used when forking.
func (f *StackFrame) Clone() *StackFrame {
	cp := &StackFrame{Fn: f.Fn, RetDest: f.RetDest, Block: f.Block, PC: f.PC, PredName: f.PredName}
	cp.bindings = make(map[*lir.Value]LLVMValue, len(f.bindings))
	for k, v := range f.bindings {
		cp.bindings[k] = v
	}
	return cp
}

// Dump renders the frame's bindings for debugging (spec.md
// SUPPLEMENTED FEATURES "Dump/debug rendering").
func (f *StackFrame) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frame %s @ %s:%d\n", f.Fn.Name, f.Block.Name, f.PC)
	for v, val := range f.bindings {
		fmt.Fprintf(&b, "  %s = %s\n", v.Name, val)
	}
	return b.String()
}
