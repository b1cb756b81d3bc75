// Package transform implements the transform builder: a staged, deferred
// operation pipeline that records non-forking and forking steps and, at
// Execute time, runs a depth-first search over a per-state work-stack
// (spec.md §4.5). Grounded directly on caffeine's TransformBuilder.cpp
// (ContextState, transform/transform_fork, the stack-driven execute loop)
// and, for the forking pointer-resolution primitive, on the teacher's
// executor.go executeIfInstr fork-and-enqueue pattern.
package transform

import (
	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/lir"
	"github.com/symexec/engine/path"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

// Value names one operation's result within a Builder by its index in
// the operation sequence, mirroring caffeine's TransformBuilder::Value.
type Value int

// Argument is either a reference to an already-bound LIR SSA value
// (looked up in the top frame) or a prior operation's result within this
// same Builder (spec.md §4.5 "an SSA environment of intermediate
// LLVMValues keyed by operation index").
type Argument struct {
	fromFrame bool
	lirVal    *lir.Value
	opValue   Value
	literal   *path.LLVMValue
}

// FromFrame references the LIR value's current binding in the top frame.
func FromFrame(v *lir.Value) Argument { return Argument{fromFrame: true, lirVal: v} }

// FromValue references a prior operation's result within this Builder.
func FromValue(v Value) Argument { return Argument{opValue: v} }

// Literal wraps an already-computed LLVMValue as an argument.
func Literal(v path.LLVMValue) Argument { return Argument{literal: &v} }

// FailureLogger receives detected specification violations (spec.md §7
// kind 3, §6 "Failure logger"). It is responsible for resolving a model
// for the failing assertion if its sink needs one. Its method set matches
// exec.FailureLogger exactly so any value satisfying that interface also
// satisfies this one.
type FailureLogger interface {
	LogFailure(s *term.Store, ctx *path.Context, solver smt.Solver, assertion term.Assertion, message string) error
}

// transformFn is a non-forking step: it mutates state in place.
type transformFn func(st *state)

// forkFn is a forking step: it receives the consumed state, an insert
// callback, and a fail callback, and may push zero, one, or many derived
// states. It may fail (e.g. a solver query error), aborting the whole
// Execute call. Calling fail records a detected specification violation
// (spec.md §7 kind 3) that terminated this path without a successor; the
// caller distinguishes that from ordinary infeasibility via
// Result.Failing.
type forkFn func(st *state, insert func(*state), fail func(term.Assertion)) error

type operation struct {
	fork forkFn // non-nil for a transform_fork step
	plain transformFn
}

// Builder accumulates a sequence of operations to run against a forked
// copy of a Context (spec.md §4.5 "Transform builder").
type Builder struct {
	ops []operation
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// transform records a non-forking step and returns its Value.
func (b *Builder) transform(f transformFn) Value {
	b.ops = append(b.ops, operation{plain: f})
	return Value(len(b.ops) - 1)
}

// transformFork records a forking step and returns its Value.
func (b *Builder) transformFork(f forkFn) Value {
	b.ops = append(b.ops, operation{fork: f})
	return Value(len(b.ops) - 1)
}

// state is one in-flight DFS stack entry: an owned context forked off the
// outer context, an instruction pointer, and this builder's intermediate
// value environment (caffeine's ContextState).
type state struct {
	ctx    *path.Context
	inst   int
	values map[Value]path.LLVMValue

	solver smt.Solver
	logger FailureLogger
}

func (st *state) lookup(arg Argument) path.LLVMValue {
	if arg.literal != nil {
		return *arg.literal
	}
	if arg.fromFrame {
		v, ok := st.ctx.Top().Lookup(arg.lirVal)
		assertx.True(ok, "transform: %q is not bound in the active frame", arg.lirVal.Name)
		return v
	}
	v, ok := st.values[arg.opValue]
	assertx.True(ok, "transform: operation %d has no recorded result yet", arg.opValue)
	return v
}

func (st *state) insert(v Value, val path.LLVMValue) { st.values[v] = val }

// current returns the Value of the operation presently executing.
func (st *state) current() Value { return Value(st.inst - 1) }

// fork returns a derived state over newCtx, sharing this state's
// intermediate value environment (caffeine's ContextState::fork).
func (st *state) fork(newCtx *path.Context) *state {
	values := make(map[Value]path.LLVMValue, len(st.values))
	for k, v := range st.values {
		values[k] = v
	}
	return &state{ctx: newCtx, inst: st.inst, values: values, solver: st.solver, logger: st.logger}
}

// Assign binds dst in the top frame to the resolved argument value
// (spec.md §4.5 "assign(lir_value, argument)").
func (b *Builder) Assign(dst *lir.Value, arg Argument) Value {
	return b.transform(func(st *state) {
		st.ctx.Top().Bind(dst, st.lookup(arg))
	})
}
