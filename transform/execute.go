package transform

import (
	"github.com/symexec/engine/path"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

// Outcome classifies how an Execute call's DFS terminated (spec.md §4.5
// "at execute termination").
type Outcome uint8

const (
	// Dead means every path was pruned; the surrounding execution step
	// has nothing left to continue.
	Dead Outcome = iota
	// Continue means exactly one context survived; it replaces the
	// outer context and execution continues normally.
	Continue
	// Forked means two or more contexts survived; the outer step yields
	// a multi-context result for independent continuation.
	Forked
)

// Result is the outcome of Builder.Execute.
type Result struct {
	Outcome  Outcome
	Contexts []*path.Context // len 0, 1, or ≥2 matching Outcome
	// Failing holds the violated assertion when Outcome is Dead because a
	// forking primitive (e.g. Resolve with die_on_failure) detected a
	// specification violation, as opposed to ordinary path infeasibility.
	// The caller (exec.Loop) uses this to classify the terminated path as
	// exec.Fail rather than exec.Dead when reporting to Policy.
	Failing *term.Assertion
}

// Execute runs the recorded operation sequence as a depth-first search
// over a per-state work-stack, starting from a single fork of ctx
// (spec.md §4.5). solver and logger are threaded into every derived state
// for use by forking primitives like Resolve.
func (b *Builder) Execute(ctx *path.Context, solver smt.Solver, logger FailureLogger) (Result, error) {
	stack := []*state{{ctx: ctx.ForkOnce(), values: make(map[Value]path.LLVMValue), solver: solver, logger: logger}}

	var output []*path.Context
	var failing *term.Assertion
	insert := func(s *state) { stack = append(stack, s) }
	fail := func(a term.Assertion) {
		if failing == nil {
			failing = &a
		}
	}

	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if st.inst >= len(b.ops) {
			output = append(output, st.ctx)
			continue
		}

		op := b.ops[st.inst]
		st.inst++

		if op.fork != nil {
			if err := op.fork(st, insert, fail); err != nil {
				return Result{}, err
			}
		} else {
			op.plain(st)
			insert(st)
		}
	}

	switch len(output) {
	case 0:
		return Result{Outcome: Dead, Failing: failing}, nil
	case 1:
		return Result{Outcome: Continue, Contexts: output}, nil
	default:
		return Result{Outcome: Forked, Contexts: output}, nil
	}
}
