package smttest

import (
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

// UnknownSolver always answers Unknown, for exercising spec.md §5's
// "Cancellation" rule at call sites that query feasibility: a solver
// result the caller can't classify must not be treated the same as
// UNSAT — feasibility checks stay conservative by treating Unknown as
// feasible, and failure checks stay conservative by treating it as a
// potential failure.
type UnknownSolver struct{}

func (UnknownSolver) Check(s *term.Store, pc *term.AssertionList, extra term.Assertion) (smt.Result, error) {
	return smt.Result{Kind: smt.Unknown}, nil
}

func (UnknownSolver) Resolve(s *term.Store, pc *term.AssertionList, extra term.Assertion) (smt.Result, error) {
	return smt.Result{Kind: smt.Unknown}, nil
}
