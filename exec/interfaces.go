// Package exec is the execution loop (spec.md §4.?/"Execution loop"):
// it dispatches LIR instructions through the transform builder, drives
// the per-context worklist via a pluggable Searcher, and integrates with
// the external policy/logger/store collaborators (spec.md §6). Grounded
// on the teacher's executor.go (Executor.ExecuteNextState's instruction
// switch, the Searcher interface and its four implementations) with
// log.Printf upgraded to structured logrus records per SPEC_FULL.md's
// ambient logging section.
package exec

import (
	"github.com/symexec/engine/path"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

// Outcome classifies how one execution path ended (spec.md §6
// "on_path_complete(ctx, outcome, optional_failing_assertion)").
type Outcome uint8

const (
	Success Outcome = iota
	Fail
	Unreachable
	Dead
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Fail:
		return "fail"
	case Unreachable:
		return "unreachable"
	case Dead:
		return "dead"
	default:
		return "outcome<?>"
	}
}

// Policy is the external execution policy (spec.md §6 "Execution
// policy"). The loop calls it once per terminated path; it is never
// queried for scheduling decisions (that is Searcher's job).
type Policy interface {
	OnPathComplete(ctx *path.Context, outcome Outcome, failing *term.Assertion)
}

// FailureLogger receives detected specification violations (spec.md §6
// "Failure logger", §7 kind 3). Its method set matches
// transform.FailureLogger exactly.
type FailureLogger interface {
	LogFailure(s *term.Store, ctx *path.Context, solver smt.Solver, assertion term.Assertion, message string) error
}

// ContextStore is the opaque sink for multi-context results produced
// when a single execution step forks (spec.md §6 "Execution context
// store: the core calls only add(context)").
type ContextStore interface {
	Add(ctx *path.Context)
}
