package smt

import "errors"

// Sentinel solver errors (spec.md §7 "solver unknown/timeout/canceled are
// distinguishable error conditions"), matching the teacher's glee.go
// package-level Err* variables verbatim.
var (
	ErrSolverTimeout       = errors.New("solver timeout")
	ErrSolverCanceled      = errors.New("solver canceled")
	ErrSolverResourceLimit = errors.New("solver resource limit")
	ErrSolverUnknown       = errors.New("solver unknown error")
)
