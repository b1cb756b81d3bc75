package smt

import "github.com/symexec/engine/term"

// Result is the outcome of a Solver query (spec.md §4.6 "Solver facade").
type Result struct {
	Kind  ResultKind
	Model *Model // non-nil only when Kind == SAT and a model was requested
}

// Solver is the black-box SMT collaborator (spec.md §6 "Solver (black
// box)"). Package heap, path and transform depend only on this interface;
// NewSolver over a smt/z3backend Backend is the sole production
// implementation.
type Solver interface {
	Check(s *term.Store, pc *term.AssertionList, extra term.Assertion) (Result, error)
	Resolve(s *term.Store, pc *term.AssertionList, extra term.Assertion) (Result, error)
}

// facade adapts a Backend into the Solver contract, applying the
// mandatory fast paths from spec.md §4.6 before falling back to a real
// query.
type facade struct {
	backend Backend
}

// NewSolver wraps backend as a Solver.
func NewSolver(backend Backend) Solver {
	return &facade{backend: backend}
}

func (f *facade) Check(s *term.Store, pc *term.AssertionList, extra term.Assertion) (Result, error) {
	if fast, ok := fastPath(s, pc, extra); ok {
		return fast, nil
	}

	trans := NewTranslator(s, f.backend)
	exprs, err := translateAll(trans, s, pc, extra)
	if err != nil {
		return Result{}, err
	}

	kind, err := f.backend.CheckSat(exprs)
	if err != nil {
		return Result{}, err
	}
	markProvenIfWholeAssertionList(pc, s, extra, kind)
	return Result{Kind: kind}, nil
}

func (f *facade) Resolve(s *term.Store, pc *term.AssertionList, extra term.Assertion) (Result, error) {
	if fast, ok := fastPath(s, pc, extra); ok {
		return fast, nil
	}

	trans := NewTranslator(s, f.backend)
	exprs, err := translateAll(trans, s, pc, extra)
	if err != nil {
		return Result{}, err
	}

	kind, reader, err := f.backend.Model(exprs)
	if err != nil {
		return Result{}, err
	}
	markProvenIfWholeAssertionList(pc, s, extra, kind)
	if kind != SAT {
		return Result{Kind: kind}, nil
	}
	return Result{Kind: SAT, Model: newModel(s, f.backend, trans, reader)}, nil
}

// markProvenIfWholeAssertionList advances pc's proven cursor once a real
// query against the full path condition (not the fast path) comes back
// SAT with an empty or trivially-true extra assertion — the "last
// successful SAT check with an empty extra assertion" spec.md §4.2's
// Unproven doc describes.
func markProvenIfWholeAssertionList(pc *term.AssertionList, s *term.Store, extra term.Assertion, kind ResultKind) {
	if kind == SAT && (extra.IsEmpty() || s.IsConstTrue(extra.Value)) {
		pc.MarkProven()
	}
}

// fastPath implements spec.md §4.6: "if extra is trivially true and
// assertions.unproven() is empty, return SAT; if extra is trivially
// false, return UNSAT."
func fastPath(s *term.Store, pc *term.AssertionList, extra term.Assertion) (Result, bool) {
	if !extra.IsEmpty() && s.IsConstFalse(extra.Value) {
		return Result{Kind: UNSAT}, true
	}
	if (extra.IsEmpty() || s.IsConstTrue(extra.Value)) && !pc.Unproven(s) {
		return Result{Kind: SAT}, true
	}
	return Result{}, false
}

func translateAll(trans *Translator, s *term.Store, pc *term.AssertionList, extra term.Assertion) ([]Expr, error) {
	items := pc.Items()
	exprs := make([]Expr, 0, len(items)+1)
	for _, a := range items {
		e, err := trans.AsBool(a.Value)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if !extra.IsEmpty() {
		e, err := trans.AsBool(extra.Value)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}
