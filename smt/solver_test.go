package smt

import (
	"testing"

	"github.com/symexec/engine/term"
)

// TestUnprovenCachingAvoidsReencoding exercises spec.md §4.2's "unproven()
// returns the suffix not yet known SAT in isolation" and §4.6's "solver
// implementations may use it to avoid re-encoding": once a path condition
// has been proven SAT by a real query with an empty extra assertion, a
// second Check over the same assertion list and an empty extra must hit
// the fast path (spec.md §4.6) instead of re-querying the backend.
func TestUnprovenCachingAvoidsReencoding(t *testing.T) {
	s := term.NewStore()
	backend := newFakeBackend()
	solver := NewSolver(backend)

	var pc term.AssertionList
	x := symbolicBool(s, "x")
	pc.Insert(s, term.NewAssertion(s, x))

	res, err := solver.Check(s, &pc, term.Assertion{})
	if err != nil {
		t.Fatalf("first Check: %v", err)
	}
	if res.Kind != SAT {
		t.Fatalf("first Check Kind = %v, want SAT", res.Kind)
	}
	if backend.checkSatN != 1 {
		t.Fatalf("backend.checkSatN = %d after first Check, want 1", backend.checkSatN)
	}

	res, err = solver.Check(s, &pc, term.Assertion{})
	if err != nil {
		t.Fatalf("second Check: %v", err)
	}
	if res.Kind != SAT {
		t.Fatalf("second Check Kind = %v, want SAT", res.Kind)
	}
	if backend.checkSatN != 1 {
		t.Fatalf("backend.checkSatN = %d after second Check, want 1 (fast path should have fired)", backend.checkSatN)
	}
}

// TestUnprovenCachingInvalidatedByNewAssertion guards against
// over-caching: once a new, non-trivial assertion is appended after a
// successful proof, Unproven must report true again for the extended
// list, so the next Check re-queries the backend instead of trusting a
// stale SAT verdict for a shorter path condition.
func TestUnprovenCachingInvalidatedByNewAssertion(t *testing.T) {
	s := term.NewStore()
	backend := newFakeBackend()
	solver := NewSolver(backend)

	var pc term.AssertionList
	x := symbolicBool(s, "x")
	pc.Insert(s, term.NewAssertion(s, x))

	if _, err := solver.Check(s, &pc, term.Assertion{}); err != nil {
		t.Fatalf("first Check: %v", err)
	}
	if backend.checkSatN != 1 {
		t.Fatalf("backend.checkSatN = %d, want 1", backend.checkSatN)
	}

	y := symbolicBool(s, "y")
	pc.Insert(s, term.NewAssertion(s, y))
	if pc.Unproven(s) != true {
		t.Fatalf("Unproven() = false after appending a new assertion, want true")
	}

	if _, err := solver.Check(s, &pc, term.Assertion{}); err != nil {
		t.Fatalf("second Check: %v", err)
	}
	if backend.checkSatN != 2 {
		t.Fatalf("backend.checkSatN = %d after extending the path condition, want 2 (fast path must not fire on unproven suffix)", backend.checkSatN)
	}
}

// TestUnprovenCachingNotAdvancedByNonTrivialExtra checks that a Check call
// with a non-trivial extra assertion does not mark the bare path condition
// proven, since spec.md §4.2 ties the cache to "a successful SAT check
// with an empty extra assertion" specifically.
func TestUnprovenCachingNotAdvancedByNonTrivialExtra(t *testing.T) {
	s := term.NewStore()
	backend := newFakeBackend()
	solver := NewSolver(backend)

	var pc term.AssertionList
	x := symbolicBool(s, "x")
	pc.Insert(s, term.NewAssertion(s, x))

	extra := term.NewAssertion(s, symbolicBool(s, "y"))
	if _, err := solver.Check(s, &pc, extra); err != nil {
		t.Fatalf("Check with non-trivial extra: %v", err)
	}
	if backend.checkSatN != 1 {
		t.Fatalf("backend.checkSatN = %d, want 1", backend.checkSatN)
	}

	if _, err := solver.Check(s, &pc, term.Assertion{}); err != nil {
		t.Fatalf("Check with empty extra: %v", err)
	}
	if backend.checkSatN != 2 {
		t.Fatalf("backend.checkSatN = %d, want 2 (a non-trivial-extra query must not mark the bare path condition proven)", backend.checkSatN)
	}
}

func symbolicBool(s *term.Store, name string) term.Handle {
	return term.NewSymbolic(s, term.NamedSymbol(name), term.BoolType)
}
