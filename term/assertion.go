package term

import "github.com/symexec/engine/internal/assertx"

// Assertion wraps a boolean-typed Term as a named path-condition element
// (spec.md §4.2), the same role glee.ExecutionState.constraints plays with
// bare Expr values but given its own type so AssertionList can track
// checkpoints independent of the term arena.
type Assertion struct {
	Value Handle
}

// NewAssertion wraps h, which must have boolean type.
func NewAssertion(s *Store, h Handle) Assertion {
	assertx.True(s.Type(h).IsBoolean(), "term: assertion value must be boolean, got %s", s.Type(h))
	return Assertion{Value: h}
}

// IsEmpty reports whether a is the zero Assertion (no constraint).
func (a Assertion) IsEmpty() bool { return a.Value == 0 }

// Not returns the negation of a.
func (a Assertion) Not(s *Store) Assertion {
	return Assertion{Value: NewUnOp(s, Not, a.Value, BoolType)}
}

// AssertionList is the ordered path condition accumulated along a
// Context, with checkpoint/restore so a transform that forks and later
// abandons a branch can roll back cleanly (spec.md §4.2).
//
// proven tracks how much of items was jointly proven SAT by the most
// recent successful Check/Resolve call made with an empty extra
// assertion (spec.md §4.2 "unproven() returns the suffix not yet known
// SAT in isolation", §4.6 "solver implementations may use it to avoid
// re-encoding"); it is advanced by MarkProven, which the solver facade
// calls after such a query comes back SAT.
type AssertionList struct {
	items  []Assertion
	proven int
}

// Insert appends a to the list, skipping the constant-true assertion
// (spec.md §4.1 "Insert of a trivially-true assertion is a no-op").
func (l *AssertionList) Insert(s *Store, a Assertion) {
	if a.IsEmpty() || s.IsConstTrue(a.Value) {
		return
	}
	l.items = append(l.items, a)
}

// Checkpoint returns a mark that Restore can later roll back to.
func (l *AssertionList) Checkpoint() int { return len(l.items) }

// Restore truncates the list back to a previously returned Checkpoint. If
// mark falls before the proven mark, the proven mark is clamped to it: the
// surviving prefix remains correctly proven (it was part of the larger
// jointly-SAT list), but items[mark:] are no longer in the list to index.
func (l *AssertionList) Restore(mark int) {
	assertx.True(mark >= 0 && mark <= len(l.items), "term: restore mark %d out of range [0,%d]", mark, len(l.items))
	l.items = l.items[:mark]
	if l.proven > mark {
		l.proven = mark
	}
}

// MarkProven records that items[:Checkpoint()] was just proven SAT by a
// successful Check/Resolve call with an empty extra assertion, so a later
// Unproven call need only look at assertions inserted since.
func (l *AssertionList) MarkProven() { l.proven = len(l.items) }

// Unproven reports whether the list holds any assertion, among those
// inserted since the last MarkProven, that is not a known constant-true
// value, i.e. whether the solver actually needs consulting (spec.md §4.2).
func (l *AssertionList) Unproven(s *Store) bool {
	for _, a := range l.items[l.proven:] {
		if !s.IsConstTrue(a.Value) {
			return true
		}
	}
	return false
}

// Len returns the number of assertions currently held.
func (l *AssertionList) Len() int { return len(l.items) }

// Items returns the assertions in insertion order. Callers must not
// mutate the returned slice.
func (l *AssertionList) Items() []Assertion { return l.items }

// Clone returns an independent copy sharing no backing array with l, used
// when a Context forks (spec.md §4.4 ForkOnce/Fork). The proven prefix is
// shared by both copies, since it was true of the path condition before
// either diverged.
func (l *AssertionList) Clone() AssertionList {
	cp := make([]Assertion, len(l.items))
	copy(cp, l.items)
	return AssertionList{items: cp, proven: l.proven}
}
