package heap

import (
	"testing"

	"github.com/symexec/engine/internal/smttest"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

func twoAllocHeap(s *term.Store) (*Heap, *Allocation, *Allocation) {
	h := NewHeap(HeapDynamic, 32)
	a := NewAllocation(1, term.NewConstInt(s, 0, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	b := NewAllocation(2, term.NewConstInt(s, 16, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	h = h.Insert(a).Insert(b)
	return h, a, b
}

// TestResolveSoundness is spec.md §8's resolution soundness invariant:
// for every candidate heap.Resolve returns, path_condition ∧ (ptr ∈
// candidate's allocation) is SAT; for every allocation it does not
// return, that same conjunction is UNSAT.
func TestResolveSoundness(t *testing.T) {
	s := term.NewStore()
	h, a, b := twoAllocHeap(s)

	addr := term.NewSymbolic(s, term.NamedSymbol("p"), term.IntType(32))
	// Constrain p to exactly {2, 17}: 2 lies in A [0,4), 17 lies in B [16,20).
	inA := term.NewICmp(s, term.IEq, addr, term.NewConstInt(s, 2, 32))
	inB := term.NewICmp(s, term.IEq, addr, term.NewConstInt(s, 17, 32))
	pc := term.NewAssertion(s, term.NewBinOp(s, term.Or, inA, inB))
	var assertions term.AssertionList
	assertions.Insert(s, pc)

	solver := &smttest.BruteForceSolver{Domain: []uint64{2, 17, 100}}
	ptr := UnresolvedPointer(addr)

	got, err := h.Resolve(s, solver, &assertions, ptr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Resolve returned %d candidates, want 2: %+v", len(got), got)
	}
	if got[0].Alloc != a.ID || got[1].Alloc != b.ID {
		t.Fatalf("Resolve candidates out of deterministic order: %+v", got)
	}

	// Directly verify the invariant for both allocations.
	for _, alloc := range []*Allocation{a, b} {
		candidate := term.NewAssertion(s, ptrInAllocation(s, addr, alloc))
		res, err := solver.Check(s, &assertions, candidate)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if res.Kind != smt.SAT {
			t.Fatalf("allocation %d: path_condition ∧ candidate should be SAT, got %s", alloc.ID, res.Kind)
		}
	}
}

func TestResolveSoundnessExcludesUnreachableAllocation(t *testing.T) {
	s := term.NewStore()
	h := NewHeap(HeapDynamic, 32)
	a := NewAllocation(1, term.NewConstInt(s, 0, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	c := NewAllocation(3, term.NewConstInt(s, 32, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	h = h.Insert(a).Insert(c)

	addr := term.NewSymbolic(s, term.NamedSymbol("p"), term.IntType(32))
	pc := term.NewAssertion(s, term.NewICmp(s, term.IEq, addr, term.NewConstInt(s, 2, 32)))
	var assertions term.AssertionList
	assertions.Insert(s, pc)

	solver := &smttest.BruteForceSolver{Domain: []uint64{2, 32, 33, 34, 35}}
	got, err := h.Resolve(s, solver, &assertions, UnresolvedPointer(addr))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || got[0].Alloc != a.ID {
		t.Fatalf("Resolve = %+v, want exactly allocation %d", got, a.ID)
	}
}

// TestResolveKeepsUnknownCandidates is spec.md §5's "Cancellation" rule
// applied to resolution: an allocation the solver can't classify must
// stay in the resolved set, not be silently dropped like an UNSAT one.
func TestResolveKeepsUnknownCandidates(t *testing.T) {
	s := term.NewStore()
	h, a, b := twoAllocHeap(s)

	addr := term.NewSymbolic(s, term.NamedSymbol("p"), term.IntType(32))
	var assertions term.AssertionList

	got, err := h.Resolve(s, smttest.UnknownSolver{}, &assertions, UnresolvedPointer(addr))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 2 || got[0].Alloc != a.ID || got[1].Alloc != b.ID {
		t.Fatalf("Resolve under an Unknown-only solver = %+v, want both allocations kept", got)
	}
}

func TestResolveResolvedPointerIsIdentity(t *testing.T) {
	s := term.NewStore()
	h, a, _ := twoAllocHeap(s)
	ptr := ResolvedPointer(h.ID(), a.ID, term.NewConstInt(s, 1, 32))

	var assertions term.AssertionList
	got, err := h.Resolve(s, &smttest.BruteForceSolver{}, &assertions, ptr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || got[0] != ptr {
		t.Fatalf("Resolve(resolved ptr) = %+v, want [ptr] unchanged", got)
	}
}

func TestCheckValidResolvedPointer(t *testing.T) {
	s := term.NewStore()
	h, a, _ := twoAllocHeap(s)
	ptr := ResolvedPointer(h.ID(), a.ID, term.NewConstInt(s, 0, 32))

	valid := h.CheckValid(s, ptr, term.NewConstInt(s, 4, 32))
	if !s.IsConstTrue(valid.Value) {
		t.Fatalf("check_valid(0,4) on a size-4 allocation should fold true, got %s", s.String(valid.Value))
	}
}

func TestCheckValidUnresolvedPointerNoAllocations(t *testing.T) {
	s := term.NewStore()
	h := NewHeap(HeapDynamic, 32)
	addr := term.NewSymbolic(s, term.NamedSymbol("p"), term.IntType(32))
	valid := h.CheckValid(s, UnresolvedPointer(addr), term.NewConstInt(s, 4, 32))
	if !s.IsConstFalse(valid.Value) {
		t.Fatalf("check_valid against an empty heap should fold false, got %s", s.String(valid.Value))
	}
}
