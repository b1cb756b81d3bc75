package transform

import (
	"testing"

	"github.com/symexec/engine/heap"
	"github.com/symexec/engine/internal/smttest"
	"github.com/symexec/engine/lir"
	"github.com/symexec/engine/path"
	"github.com/symexec/engine/term"
)

// TestExecuteContinueSingleContext is spec.md §4.5's "exactly one context
// survived" outcome: a builder with only non-forking steps always yields
// Continue.
func TestExecuteContinueSingleContext(t *testing.T) {
	mod := testModule()
	s := mod.Store
	ctx := newTestCtx(mod)

	dst := &lir.Value{Name: "x", Typ: term.IntType(32)}
	b := NewBuilder()
	b.Assign(dst, Literal(path.Scalar(path.ScalarTerm(term.NewConstInt(s, 7, 32)))))

	result, err := b.Execute(ctx, &smttest.BruteForceSolver{}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome != Continue {
		t.Fatalf("Outcome = %v, want Continue", result.Outcome)
	}
	if len(result.Contexts) != 1 {
		t.Fatalf("len(Contexts) = %d, want 1", len(result.Contexts))
	}
	val, ok := result.Contexts[0].Top().Lookup(dst)
	if !ok || val.AsScalar().Term() != term.NewConstInt(s, 7, 32) {
		t.Fatalf("assigned value not bound correctly")
	}
}

// TestExecuteDeadWhenAllPathsPruned is spec.md §4.5's "every path was
// pruned" outcome: resolving against an empty heap with die_on_failure
// true always kills the only in-flight state.
func TestExecuteDeadWhenAllPathsPruned(t *testing.T) {
	mod := testModule()
	s := mod.Store
	ctx := newTestCtx(mod)

	addr := term.NewSymbolic(s, term.NamedSymbol("p"), term.IntType(32))
	b := NewBuilder()
	b.Resolve(Literal(path.Scalar(path.ScalarPointer(heap.UnresolvedPointer(addr)))), term.IntType(32), true)

	result, err := b.Execute(ctx, &smttest.BruteForceSolver{}, &recordingFailureLogger{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome != Dead {
		t.Fatalf("Outcome = %v, want Dead", result.Outcome)
	}
	if len(result.Contexts) != 0 {
		t.Fatalf("len(Contexts) = %d, want 0", len(result.Contexts))
	}
	if result.Failing == nil {
		t.Fatalf("Failing = nil, want the invalid-pointer assertion that killed the path")
	}
}

// TestExecuteForkedWhenMultipleContextsSurvive is spec.md §4.5's "two or
// more contexts survived" outcome.
func TestExecuteForkedWhenMultipleContextsSurvive(t *testing.T) {
	mod := testModule()
	s := mod.Store
	ctx := newTestCtx(mod)

	a := heap.NewAllocation(1, term.NewConstInt(s, 0, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	b2 := heap.NewAllocation(2, term.NewConstInt(s, 16, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	ctx.Heaps[heap.HeapDynamic] = ctx.Heaps[heap.HeapDynamic].Insert(a).Insert(b2)

	addr := term.NewSymbolic(s, term.NamedSymbol("p"), term.IntType(32))
	eq2 := term.NewICmp(s, term.IEq, addr, term.NewConstInt(s, 2, 32))
	eq17 := term.NewICmp(s, term.IEq, addr, term.NewConstInt(s, 17, 32))
	ctx.Add(s, term.NewAssertion(s, term.NewBinOp(s, term.Or, eq2, eq17)))

	b := NewBuilder()
	b.Resolve(Literal(path.Scalar(path.ScalarPointer(heap.UnresolvedPointer(addr)))), term.IntType(8), false)

	result, err := b.Execute(ctx, &smttest.BruteForceSolver{Domain: []uint64{2, 17}}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome != Forked {
		t.Fatalf("Outcome = %v, want Forked", result.Outcome)
	}
	if len(result.Contexts) != 2 {
		t.Fatalf("len(Contexts) = %d, want 2", len(result.Contexts))
	}
}
