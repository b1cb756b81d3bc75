package transform

import (
	"testing"

	"github.com/symexec/engine/heap"
	"github.com/symexec/engine/internal/smttest"
	"github.com/symexec/engine/lir"
	"github.com/symexec/engine/path"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

func testModule() *lir.Module {
	mod := lir.NewModule(lir.DataLayout{PointerWidth: 32, LittleEndian: true})
	fn := &lir.Function{Name: "f", Blocks: []*lir.Block{{Name: "entry"}}}
	mod.Functions[fn.Name] = fn
	return mod
}

func newTestCtx(mod *lir.Module) *path.Context {
	ctx := path.NewContext(mod)
	ctx.Push(mod.Functions["f"], nil)
	return ctx
}

type recordingFailureLogger struct {
	calls    int
	messages []string
}

func (l *recordingFailureLogger) LogFailure(s *term.Store, ctx *path.Context, solver smt.Solver, assertion term.Assertion, message string) error {
	l.calls++
	l.messages = append(l.messages, message)
	return nil
}

// TestResolveForksPerCandidate is spec.md §8 scenario 4: two allocations
// A(base=0,size=4) and B(base=16,size=4), an unresolved pointer whose
// address is constrained to exactly {2, 17}, resolved with an i8 load
// type. Resolve must fork into exactly two successors, one bound to A at
// offset 2 and one to B at offset 1.
func TestResolveForksPerCandidate(t *testing.T) {
	mod := testModule()
	s := mod.Store
	ctx := newTestCtx(mod)

	a := heap.NewAllocation(1, term.NewConstInt(s, 0, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	b := heap.NewAllocation(2, term.NewConstInt(s, 16, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	ctx.Heaps[heap.HeapDynamic] = ctx.Heaps[heap.HeapDynamic].Insert(a).Insert(b)

	addr := term.NewSymbolic(s, term.NamedSymbol("p"), term.IntType(32))
	eq2 := term.NewICmp(s, term.IEq, addr, term.NewConstInt(s, 2, 32))
	eq17 := term.NewICmp(s, term.IEq, addr, term.NewConstInt(s, 17, 32))
	ctx.Add(s, term.NewAssertion(s, term.NewBinOp(s, term.Or, eq2, eq17)))

	dst := &lir.Value{Name: "resolved", Typ: term.PointerType}
	b_ := NewBuilder()
	rv := b_.Resolve(Literal(path.Scalar(path.ScalarPointer(heap.UnresolvedPointer(addr)))), term.IntType(8), false)
	b_.Assign(dst, FromValue(rv))

	solver := &smttest.BruteForceSolver{Domain: []uint64{2, 17}}
	result, err := b_.Execute(ctx, solver, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome != Forked {
		t.Fatalf("Outcome = %v, want Forked", result.Outcome)
	}
	if len(result.Contexts) != 2 {
		t.Fatalf("len(Contexts) = %d, want 2", len(result.Contexts))
	}

	gotAllocs := map[heap.AllocID]bool{}
	for _, fc := range result.Contexts {
		val, ok := fc.Top().Lookup(dst)
		if !ok {
			t.Fatalf("resolved value not bound in forked context's top frame")
		}
		ptr := val.AsScalar().Pointer()
		if !ptr.IsResolved() {
			t.Fatalf("forked pointer is not resolved")
		}
		gotAllocs[ptr.Alloc] = true
	}
	if !gotAllocs[a.ID] || !gotAllocs[b.ID] {
		t.Fatalf("forked contexts do not cover both allocations: %+v", gotAllocs)
	}
}

// TestResolveLogsInvalidAccess is spec.md §8 scenario 5: a size-4
// allocation and a completely unconstrained unresolved pointer.
// resolve(type=i32, die_on_failure=false) must log a failure ("invalid
// pointer load/store") since out-of-bounds addresses are feasible, but
// still produce the in-bounds successor rather than killing the path.
func TestResolveLogsInvalidAccess(t *testing.T) {
	mod := testModule()
	s := mod.Store
	ctx := newTestCtx(mod)

	a := heap.NewAllocation(1, term.NewConstInt(s, 0, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	ctx.Heaps[heap.HeapDynamic] = ctx.Heaps[heap.HeapDynamic].Insert(a)

	addr := term.NewSymbolic(s, term.NamedSymbol("p"), term.IntType(32))

	dst := &lir.Value{Name: "resolved", Typ: term.PointerType}
	b := NewBuilder()
	rv := b.Resolve(Literal(path.Scalar(path.ScalarPointer(heap.UnresolvedPointer(addr)))), term.IntType(32), false)
	b.Assign(dst, FromValue(rv))

	logger := &recordingFailureLogger{}
	solver := &smttest.BruteForceSolver{Domain: []uint64{0, 100}}
	result, err := b.Execute(ctx, solver, logger)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if logger.calls != 1 {
		t.Fatalf("LogFailure called %d times, want 1", logger.calls)
	}
	if logger.messages[0] != "invalid pointer load/store" {
		t.Fatalf("LogFailure message = %q, want %q", logger.messages[0], "invalid pointer load/store")
	}
	if result.Outcome != Continue {
		t.Fatalf("Outcome = %v, want Continue (the in-bounds successor should survive)", result.Outcome)
	}
	val, ok := result.Contexts[0].Top().Lookup(dst)
	if !ok {
		t.Fatalf("resolved value not bound")
	}
	if !val.AsScalar().Pointer().IsResolved() || val.AsScalar().Pointer().Alloc != a.ID {
		t.Fatalf("surviving fork not resolved against allocation %d", a.ID)
	}
}

// TestResolveReportsInvalidAccessOnUnknown is spec.md §5's "Cancellation"
// rule applied to resolve's invalid-pointer check: when the solver can't
// classify ¬valid, it must be treated like a potential failure (SAT), not
// ignored like UNSAT — LogFailure still fires, and a die_on_failure=true
// resolve still terminates the path.
func TestResolveReportsInvalidAccessOnUnknown(t *testing.T) {
	mod := testModule()
	s := mod.Store
	ctx := newTestCtx(mod)

	a := heap.NewAllocation(1, term.NewConstInt(s, 0, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	ctx.Heaps[heap.HeapDynamic] = ctx.Heaps[heap.HeapDynamic].Insert(a)

	addr := term.NewSymbolic(s, term.NamedSymbol("p"), term.IntType(32))

	dst := &lir.Value{Name: "resolved", Typ: term.PointerType}
	b := NewBuilder()
	rv := b.Resolve(Literal(path.Scalar(path.ScalarPointer(heap.UnresolvedPointer(addr)))), term.IntType(32), true)
	b.Assign(dst, FromValue(rv))

	logger := &recordingFailureLogger{}
	result, err := b.Execute(ctx, smttest.UnknownSolver{}, logger)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if logger.calls != 1 {
		t.Fatalf("LogFailure called %d times, want 1", logger.calls)
	}
	if result.Outcome != Dead {
		t.Fatalf("Outcome = %v, want Dead (die_on_failure=true terminates on an unresolved Unknown)", result.Outcome)
	}
}

func TestResolveAlreadyResolvedPointerIsIdentity(t *testing.T) {
	mod := testModule()
	s := mod.Store
	ctx := newTestCtx(mod)

	a := heap.NewAllocation(1, term.NewConstInt(s, 0, 32), term.NewConstInt(s, 4, 32), term.NewSymbolicAlloc(s, 32, 4, term.NewConstInt(s, 0, 8)), 32)
	ctx.Heaps[heap.HeapDynamic] = ctx.Heaps[heap.HeapDynamic].Insert(a)

	ptr := heap.ResolvedPointer(heap.HeapDynamic, a.ID, term.NewConstInt(s, 1, 32))
	dst := &lir.Value{Name: "resolved", Typ: term.PointerType}
	b := NewBuilder()
	rv := b.Resolve(Literal(path.Scalar(path.ScalarPointer(ptr))), term.IntType(8), true)
	b.Assign(dst, FromValue(rv))

	result, err := b.Execute(ctx, &smttest.BruteForceSolver{}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Outcome != Continue {
		t.Fatalf("Outcome = %v, want Continue", result.Outcome)
	}
	val, _ := result.Contexts[0].Top().Lookup(dst)
	if val.AsScalar().Pointer() != ptr {
		t.Fatalf("resolving an already-resolved pointer should be an identity fork")
	}
}
