package path

import (
	"fmt"
	"sort"
	"strings"

	"github.com/symexec/engine/heap"
	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/lir"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

// Context is the exclusive owner of one execution path's stack, path
// condition and heaps (spec.md §4.4 "Context"), grounded in the teacher's
// ExecutionState. Unlike glee (one flat heap), a Context here owns one
// heap.Heap per heap.HeapID — stack/global/dynamic — mirroring the
// original engine's per-heap-id allocation tables (ctx.heaps[id][alloc]
// in TransformBuilder.cpp's resolve()).
type Context struct {
	Module *lir.Module
	Stack  []*StackFrame
	Heaps  map[heap.HeapID]*heap.Heap

	Assertions term.AssertionList

	covered map[string]map[int]struct{}
}

// NewContext returns a fresh Context over mod with empty heaps and an
// empty stack; the caller pushes the entry frame.
func NewContext(mod *lir.Module) *Context {
	return &Context{
		Module: mod,
		Heaps: map[heap.HeapID]*heap.Heap{
			heap.HeapStack:   heap.NewHeap(heap.HeapStack, mod.Layout.PointerWidth),
			heap.HeapGlobal:  heap.NewHeap(heap.HeapGlobal, mod.Layout.PointerWidth),
			heap.HeapDynamic: heap.NewHeap(heap.HeapDynamic, mod.Layout.PointerWidth),
		},
		covered: make(map[string]map[int]struct{}),
	}
}

// Push starts a new activation of fn, returning its frame.
func (c *Context) Push(fn *lir.Function, retDest *lir.Value) *StackFrame {
	f := NewStackFrame(fn, retDest)
	c.Stack = append(c.Stack, f)
	return f
}

// Top returns the active (innermost) frame.
func (c *Context) Top() *StackFrame {
	assertx.True(len(c.Stack) > 0, "path: Top() on an empty stack")
	return c.Stack[len(c.Stack)-1]
}

// Pop discards the top frame (spec.md §4.4 "pop() discards the top frame;
// the caller must have already installed the return value, if any, in the
// caller frame").
func (c *Context) Pop() {
	assertx.True(len(c.Stack) > 0, "path: Pop() on an empty stack")
	c.Stack = c.Stack[:len(c.Stack)-1]
}

// ForkOnce returns an independent value-copy of c. Because terms are
// hash-consed and heaps are persistent maps, this is cheap (spec.md §4.4
// "because terms are shared, copies are cheap").
func (c *Context) ForkOnce() *Context {
	stack := make([]*StackFrame, len(c.Stack))
	for i, f := range c.Stack {
		stack[i] = f.Clone()
	}
	heaps := make(map[heap.HeapID]*heap.Heap, len(c.Heaps))
	for id, h := range c.Heaps {
		heaps[id] = h
	}
	covered := make(map[string]map[int]struct{}, len(c.covered))
	for fn, lines := range c.covered {
		cp := make(map[int]struct{}, len(lines))
		for l := range lines {
			cp[l] = struct{}{}
		}
		covered[fn] = cp
	}
	return &Context{
		Module:     c.Module,
		Stack:      stack,
		Heaps:      heaps,
		Assertions: c.Assertions.Clone(),
		covered:    covered,
	}
}

// Fork returns n independent copies of c (spec.md §4.4 "fork(n) yields n
// independent copies").
func (c *Context) Fork(n int) []*Context {
	out := make([]*Context, n)
	for i := range out {
		out[i] = c.ForkOnce()
	}
	return out
}

// Add inserts an assertion into the path condition (spec.md §4.4 "add(a):
// delegates to AssertionList.insert").
func (c *Context) Add(s *term.Store, a term.Assertion) { c.Assertions.Insert(s, a) }

// Check forwards (path_condition, extra) to the solver for a SAT/UNSAT/
// Unknown verdict without a model (spec.md §4.4 "check").
func (c *Context) Check(s *term.Store, solver smt.Solver, extra term.Assertion) (smt.Result, error) {
	return solver.Check(s, &c.Assertions, extra)
}

// Resolve is identical to Check but also requests a model on SAT
// (spec.md §4.4 "resolve").
func (c *Context) Resolve(s *term.Store, solver smt.Solver, extra term.Assertion) (smt.Result, error) {
	return solver.Resolve(s, &c.Assertions, extra)
}

// Backprop records the equality between an unresolved pointer's address
// and a resolved candidate's concrete address, strengthening future
// queries (spec.md §4.4 "backprop").
func (c *Context) Backprop(s *term.Store, unresolved, resolved heap.Pointer) {
	assertx.True(!unresolved.IsResolved(), "path: backprop source pointer must be unresolved")
	assertx.True(resolved.IsResolved(), "path: backprop target pointer must be resolved")

	alloc, ok := c.Heaps[resolved.Heap].Get(resolved.Alloc)
	assertx.True(ok, "path: backprop target references missing allocation %d", resolved.Alloc)

	addr := term.NewBinOp(s, term.Add, alloc.Base, resolved.Offset)
	eq := term.NewICmp(s, term.IEq, unresolved.Address, addr)
	c.Add(s, term.NewAssertion(s, eq))
}

// CheckValid returns the assertion that ptr is a valid access of lenBytes
// bytes (spec.md §4.3 "check_valid"). For an unresolved pointer this is
// the disjunction over every heap's allocations, in deterministic HeapID
// order.
func (c *Context) CheckValid(s *term.Store, ptr heap.Pointer, lenBytes term.Handle) term.Assertion {
	if ptr.IsResolved() {
		return c.Heaps[ptr.Heap].CheckValid(s, ptr, lenBytes)
	}

	disjunction := term.ConstBool(s, false)
	for _, id := range c.sortedHeapIDs() {
		clause := c.Heaps[id].CheckValid(s, ptr, lenBytes)
		disjunction = term.NewBinOp(s, term.Or, disjunction, clause.Value)
	}
	return term.NewAssertion(s, disjunction)
}

// PtrResolve returns every feasible resolved candidate for ptr, searching
// every heap in deterministic order (spec.md §4.3 "resolve").
func (c *Context) PtrResolve(s *term.Store, solver smt.Solver, ptr heap.Pointer) ([]heap.Pointer, error) {
	if ptr.IsResolved() {
		return []heap.Pointer{ptr}, nil
	}

	var out []heap.Pointer
	for _, id := range c.sortedHeapIDs() {
		candidates, err := c.Heaps[id].Resolve(s, solver, &c.Assertions, ptr)
		if err != nil {
			return nil, err
		}
		out = append(out, candidates...)
	}
	return out, nil
}

func (c *Context) sortedHeapIDs() []heap.HeapID {
	ids := make([]heap.HeapID, 0, len(c.Heaps))
	for id := range c.Heaps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PtrAllocation returns the allocation owning a resolved pointer. Total
// over resolved pointers (spec.md §3 invariant).
func (c *Context) PtrAllocation(ptr heap.Pointer) *heap.Allocation {
	assertx.True(ptr.IsResolved(), "path: PtrAllocation on an unresolved pointer")
	alloc, ok := c.Heaps[ptr.Heap].Get(ptr.Alloc)
	assertx.True(ok, "path: resolved pointer references missing allocation %d", ptr.Alloc)
	return alloc
}

// MarkCovered records that instruction index pc in function fn executed
// on this path (spec.md SUPPLEMENTED FEATURES "coverage tracking").
func (c *Context) MarkCovered(fn string, pc int) {
	lines, ok := c.covered[fn]
	if !ok {
		lines = make(map[int]struct{})
		c.covered[fn] = lines
	}
	lines[pc] = struct{}{}
}

// Covered returns the per-function set of covered instruction indices.
func (c *Context) Covered() map[string]map[int]struct{} { return c.covered }

// Dump renders the context's stack, heaps and path condition for
// debugging (spec.md SUPPLEMENTED FEATURES "Dump/debug rendering").
func (c *Context) Dump(s *term.Store) string {
	var b strings.Builder
	fmt.Fprintf(&b, "context: %d frame(s), %d assertion(s)\n", len(c.Stack), c.Assertions.Len())
	for _, f := range c.Stack {
		b.WriteString(f.Dump())
	}
	for _, id := range c.sortedHeapIDs() {
		fmt.Fprintf(&b, "heap %d: %d allocation(s)\n", id, c.Heaps[id].Len())
	}
	for _, a := range c.Assertions.Items() {
		fmt.Fprintf(&b, "  assert %s\n", s.String(a.Value))
	}
	return b.String()
}
