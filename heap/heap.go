package heap

import (
	"github.com/benbjohnson/immutable"

	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

// Heap maps allocation ids to Allocations within one HeapID, backed by an
// immutable.SortedMap so forking a Context (package path) that owns this
// Heap is an O(log n) structural-sharing copy rather than a deep clone —
// exactly the role ExecutionState.heap plays in the teacher's
// execution_state.go.
type Heap struct {
	id       HeapID
	idxWidth uint32
	allocs   *immutable.SortedMap
	nextID   AllocID
}

// NewHeap returns an empty heap for the given HeapID and pointer width.
func NewHeap(id HeapID, idxWidth uint32) *Heap {
	return &Heap{id: id, idxWidth: idxWidth, allocs: immutable.NewSortedMap(&allocIDComparer{})}
}

// ID returns this heap's HeapID.
func (h *Heap) ID() HeapID { return h.id }

// Insert adds alloc to the table, returning a new Heap value (the
// receiver is left unmodified — the same structural-sharing contract as
// the underlying immutable.SortedMap).
func (h *Heap) Insert(alloc *Allocation) *Heap {
	return &Heap{id: h.id, idxWidth: h.idxWidth, allocs: h.allocs.Set(alloc.ID, alloc), nextID: h.nextID}
}

// Update replaces the allocation at id (e.g. after a Write), returning a
// new Heap value.
func (h *Heap) Update(alloc *Allocation) *Heap { return h.Insert(alloc) }

// NextID allocates and returns a fresh AllocID to use with Insert.
func (h *Heap) NextID() (*Heap, AllocID) {
	id := h.nextID
	return &Heap{id: h.id, idxWidth: h.idxWidth, allocs: h.allocs, nextID: h.nextID + 1}, id
}

// Get returns the allocation with the given id, if live.
func (h *Heap) Get(id AllocID) (*Allocation, bool) {
	v, ok := h.allocs.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Allocation), true
}

// Len returns the number of live allocations.
func (h *Heap) Len() int { return h.allocs.Len() }

// allocations returns the live allocations in deterministic (ascending
// AllocID) iteration order, matching spec.md §5 "the order of forked
// successors must be deterministic (iteration order of the heap's
// allocation map)".
func (h *Heap) allocations() []*Allocation {
	out := make([]*Allocation, 0, h.allocs.Len())
	itr := h.allocs.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		out = append(out, v.(*Allocation))
	}
	return out
}

// CheckValid returns the assertion that ptr, read/written for lenBytes
// bytes, is a valid access (spec.md §4.3 "check_valid"): if resolved, the
// named allocation's bounds check; if unresolved, the disjunction over
// every live allocation of "ptr falls in this allocation AND inbounds".
func (h *Heap) CheckValid(s *term.Store, ptr Pointer, lenBytes term.Handle) term.Assertion {
	if ptr.IsResolved() {
		alloc, ok := h.Get(ptr.Alloc)
		assertx.True(ok, "heap: resolved pointer references missing allocation %d", ptr.Alloc)
		return alloc.CheckInbounds(s, ptr.Offset, lenBytes)
	}

	allocs := h.allocations()
	if len(allocs) == 0 {
		return term.NewAssertion(s, term.ConstBool(s, false))
	}

	disjunction := term.ConstBool(s, false)
	for _, alloc := range allocs {
		inAlloc := ptrInAllocation(s, ptr.Address, alloc)
		offset := term.NewBinOp(s, term.Sub, ptr.Address, alloc.Base)
		inbounds := alloc.CheckInbounds(s, offset, lenBytes)
		clause := term.NewBinOp(s, term.And, inAlloc, inbounds.Value)
		disjunction = term.NewBinOp(s, term.Or, disjunction, clause)
	}
	return term.NewAssertion(s, disjunction)
}

// ptrInAllocation asserts address ∈ [base, base+size).
func ptrInAllocation(s *term.Store, address term.Handle, alloc *Allocation) term.Handle {
	end := term.NewBinOp(s, term.Add, alloc.Base, alloc.Size)
	ge := term.NewICmp(s, term.IUge, address, alloc.Base)
	lt := term.NewICmp(s, term.IUlt, address, end)
	return term.NewBinOp(s, term.And, ge, lt)
}

// Resolve returns the vector of feasible resolved pointers consistent
// with pc (spec.md §4.3 "resolve"): if ptr is already resolved, [ptr];
// otherwise every live allocation is queried for (path_condition ∧
// candidate) SAT, and each surviving candidate is returned with its
// in-allocation offset computed as ptr.address − alloc.base. Iteration
// order is the heap's deterministic allocation order (spec.md §5).
func (h *Heap) Resolve(s *term.Store, solver smt.Solver, pc *term.AssertionList, ptr Pointer) ([]Pointer, error) {
	if ptr.IsResolved() {
		return []Pointer{ptr}, nil
	}

	var out []Pointer
	for _, alloc := range h.allocations() {
		candidate := term.NewAssertion(s, ptrInAllocation(s, ptr.Address, alloc))
		res, err := solver.Check(s, pc, candidate)
		if err != nil {
			return nil, err
		}
		// Unknown is not decisive: a candidate allocation the solver can't
		// classify must stay in the resolved set rather than be pruned
		// (spec.md §5 "Cancellation").
		if res.Kind == smt.UNSAT {
			continue
		}
		offset := term.NewBinOp(s, term.Sub, ptr.Address, alloc.Base)
		out = append(out, ResolvedPointer(h.id, alloc.ID, offset))
	}
	return out, nil
}
