package transform

import (
	"github.com/symexec/engine/heap"
	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/path"
	"github.com/symexec/engine/term"
)

// Read looks up the pointer argument, fetches its owning allocation, and
// performs a typed read (spec.md §4.5 "read(pointer_arg, type) → Value").
// The pointer must already be resolved — typically the output of a prior
// Resolve step in the same Builder.
func (b *Builder) Read(ptrArg Argument, typ term.Type) Value {
	return b.transform(func(st *state) {
		ptr := st.lookup(ptrArg).AsScalar().Pointer()
		alloc := st.ctx.PtrAllocation(ptr)
		store := st.ctx.Module.Store
		littleEndian := st.ctx.Module.Layout.LittleEndian

		var val path.LLVMValue
		switch {
		case typ.Kind == term.TVector:
			val = path.ReadVector(store, alloc, ptr.Offset, typ, littleEndian)
		case typ.Kind == term.TPointer:
			raw := alloc.Read(store, ptr.Offset, typ, littleEndian)
			val = path.Scalar(path.ScalarPointer(heap.UnresolvedPointer(raw)))
		default:
			raw := alloc.Read(store, ptr.Offset, typ, littleEndian)
			val = path.Scalar(path.ScalarTerm(raw))
		}
		st.insert(st.current(), val)
	})
}

// Write is the dual of Read (spec.md §4.5 "write(pointer_arg, value_arg,
// type)").
func (b *Builder) Write(ptrArg, valueArg Argument, typ term.Type) Value {
	return b.transform(func(st *state) {
		ptr := st.lookup(ptrArg).AsScalar().Pointer()
		val := st.lookup(valueArg)

		store := st.ctx.Module.Store
		littleEndian := st.ctx.Module.Layout.LittleEndian
		alloc := st.ctx.PtrAllocation(ptr)

		if typ.Kind == term.TVector {
			updated := path.WriteVector(store, alloc, ptr.Offset, val, typ, littleEndian)
			st.ctx.Heaps[ptr.Heap] = st.ctx.Heaps[ptr.Heap].Update(updated)
			return
		}

		valScalar := val.AsScalar()
		var raw term.Handle
		if valScalar.IsPointer() {
			ptr2 := valScalar.Pointer()
			if ptr2.IsResolved() {
				alloc2, ok := st.ctx.Heaps[ptr2.Heap].Get(ptr2.Alloc)
				assertx.True(ok, "transform: write references missing allocation %d", ptr2.Alloc)
				raw = term.NewBinOp(store, term.Add, alloc2.Base, ptr2.Offset)
			} else {
				raw = ptr2.Address
			}
		} else {
			raw = valScalar.Term()
		}

		updated := alloc.Write(store, ptr.Offset, raw, typ, littleEndian)
		st.ctx.Heaps[ptr.Heap] = st.ctx.Heaps[ptr.Heap].Update(updated)
	})
}
