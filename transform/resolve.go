package transform

import (
	"github.com/symexec/engine/path"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
)

// Resolve is the forking pointer-resolution primitive (spec.md §4.5
// "resolve(pointer_arg, type, die_on_failure) → Value"), grounded almost
// line-for-line on caffeine's TransformBuilder::resolve:
//
//  1. Compute valid = heap.check_valid(ptr, size_of(type)).
//  2. Query context.check(¬valid); if SAT, log a failure. If
//     die_on_failure, terminate this path without propagating a successor.
//  3. Otherwise call heap.resolve(solver, ptr) for the feasible candidates.
//  4. Fork the context once per candidate, adding check_inbounds and
//     (for a previously-unresolved pointer) backprop, then bind the
//     candidate pointer to this operation's result.
func (b *Builder) Resolve(ptrArg Argument, typ term.Type, dieOnFailure bool) Value {
	return b.transformFork(func(st *state, insert func(*state), fail func(term.Assertion)) error {
		resultID := st.current()
		store := st.ctx.Module.Store
		layout := st.ctx.Module.Layout

		unresolved := st.lookup(ptrArg).AsScalar().Pointer()
		size := term.NewConstInt(store, layout.TypeStoreSize(typ), layout.PointerWidth)

		valid := st.ctx.CheckValid(store, unresolved, size)
		invalid := valid.Not(store)

		res, err := st.ctx.Check(store, st.solver, invalid)
		if err != nil {
			return err
		}
		// Unknown must conservatively be treated as a potential
		// invalid-pointer failure rather than silently ignored
		// (spec.md §5 "Cancellation").
		if res.Kind != smt.UNSAT {
			if st.logger != nil {
				if err := st.logger.LogFailure(store, st.ctx, st.solver, invalid, "invalid pointer load/store"); err != nil {
					return err
				}
			}
			if dieOnFailure {
				fail(invalid)
				return nil
			}
		}

		candidates, err := st.ctx.PtrResolve(store, st.solver, unresolved)
		if err != nil {
			return err
		}

		forks := st.ctx.Fork(len(candidates))
		for i, ptr := range candidates {
			fork := forks[i]
			alloc := fork.PtrAllocation(ptr)
			fork.Add(store, alloc.CheckInbounds(store, ptr.Offset, size))
			if !unresolved.IsResolved() {
				fork.Backprop(store, unresolved, ptr)
			}

			newState := st.fork(fork)
			newState.insert(resultID, path.Scalar(path.ScalarPointer(ptr)))
			insert(newState)
		}
		return nil
	})
}
