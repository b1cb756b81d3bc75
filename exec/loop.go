package exec

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/symexec/engine/heap"
	"github.com/symexec/engine/internal/assertx"
	"github.com/symexec/engine/lir"
	"github.com/symexec/engine/path"
	"github.com/symexec/engine/smt"
	"github.com/symexec/engine/term"
	"github.com/symexec/engine/transform"
)

// Options configures a Loop (SPEC_FULL.md AMBIENT STACK "Configuration":
// no CLI/file config, a plain struct passed to the constructor, matching
// the teacher's Executor.OS/Executor.Arch fields).
type Options struct {
	PointerWidth  uint32
	LittleEndian  bool
	SolverTimeout int // milliseconds; Loop does not read this field
}

// Loop is the execution driver: it repeatedly pulls a context from a
// Searcher, dispatches its next instruction, and routes the outcome to
// the Policy/ContextStore/Searcher collaborators (spec.md §6). Grounded
// on the teacher's Executor.ExecuteNextState and its per-instruction-type
// switch in executeNextInstruction.
type Loop struct {
	Module   *lir.Module
	Solver   smt.Solver
	Searcher Searcher
	Policy   Policy
	Logger   FailureLogger
	Store    ContextStore
	Options  Options

	root     *path.Context
	children map[*path.Context][]*path.Context

	log      *logrus.Entry
	allocSeq uint64
}

// NewLoop wires the collaborators into a Loop.
func NewLoop(mod *lir.Module, solver smt.Solver, searcher Searcher, policy Policy, logger FailureLogger, store ContextStore, opts Options) *Loop {
	return &Loop{
		Module:   mod,
		Solver:   solver,
		Searcher: searcher,
		Policy:   policy,
		Logger:   logger,
		Store:    store,
		Options:  opts,
		children: make(map[*path.Context][]*path.Context),
		log:      logrus.WithField("component", "exec"),
	}
}

// Run seeds the searcher with entry and drives it to exhaustion,
// dispatching one instruction per SelectState round.
func (l *Loop) Run(entry *path.Context) error {
	if l.root == nil {
		l.root = entry
	}
	l.Searcher.AddState(entry)

	for {
		ctx := l.Searcher.SelectState()
		if ctx == nil {
			return nil
		}
		if err := l.step(ctx); err != nil {
			return err
		}
	}
}

// step dispatches the instruction at ctx's program counter and routes the
// result.
func (l *Loop) step(ctx *path.Context) error {
	frame := ctx.Top()
	inst := frame.Instr()
	if inst == nil {
		return l.complete(ctx, Success, nil)
	}

	logEntry := l.log.WithFields(logrus.Fields{"op": string(inst.Op), "fn": frame.Fn.Name, "pc": frame.PC})
	logEntry.Debug("dispatch")

	ctx.MarkCovered(frame.Fn.Name, frame.PC)

	switch inst.Op {
	case lir.OpAlloc:
		l.execAlloc(ctx, inst)
		l.Searcher.AddState(ctx)
		return nil

	case lir.OpBinOp:
		l.execBinOp(ctx, inst)
		l.Searcher.AddState(ctx)
		return nil

	case lir.OpUnOp:
		l.execUnOp(ctx, inst)
		l.Searcher.AddState(ctx)
		return nil

	case lir.OpICmp:
		l.execICmp(ctx, inst)
		l.Searcher.AddState(ctx)
		return nil

	case lir.OpFCmp:
		l.execFCmp(ctx, inst)
		l.Searcher.AddState(ctx)
		return nil

	case lir.OpSelect:
		l.execSelect(ctx, inst)
		l.Searcher.AddState(ctx)
		return nil

	case lir.OpPhi:
		l.execPhi(ctx, inst)
		l.Searcher.AddState(ctx)
		return nil

	case lir.OpAssert:
		return l.execAssert(ctx, inst)

	case lir.OpBranch:
		frame.Jump(inst.Targets[0])
		l.Searcher.AddState(ctx)
		return nil

	case lir.OpCondBr:
		return l.execCondBr(ctx, inst)

	case lir.OpLoad:
		return l.execLoad(ctx, inst)

	case lir.OpStore:
		return l.execStore(ctx, inst)

	case lir.OpCall:
		l.execCall(ctx, inst)
		l.Searcher.AddState(ctx)
		return nil

	case lir.OpReturn:
		return l.execReturn(ctx, inst)

	default:
		assertx.True(false, "exec: unhandled opcode %s", inst.Op)
		return nil
	}
}

// complete reports outcome to Policy and stops exploring ctx.
func (l *Loop) complete(ctx *path.Context, outcome Outcome, failing *term.Assertion) error {
	if l.Policy != nil {
		l.Policy.OnPathComplete(ctx, outcome, failing)
	}
	return nil
}

func (l *Loop) operand(frame *path.StackFrame, v *lir.Value) path.LLVMValue {
	val, ok := frame.Lookup(v)
	assertx.True(ok, "exec: %q is not bound in the active frame", v.Name)
	return val
}

func (l *Loop) execAlloc(ctx *path.Context, inst *lir.Instruction) {
	frame := ctx.Top()
	store := l.Module.Store

	size := l.Module.Layout.TypeStoreSize(inst.Type)
	// A fresh allocation's contents are modeled as one uniform symbolic
	// byte (spec.md §4.6 "alloc(default, size)"), not per-byte-independent
	// freedom — matching the original C++ source's visitAllocOp.
	defaultByte := term.NewSymbolic(store, term.NumberedSymbol(l.nextAllocSeq()), term.IntType(8))
	data := term.NewSymbolicAlloc(store, l.Options.PointerWidth, size, defaultByte)
	base := term.NewSymbolic(store, term.NumberedSymbol(l.nextAllocSeq()), term.IntType(l.Options.PointerWidth))
	sizeTerm := term.NewConstInt(store, size, l.Options.PointerWidth)

	h, id := ctx.Heaps[heap.HeapDynamic].NextID()
	alloc := heap.NewAllocation(id, base, sizeTerm, data, l.Options.PointerWidth)
	ctx.Heaps[heap.HeapDynamic] = h.Insert(alloc)

	ptr := heap.ResolvedPointer(heap.HeapDynamic, id, term.NewConstInt(store, 0, l.Options.PointerWidth))
	frame.Bind(inst.Result, path.Scalar(path.ScalarPointer(ptr)))
	frame.Advance()
}

func (l *Loop) nextAllocSeq() uint64 {
	l.allocSeq++
	return l.allocSeq
}

func (l *Loop) execBinOp(ctx *path.Context, inst *lir.Instruction) {
	frame := ctx.Top()
	store := l.Module.Store
	lv := l.operand(frame, inst.Operands[0]).AsScalar().Term()
	rv := l.operand(frame, inst.Operands[1]).AsScalar().Term()
	result := term.NewBinOp(store, inst.BinOp, lv, rv)
	frame.Bind(inst.Result, path.Scalar(path.ScalarTerm(result)))
	frame.Advance()
}

func (l *Loop) execUnOp(ctx *path.Context, inst *lir.Instruction) {
	frame := ctx.Top()
	store := l.Module.Store
	xv := l.operand(frame, inst.Operands[0]).AsScalar().Term()
	result := term.NewUnOp(store, inst.UnOp, xv, inst.Type)
	frame.Bind(inst.Result, path.Scalar(path.ScalarTerm(result)))
	frame.Advance()
}

func (l *Loop) execICmp(ctx *path.Context, inst *lir.Instruction) {
	frame := ctx.Top()
	store := l.Module.Store
	lv := l.operand(frame, inst.Operands[0]).AsScalar().Term()
	rv := l.operand(frame, inst.Operands[1]).AsScalar().Term()
	result := term.NewICmp(store, inst.ICmpPred, lv, rv)
	frame.Bind(inst.Result, path.Scalar(path.ScalarTerm(result)))
	frame.Advance()
}

func (l *Loop) execFCmp(ctx *path.Context, inst *lir.Instruction) {
	frame := ctx.Top()
	store := l.Module.Store
	lv := l.operand(frame, inst.Operands[0]).AsScalar().Term()
	rv := l.operand(frame, inst.Operands[1]).AsScalar().Term()
	result := term.NewFCmp(store, inst.FCmpPred, lv, rv)
	frame.Bind(inst.Result, path.Scalar(path.ScalarTerm(result)))
	frame.Advance()
}

func (l *Loop) execSelect(ctx *path.Context, inst *lir.Instruction) {
	frame := ctx.Top()
	store := l.Module.Store
	cond := l.operand(frame, inst.Operands[0]).AsScalar().Term()
	a := l.operand(frame, inst.Operands[1]).AsScalar().Term()
	b := l.operand(frame, inst.Operands[2]).AsScalar().Term()
	result := term.NewSelect(store, cond, a, b)
	frame.Bind(inst.Result, path.Scalar(path.ScalarTerm(result)))
	frame.Advance()
}

// execPhi resolves the incoming value for the block this frame jumped
// from (spec.md §3 StackFrame "PredName", needed for phi resolution).
func (l *Loop) execPhi(ctx *path.Context, inst *lir.Instruction) {
	frame := ctx.Top()
	for i, pred := range inst.Incoming {
		if pred == frame.PredName {
			frame.Bind(inst.Result, l.operand(frame, inst.Operands[i]))
			frame.Advance()
			return
		}
	}
	assertx.True(false, "exec: phi %s has no incoming value for predecessor %q", inst.Result.Name, frame.PredName)
}

// execAssert checks the asserted condition's negation against the path
// condition, logging a failure and notifying Policy whenever the
// negation isn't proven infeasible — SAT or Unknown both report, since
// Unknown must conservatively be treated as a potential failure (spec.md
// §5 "Cancellation", §7 kind 3) — then strengthens the path condition
// with the asserted fact —
// an explicit program assertion, unlike resolve's mandatory termination,
// so the path is reported Fail but still continues. If the strengthened
// path condition is then itself UNSAT, the path is dropped as
// Unreachable (spec.md §7 kind 1).
func (l *Loop) execAssert(ctx *path.Context, inst *lir.Instruction) error {
	frame := ctx.Top()
	store := l.Module.Store
	cond := l.operand(frame, inst.Operands[0]).AsScalar().Term()
	assertion := term.NewAssertion(store, cond)
	negated := assertion.Not(store)

	res, err := ctx.Check(store, l.Solver, negated)
	if err != nil {
		return err
	}
	if res.Kind != smt.UNSAT {
		if l.Logger != nil {
			if err := l.Logger.LogFailure(store, ctx, l.Solver, negated, "assertion violated"); err != nil {
				return err
			}
		}
		if l.Policy != nil {
			l.Policy.OnPathComplete(ctx, Fail, &assertion)
		}
	}

	ctx.Add(store, assertion)

	feasible, err := ctx.Check(store, l.Solver, term.NewAssertion(store, term.ConstBool(store, true)))
	if err != nil {
		return err
	}
	if feasible.Kind == smt.UNSAT {
		return l.complete(ctx, Unreachable, nil)
	}

	frame.Advance()
	l.Searcher.AddState(ctx)
	return nil
}

// execCondBr is the other forking case beyond transform.Resolve, grounded
// on the teacher's executeIfInstr: both branches are queried for
// feasibility; infeasible branches are pruned; a feasible pair forks the
// context in two.
func (l *Loop) execCondBr(ctx *path.Context, inst *lir.Instruction) error {
	frame := ctx.Top()
	store := l.Module.Store
	cond := l.operand(frame, inst.Operands[0]).AsScalar().Term()

	trueAssert := term.NewAssertion(store, cond)
	falseAssert := trueAssert.Not(store)

	trueRes, err := ctx.Check(store, l.Solver, trueAssert)
	if err != nil {
		return err
	}
	falseRes, err := ctx.Check(store, l.Solver, falseAssert)
	if err != nil {
		return err
	}

	// Unknown is not decisive: a branch the solver can't classify must be
	// treated as feasible rather than pruned (spec.md §5 "Cancellation").
	trueFeasible := trueRes.Kind != smt.UNSAT
	falseFeasible := falseRes.Kind != smt.UNSAT

	switch {
	case !trueFeasible && !falseFeasible:
		return l.complete(ctx, Dead, nil)

	case trueFeasible && !falseFeasible:
		ctx.Add(store, trueAssert)
		frame.Jump(inst.Targets[0])
		l.Searcher.AddState(ctx)
		return nil

	case !trueFeasible && falseFeasible:
		ctx.Add(store, falseAssert)
		frame.Jump(inst.Targets[1])
		l.Searcher.AddState(ctx)
		return nil

	default:
		forks := ctx.Fork(2)
		forks[0].Add(store, trueAssert)
		forks[0].Top().Jump(inst.Targets[0])
		forks[1].Add(store, falseAssert)
		forks[1].Top().Jump(inst.Targets[1])

		l.children[ctx] = forks
		for _, f := range forks {
			l.Searcher.AddState(f)
			if l.Store != nil {
				l.Store.Add(f)
			}
		}
		return nil
	}
}

func (l *Loop) execLoad(ctx *path.Context, inst *lir.Instruction) error {
	b := transform.NewBuilder()
	resolved := b.Resolve(transform.FromFrame(inst.Operands[0]), inst.Type, true)
	val := b.Read(transform.FromValue(resolved), inst.Type)
	b.Assign(inst.Result, transform.FromValue(val))
	return l.runBuilder(ctx, inst, b)
}

func (l *Loop) execStore(ctx *path.Context, inst *lir.Instruction) error {
	b := transform.NewBuilder()
	resolved := b.Resolve(transform.FromFrame(inst.Operands[0]), inst.Type, true)
	b.Write(transform.FromValue(resolved), transform.FromFrame(inst.Operands[1]), inst.Type)
	return l.runBuilder(ctx, inst, b)
}

// runBuilder executes b over ctx and routes the 0/1/≥2-output result
// (spec.md §4.5) into the outer dispatch loop.
func (l *Loop) runBuilder(ctx *path.Context, inst *lir.Instruction, b *transform.Builder) error {
	result, err := b.Execute(ctx, l.Solver, l.Logger)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case transform.Dead:
		if result.Failing != nil {
			return l.complete(ctx, Fail, result.Failing)
		}
		return l.complete(ctx, Dead, nil)

	case transform.Continue:
		next := result.Contexts[0]
		next.Top().Advance()
		l.Searcher.AddState(next)
		return nil

	case transform.Forked:
		l.children[ctx] = result.Contexts
		for _, next := range result.Contexts {
			next.Top().Advance()
			l.Searcher.AddState(next)
			if l.Store != nil {
				l.Store.Add(next)
			}
		}
		return nil

	default:
		return fmt.Errorf("exec: unknown transform outcome %d", result.Outcome)
	}
}

func (l *Loop) execCall(ctx *path.Context, inst *lir.Instruction) {
	caller := ctx.Top()
	args := make([]path.LLVMValue, len(inst.Operands))
	for i, op := range inst.Operands {
		args[i] = l.operand(caller, op)
	}
	caller.Advance()

	callee := ctx.Push(inst.Callee, inst.Result)
	for i, param := range inst.Callee.Params {
		callee.Bind(param, args[i])
	}
}

func (l *Loop) execReturn(ctx *path.Context, inst *lir.Instruction) error {
	frame := ctx.Top()
	var retVal path.LLVMValue
	hasVal := len(inst.Operands) > 0
	if hasVal {
		retVal = l.operand(frame, inst.Operands[0])
	}
	retDest := frame.RetDest
	ctx.Pop()

	if len(ctx.Stack) == 0 {
		return l.complete(ctx, Success, nil)
	}
	if retDest != nil {
		assertx.True(hasVal, "exec: return to %q expected a value", retDest.Name)
		ctx.Top().Bind(retDest, retVal)
	}
	l.Searcher.AddState(ctx)
	return nil
}
