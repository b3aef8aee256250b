package engine

import (
	"sync"

	"sentra/internal/ir"
	"sentra/internal/packagestore"
	"sentra/internal/values"
)

// Dense instruction layout, grounded on the teacher's
// internal/vmregister/bytecode.go iABC scheme: a 64-bit word holding an
// 8-bit opcode in the low byte and operand A shifted above it.
// internal/ir's Instr carries 32-bit operands (wider than the teacher's
// 9-bit B/C fields, since constant-pool and jump-target indices need the
// range), so the word is 64 bits rather than the teacher's 32, and
// vmregister's POS_*/MASK_* constants are not reused. Only the opcode
// and operand A are packed; operands B and C are not encoded, and
// bcSizeA/bcPosB are not used by bcEncode.
const (
	bcPosOp = 0
	bcPosA  = 8
	bcSizeA = 18
	bcPosB  = bcPosA + bcSizeA
)

func bcEncode(op ir.OpCode, a int32) uint64 {
	return uint64(op) | uint64(uint32(a))<<bcPosA
}

func bcDecodeOp(w uint64) ir.OpCode { return ir.OpCode(w & 0xFF) }
func bcDecodeA(w uint64) int32      { return int32(w >> bcPosA) }

// bytecodeProgram is the cached dense re-encoding of one function's IR,
// keyed by fingerprint in Engine.bytecode. Simple, fixed-arity opcodes
// (arithmetic, stack, variable, comparison, jump) get a packed word for
// a tight dispatch loop; everything else keeps a pointer back to its
// original ir.Instr so execution can fall back to the shared complex-
// opcode handler without re-deriving operands from a lossy encoding.
type bytecodeProgram struct {
	words   []uint64
	complex []*ir.Instr // non-nil at indices holding a complex opcode
	fn      *ir.Function
}

func buildBytecodeProgram(fn *ir.Function) *bytecodeProgram {
	p := &bytecodeProgram{
		words:   make([]uint64, len(fn.Code)),
		complex: make([]*ir.Instr, len(fn.Code)),
		fn:      fn,
	}
	for i := range fn.Code {
		in := &fn.Code[i]
		if complexOpcodes[in.Op] {
			p.complex[i] = in
			continue
		}
		p.words[i] = bcEncode(in.Op, in.A)
	}
	return p
}

// bytecodeTier dispatches simple opcodes directly off the dense
// encoding; at the first opcode buildBytecodeProgram marked complex it
// hands the rest of the activation to the shared frame interpreter
// (frame.exec from that pc) - spec section 4.3's "complex opcodes delegate synchronously back to
// tier 0" requirement, without duplicating their semantics a second
// time (internal/ir's Instr already carries everything the delegate
// needs).
type bytecodeTier struct {
	engine *Engine
	mu     sync.Mutex

	// diskStore is the optional on-disk tier underneath this in-memory
	// cache (spec section 3.6): every freshly built program is written
	// through to it, so a second process opened against the same store
	// can see that this fingerprint has already been compiled and
	// exercised once, without the engine itself needing to know
	// anything about where functions come from (that's a module
	// loader's job, not this package's).
	diskStore *packagestore.Store
}

func (bt *bytecodeTier) programFor(fn *ir.Function, fp uint64) *bytecodeProgram {
	bt.engine.mu.RLock()
	p, ok := bt.engine.bytecode[fp]
	bt.engine.mu.RUnlock()
	if ok {
		return p
	}
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.engine.mu.RLock()
	p, ok = bt.engine.bytecode[fp]
	bt.engine.mu.RUnlock()
	if ok {
		return p
	}
	p = buildBytecodeProgram(fn)
	bt.engine.mu.Lock()
	bt.engine.bytecode[fp] = p
	bt.engine.mu.Unlock()
	if bt.diskStore != nil {
		// Best-effort: a disk-cache write failure must never prevent
		// the function from running off the in-memory program just
		// built.
		_ = bt.diskStore.Put(fp, fn)
	}
	return p
}

func (bt *bytecodeTier) run(fn *ir.Function, fp uint64, args []values.Value, depth int) (values.Value, error) {
	prog := bt.programFor(fn, fp)

	slots := make([]values.Value, fn.MaxSlot)
	for i := range slots {
		slots[i] = values.Nil()
	}
	for i, a := range args {
		if i < len(slots) {
			slots[i] = a
		}
	}
	f := &frame{fn: fn, slots: slots, engine: bt.engine, depth: depth}

	pc := 0
	for pc < len(prog.words) {
		if in := prog.complex[pc]; in != nil {
			// The complex path is the exact same per-instruction
			// semantics frame.exec implements; rather than running a
			// second copy, resume the shared interpreter loop from pc
			// and let it own the rest of this activation, since once a
			// complex opcode needs a call/throw/iterator it is no
			// cheaper to bounce back into the dense loop afterward than
			// to let tier 0 finish the function.
			return f.exec(pc)
		}
		word := prog.words[pc]
		op := bcDecodeOp(word)
		a := bcDecodeA(word)
		next := pc + 1

		switch op {
		case ir.OpNop, ir.OpLabel:
		case ir.OpConst:
			f.push(f.fn.Constants.Get(a))
		case ir.OpPop:
			f.pop()
		case ir.OpDup:
			f.push(f.stack[len(f.stack)-1])
		case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpFloorDiv, ir.OpMod, ir.OpPow:
			b, av := f.pop(), f.pop()
			v, err := arith(op, av, b)
			if err != nil {
				return values.Nil(), wrapArith(err, fn.Code[pc].Line)
			}
			f.push(v)
		case ir.OpNeg:
			v, err := values.Neg(f.pop())
			if err != nil {
				return values.Nil(), wrapArith(err, fn.Code[pc].Line)
			}
			f.push(v)
		case ir.OpEq:
			b, av := f.pop(), f.pop()
			f.push(values.BoxBool(values.Equal(av, b)))
		case ir.OpNeq:
			b, av := f.pop(), f.pop()
			f.push(values.BoxBool(!values.Equal(av, b)))
		case ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte:
			b, av := f.pop(), f.pop()
			cmp, err := values.Compare(av, b)
			if err != nil {
				return values.Nil(), wrapArith(err, fn.Code[pc].Line)
			}
			var res bool
			switch op {
			case ir.OpLt:
				res = cmp < 0
			case ir.OpLte:
				res = cmp <= 0
			case ir.OpGt:
				res = cmp > 0
			case ir.OpGte:
				res = cmp >= 0
			}
			f.push(values.BoxBool(res))
		case ir.OpNot:
			f.push(values.BoxBool(!values.ToBool(f.pop())))
		case ir.OpAnd:
			b, av := f.pop(), f.pop()
			f.push(values.BoxBool(values.ToBool(av) && values.ToBool(b)))
		case ir.OpOr:
			b, av := f.pop(), f.pop()
			f.push(values.BoxBool(values.ToBool(av) || values.ToBool(b)))
		case ir.OpBAnd, ir.OpBOr, ir.OpBXor, ir.OpShl, ir.OpShr, ir.OpBNot, ir.OpConcat:
			// Rare in a function this tier is selected for (the
			// selector requires a high arithmetic density, and these
			// overlap little with string/bitwise-heavy code); fall back
			// to the shared interpreter rather than duplicate them too.
			return f.exec(pc)
		case ir.OpLoadVar:
			f.push(f.slots[a])
		case ir.OpStoreVar:
			f.slots[a] = f.pop()
		case ir.OpLoadGlobal, ir.OpStoreGlobal:
			return f.exec(pc)
		case ir.OpJump:
			next = int(a)
		case ir.OpJumpIfFalse:
			if !values.ToBool(f.pop()) {
				next = int(a)
			}
		case ir.OpJumpIfTrue:
			if values.ToBool(f.pop()) {
				next = int(a)
			}
		case ir.OpReturn:
			return f.pop(), nil
		case ir.OpReturnVoid:
			return values.Nil(), nil
		default:
			return f.exec(pc)
		}
		pc = next
	}
	return values.Nil(), nil
}
