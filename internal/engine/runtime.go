package engine

import (
	"sentra/internal/ast"
	"sentra/internal/errors"
	"sentra/internal/ir"
	"sentra/internal/values"
)

// runtimeTier is the ground-truth interpreter: a direct walk of
// fn.Code over an explicit operand stack plus a fixed slot array, sized
// to fn.MaxSlot (spec section 4.2's 256-slot register file). Every
// other tier either delegates back here for opcodes it does not
// special-case (bytecodeTier) or never runs at all (nativeTier).
// Grounded on the teacher's vm.go main dispatch loop, adapted from its
// locals-array-plus-stack hybrid to the IR's pure stack discipline.
type runtimeTier struct {
	engine *Engine
}

// tryHandler is one entry of a function activation's exception-handler
// stack, recording where to resume and how far to unwind the operand
// stack - set up by OpSetupTry, consulted by OpThrow and by a callee's
// propagated thrown value.
type tryHandler struct {
	pc         int
	stackDepth int
}

// iterFrame is one entry of a function activation's for-loop iterator
// stack (OpIterStart/OpIterNext/OpIterEnd); ranges and maps are
// materialized into elements eagerly, matching the decision recorded in
// DESIGN.md for OpMakeRange.
type iterFrame struct {
	elements []values.Value
	idx      int
}

// thrown is the internal carrier for a Sentra throw value propagating
// up out of a call, distinct from a located *errors.SentraError so an
// enclosing try/catch anywhere up the call stack can still bind the
// original value to its catch variable. A throw that reaches Engine.Run
// uncaught is converted to a located SentraError at that boundary.
type thrown struct {
	value values.Value
	loc   ast.Span
}

func (t *thrown) Error() string { return values.ToStr(t.value) }

func loc(line int) ast.Span { return ast.Span{Start: ast.Pos{Line: line}} }

func (rt *runtimeTier) run(fn *ir.Function, args []values.Value, depth int) (values.Value, error) {
	if depth >= MaxCallDepth {
		return values.Nil(), errors.NewRuntimeError(errors.KindStackOverflow,
			"maximum call depth exceeded", loc(0))
	}

	slots := make([]values.Value, fn.MaxSlot)
	for i := range slots {
		slots[i] = values.Nil()
	}
	for i, a := range args {
		if i < len(slots) {
			slots[i] = a
		}
	}

	f := &frame{
		fn:     fn,
		slots:  slots,
		engine: rt.engine,
		depth:  depth,
	}
	return f.exec(0)
}

// frame is one function activation's mutable execution state, shared by
// the runtime tier and the bytecode tier's complex-opcode fallback so
// both tiers implement identical opcode semantics from one place.
type frame struct {
	fn     *ir.Function
	slots  []values.Value
	stack  []values.Value
	tries  []tryHandler
	iters  []iterFrame
	engine *Engine
	depth  int
}

func (f *frame) push(v values.Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() values.Value {
	n := len(f.stack) - 1
	v := f.stack[n]
	f.stack = f.stack[:n]
	return v
}

func (f *frame) popN(n int) []values.Value {
	out := make([]values.Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = f.pop()
	}
	return out
}

// tryCatch consults the frame's active try handlers for err: an
// InternalError is never catchable (errors.go's own contract), every
// other *errors.SentraError or a raw thrown user value is. Caught
// faults unwind the operand stack to the handler's recorded depth and
// bind the fault as the catch variable's value.
func (f *frame) tryCatch(err error) (target int, val values.Value, ok bool) {
	if len(f.tries) == 0 {
		return 0, values.Nil(), false
	}
	switch e := err.(type) {
	case *thrown:
		val = e.value
	case *errors.SentraError:
		if e.Type == errors.InternalError {
			return 0, values.Nil(), false
		}
		val = values.BoxString(e.Message)
	default:
		return 0, values.Nil(), false
	}
	h := f.tries[len(f.tries)-1]
	f.tries = f.tries[:len(f.tries)-1]
	if h.stackDepth <= len(f.stack) {
		f.stack = f.stack[:h.stackDepth]
	}
	return h.pc, val, true
}

// exec runs fn.Code starting at pc until a return, an uncaught throw,
// or a runtime error. Used directly by the runtime tier and by the
// bytecode tier whenever it hands control back for a complex opcode.
func (f *frame) exec(pc int) (values.Value, error) {
	code := f.fn.Code
loop:
	for pc < len(code) {
		in := code[pc]
		next := pc + 1

		switch in.Op {
		case ir.OpNop, ir.OpLabel:

		case ir.OpConst:
			f.push(f.fn.Constants.Get(in.A))
		case ir.OpPop:
			f.pop()
		case ir.OpDup:
			v := f.stack[len(f.stack)-1]
			f.push(v)

		case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpFloorDiv, ir.OpMod, ir.OpPow:
			b := f.pop()
			a := f.pop()
			v, err := arith(in.Op, a, b)
			if err != nil {
				if t, val, ok := f.tryCatch(wrapArith(err, in.Line)); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), wrapArith(err, in.Line)
			}
			f.push(v)
		case ir.OpNeg:
			a := f.pop()
			v, err := values.Neg(a)
			if err != nil {
				if t, val, ok := f.tryCatch(wrapArith(err, in.Line)); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), wrapArith(err, in.Line)
			}
			f.push(v)

		case ir.OpEq:
			b, a := f.pop(), f.pop()
			f.push(values.BoxBool(values.Equal(a, b)))
		case ir.OpNeq:
			b, a := f.pop(), f.pop()
			f.push(values.BoxBool(!values.Equal(a, b)))
		case ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte:
			b, a := f.pop(), f.pop()
			cmp, err := values.Compare(a, b)
			if err != nil {
				if t, val, ok := f.tryCatch(wrapArith(err, in.Line)); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), wrapArith(err, in.Line)
			}
			var res bool
			switch in.Op {
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
			a := f.pop()
			f.push(values.BoxBool(!values.ToBool(a)))
		case ir.OpAnd:
			// Short-circuit `and`/`or` are normally compiled inline via
			// Dup/JumpIfFalse/Pop (compileOr's pattern); OpAnd/OpOr
			// themselves only appear where both sides were already
			// unconditionally evaluated, so a plain truthiness AND/OR
			// over the two popped values is correct here.
			b, a := f.pop(), f.pop()
			f.push(values.BoxBool(values.ToBool(a) && values.ToBool(b)))
		case ir.OpOr:
			b, a := f.pop(), f.pop()
			f.push(values.BoxBool(values.ToBool(a) || values.ToBool(b)))

		case ir.OpBAnd, ir.OpBOr, ir.OpBXor, ir.OpShl, ir.OpShr:
			b, a := f.pop(), f.pop()
			if !values.IsInt(a) || !values.IsInt(b) {
				err := errors.NewRuntimeError(errors.KindTypeCoercionFailure,
					"bitwise operators require int operands", loc(in.Line))
				if t, val, ok := f.tryCatch(err); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
			ai, bi := values.AsInt(a), values.AsInt(b)
			var r int64
			switch in.Op {
			case ir.OpBAnd:
				r = ai & bi
			case ir.OpBOr:
				r = ai | bi
			case ir.OpBXor:
				r = ai ^ bi
			case ir.OpShl:
				r = ai << uint(bi)
			case ir.OpShr:
				r = ai >> uint(bi)
			}
			f.push(values.BoxInt(r))
		case ir.OpBNot:
			a := f.pop()
			if !values.IsInt(a) {
				err := errors.NewRuntimeError(errors.KindTypeCoercionFailure,
					"bitwise not requires an int operand", loc(in.Line))
				if t, val, ok := f.tryCatch(err); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
			f.push(values.BoxInt(^values.AsInt(a)))

		case ir.OpLoadVar:
			f.push(f.slots[in.A])
		case ir.OpStoreVar:
			f.slots[in.A] = f.pop()
		case ir.OpLoadGlobal:
			name := f.fn.Strings.Get(in.A)
			v, ok := f.engine.lookupGlobal(name)
			if !ok {
				err := &errors.SentraError{Type: errors.ReferenceError, Kind: errors.KindUninitializedVariable,
					Message: "undefined global " + name, Location: loc(in.Line)}
				if t, val, caught := f.tryCatch(err); caught {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
			f.push(v)
		case ir.OpStoreGlobal:
			name := f.fn.Strings.Get(in.A)
			f.engine.storeGlobal(name, f.pop())

		case ir.OpConcat:
			b, a := f.pop(), f.pop()
			f.push(values.StringConcat(a, b))
		case ir.OpStringConcatN:
			parts := f.popN(int(in.A))
			var sb []byte
			for _, p := range parts {
				sb = append(sb, values.ToStr(p)...)
			}
			f.push(values.BoxString(string(sb)))

		case ir.OpJump:
			next = int(in.A)
		case ir.OpJumpIfFalse:
			if !values.ToBool(f.pop()) {
				next = int(in.A)
			}
		case ir.OpJumpIfTrue:
			if values.ToBool(f.pop()) {
				next = int(in.A)
			}

		case ir.OpCall:
			argc := int(in.A)
			args := f.popN(argc)
			callee := f.pop()
			result, err := f.callValue(callee, args, in.Line)
			if err != nil {
				if t, val, ok := f.tryCatch(err); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
			f.push(result)
		case ir.OpCallMethod:
			total := int(in.B)
			vals := f.popN(total)
			receiver, margs := vals[0], vals[1:]
			methodName := f.fn.Strings.Get(in.A)
			result, err := f.callMethod(receiver, methodName, margs, in.Line)
			if err != nil {
				if t, val, ok := f.tryCatch(err); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
			f.push(result)
		case ir.OpReturn:
			return f.pop(), nil
		case ir.OpReturnVoid:
			return values.Nil(), nil

		case ir.OpMakeArray:
			f.push(values.BoxArray(f.popN(int(in.A))))
		case ir.OpMakeMap:
			n := int(in.A)
			flat := f.popN(2 * n)
			keys := make([]string, 0, n)
			items := make(map[string]values.Value, n)
			seen := make(map[string]bool, n)
			for i := 0; i < n; i++ {
				k, v := flat[2*i], flat[2*i+1]
				ks := values.ToStr(k)
				if !seen[ks] {
					keys = append(keys, ks)
					seen[ks] = true
				}
				items[ks] = v
			}
			f.push(values.BoxMap(keys, items))
		case ir.OpIndexGet:
			idx, obj := f.pop(), f.pop()
			v, err := indexGet(obj, idx, in.Line)
			if err != nil {
				if t, val, ok := f.tryCatch(err); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
			f.push(v)
		case ir.OpIndexSet:
			val, idx, obj := f.pop(), f.pop(), f.pop()
			if err := indexSet(obj, idx, val, in.Line); err != nil {
				if t, cv, ok := f.tryCatch(err); ok {
					f.push(cv)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
		case ir.OpArrayLen:
			n, err := values.Length(f.stack[len(f.stack)-1])
			if err != nil {
				f.pop()
				if t, val, ok := f.tryCatch(wrapArith(err, in.Line)); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), wrapArith(err, in.Line)
			}
			f.stack[len(f.stack)-1] = values.BoxInt(int64(n))

		case ir.OpMakeStruct:
			vals := f.popN(int(in.B))
			typeName := values.AsString(f.fn.Constants.Get(in.A)).Value
			orderArr := values.AsArray(f.fn.Constants.Get(in.C)).Elements
			order := make([]string, len(orderArr))
			fields := make(map[string]values.Value, len(orderArr))
			for i, nv := range orderArr {
				name := values.AsString(nv).Value
				order[i] = name
				if i < len(vals) {
					fields[name] = vals[i]
				}
			}
			f.push(values.BoxStruct(typeName, order, fields))
		case ir.OpGetField:
			obj := f.pop()
			name := f.fn.Strings.Get(in.A)
			v, err := getField(obj, name, in.Line)
			if err != nil {
				if t, val, ok := f.tryCatch(err); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
			f.push(v)
		case ir.OpSetField:
			newVal, obj := f.pop(), f.pop()
			name := f.fn.Strings.Get(in.A)
			if err := setField(obj, name, newVal, in.Line); err != nil {
				if t, val, ok := f.tryCatch(err); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}

		case ir.OpMakeEnum:
			typeName := values.AsString(f.fn.Constants.Get(in.A)).Value
			variant := values.AsString(f.fn.Constants.Get(in.B)).Value
			if in.C != 0 {
				payload := f.pop()
				f.push(values.BoxEnum(typeName, variant, &payload))
			} else {
				f.push(values.BoxEnum(typeName, variant, nil))
			}
		case ir.OpEnumTag:
			e := values.AsEnum(f.stack[len(f.stack)-1])
			f.stack[len(f.stack)-1] = values.BoxString(e.Variant)
		case ir.OpEnumPayload:
			e := values.AsEnum(f.stack[len(f.stack)-1])
			if !e.HasPayload {
				err := errors.NewInternalError("enum variant has no payload", loc(in.Line))
				return values.Nil(), err
			}
			f.stack[len(f.stack)-1] = e.Payload

		case ir.OpMakeRange:
			end, start := f.pop(), f.pop()
			if !values.IsInt(start) || !values.IsInt(end) {
				err := errors.NewRuntimeError(errors.KindTypeCoercionFailure,
					"range bounds must be int", loc(in.Line))
				if t, val, ok := f.tryCatch(err); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
			lo, hi := values.AsInt(start), values.AsInt(end)
			if in.C != 0 {
				hi++
			}
			var elems []values.Value
			if hi > lo {
				elems = make([]values.Value, 0, hi-lo)
			}
			for i := lo; i < hi; i++ {
				elems = append(elems, values.BoxInt(i))
			}
			f.push(values.BoxArray(elems))
		case ir.OpIterStart:
			iterable := f.pop()
			f.iters = append(f.iters, iterFrame{elements: elementsOf(iterable)})
		case ir.OpIterNext:
			it := &f.iters[len(f.iters)-1]
			if it.idx < len(it.elements) {
				f.push(it.elements[it.idx])
				f.push(values.BoxBool(true))
				it.idx++
			} else {
				f.push(values.Nil())
				f.push(values.BoxBool(false))
			}
		case ir.OpIterEnd:
			f.iters = f.iters[:len(f.iters)-1]

		case ir.OpCallBuiltin:
			name := f.fn.Strings.Get(in.A)
			args := f.popN(int(in.B))
			v, err := f.engine.callBuiltin(name, args, in.Line)
			if err != nil {
				if t, val, ok := f.tryCatch(err); ok {
					f.push(val)
					pc = t
					continue loop
				}
				return values.Nil(), err
			}
			f.push(v)

		case ir.OpSetupTry:
			f.tries = append(f.tries, tryHandler{pc: int(in.A), stackDepth: len(f.stack)})
		case ir.OpClearTry:
			f.tries = f.tries[:len(f.tries)-1]
		case ir.OpThrow:
			val := f.pop()
			err := &thrown{value: val, loc: loc(in.Line)}
			if t, cv, ok := f.tryCatch(err); ok {
				f.push(cv)
				pc = t
				continue loop
			}
			return values.Nil(), err

		default:
			return values.Nil(), errors.NewInternalError("unhandled opcode in engine", loc(in.Line))
		}

		pc = next
	}
	return values.Nil(), nil
}
