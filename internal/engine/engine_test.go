package engine

import (
	"testing"

	"sentra/internal/ir"
	"sentra/internal/values"
)

func newTestFunction(name string, arity int, code []ir.Instr, consts []values.Value) *ir.Function {
	cp := ir.NewConstPool()
	for _, c := range consts {
		cp.Add(c)
	}
	return &ir.Function{
		Name: name, Arity: arity, Code: code, MaxSlot: 8,
		Constants: cp, Strings: ir.NewStringPool(),
	}
}

func newTestModule(fns ...*ir.Function) *ir.Module {
	mod := ir.NewModule("test")
	mod.Functions = fns
	return mod
}

func TestRuntimeArithmetic(t *testing.T) {
	fn := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpConst, A: 1},
		{Op: ir.OpAdd},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(2), values.BoxInt(3)})

	e := New(newTestModule(fn))
	v, err := e.Call(fn, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values.IsInt(v) || values.AsInt(v) != 5 {
		t.Fatalf("expected 5, got %v", v)
	}
}

func TestRuntimeDivisionByZeroIsCatchable(t *testing.T) {
	fn := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpSetupTry, A: 5},
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpConst, A: 1},
		{Op: ir.OpDiv},
		{Op: ir.OpJump, A: 6},
		{Op: ir.OpStoreVar, A: 0}, // handler target: catch var into slot 0
		{Op: ir.OpReturnVoid},
	}, []values.Value{values.BoxInt(1), values.BoxInt(0)})

	e := New(newTestModule(fn))
	_, err := e.Call(fn, nil)
	if err != nil {
		t.Fatalf("expected the division error to be caught, got %v", err)
	}
}

func TestRuntimeUncaughtDivisionByZero(t *testing.T) {
	fn := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpConst, A: 1},
		{Op: ir.OpDiv},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(1), values.BoxInt(0)})

	e := New(newTestModule(fn))
	if _, err := e.Call(fn, nil); err == nil {
		t.Fatal("expected an uncaught division-by-zero error")
	}
}

func TestGlobalFunctionCallResolvesThroughHoistedGlobals(t *testing.T) {
	callee := newTestFunction("double", 1, []ir.Instr{
		{Op: ir.OpLoadVar, A: 0},
		{Op: ir.OpLoadVar, A: 0},
		{Op: ir.OpAdd},
		{Op: ir.OpReturn},
	}, nil)

	caller := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpLoadGlobal, A: 0}, // "double"
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpCall, A: 1},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(21)})
	caller.Strings.Intern("double")

	mod := newTestModule(callee, caller)
	e := New(mod)

	v, err := e.Call(caller, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values.IsInt(v) || values.AsInt(v) != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
}

func TestMethodCallDispatchesByReceiverType(t *testing.T) {
	method := newTestFunction("Point.sum", 1, []ir.Instr{
		{Op: ir.OpLoadVar, A: 0},
		{Op: ir.OpGetField, A: 0}, // "x"
		{Op: ir.OpLoadVar, A: 0},
		{Op: ir.OpGetField, A: 1}, // "y"
		{Op: ir.OpAdd},
		{Op: ir.OpReturn},
	}, nil)
	method.IsMethod = true
	method.Receiver = "Point"
	method.Strings.Intern("x")
	method.Strings.Intern("y")

	fieldNames := values.BoxArray([]values.Value{values.BoxString("x"), values.BoxString("y")})
	caller := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpConst, A: 0}, // x value
		{Op: ir.OpConst, A: 1}, // y value
		{Op: ir.OpMakeStruct, A: 2, B: 2, C: 3},
		{Op: ir.OpCallMethod, A: 0, B: 1}, // "sum", receiver only
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(3), values.BoxInt(4), values.BoxString("Point"), fieldNames})
	caller.Strings.Intern("sum")

	mod := newTestModule(method, caller)
	e := New(mod)

	v, err := e.Call(caller, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values.IsInt(v) || values.AsInt(v) != 7 {
		t.Fatalf("expected 7, got %v", v)
	}
}

func TestMakeArrayAndLength(t *testing.T) {
	fn := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpConst, A: 1},
		{Op: ir.OpConst, A: 2},
		{Op: ir.OpMakeArray, A: 3},
		{Op: ir.OpArrayLen},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(1), values.BoxInt(2), values.BoxInt(3)})

	e := New(newTestModule(fn))
	v, err := e.Call(fn, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values.IsInt(v) || values.AsInt(v) != 3 {
		t.Fatalf("expected array length 3, got %v", v)
	}
}

func TestElementsOfMaterializesRangeArray(t *testing.T) {
	fn := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpConst, A: 1},
		{Op: ir.OpMakeRange, C: 0}, // exclusive [0, 5)
		{Op: ir.OpArrayLen},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(0), values.BoxInt(5)})

	e := New(newTestModule(fn))
	v, err := e.Call(fn, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values.IsInt(v) || values.AsInt(v) != 5 {
		t.Fatalf("expected range length 5, got %v", v)
	}
}

func TestStrategySelectorPicksRuntimeForShortFunctions(t *testing.T) {
	fn := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(1)})

	sel := StrategySelector{native: &nativeTier{}}
	if got := sel.Select(fn); got != StrategyRuntime {
		t.Fatalf("expected runtime for a short function, got %v", got)
	}
}

func TestStrategySelectorPicksBytecodeForLongArithmeticFunctions(t *testing.T) {
	code := []ir.Instr{{Op: ir.OpConst, A: 0}}
	for i := 0; i < 12; i++ {
		code = append(code, ir.Instr{Op: ir.OpConst, A: 0}, ir.Instr{Op: ir.OpAdd})
	}
	code = append(code, ir.Instr{Op: ir.OpReturn})
	fn := newTestFunction("hot", 0, code, []values.Value{values.BoxInt(1)})

	sel := StrategySelector{native: &nativeTier{}}
	if got := sel.Select(fn); got != StrategyBytecode {
		t.Fatalf("expected bytecode tier for a long arithmetic-dominated function, got %v", got)
	}
}

func TestStrategySelectorNeverPicksNative(t *testing.T) {
	code := []ir.Instr{}
	for i := 0; i < 30; i++ {
		code = append(code, ir.Instr{Op: ir.OpConst, A: 0}, ir.Instr{Op: ir.OpAdd})
	}
	code = append(code, ir.Instr{Op: ir.OpReturn})
	fn := newTestFunction("hottest", 0, code, []values.Value{values.BoxInt(1)})

	sel := StrategySelector{native: &nativeTier{}}
	if got := sel.Select(fn); got == StrategyNative {
		t.Fatal("native tier is permanently unavailable and must never be selected")
	}
}

func TestBytecodeTierMatchesRuntimeTierForArithmetic(t *testing.T) {
	code := []ir.Instr{{Op: ir.OpConst, A: 0}}
	for i := 0; i < 12; i++ {
		code = append(code, ir.Instr{Op: ir.OpConst, A: 1}, ir.Instr{Op: ir.OpAdd})
	}
	code = append(code, ir.Instr{Op: ir.OpReturn})
	fn := newTestFunction("hot", 0, code, []values.Value{values.BoxInt(0), values.BoxInt(1)})

	mod := newTestModule(fn)
	e := New(mod)

	if got := e.selector.Select(fn); got != StrategyBytecode {
		t.Fatalf("expected this function to select the bytecode tier, got %v", got)
	}

	v, err := e.Call(fn, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values.IsInt(v) || values.AsInt(v) != 12 {
		t.Fatalf("expected 12, got %v", v)
	}
}

func TestBytecodeTierFallsBackToRuntimeForCalls(t *testing.T) {
	callee := newTestFunction("id", 1, []ir.Instr{
		{Op: ir.OpLoadVar, A: 0},
		{Op: ir.OpReturn},
	}, nil)

	code := []ir.Instr{
		{Op: ir.OpLoadGlobal, A: 0}, // "id", pushed below the accumulator
		{Op: ir.OpConst, A: 0},
	}
	for i := 0; i < 10; i++ {
		code = append(code, ir.Instr{Op: ir.OpConst, A: 1}, ir.Instr{Op: ir.OpAdd})
	}
	code = append(code,
		ir.Instr{Op: ir.OpCall, A: 1},
		ir.Instr{Op: ir.OpReturn},
	)
	caller := newTestFunction("hot", 0, code, []values.Value{values.BoxInt(0), values.BoxInt(1)})
	caller.Strings.Intern("id")

	mod := newTestModule(callee, caller)
	e := New(mod)

	if got := e.selector.Select(caller); got != StrategyBytecode {
		t.Fatalf("expected the bytecode tier, got %v", got)
	}
	v, err := e.Call(caller, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values.IsInt(v) || values.AsInt(v) != 10 {
		t.Fatalf("expected 10, got %v", v)
	}
}

func TestProfileRecordsCalls(t *testing.T) {
	fn := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(1)})

	e := New(newTestModule(fn))
	for i := 0; i < 3; i++ {
		if _, err := e.Call(fn, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	p := e.Profile(fn)
	if p == nil || p.Calls != 3 {
		t.Fatalf("expected 3 recorded calls, got %+v", p)
	}
}

func TestReloadClearsCaches(t *testing.T) {
	fn := newTestFunction("main", 0, []ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(1)})
	e := New(newTestModule(fn))
	if _, err := e.Call(fn, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Profile(fn) == nil {
		t.Fatal("expected a profile before reload")
	}
	e.Reload(newTestModule(fn))
	if e.Profile(fn) != nil {
		t.Fatal("expected Reload to clear the profile cache")
	}
}

func TestCallBuiltinLen(t *testing.T) {
	e := New(newTestModule())
	v, err := e.callBuiltin("len", []values.Value{values.BoxArray([]values.Value{values.BoxInt(1), values.BoxInt(2)})}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values.IsInt(v) || values.AsInt(v) != 2 {
		t.Fatalf("expected 2, got %v", v)
	}
}

func TestCallBuiltinUnknownIsInternalError(t *testing.T) {
	e := New(newTestModule())
	if _, err := e.callBuiltin("nope", nil, 1); err == nil {
		t.Fatal("expected an error for an unknown builtin")
	}
}
