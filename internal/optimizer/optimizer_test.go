package optimizer

import (
	"testing"

	"sentra/internal/ir"
	"sentra/internal/values"
)

func newTestFunction(code []ir.Instr, consts []values.Value) *ir.Function {
	cp := ir.NewConstPool()
	for _, c := range consts {
		cp.Add(c)
	}
	return &ir.Function{Name: "f", Code: code, Constants: cp, Strings: ir.NewStringPool(), MaxSlot: 4}
}

func TestConstantFoldingAdd(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpConst, A: 1},
		{Op: ir.OpAdd},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(2), values.BoxInt(3)})

	cf := &ConstantFolding{}
	if !cf.Apply(fn) {
		t.Fatal("expected constant folding to report a change")
	}
	if fn.Code[0].Op != ir.OpNop || fn.Code[1].Op != ir.OpNop {
		t.Fatalf("expected the two CONSTs to become NOPs, got %v %v", fn.Code[0].Op, fn.Code[1].Op)
	}
	if fn.Code[2].Op != ir.OpConst {
		t.Fatalf("expected the ADD to become a CONST, got %v", fn.Code[2].Op)
	}
	folded := fn.Constants.Get(fn.Code[2].A)
	if !values.IsInt(folded) || values.AsInt(folded) != 5 {
		t.Fatalf("expected folded constant 5, got %v", folded)
	}
	if err := ir.Verify(fn); err != nil {
		t.Fatalf("verify failed after folding: %v", err)
	}
}

func TestAlgebraicSimplificationAddZero(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpLoadVar, A: 0},
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpAdd},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(0)})

	pass := &AlgebraicSimplification{}
	if !pass.Apply(fn) {
		t.Fatal("expected a change")
	}
	if fn.Code[1].Op != ir.OpNop || fn.Code[2].Op != ir.OpNop {
		t.Fatalf("expected CONST 0 and ADD to become NOPs, got %v %v", fn.Code[1].Op, fn.Code[2].Op)
	}
	if err := ir.Verify(fn); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestAlgebraicSimplificationMulZero(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpLoadVar, A: 0},
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpMul},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(0)})

	pass := &AlgebraicSimplification{}
	if !pass.Apply(fn) {
		t.Fatal("expected a change")
	}
	// The CONST slot (index 1) becomes the pop of the discarded LHS
	// value, and the MUL slot (index 2) becomes the replacement push
	// of the zero constant - the LHS's LoadVar itself is untouched
	// since its side effect (if any) must still run.
	if fn.Code[1].Op != ir.OpPop {
		t.Fatalf("expected the CONST slot to become a POP of the discarded LHS, got %v", fn.Code[1].Op)
	}
	if fn.Code[2].Op != ir.OpConst {
		t.Fatalf("expected the MUL slot to become a replacement CONST 0, got %v", fn.Code[2].Op)
	}
	if err := ir.Verify(fn); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestStrengthReductionPowerOfTwoMul(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpLoadVar, A: 0},
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpMul},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(8)})

	pass := &StrengthReduction{}
	if !pass.Apply(fn) {
		t.Fatal("expected a change")
	}
	// The CONST slot (index 1) becomes the shift-amount constant, and
	// the MUL slot (index 2) becomes SHL.
	if fn.Code[2].Op != ir.OpShl {
		t.Fatalf("expected MUL to become SHL, got %v", fn.Code[2].Op)
	}
	shiftAmount := fn.Constants.Get(fn.Code[1].A)
	if values.AsInt(shiftAmount) != 3 {
		t.Fatalf("expected shift amount 3 for *8, got %v", shiftAmount)
	}
	if err := ir.Verify(fn); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestDeadCodeEliminationAfterReturn(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpReturn},
		{Op: ir.OpConst, A: 0}, // unreachable
		{Op: ir.OpPop},         // unreachable
		{Op: ir.OpReturnVoid},
	}, []values.Value{values.BoxInt(1)})

	pass := &DeadCodeElimination{}
	if !pass.Apply(fn) {
		t.Fatal("expected a change")
	}
	for i := 2; i < 4; i++ {
		if fn.Code[i].Op != ir.OpNop {
			t.Errorf("expected instruction %d to become NOP, got %v", i, fn.Code[i].Op)
		}
	}
}

func TestDeadCodeEliminationKeepsJumpTargets(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpJump, A: 3},
		{Op: ir.OpConst, A: 0}, // dead, not a jump target
		{Op: ir.OpPop},
		{Op: ir.OpConst, A: 0}, // jump target, must survive
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(1)})

	pass := &DeadCodeElimination{}
	pass.Apply(fn)
	if fn.Code[3].Op != ir.OpConst {
		t.Errorf("expected the jump-target instruction to survive, got %v", fn.Code[3].Op)
	}
}

func TestPeepholeDoubleNegation(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpLoadVar, A: 0},
		{Op: ir.OpNeg},
		{Op: ir.OpNeg},
		{Op: ir.OpReturn},
	}, nil)

	pass := &Peephole{}
	if !pass.Apply(fn) {
		t.Fatal("expected a change")
	}
	if fn.Code[1].Op != ir.OpNop || fn.Code[2].Op != ir.OpNop {
		t.Errorf("expected both NEGs to become NOPs, got %v %v", fn.Code[1].Op, fn.Code[2].Op)
	}
}

func TestHotLoopSpecializationDetectsBackwardJump(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpLoadVar, A: 0}, // 0: loop start
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpAdd},
		{Op: ir.OpStoreVar, A: 0},
		{Op: ir.OpJump, A: 0}, // 4: backward jump to 0
		{Op: ir.OpReturnVoid},
	}, []values.Value{values.BoxInt(1)})

	pass := &HotLoopSpecialization{}
	pass.Apply(fn)
	if len(fn.HotLoops) != 1 {
		t.Fatalf("expected exactly one hot loop, got %d", len(fn.HotLoops))
	}
	if fn.HotLoops[0].StartPC != 0 || fn.HotLoops[0].EndPC != 4 {
		t.Errorf("unexpected loop bounds: %+v", fn.HotLoops[0])
	}
	if fn.HotLoops[0].Template != "accumulate" {
		t.Errorf("expected accumulate template, got %q", fn.HotLoops[0].Template)
	}
}

func TestOptimizeLevelNoneIsNoop(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpConst, A: 1},
		{Op: ir.OpAdd},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(1), values.BoxInt(2)})
	report := Optimize(fn, LevelNone)
	if len(report.Applied) != 0 {
		t.Errorf("expected no passes applied at LevelNone, got %v", report.Applied)
	}
	if fn.Code[0].Op != ir.OpConst {
		t.Error("expected code to be unmodified at LevelNone")
	}
}

func TestOptimizeLevelFullFoldsAndVerifies(t *testing.T) {
	fn := newTestFunction([]ir.Instr{
		{Op: ir.OpConst, A: 0},
		{Op: ir.OpConst, A: 1},
		{Op: ir.OpAdd},
		{Op: ir.OpReturn},
	}, []values.Value{values.BoxInt(2), values.BoxInt(3)})
	Optimize(fn, LevelFull)
	if err := ir.Verify(fn); err != nil {
		t.Fatalf("verify failed after full optimization: %v", err)
	}
	if fn.Code[2].Op != ir.OpConst {
		t.Fatalf("expected the whole chain to fold to a single CONST, got %v", fn.Code[2].Op)
	}
}
