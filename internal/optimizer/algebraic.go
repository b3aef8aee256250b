package optimizer

import (
	"sentra/internal/ir"
	"sentra/internal/values"
)

// AlgebraicSimplification rewrites `<expr>, CONST k, <binop>` triples
// where k is an arithmetic identity or absorbing element for binop,
// e.g. `x + 0 => x`, `x * 1 => x`, `x * 0 => 0` (x's side effects, if
// any, still run; only its pushed value is discarded). Grounded on
// the same "fold what the constant pool already proves" idea as
// ConstantFolding, generalized to a single known operand instead of
// two.
type AlgebraicSimplification struct{}

func (*AlgebraicSimplification) Name() string { return "algebraic-simplification" }

func (p *AlgebraicSimplification) Apply(fn *ir.Function) bool {
	changed := false
	code := fn.Code
	for i := 0; i+1 < len(code); i++ {
		if code[i].Op != ir.OpConst {
			continue
		}
		if i+1 >= len(code) {
			continue
		}
		op := code[i+1].Op
		k := fn.Constants.Get(code[i].A)
		if !values.IsInt(k) && !values.IsNumber(k) {
			continue
		}
		isZero := values.IsInt(k) && values.AsInt(k) == 0 || values.IsNumber(k) && values.AsNumber(k) == 0
		isOne := values.IsInt(k) && values.AsInt(k) == 1 || values.IsNumber(k) && values.AsNumber(k) == 1

		switch {
		case op == ir.OpAdd && isZero, op == ir.OpSub && isZero:
			// x + 0, x - 0 => x: drop both the constant push and the op
			code[i] = ir.Instr{Op: ir.OpNop, Line: code[i].Line}
			code[i+1] = ir.Instr{Op: ir.OpNop, Line: code[i+1].Line}
			changed = true
		case op == ir.OpMul && isOne, op == ir.OpDiv && isOne:
			code[i] = ir.Instr{Op: ir.OpNop, Line: code[i].Line}
			code[i+1] = ir.Instr{Op: ir.OpNop, Line: code[i+1].Line}
			changed = true
		case op == ir.OpMul && isZero:
			// x * 0 => 0: x was already pushed for its side effects and
			// must be discarded, then 0 takes its place.
			zeroConst := code[i].A
			code[i] = ir.Instr{Op: ir.OpPop, Line: code[i].Line}
			code[i+1] = ir.Instr{Op: ir.OpConst, A: zeroConst, Line: code[i+1].Line}
			changed = true
		}
	}
	return changed
}
