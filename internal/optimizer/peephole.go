package optimizer

import "sentra/internal/ir"

// Peephole cancels back-to-back instruction pairs that are provable
// no-ops (or simplifications) regardless of the runtime value involved:
//
//   - double numeric negation (`-(-x) => x`)
//   - a DUP immediately discarded by POP (a value produced, duplicated,
//     and the duplicate thrown away without use - leaves the original
//     copy in place)
//   - pushing a value that is immediately POPed (`Push x; Pop => ∅`),
//     for the side-effect-free pushes: CONST, LoadVar, LoadGlobal
//   - `Not; JumpIfFalse => JumpIfTrue` and the symmetric
//     `Not; JumpIfTrue => JumpIfFalse`, dropping the Not and flipping
//     the jump's sense
//
// Double logical-not is deliberately NOT folded here: `!!x` canonicalizes
// x's truthiness to an actual bool, which is only a no-op when x is
// already bool, and the peephole window has no type information to
// tell.
//
// The spec's fourth rewrite, merging adjacent Label pairs by rewiring
// jumps to one, has no home here: ircompile never emits OpLabel (it
// patches each jump with an absolute instruction index), and
// ir.Verify rejects a Function in which any OpLabel survives - by the
// time a Function reaches this pass there are no labels left to merge.
type Peephole struct{}

func (*Peephole) Name() string { return "peephole" }

func isSideEffectFreePush(op ir.OpCode) bool {
	switch op {
	case ir.OpConst, ir.OpLoadVar, ir.OpLoadGlobal:
		return true
	}
	return false
}

func (p *Peephole) Apply(fn *ir.Function) bool {
	changed := false
	code := fn.Code
	targets := jumpTargets(code)
	for i := 0; i+1 < len(code); i++ {
		a, b := code[i].Op, code[i+1].Op
		switch {
		case a == ir.OpNeg && b == ir.OpNeg,
			a == ir.OpDup && b == ir.OpPop,
			isSideEffectFreePush(a) && b == ir.OpPop:
			code[i] = ir.Instr{Op: ir.OpNop, Line: code[i].Line}
			code[i+1] = ir.Instr{Op: ir.OpNop, Line: code[i+1].Line}
			changed = true
		case a == ir.OpNot && b == ir.OpJumpIfFalse && !targets[int32(i+1)]:
			code[i] = ir.Instr{Op: ir.OpNop, Line: code[i].Line}
			code[i+1] = ir.Instr{Op: ir.OpJumpIfTrue, A: code[i+1].A, Line: code[i+1].Line}
			changed = true
		case a == ir.OpNot && b == ir.OpJumpIfTrue && !targets[int32(i+1)]:
			code[i] = ir.Instr{Op: ir.OpNop, Line: code[i].Line}
			code[i+1] = ir.Instr{Op: ir.OpJumpIfFalse, A: code[i+1].A, Line: code[i+1].Line}
			changed = true
		}
	}
	return changed
}
