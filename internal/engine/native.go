package engine

import "sentra/internal/ir"

// nativeProgram would hold a compiled native routine; the stub never
// produces one.
type nativeProgram struct{}

// nativeTier is grounded on the teacher's internal/jit.Compiler /
// Profiler / AnalyzeLoop: the teacher ships the scaffolding for a loop
// JIT (CompilationTier, TemplateType, LoopAnalysis) but AnalyzeLoop
// always returns TEMPLATE_UNKNOWN and ExecuteJITUnsafe always reports
// false - "no JIT" is the teacher's own committed state, not an
// omission here. This tier preserves that shape so StrategySelector's
// native branch is reachable code with a real (if permanently
// negative) availability check, rather than dead code the selector
// could never take.
type nativeTier struct{}

// Available always reports false: matches the teacher's
// ExecuteJITUnsafe contract of reporting failure so the caller falls
// back to its next tier. A real native backend would inspect fn's
// internal/optimizer-assigned HotLoops and classify them against a
// fixed template set the way jit.AnalyzeLoop's doc comment describes.
func (t *nativeTier) Available(fn *ir.Function) bool { return false }
