// Package ircompile lowers an analyzed AST (internal/ast) into the
// stack-discipline IR of internal/ir, per spec section 4.2. Function
// hoisting (collect every top-level function, struct, and enum
// declaration before compiling any statement body) is grounded on the
// teacher's internal/compiler/hoisting_compiler.go two-pass design;
// jump-then-patch control-flow lowering is grounded on
// internal/compiler/stmt_compiler.go's VisitIfStmt/VisitWhileStmt.
package ircompile

import (
	"fmt"

	"sentra/internal/ast"
	"sentra/internal/ir"
	"sentra/internal/scope"
	"sentra/internal/types"
	"sentra/internal/values"
)

// Compiler lowers one Program into one Module. It assumes the program
// has already passed internal/analyzer with zero errors; it does not
// re-check semantic legality, only structural IR invariants (via
// ir.Verify at the end of Compile).
type Compiler struct {
	mod    *ir.Module
	fn     *ir.Function
	scopes *scope.Stack
	slot   int32
	loops  []*loopCtx
	err    error
}

type loopCtx struct {
	breaks    []int32
	continues []int32
}

// Compile lowers prog into a Module.
func Compile(prog *ast.Program) (*ir.Module, error) {
	c := &Compiler{
		mod:    ir.NewModule(prog.File),
		scopes: scope.NewStack(),
	}
	c.mod.Strings = ir.NewStringPool()
	c.mod.Constants = ir.NewConstPool()

	if err := c.hoistTypes(prog.Stmts); err != nil {
		return nil, err
	}
	if err := c.hoistFunctions(prog.Stmts); err != nil {
		return nil, err
	}

	main := &ir.Function{Name: "main", Strings: c.mod.Strings, Constants: c.mod.Constants}
	c.fn = main
	c.slot = 0

	for _, stmt := range prog.Stmts {
		switch stmt.(type) {
		case *ast.FuncDecl, *ast.StructDecl, *ast.EnumDecl, *ast.ImplBlock:
			continue // already hoisted
		}
		if err := c.compileStmt(stmt); err != nil {
			return nil, err
		}
	}
	c.emit(ir.OpReturnVoid, 0, 0, 0, 0)
	main.MaxSlot = int(c.slot)
	c.mod.Functions = append(c.mod.Functions, main)

	if err := ir.VerifyModule(c.mod); err != nil {
		return nil, err
	}
	return c.mod, nil
}

func (c *Compiler) emit(op ir.OpCode, a, b, cc int32, line int) int32 {
	idx := int32(len(c.fn.Code))
	c.fn.Code = append(c.fn.Code, ir.Instr{Op: op, A: a, B: b, C: cc, Line: line})
	return idx
}

func (c *Compiler) here() int32 { return int32(len(c.fn.Code)) }

func (c *Compiler) patchTarget(idx int32, target int32) { c.fn.Code[idx].A = target }

func (c *Compiler) constIndex(v values.Value) int32 { return c.mod.Constants.Add(v) }

func (c *Compiler) strIndex(s string) int32 { return c.mod.Strings.Intern(s) }

func (c *Compiler) allocSlot() int32 {
	s := c.slot
	c.slot++
	if int(c.slot) > c.fn.MaxSlot {
		c.fn.MaxSlot = int(c.slot)
	}
	return s
}

// declareVar registers name in the current scope and returns the slot
// to store into (-1 meaning "use OpStoreGlobal by name" instead of
// OpStoreVar).
func (c *Compiler) declareVar(name string, kind scope.SymbolKind, mutable bool, t types.Type, sp ast.Span) (int32, error) {
	sym := &scope.Symbol{Name: name, Kind: kind, Mutable: mutable, Type: t, Init: scope.Initialized, Span: sp, SlotHint: -1}
	if c.scopes.InFunction() {
		sym.SlotHint = int(c.allocSlot())
	}
	if err := c.scopes.Declare(sym); err != nil {
		return -1, err
	}
	return int32(sym.SlotHint), nil
}

func (c *Compiler) loop() *loopCtx {
	if len(c.loops) == 0 {
		return nil
	}
	return c.loops[len(c.loops)-1]
}

func internalErr(format string, args ...interface{}) error {
	return fmt.Errorf("ircompile: "+format, args...)
}
