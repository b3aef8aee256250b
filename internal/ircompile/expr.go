package ircompile

import (
	"sentra/internal/ast"
	"sentra/internal/ir"
	"sentra/internal/values"
)

// compileExpr lowers e, leaving exactly one value on the stack, or
// records the first error encountered in c.err.
func (c *Compiler) compileExpr(e ast.Expr) error {
	c.err = nil
	e.Accept(c)
	return c.err
}

func (c *Compiler) fail(err error) interface{} {
	if c.err == nil {
		c.err = err
	}
	return nil
}

var binaryOps = map[string]ir.OpCode{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul, "/": ir.OpDiv,
	"//": ir.OpFloorDiv, "%": ir.OpMod, "**": ir.OpPow,
	"==": ir.OpEq, "!=": ir.OpNeq, "<": ir.OpLt, "<=": ir.OpLte,
	">": ir.OpGt, ">=": ir.OpGte,
	"&": ir.OpBAnd, "|": ir.OpBOr, "^": ir.OpBXor, "<<": ir.OpShl, ">>": ir.OpShr,
}

func (c *Compiler) VisitIntLit(e *ast.IntLit) interface{} {
	c.emit(ir.OpConst, c.constIndex(values.BoxInt(e.Value)), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitFloatLit(e *ast.FloatLit) interface{} {
	c.emit(ir.OpConst, c.constIndex(values.BoxNumber(e.Value)), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitStringLit(e *ast.StringLit) interface{} {
	c.emit(ir.OpConst, c.constIndex(values.BoxString(e.Value)), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitBoolLit(e *ast.BoolLit) interface{} {
	c.emit(ir.OpConst, c.constIndex(values.BoxBool(e.Value)), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitNullLit(e *ast.NullLit) interface{} {
	c.emit(ir.OpConst, c.constIndex(values.Nil()), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitCharLit(e *ast.CharLit) interface{} {
	c.emit(ir.OpConst, c.constIndex(values.BoxChar(e.Value)), 0, 0, e.Sp.Start.Line)
	return nil
}

// VisitFString lowers an interpolated string to a sequence of pushes
// (literal text as a string constant, each embedded expression
// compiled in place) followed by OpStringConcatN, which the engine
// renders with the same coercions as tostr().
func (c *Compiler) VisitFString(e *ast.FString) interface{} {
	for _, part := range e.Parts {
		if part.Expr != nil {
			if err := c.compileExpr(part.Expr); err != nil {
				return c.fail(err)
			}
			continue
		}
		c.emit(ir.OpConst, c.constIndex(values.BoxString(part.Text)), 0, 0, e.Sp.Start.Line)
	}
	c.emit(ir.OpStringConcatN, int32(len(e.Parts)), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitIdent(e *ast.Ident) interface{} {
	sym, ok := c.scopes.Resolve(e.Name)
	if !ok {
		return c.fail(internalErr("undefined symbol %q reached ircompile (analyzer should have rejected it)", e.Name))
	}
	if sym.SlotHint >= 0 {
		c.emit(ir.OpLoadVar, int32(sym.SlotHint), 0, 0, e.Sp.Start.Line)
	} else {
		c.emit(ir.OpLoadGlobal, c.strIndex(e.Name), 0, 0, e.Sp.Start.Line)
	}
	return nil
}

func (c *Compiler) VisitSelfExpr(e *ast.SelfExpr) interface{} {
	sym, ok := c.scopes.Resolve("self")
	if !ok {
		return c.fail(internalErr("self used outside a method"))
	}
	c.emit(ir.OpLoadVar, int32(sym.SlotHint), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitUnary(e *ast.Unary) interface{} {
	if e.Op == "++" || e.Op == "--" {
		return c.compileIncDec(e)
	}
	if err := c.compileExpr(e.Operand); err != nil {
		return c.fail(err)
	}
	switch e.Op {
	case "-":
		c.emit(ir.OpNeg, 0, 0, 0, e.Sp.Start.Line)
	case "!":
		c.emit(ir.OpNot, 0, 0, 0, e.Sp.Start.Line)
	case "~":
		c.emit(ir.OpBNot, 0, 0, 0, e.Sp.Start.Line)
	default:
		return c.fail(internalErr("unknown unary operator %q", e.Op))
	}
	return nil
}

// compileIncDec lowers `++x`, `x++`, `--x`, `x--` as a compound
// assignment over x plus 1, leaving the pre- or post-increment value
// on the stack as the expression's result.
func (c *Compiler) compileIncDec(e *ast.Unary) interface{} {
	delta := int64(1)
	if e.Op == "--" {
		delta = -1
	}
	assign := &ast.Assign{
		Op:     "+=",
		Target: e.Operand,
		Value:  &ast.IntLit{Value: delta, Sp: e.Sp},
		Sp:     e.Sp,
	}
	if e.Postfix {
		if err := c.compileExpr(e.Operand); err != nil {
			return c.fail(err)
		}
		c.emit(ir.OpDup, 0, 0, 0, e.Sp.Start.Line)
	}
	if err := c.compileAssign(assign, !e.Postfix); err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Compiler) VisitBinary(e *ast.Binary) interface{} {
	if e.Op == "&&" {
		return c.compileAnd(e)
	}
	if e.Op == "||" {
		return c.compileOr(e)
	}
	if err := c.compileExpr(e.Left); err != nil {
		return c.fail(err)
	}
	if err := c.compileExpr(e.Right); err != nil {
		return c.fail(err)
	}
	op, ok := binaryOps[e.Op]
	if !ok {
		return c.fail(internalErr("unknown binary operator %q", e.Op))
	}
	c.emit(op, 0, 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) compileAnd(e *ast.Binary) interface{} {
	if err := c.compileExpr(e.Left); err != nil {
		return c.fail(err)
	}
	c.emit(ir.OpDup, 0, 0, 0, e.Sp.Start.Line)
	shortCircuit := c.emit(ir.OpJumpIfFalse, 0, 0, 0, e.Sp.Start.Line)
	c.emit(ir.OpPop, 0, 0, 0, e.Sp.Start.Line)
	if err := c.compileExpr(e.Right); err != nil {
		return c.fail(err)
	}
	c.patchTarget(shortCircuit, c.here())
	return nil
}

func (c *Compiler) compileOr(e *ast.Binary) interface{} {
	if err := c.compileExpr(e.Left); err != nil {
		return c.fail(err)
	}
	c.emit(ir.OpDup, 0, 0, 0, e.Sp.Start.Line)
	shortCircuit := c.emit(ir.OpJumpIfTrue, 0, 0, 0, e.Sp.Start.Line)
	c.emit(ir.OpPop, 0, 0, 0, e.Sp.Start.Line)
	if err := c.compileExpr(e.Right); err != nil {
		return c.fail(err)
	}
	c.patchTarget(shortCircuit, c.here())
	return nil
}

func (c *Compiler) VisitRangeExpr(e *ast.RangeExpr) interface{} {
	if err := c.compileExpr(e.Start); err != nil {
		return c.fail(err)
	}
	if err := c.compileExpr(e.End); err != nil {
		return c.fail(err)
	}
	incl := int32(0)
	if e.Inclusive {
		incl = 1
	}
	c.emit(ir.OpMakeRange, 0, 0, incl, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitAssign(e *ast.Assign) interface{} {
	if err := c.compileAssign(e, true); err != nil {
		return c.fail(err)
	}
	return nil
}

// compileAssign lowers target OP= value, leaving the assigned value on
// the stack when leaveValue is true (an assignment used as an
// expression's result), or nothing when used as a bare statement.
func (c *Compiler) compileAssign(e *ast.Assign, leaveValue bool) error {
	if e.Op != "=" {
		// Compound assignment: load current target value, then reduce
		// using the corresponding binary op before storing.
		plainOp := e.Op[:len(e.Op)-1] // strip trailing '='
		if err := c.compileExpr(e.Target); err != nil {
			return err
		}
		if err := c.compileExpr(e.Value); err != nil {
			return err
		}
		op, ok := binaryOps[plainOp]
		if !ok {
			return internalErr("unknown compound assignment operator %q", e.Op)
		}
		c.emit(op, 0, 0, 0, e.Sp.Start.Line)
	} else {
		if err := c.compileExpr(e.Value); err != nil {
			return err
		}
	}

	if leaveValue {
		c.emit(ir.OpDup, 0, 0, 0, e.Sp.Start.Line)
	}
	return c.compileStore(e.Target, e.Sp.Start.Line)
}

func (c *Compiler) compileStore(target ast.Expr, line int) error {
	switch t := target.(type) {
	case *ast.Ident:
		sym, ok := c.scopes.Resolve(t.Name)
		if !ok {
			return internalErr("undefined symbol %q reached ircompile store", t.Name)
		}
		if sym.SlotHint >= 0 {
			c.emit(ir.OpStoreVar, int32(sym.SlotHint), 0, 0, line)
		} else {
			c.emit(ir.OpStoreGlobal, c.strIndex(t.Name), 0, 0, line)
		}
		return nil
	case *ast.Member:
		if err := c.compileExpr(t.Object); err != nil {
			return err
		}
		c.emit(ir.OpSetField, c.strIndex(t.Name), 0, 0, line)
		return nil
	case *ast.Index:
		if err := c.compileExpr(t.Object); err != nil {
			return err
		}
		if err := c.compileExpr(t.Index); err != nil {
			return err
		}
		c.emit(ir.OpIndexSet, 0, 0, 0, line)
		return nil
	default:
		return internalErr("invalid assignment target %T reached ircompile", target)
	}
}

func (c *Compiler) VisitCall(e *ast.Call) interface{} {
	// EnumType.Variant(payload) constructs a payload-carrying enum
	// value; Sentra has no dedicated enum-literal AST node, so this is
	// recognized here from the Member-callee shape.
	if member, ok := e.Callee.(*ast.Member); ok {
		if enumIdent, ok := member.Object.(*ast.Ident); ok {
			if enumType, isEnum := c.mod.Enums[enumIdent.Name]; isEnum && enumType.HasVariant(member.Name) {
				if len(e.Args) != 1 {
					return c.fail(internalErr("enum variant %s.%s expects exactly one payload argument", enumIdent.Name, member.Name))
				}
				if err := c.compileExpr(e.Args[0]); err != nil {
					return c.fail(err)
				}
				typeConst := c.constIndex(stringConstValue(enumIdent.Name))
				variantConst := c.constIndex(stringConstValue(member.Name))
				c.emit(ir.OpMakeEnum, typeConst, variantConst, 1, e.Sp.Start.Line)
				return nil
			}
		}
	}

	callee, ok := e.Callee.(*ast.Ident)
	if !ok {
		return c.fail(internalErr("indirect calls are not yet supported by ircompile"))
	}
	if isBuiltinName(callee.Name) {
		for _, a := range e.Args {
			if err := c.compileExpr(a); err != nil {
				return c.fail(err)
			}
		}
		c.emit(ir.OpCallBuiltin, c.strIndex(callee.Name), int32(len(e.Args)), 0, e.Sp.Start.Line)
		return nil
	}
	if err := c.compileExpr(callee); err != nil {
		return c.fail(err)
	}
	for _, a := range e.Args {
		if err := c.compileExpr(a); err != nil {
			return c.fail(err)
		}
	}
	c.emit(ir.OpCall, int32(len(e.Args)), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitMethodCall(e *ast.MethodCall) interface{} {
	if err := c.compileExpr(e.Receiver); err != nil {
		return c.fail(err)
	}
	for _, a := range e.Args {
		if err := c.compileExpr(a); err != nil {
			return c.fail(err)
		}
	}
	c.emit(ir.OpCallMethod, c.strIndex(e.Method), int32(len(e.Args)+1), 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitMember(e *ast.Member) interface{} {
	// EnumType.Variant (a unit variant, no payload) is recognized here
	// the same way VisitCall recognizes the payload-carrying form.
	if enumIdent, ok := e.Object.(*ast.Ident); ok {
		if enumType, isEnum := c.mod.Enums[enumIdent.Name]; isEnum && enumType.HasVariant(e.Name) {
			typeConst := c.constIndex(stringConstValue(enumIdent.Name))
			variantConst := c.constIndex(stringConstValue(e.Name))
			c.emit(ir.OpMakeEnum, typeConst, variantConst, 0, e.Sp.Start.Line)
			return nil
		}
	}
	if err := c.compileExpr(e.Object); err != nil {
		return c.fail(err)
	}
	c.emit(ir.OpGetField, c.strIndex(e.Name), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitIndex(e *ast.Index) interface{} {
	if err := c.compileExpr(e.Object); err != nil {
		return c.fail(err)
	}
	if err := c.compileExpr(e.Index); err != nil {
		return c.fail(err)
	}
	c.emit(ir.OpIndexGet, 0, 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitArrayLit(e *ast.ArrayLit) interface{} {
	for _, elem := range e.Elements {
		if err := c.compileExpr(elem); err != nil {
			return c.fail(err)
		}
	}
	c.emit(ir.OpMakeArray, int32(len(e.Elements)), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitMapLit(e *ast.MapLit) interface{} {
	for i := range e.Keys {
		if err := c.compileExpr(e.Keys[i]); err != nil {
			return c.fail(err)
		}
		if err := c.compileExpr(e.Values[i]); err != nil {
			return c.fail(err)
		}
	}
	c.emit(ir.OpMakeMap, int32(len(e.Keys)), 0, 0, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitStructLit(e *ast.StructLit) interface{} {
	for _, v := range e.Values {
		if err := c.compileExpr(v); err != nil {
			return c.fail(err)
		}
	}
	nameConst := c.constIndex(fieldNamesValue(e.Fields))
	typeConst := c.constIndex(stringConstValue(e.TypeName))
	c.emit(ir.OpMakeStruct, typeConst, int32(len(e.Fields)), nameConst, e.Sp.Start.Line)
	return nil
}

func (c *Compiler) VisitGroup(e *ast.Group) interface{} {
	if err := c.compileExpr(e.Inner); err != nil {
		return c.fail(err)
	}
	return nil
}

// fieldNamesValue and stringConstValue box compiler-only bookkeeping
// data (a struct literal's field name order) as a Sentra array/string
// the engine can decode when executing OpMakeStruct; this keeps the
// instruction's operands as plain int32 constant-pool indices rather
// than growing Instr beyond three operands.
func fieldNamesValue(names []string) values.Value {
	elems := make([]values.Value, len(names))
	for i, n := range names {
		elems[i] = values.BoxString(n)
	}
	return values.BoxArray(elems)
}

func stringConstValue(s string) values.Value { return values.BoxString(s) }
