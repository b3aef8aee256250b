package analyzer

import (
	"sentra/internal/ast"
	"sentra/internal/errors"
	"sentra/internal/scope"
	"sentra/internal/types"
)

// inferExpr type-checks e and returns its inferred type, reporting any
// diagnostic along the way. It never panics on a malformed tree; a
// node it can't make sense of degrades to types.Unknown rather than
// aborting the pass, matching the rest of the analyzer's never-abort
// contract.
func (a *Analyzer) inferExpr(e ast.Expr) types.Type {
	switch e := e.(type) {
	case *ast.IntLit:
		return types.Int
	case *ast.FloatLit:
		return types.Float
	case *ast.StringLit:
		return types.Str
	case *ast.BoolLit:
		return types.Bool
	case *ast.NullLit:
		return types.Null
	case *ast.CharLit:
		return types.Char
	case *ast.FString:
		return a.inferFString(e)
	case *ast.Ident:
		return a.inferIdent(e)
	case *ast.SelfExpr:
		if sym, ok := a.scopes.Resolve("self"); ok {
			return sym.Type
		}
		a.errorf(errors.KindUndefinedSymbol, e.Sp, "self used outside a method")
		return types.Unknown
	case *ast.Unary:
		return a.inferUnary(e)
	case *ast.Binary:
		return a.inferBinary(e)
	case *ast.RangeExpr:
		a.inferExpr(e.Start)
		a.inferExpr(e.End)
		return &types.ArrayType{Elem: types.Int}
	case *ast.Assign:
		return a.inferAssign(e)
	case *ast.Call:
		return a.inferCall(e)
	case *ast.MethodCall:
		return a.inferMethodCall(e)
	case *ast.Member:
		return a.inferMember(e)
	case *ast.Index:
		return a.inferIndex(e)
	case *ast.ArrayLit:
		return a.inferArrayLit(e)
	case *ast.MapLit:
		return a.inferMapLit(e)
	case *ast.StructLit:
		return a.inferStructLit(e)
	case *ast.Group:
		return a.inferExpr(e.Inner)
	}
	return types.Unknown
}

func (a *Analyzer) inferFString(e *ast.FString) types.Type {
	for _, part := range e.Parts {
		if part.Expr != nil {
			t := a.inferExpr(part.Expr)
			if !types.Compatible(types.Str, t, true) {
				a.errorf(errors.KindTypeMismatch, part.Expr.Span(), "%s cannot be interpolated into a string", t)
			}
		}
	}
	return types.Str
}

func (a *Analyzer) inferIdent(e *ast.Ident) types.Type {
	sym, ok := a.scopes.Resolve(e.Name)
	if !ok {
		if _, isBuiltin := builtinSignatures[e.Name]; isBuiltin {
			return types.Any
		}
		a.errorf(errors.KindUndefinedSymbol, e.Sp, "undefined symbol %q", e.Name)
		return types.Unknown
	}
	if sym.Init == scope.Uninitialized {
		a.report(errors.SeverityWarning, errors.KindUninitializedVariable, "use of possibly uninitialized variable "+e.Name, e.Sp)
	}
	return sym.Type
}

func (a *Analyzer) inferUnary(e *ast.Unary) types.Type {
	t := a.inferExpr(e.Operand)
	switch e.Op {
	case "!":
		return types.Bool
	case "-":
		if !types.IsNumeric(t) && !types.Equal(t, types.Any) && !types.Equal(t, types.Unknown) {
			a.errorf(errors.KindTypeMismatch, e.Sp, "unary - requires a numeric operand, got %s", t)
		}
		return t
	case "~":
		if !types.Equal(t, types.Int) && !types.Equal(t, types.Any) && !types.Equal(t, types.Unknown) {
			a.errorf(errors.KindTypeMismatch, e.Sp, "~ requires an int operand, got %s", t)
		}
		return types.Int
	case "++", "--":
		a.checkLValue(e.Operand)
		return t
	}
	return types.Unknown
}

func (a *Analyzer) inferBinary(e *ast.Binary) types.Type {
	lt := a.inferExpr(e.Left)
	rt := a.inferExpr(e.Right)
	switch e.Op {
	case "&&", "||":
		return types.Bool
	case "==", "!=":
		return types.Bool
	case "<", "<=", ">", ">=":
		if !types.IsNumeric(lt) && !types.Equal(lt, types.Str) && !types.Equal(lt, types.Char) && !types.Equal(lt, types.Any) && !types.Equal(lt, types.Unknown) {
			a.errorf(errors.KindTypeMismatch, e.Sp, "%s is not comparable with %s", lt, e.Op)
		}
		return types.Bool
	case "+":
		if types.Equal(lt, types.Str) || types.Equal(rt, types.Str) || types.Equal(lt, types.Char) || types.Equal(rt, types.Char) {
			return types.Str
		}
		return a.inferArithResult(e, lt, rt)
	case "-", "*", "/", "%", "**":
		return a.inferArithResult(e, lt, rt)
	case "&", "|", "^", "<<", ">>":
		return types.Int
	}
	return types.Unknown
}

func (a *Analyzer) inferArithResult(e *ast.Binary, lt, rt types.Type) types.Type {
	if types.Equal(lt, types.Any) || types.Equal(rt, types.Any) || types.Equal(lt, types.Unknown) || types.Equal(rt, types.Unknown) {
		return types.Any
	}
	if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
		a.errorf(errors.KindTypeMismatch, e.Sp, "operator %s requires numeric operands, got %s and %s", e.Op, lt, rt)
		return types.Unknown
	}
	if types.Equal(lt, types.Float) || types.Equal(rt, types.Float) {
		return types.Float
	}
	return types.Int
}

func (a *Analyzer) checkLValue(e ast.Expr) {
	switch t := e.(type) {
	case *ast.Ident:
		sym, ok := a.scopes.Resolve(t.Name)
		if !ok {
			a.errorf(errors.KindUndefinedSymbol, t.Sp, "undefined symbol %q", t.Name)
			return
		}
		if !sym.Mutable {
			a.errorf(errors.KindInvalidLValue, t.Sp, "cannot assign to immutable binding %q", t.Name)
		}
	case *ast.Member, *ast.Index:
		// field/index targets are always assignable if their object resolves
	default:
		a.errorf(errors.KindInvalidLValue, e.Span(), "invalid assignment target")
	}
}

func (a *Analyzer) inferAssign(e *ast.Assign) types.Type {
	a.checkLValue(e.Target)
	targetType := a.inferExpr(e.Target)
	valType := a.inferExpr(e.Value)
	if e.Op != "=" {
		return a.inferArithResult(&ast.Binary{Op: e.Op[:len(e.Op)-1], Left: e.Target, Right: e.Value, Sp: e.Sp}, targetType, valType)
	}
	if !types.Compatible(targetType, valType, false) {
		a.errorf(errors.KindTypeMismatch, e.Sp, "cannot assign %s to target of type %s", valType, targetType)
	}
	return targetType
}

func (a *Analyzer) inferCall(e *ast.Call) types.Type {
	if member, ok := e.Callee.(*ast.Member); ok {
		if ident, ok := member.Object.(*ast.Ident); ok {
			if enumType, isEnum := a.enums[ident.Name]; isEnum && enumType.HasVariant(member.Name) {
				for _, arg := range e.Args {
					a.inferExpr(arg)
				}
				return enumType
			}
		}
	}
	ident, ok := e.Callee.(*ast.Ident)
	if !ok {
		a.inferExpr(e.Callee)
		for _, arg := range e.Args {
			a.inferExpr(arg)
		}
		return types.Any
	}
	if sig, isBuiltin := builtinSignatures[ident.Name]; isBuiltin {
		for _, arg := range e.Args {
			a.inferExpr(arg)
		}
		return sig
	}
	ft, ok := a.funcs[ident.Name]
	if !ok {
		a.errorf(errors.KindUndefinedSymbol, ident.Sp, "call to undefined function %q", ident.Name)
		for _, arg := range e.Args {
			a.inferExpr(arg)
		}
		return types.Unknown
	}
	if len(e.Args) != len(ft.Params) {
		a.errorf(errors.KindArgumentCountMismatch, e.Sp, "function %q expects %d argument(s), got %d", ident.Name, len(ft.Params), len(e.Args))
	}
	for i, arg := range e.Args {
		argType := a.inferExpr(arg)
		if i < len(ft.Params) && !types.Compatible(ft.Params[i], argType, false) {
			a.errorf(errors.KindTypeMismatch, arg.Span(), "argument %d to %q: cannot use %s as %s", i+1, ident.Name, argType, ft.Params[i])
		}
	}
	return ft.Return
}

func (a *Analyzer) inferMethodCall(e *ast.MethodCall) types.Type {
	recvType := a.inferExpr(e.Receiver)
	for _, arg := range e.Args {
		a.inferExpr(arg)
	}
	st, ok := recvType.(*types.StructType)
	if !ok {
		return types.Any
	}
	method, ok := st.Methods[e.Method]
	if !ok {
		if full, ok := a.funcs[st.Name+"."+e.Method]; ok {
			return full.Return
		}
		a.errorf(errors.KindUndefinedSymbol, e.Sp, "%s has no method %q", st.Name, e.Method)
		return types.Unknown
	}
	return method.Return
}

func (a *Analyzer) inferMember(e *ast.Member) types.Type {
	if ident, ok := e.Object.(*ast.Ident); ok {
		if enumType, isEnum := a.enums[ident.Name]; isEnum && enumType.HasVariant(e.Name) {
			return enumType
		}
	}
	objType := a.inferExpr(e.Object)
	st, ok := objType.(*types.StructType)
	if !ok {
		return types.Any
	}
	ft, ok := st.FieldType(e.Name)
	if !ok {
		a.errorf(errors.KindUndefinedSymbol, e.Sp, "%s has no field %q", st.Name, e.Name)
		return types.Unknown
	}
	return ft
}

func (a *Analyzer) inferIndex(e *ast.Index) types.Type {
	objType := a.inferExpr(e.Object)
	idxType := a.inferExpr(e.Index)
	switch ot := objType.(type) {
	case *types.ArrayType:
		if !types.Equal(idxType, types.Int) && !types.Equal(idxType, types.Any) {
			a.errorf(errors.KindTypeMismatch, e.Index.Span(), "array index must be int, got %s", idxType)
		}
		return ot.Elem
	case *types.MapType:
		if !types.Compatible(ot.Key, idxType, false) {
			a.errorf(errors.KindTypeMismatch, e.Index.Span(), "map key must be %s, got %s", ot.Key, idxType)
		}
		return ot.Value
	}
	return types.Any
}

func (a *Analyzer) inferArrayLit(e *ast.ArrayLit) types.Type {
	if len(e.Elements) == 0 {
		return &types.ArrayType{Elem: types.Any}
	}
	elem := a.inferExpr(e.Elements[0])
	for _, el := range e.Elements[1:] {
		t := a.inferExpr(el)
		if !types.Equal(t, elem) {
			elem = types.Any
		}
	}
	return &types.ArrayType{Elem: elem}
}

func (a *Analyzer) inferMapLit(e *ast.MapLit) types.Type {
	keyType := types.Type(types.Any)
	valType := types.Type(types.Any)
	for i := range e.Keys {
		kt := a.inferExpr(e.Keys[i])
		vt := a.inferExpr(e.Values[i])
		if i == 0 {
			keyType, valType = kt, vt
		} else {
			if !types.Equal(kt, keyType) {
				keyType = types.Any
			}
			if !types.Equal(vt, valType) {
				valType = types.Any
			}
		}
	}
	return &types.MapType{Key: keyType, Value: valType}
}

func (a *Analyzer) inferStructLit(e *ast.StructLit) types.Type {
	st, ok := a.structs[e.TypeName]
	if !ok {
		a.errorf(errors.KindUndefinedSymbol, e.Sp, "undefined struct type %q", e.TypeName)
		for _, v := range e.Values {
			a.inferExpr(v)
		}
		return types.Unknown
	}
	seen := make(map[string]bool, len(e.Fields))
	for i, name := range e.Fields {
		seen[name] = true
		vt := a.inferExpr(e.Values[i])
		ft, ok := st.FieldType(name)
		if !ok {
			a.errorf(errors.KindUndefinedSymbol, e.Sp, "%s has no field %q", st.Name, name)
			continue
		}
		if !types.Compatible(ft, vt, false) {
			a.errorf(errors.KindTypeMismatch, e.Values[i].Span(), "field %q of %s: cannot use %s as %s", name, st.Name, vt, ft)
		}
	}
	for _, name := range st.FieldNames {
		if !seen[name] {
			a.errorf(errors.KindArgumentCountMismatch, e.Sp, "missing field %q in %s literal", name, st.Name)
		}
	}
	return st
}
