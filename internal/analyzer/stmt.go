package analyzer

import (
	"sentra/internal/ast"
	"sentra/internal/errors"
	"sentra/internal/scope"
	"sentra/internal/types"
	"sentra/internal/values"
)

func (a *Analyzer) checkStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Block:
		a.checkBlock(s, scope.BlockScope)
	case *ast.VarDecl:
		a.checkVarDecl(s)
	case *ast.ConstDecl:
		a.checkConstDecl(s)
	case *ast.FuncDecl:
		a.checkFuncDecl(s)
	case *ast.StructDecl, *ast.EnumDecl:
		// fully handled during hoisting
	case *ast.ImplBlock:
		for _, m := range s.Methods {
			a.checkMethodDecl(s.Target, m)
		}
	case *ast.IfStmt:
		a.checkIfStmt(s)
	case *ast.WhileStmt:
		a.checkWhileStmt(s)
	case *ast.ForStmt:
		a.checkForStmt(s)
	case *ast.MatchStmt:
		a.checkMatchStmt(s)
	case *ast.ReturnStmt:
		a.checkReturnStmt(s)
	case *ast.BreakStmt:
		if !a.scopes.InLoop() {
			a.errorf(errors.KindBreakOutsideLoop, s.Sp, "break used outside a loop")
		}
	case *ast.ContinueStmt:
		if !a.scopes.InLoop() {
			a.errorf(errors.KindContinueOutsideLoop, s.Sp, "continue used outside a loop")
		}
	case *ast.ThrowStmt:
		a.inferExpr(s.Value)
	case *ast.TryStmt:
		a.checkTryStmt(s)
	case *ast.UseStmt:
		// module resolution happens outside analyzer's scope
	case *ast.ExprStmt:
		a.checkExprStmt(s)
	}
}

func (a *Analyzer) checkBlock(b *ast.Block, kind scope.Kind) {
	a.scopes.Push(kind)
	for _, stmt := range b.Stmts {
		a.checkStmt(stmt)
	}
	a.flagUnusedInCurrentScope()
	a.scopes.Pop()
}

// flagUnusedInCurrentScope emits UnusedSymbol warnings for local
// variables declared but never read in the scope about to be popped,
// per spec section 7's warning-class diagnostic. Parameters and
// functions are exempt: an unused parameter is routine (interface
// conformance, future use), and top-level-style noise isn't useful at
// block scope either.
func (a *Analyzer) flagUnusedInCurrentScope() {
	for _, sym := range a.scopes.Current().Symbols() {
		if sym.Kind != scope.SymVariable && sym.Kind != scope.SymConstant {
			continue
		}
		if sym.Uses == 0 {
			a.report(errors.SeverityWarning, errors.KindUnusedSymbol, "unused symbol "+sym.Name, sym.Span)
		}
	}
}

func (a *Analyzer) checkVarDecl(s *ast.VarDecl) {
	var initType types.Type = types.Unknown
	if s.Init != nil {
		initType = a.inferExpr(s.Init)
	}
	declared := resolveType(s.Type)
	if s.Type != nil && s.Init != nil && !types.Compatible(declared, initType, false) {
		a.errorf(errors.KindTypeMismatch, s.Sp, "cannot assign %s to variable %q of type %s", initType, s.Name, declared)
	}
	t := declared
	if s.Type == nil {
		t = initType
	}
	sym := &scope.Symbol{Name: s.Name, Kind: scope.SymVariable, Type: t, Mutable: s.Mutable, Init: scope.Initialized, Span: s.Sp}
	if s.Init == nil {
		sym.Init = scope.Uninitialized
	}
	if prior, exists := a.scopes.ResolveLocal(s.Name); exists {
		a.report(errors.SeverityError, errors.KindDuplicateDefinition, "duplicate definition of "+s.Name, s.Sp)
		_ = prior
		return
	}
	if _, shadowed := a.scopes.Resolve(s.Name); shadowed {
		a.report(errors.SeverityInfo, errors.KindShadowing, "declaration of "+s.Name+" shadows an outer binding", s.Sp)
	}
	_ = a.scopes.Declare(sym)
}

func (a *Analyzer) checkConstDecl(s *ast.ConstDecl) {
	initType := a.inferExpr(s.Init)
	declared := resolveType(s.Type)
	if s.Type != nil && !types.Compatible(declared, initType, false) {
		a.errorf(errors.KindTypeMismatch, s.Sp, "cannot assign %s to constant %q of type %s", initType, s.Name, declared)
	}
	t := declared
	if s.Type == nil {
		t = initType
	}
	sym := &scope.Symbol{Name: s.Name, Kind: scope.SymConstant, Type: t, Mutable: false, Init: scope.Initialized, Span: s.Sp}
	if prior, exists := a.scopes.ResolveLocal(s.Name); exists {
		a.report(errors.SeverityError, errors.KindDuplicateDefinition, "duplicate definition of "+s.Name, s.Sp)
		_ = prior
		return
	}
	_ = a.scopes.Declare(sym)
}

func (a *Analyzer) checkFuncDecl(s *ast.FuncDecl) {
	a.checkFunctionBody(s, "")
}

func (a *Analyzer) checkMethodDecl(target string, s *ast.FuncDecl) {
	a.checkFunctionBody(s, target)
}

func (a *Analyzer) checkFunctionBody(s *ast.FuncDecl, receiverType string) {
	a.scopes.Push(scope.FunctionScope)
	if receiverType != "" {
		_ = a.scopes.Declare(&scope.Symbol{Name: "self", Kind: scope.SymParameter, Type: &types.StructType{Name: receiverType}, Init: scope.Initialized, Span: s.Sp})
	}
	for _, p := range s.Params {
		if prior, exists := a.scopes.ResolveLocal(p.Name); exists {
			a.report(errors.SeverityError, errors.KindDuplicateDefinition, "duplicate parameter "+p.Name, s.Sp)
			_ = prior
			continue
		}
		_ = a.scopes.Declare(&scope.Symbol{Name: p.Name, Kind: scope.SymParameter, Type: resolveType(p.Type), Init: scope.Initialized, Span: s.Sp})
	}

	outerReturn := a.currentReturn
	a.currentReturn = resolveType(s.Return)

	returns := false
	for _, stmt := range s.Body.Stmts {
		a.checkStmt(stmt)
		if _, ok := stmt.(*ast.ReturnStmt); ok {
			returns = true
		}
	}
	if s.Return != nil && !returns && !blockAlwaysReturns(s.Body) {
		a.errorf(errors.KindMissingReturn, s.Sp, "function %q is missing a return on some path", s.Name)
	}

	a.currentReturn = outerReturn
	a.flagUnusedInCurrentScope()
	a.scopes.Pop()
}

// blockAlwaysReturns is a shallow reachability check (spec section 4.1
// "a conservative, non-exhaustive reachability check is acceptable"):
// true only when every statement-level branch of b provably returns.
func blockAlwaysReturns(b *ast.Block) bool {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *ast.ReturnStmt, *ast.ThrowStmt:
			return true
		case *ast.IfStmt:
			if s.Else == nil {
				continue
			}
			if !blockAlwaysReturns(s.Then) {
				continue
			}
			allElifsReturn := true
			for _, elif := range s.Elifs {
				if !blockAlwaysReturns(elif.Body) {
					allElifsReturn = false
					break
				}
			}
			if allElifsReturn && blockAlwaysReturns(s.Else) {
				return true
			}
		}
	}
	return false
}

func (a *Analyzer) checkIfStmt(s *ast.IfStmt) {
	a.checkCondition(s.Cond)
	a.checkBlock(s.Then, scope.ConditionalScope)
	for _, elif := range s.Elifs {
		a.checkCondition(elif.Cond)
		a.checkBlock(elif.Body, scope.ConditionalScope)
	}
	if s.Else != nil {
		a.checkBlock(s.Else, scope.ConditionalScope)
	}
}

func (a *Analyzer) checkCondition(e ast.Expr) {
	t := a.inferExpr(e)
	if !types.Equal(t, types.Bool) && !types.Equal(t, types.Any) && !types.Equal(t, types.Unknown) {
		a.errorf(errors.KindTypeMismatch, e.Span(), "condition must be bool, got %s", t)
	}
}

func (a *Analyzer) checkWhileStmt(s *ast.WhileStmt) {
	a.checkCondition(s.Cond)
	a.checkBlock(s.Body, scope.LoopScope)
}

func (a *Analyzer) checkForStmt(s *ast.ForStmt) {
	elemType := a.inferExpr(s.Iterable)
	loopVarType := types.Type(types.Any)
	if arr, ok := elemType.(*types.ArrayType); ok {
		loopVarType = arr.Elem
	} else if types.Equal(elemType, types.Int) {
		loopVarType = types.Int
	}
	a.scopes.Push(scope.LoopScope)
	_ = a.scopes.Declare(&scope.Symbol{Name: s.Var, Kind: scope.SymVariable, Type: loopVarType, Mutable: true, Init: scope.Initialized, Span: s.Sp})
	for _, stmt := range s.Body.Stmts {
		a.checkStmt(stmt)
	}
	a.scopes.Pop()
}

func (a *Analyzer) checkMatchStmt(s *ast.MatchStmt) {
	a.inferExpr(s.Scrutinee)
	hasWildcard := false
	var seen []ast.Expr
	for _, arm := range s.Arms {
		if arm.Wildcard {
			hasWildcard = true
		} else {
			a.inferExpr(arm.Pattern)
			if lit, ok := constLitValue(arm.Pattern); ok {
				for _, prev := range seen {
					if prevLit, ok := constLitValue(prev); ok && values.Equal(lit, prevLit) {
						a.errorf(errors.KindDuplicateMatchArm, arm.Pattern.Span(), "duplicate match arm: pattern already handled above")
						break
					}
				}
			}
			seen = append(seen, arm.Pattern)
		}
		a.checkBlock(arm.Body, scope.MatchScope)
	}
	if !hasWildcard {
		a.report(errors.SeverityWarning, errors.KindNonExhaustiveMatch, "match has no wildcard arm and may not cover every value", s.Sp)
	}
}

// constLitValue evaluates a match pattern that is a bare literal to the
// runtime value it denotes, so two arms can be compared under value
// equality per the duplicate-arm check above. Non-literal patterns
// (identifiers, calls, anything with side effects) are left alone -
// only literal patterns can be meaningfully unreachable by duplication.
func constLitValue(e ast.Expr) (values.Value, bool) {
	switch lit := e.(type) {
	case *ast.IntLit:
		return values.BoxInt(lit.Value), true
	case *ast.FloatLit:
		return values.BoxNumber(lit.Value), true
	case *ast.StringLit:
		return values.BoxString(lit.Value), true
	case *ast.CharLit:
		return values.BoxChar(lit.Value), true
	case *ast.BoolLit:
		return values.BoxBool(lit.Value), true
	case *ast.NullLit:
		return values.Nil(), true
	default:
		return values.Value(0), false
	}
}

func (a *Analyzer) checkReturnStmt(s *ast.ReturnStmt) {
	if !a.scopes.InFunction() {
		a.errorf(errors.KindReturnOutsideFunction, s.Sp, "return used outside a function")
		return
	}
	if s.Value == nil {
		return
	}
	t := a.inferExpr(s.Value)
	if a.currentReturn != nil && !types.Compatible(a.currentReturn, t, false) && !types.Equal(a.currentReturn, types.Any) {
		a.errorf(errors.KindTypeMismatch, s.Sp, "return value %s does not match declared return type %s", t, a.currentReturn)
	}
}

func (a *Analyzer) checkTryStmt(s *ast.TryStmt) {
	a.checkBlock(s.Body, scope.TryScope)
	a.scopes.Push(scope.TryScope)
	_ = a.scopes.Declare(&scope.Symbol{Name: s.CatchVar, Kind: scope.SymVariable, Type: types.Any, Mutable: true, Init: scope.Initialized, Span: s.Sp})
	for _, stmt := range s.Handler.Stmts {
		a.checkStmt(stmt)
	}
	a.scopes.Pop()
}

func (a *Analyzer) checkExprStmt(s *ast.ExprStmt) {
	a.inferExpr(s.Expr)
}
