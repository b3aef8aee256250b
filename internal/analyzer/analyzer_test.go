package analyzer

import (
	"testing"

	"sentra/internal/ast"
	"sentra/internal/errors"
)

func sp() ast.Span { return ast.Span{} }

func hasKind(diags []errors.Diagnostic, kind errors.Kind) bool {
	for _, d := range diags {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

func TestUndefinedSymbol(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.ExprStmt{Expr: &ast.Ident{Name: "missing", Sp: sp()}, Sp: sp()},
	}}
	_, diags := Analyze(prog)
	if !hasKind(diags, errors.KindUndefinedSymbol) {
		t.Errorf("expected UndefinedSymbol diagnostic, got %v", diags)
	}
}

func TestDuplicateVarDeclSameScope(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.VarDecl{Name: "x", Init: &ast.IntLit{Value: 1, Sp: sp()}, Mutable: true, Sp: sp()},
		&ast.VarDecl{Name: "x", Init: &ast.IntLit{Value: 2, Sp: sp()}, Mutable: true, Sp: sp()},
	}}
	_, diags := Analyze(prog)
	if !hasKind(diags, errors.KindDuplicateDefinition) {
		t.Errorf("expected DuplicateDefinition diagnostic, got %v", diags)
	}
}

func TestTypeMismatchOnVarDecl(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.VarDecl{
			Name:    "x",
			Type:    &ast.TypeExpr{Name: "int"},
			Init:    &ast.StringLit{Value: "nope", Sp: sp()},
			Mutable: true,
			Sp:      sp(),
		},
	}}
	_, diags := Analyze(prog)
	if !hasKind(diags, errors.KindTypeMismatch) {
		t.Errorf("expected TypeMismatch diagnostic, got %v", diags)
	}
}

func TestBreakOutsideLoop(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.BreakStmt{Sp: sp()},
	}}
	_, diags := Analyze(prog)
	if !hasKind(diags, errors.KindBreakOutsideLoop) {
		t.Errorf("expected BreakOutsideLoop diagnostic, got %v", diags)
	}
}

func TestBreakInsideLoopIsLegal(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.WhileStmt{
			Cond: &ast.BoolLit{Value: true, Sp: sp()},
			Body: &ast.Block{Stmts: []ast.Stmt{&ast.BreakStmt{Sp: sp()}}, Sp: sp()},
			Sp:   sp(),
		},
	}}
	_, diags := Analyze(prog)
	if hasKind(diags, errors.KindBreakOutsideLoop) {
		t.Errorf("did not expect BreakOutsideLoop diagnostic, got %v", diags)
	}
}

func TestMissingReturn(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.FuncDecl{
			Name:   "f",
			Return: &ast.TypeExpr{Name: "int"},
			Body:   &ast.Block{Stmts: []ast.Stmt{}, Sp: sp()},
			Sp:     sp(),
		},
	}}
	_, diags := Analyze(prog)
	if !hasKind(diags, errors.KindMissingReturn) {
		t.Errorf("expected MissingReturn diagnostic, got %v", diags)
	}
}

func TestNonExhaustiveMatchWarns(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.MatchStmt{
			Scrutinee: &ast.IntLit{Value: 1, Sp: sp()},
			Arms: []ast.MatchArm{
				{Pattern: &ast.IntLit{Value: 1, Sp: sp()}, Body: &ast.Block{Sp: sp()}},
			},
			Sp: sp(),
		},
	}}
	_, diags := Analyze(prog)
	if !hasKind(diags, errors.KindNonExhaustiveMatch) {
		t.Errorf("expected NonExhaustiveMatch diagnostic, got %v", diags)
	}
}

func TestUnusedLocalWarns(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.FuncDecl{
			Name: "f",
			Body: &ast.Block{Stmts: []ast.Stmt{
				&ast.VarDecl{Name: "unused", Init: &ast.IntLit{Value: 1, Sp: sp()}, Mutable: true, Sp: sp()},
			}, Sp: sp()},
			Sp: sp(),
		},
	}}
	_, diags := Analyze(prog)
	if !hasKind(diags, errors.KindUnusedSymbol) {
		t.Errorf("expected UnusedSymbol diagnostic, got %v", diags)
	}
}

func TestStructLiteralMissingField(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.StructDecl{Name: "Point", Fields: []ast.Field{
			{Name: "x", Type: &ast.TypeExpr{Name: "int"}},
			{Name: "y", Type: &ast.TypeExpr{Name: "int"}},
		}, Sp: sp()},
		&ast.ExprStmt{Expr: &ast.StructLit{
			TypeName: "Point",
			Fields:   []string{"x"},
			Values:   []ast.Expr{&ast.IntLit{Value: 1, Sp: sp()}},
			Sp:       sp(),
		}, Sp: sp()},
	}}
	_, diags := Analyze(prog)
	if !hasKind(diags, errors.KindArgumentCountMismatch) {
		t.Errorf("expected ArgumentCountMismatch diagnostic for missing field, got %v", diags)
	}
}

func TestCallArgumentCountMismatch(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{
		&ast.FuncDecl{
			Name:   "add",
			Params: []ast.Param{{Name: "a", Type: &ast.TypeExpr{Name: "int"}}, {Name: "b", Type: &ast.TypeExpr{Name: "int"}}},
			Return: &ast.TypeExpr{Name: "int"},
			Body:   &ast.Block{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: &ast.IntLit{Value: 0, Sp: sp()}, Sp: sp()}}, Sp: sp()},
			Sp:     sp(),
		},
		&ast.ExprStmt{Expr: &ast.Call{
			Callee: &ast.Ident{Name: "add", Sp: sp()},
			Args:   []ast.Expr{&ast.IntLit{Value: 1, Sp: sp()}},
			Sp:     sp(),
		}, Sp: sp()},
	}}
	_, diags := Analyze(prog)
	if !hasKind(diags, errors.KindArgumentCountMismatch) {
		t.Errorf("expected ArgumentCountMismatch diagnostic, got %v", diags)
	}
}

func TestProgramReturnedUnchanged(t *testing.T) {
	prog := &ast.Program{Stmts: []ast.Stmt{}}
	out, _ := Analyze(prog)
	if out != prog {
		t.Errorf("Analyze must return the same *Program it was given")
	}
}
