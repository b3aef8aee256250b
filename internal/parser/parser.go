// Package parser turns a internal/lexer token stream into an
// internal/ast tree. Grounded on the teacher's own internal/parser: a
// hand-written recursive-descent parser with a precedence-climbing
// expression parser and match/check/consume/advance helper methods,
// generalized from the teacher's small statement/expression set to
// internal/ast's fuller grammar (structs, enums, impl blocks, match,
// try/catch, ranges, f-strings). Parse errors panic with a
// *errors.SentraError and are recovered at Parse's boundary into the
// Errors slice, the same convention the teacher's parser used.
//
// Per this repo's scope, lexer/parser correctness matters only up to
// producing a well-formed internal/ast tree for internal/analyzer and
// internal/ircompile to consume; it is not a production-grade,
// fully-diagnosed front end.
package parser

import (
	"fmt"

	"sentra/internal/ast"
	"sentra/internal/errors"
	"sentra/internal/lexer"
)

type Parser struct {
	tokens  []lexer.Token
	current int
	file    string
	Errors  []error
}

func NewParser(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens, Errors: []error{}}
}

func NewParserFile(tokens []lexer.Token, file string) *Parser {
	return &Parser{tokens: tokens, file: file, Errors: []error{}}
}

// Parse consumes the whole token stream and returns the resulting
// Program. A syntax error aborts parsing (recovered from the internal
// panic) and is appended to p.Errors; Program is returned with
// whatever was parsed before the error.
func (p *Parser) Parse() (prog *ast.Program) {
	prog = &ast.Program{File: p.file}
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				p.Errors = append(p.Errors, err)
			} else {
				p.Errors = append(p.Errors, fmt.Errorf("parser panic: %v", r))
			}
		}
	}()
	for !p.isAtEnd() {
		s := p.topLevel()
		if use, ok := s.(*ast.UseStmt); ok {
			prog.Uses = append(prog.Uses, use)
			continue
		}
		prog.Stmts = append(prog.Stmts, s)
	}
	return prog
}

func (p *Parser) topLevel() ast.Stmt {
	var s ast.Stmt
	switch {
	case p.match(lexer.TokenUse):
		s = p.useStatement()
	case p.match(lexer.TokenFn):
		s = p.funcDecl()
	case p.match(lexer.TokenStruct):
		s = p.structDecl()
	case p.match(lexer.TokenEnum):
		s = p.enumDecl()
	case p.match(lexer.TokenImpl):
		s = p.implBlock()
	default:
		s = p.statement()
	}
	p.match(lexer.TokenSemicolon) // optional statement separator
	return s
}

func (p *Parser) span(start lexer.Token) ast.Span {
	end := p.previous()
	return ast.Span{
		File:  p.file,
		Start: ast.Pos{Line: start.Line, Column: start.Column},
		End:   ast.Pos{Line: end.Line, Column: end.Column},
	}
}

// --- statements ---

func (p *Parser) statement() ast.Stmt {
	start := p.peek()
	switch {
	case p.match(lexer.TokenLet):
		return p.varDecl(start, true)
	case p.match(lexer.TokenVar):
		return p.varDecl(start, true)
	case p.match(lexer.TokenConst):
		return p.constDecl(start)
	case p.match(lexer.TokenIf):
		return p.ifStatement(start)
	case p.match(lexer.TokenWhile):
		return p.whileStatement(start)
	case p.match(lexer.TokenFor):
		return p.forStatement(start)
	case p.match(lexer.TokenMatch):
		return p.matchStatement(start)
	case p.match(lexer.TokenReturn):
		return p.returnStatement(start)
	case p.match(lexer.TokenBreak):
		return &ast.BreakStmt{Sp: p.span(start)}
	case p.match(lexer.TokenContinue):
		return &ast.ContinueStmt{Sp: p.span(start)}
	case p.match(lexer.TokenThrow):
		v := p.expression()
		return &ast.ThrowStmt{Value: v, Sp: p.span(start)}
	case p.match(lexer.TokenTry):
		return p.tryStatement(start)
	case p.check(lexer.TokenLBrace):
		return p.blockStmt(start)
	default:
		e := p.expression()
		return &ast.ExprStmt{Expr: e, Sp: p.span(start)}
	}
}

func (p *Parser) blockStmt(start lexer.Token) *ast.Block {
	p.consume(lexer.TokenLBrace, "expect '{' to start a block")
	var stmts []ast.Stmt
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		stmts = append(stmts, p.topLevel())
	}
	p.consume(lexer.TokenRBrace, "expect '}' after a block")
	return &ast.Block{Stmts: stmts, Sp: p.span(start)}
}

func (p *Parser) varDecl(start lexer.Token, mutable bool) ast.Stmt {
	name := p.consume(lexer.TokenIdent, "expect a variable name").Lexeme
	var t *ast.TypeExpr
	if p.match(lexer.TokenColon) {
		t = p.typeExpr()
	}
	var init ast.Expr
	if p.match(lexer.TokenEqual) {
		init = p.expression()
	}
	return &ast.VarDecl{Name: name, Type: t, Init: init, Mutable: mutable, Sp: p.span(start)}
}

func (p *Parser) constDecl(start lexer.Token) ast.Stmt {
	name := p.consume(lexer.TokenIdent, "expect a constant name").Lexeme
	var t *ast.TypeExpr
	if p.match(lexer.TokenColon) {
		t = p.typeExpr()
	}
	p.consume(lexer.TokenEqual, "expect '=' in a const declaration")
	init := p.expression()
	return &ast.ConstDecl{Name: name, Type: t, Init: init, Sp: p.span(start)}
}

func (p *Parser) typeExpr() *ast.TypeExpr {
	name := p.consume(lexer.TokenIdent, "expect a type name").Lexeme
	te := &ast.TypeExpr{Name: name}
	if p.match(lexer.TokenLT) {
		te.Params = append(te.Params, p.typeExpr())
		for p.match(lexer.TokenComma) {
			te.Params = append(te.Params, p.typeExpr())
		}
		p.consume(lexer.TokenGT, "expect '>' after type parameters")
	}
	return te
}

func (p *Parser) ifStatement(start lexer.Token) ast.Stmt {
	cond := p.expression()
	then := p.blockStmt(p.peek())
	var elifs []ast.ElifClause
	var elseBlock *ast.Block
	for p.match(lexer.TokenElif) {
		c := p.expression()
		b := p.blockStmt(p.peek())
		elifs = append(elifs, ast.ElifClause{Cond: c, Body: b})
	}
	if p.match(lexer.TokenElse) {
		if p.check(lexer.TokenIf) {
			p.advance()
			nested := p.ifStatement(p.peek())
			elseBlock = &ast.Block{Stmts: []ast.Stmt{nested}, Sp: nested.Span()}
		} else {
			elseBlock = p.blockStmt(p.peek())
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Elifs: elifs, Else: elseBlock, Sp: p.span(start)}
}

func (p *Parser) whileStatement(start lexer.Token) ast.Stmt {
	cond := p.expression()
	body := p.blockStmt(p.peek())
	return &ast.WhileStmt{Cond: cond, Body: body, Sp: p.span(start)}
}

func (p *Parser) forStatement(start lexer.Token) ast.Stmt {
	name := p.consume(lexer.TokenIdent, "expect a loop variable name").Lexeme
	p.consume(lexer.TokenIn, "expect 'in' in a for loop")
	iterable := p.rangeExpr()
	body := p.blockStmt(p.peek())
	return &ast.ForStmt{Var: name, Iterable: iterable, Body: body, Sp: p.span(start)}
}

func (p *Parser) matchStatement(start lexer.Token) ast.Stmt {
	scrutinee := p.expression()
	p.consume(lexer.TokenLBrace, "expect '{' to start a match body")
	var arms []ast.MatchArm
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		var arm ast.MatchArm
		if p.match(lexer.TokenUnderscore) {
			arm.Wildcard = true
		} else {
			arm.Pattern = p.expression()
		}
		p.consume(lexer.TokenArrow, "expect '=>' in a match arm")
		if p.check(lexer.TokenLBrace) {
			arm.Body = p.blockStmt(p.peek())
		} else {
			e := p.expression()
			arm.Body = &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{Expr: e, Sp: e.Span()}}, Sp: e.Span()}
		}
		arms = append(arms, arm)
		p.match(lexer.TokenComma)
	}
	p.consume(lexer.TokenRBrace, "expect '}' after a match body")
	return &ast.MatchStmt{Scrutinee: scrutinee, Arms: arms, Sp: p.span(start)}
}

func (p *Parser) returnStatement(start lexer.Token) ast.Stmt {
	var v ast.Expr
	if !p.check(lexer.TokenRBrace) && !p.check(lexer.TokenSemicolon) && !p.isAtEnd() {
		v = p.expression()
	}
	return &ast.ReturnStmt{Value: v, Sp: p.span(start)}
}

func (p *Parser) tryStatement(start lexer.Token) ast.Stmt {
	body := p.blockStmt(p.peek())
	p.consume(lexer.TokenCatch, "expect 'catch' after a try block")
	var catchVar string
	if p.match(lexer.TokenLParen) {
		catchVar = p.consume(lexer.TokenIdent, "expect a catch variable name").Lexeme
		p.consume(lexer.TokenRParen, "expect ')' after a catch variable")
	} else if p.check(lexer.TokenIdent) {
		catchVar = p.advance().Lexeme
	}
	handler := p.blockStmt(p.peek())
	return &ast.TryStmt{Body: body, CatchVar: catchVar, Handler: handler, Sp: p.span(start)}
}

func (p *Parser) useStatement() ast.Stmt {
	start := p.previous()
	var path string
	if p.check(lexer.TokenString) {
		path = p.advance().Lexeme
	} else {
		path = p.consume(lexer.TokenIdent, "expect a module path").Lexeme
		for p.match(lexer.TokenDoubleColon) {
			path += "::" + p.consume(lexer.TokenIdent, "expect a module path segment").Lexeme
		}
	}
	var alias string
	if p.match(lexer.TokenAs) {
		alias = p.consume(lexer.TokenIdent, "expect an alias name").Lexeme
	}
	return &ast.UseStmt{Path: path, Alias: alias, Sp: p.span(start)}
}

// --- declarations ---

func (p *Parser) funcDecl() ast.Stmt {
	start := p.previous()
	name := p.consume(lexer.TokenIdent, "expect a function name").Lexeme
	params := p.paramList()
	var ret *ast.TypeExpr
	if p.match(lexer.TokenColon) {
		ret = p.typeExpr()
	}
	var body *ast.Block
	if p.match(lexer.TokenArrow) {
		e := p.expression()
		body = &ast.Block{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: e, Sp: e.Span()}}, Sp: e.Span()}
	} else {
		body = p.blockStmt(p.peek())
	}
	return &ast.FuncDecl{Name: name, Params: params, Return: ret, Body: body, Sp: p.span(start)}
}

// paramList parses a parameter list. A leading `self` (an impl-block
// method's implicit receiver, see internal/analyzer's checkFunctionBody)
// is consumed but never added to the returned Params - the receiver's
// type comes from the enclosing ImplBlock.Target, not from a Param.
func (p *Parser) paramList() []ast.Param {
	p.consume(lexer.TokenLParen, "expect '(' after a function name")
	var params []ast.Param
	if p.check(lexer.TokenSelf) {
		p.advance()
		p.match(lexer.TokenComma)
	}
	if !p.check(lexer.TokenRParen) {
		params = append(params, p.param())
		for p.match(lexer.TokenComma) {
			params = append(params, p.param())
		}
	}
	p.consume(lexer.TokenRParen, "expect ')' after parameters")
	return params
}

func (p *Parser) param() ast.Param {
	name := p.consume(lexer.TokenIdent, "expect a parameter name").Lexeme
	var t *ast.TypeExpr
	if p.match(lexer.TokenColon) {
		t = p.typeExpr()
	}
	return ast.Param{Name: name, Type: t}
}

func (p *Parser) structDecl() ast.Stmt {
	start := p.previous()
	name := p.consume(lexer.TokenIdent, "expect a struct name").Lexeme
	p.consume(lexer.TokenLBrace, "expect '{' to start a struct body")
	var fields []ast.Field
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		fname := p.consume(lexer.TokenIdent, "expect a field name").Lexeme
		p.consume(lexer.TokenColon, "expect ':' after a field name")
		ftype := p.typeExpr()
		fields = append(fields, ast.Field{Name: fname, Type: ftype})
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRBrace, "expect '}' after a struct body")
	return &ast.StructDecl{Name: name, Fields: fields, Sp: p.span(start)}
}

func (p *Parser) enumDecl() ast.Stmt {
	start := p.previous()
	name := p.consume(lexer.TokenIdent, "expect an enum name").Lexeme
	p.consume(lexer.TokenLBrace, "expect '{' to start an enum body")
	var variants []ast.EnumVariant
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		vname := p.consume(lexer.TokenIdent, "expect a variant name").Lexeme
		var payload *ast.TypeExpr
		if p.match(lexer.TokenLParen) {
			payload = p.typeExpr()
			p.consume(lexer.TokenRParen, "expect ')' after a variant payload type")
		}
		variants = append(variants, ast.EnumVariant{Name: vname, PayloadType: payload})
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRBrace, "expect '}' after an enum body")
	return &ast.EnumDecl{Name: name, Variants: variants, Sp: p.span(start)}
}

func (p *Parser) implBlock() ast.Stmt {
	start := p.previous()
	target := p.consume(lexer.TokenIdent, "expect a target struct name").Lexeme
	p.consume(lexer.TokenLBrace, "expect '{' to start an impl body")
	var methods []*ast.FuncDecl
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		p.consume(lexer.TokenFn, "expect 'fn' for an impl-block method")
		fn := p.funcDecl().(*ast.FuncDecl)
		methods = append(methods, fn)
	}
	p.consume(lexer.TokenRBrace, "expect '}' after an impl body")
	return &ast.ImplBlock{Target: target, Methods: methods, Sp: p.span(start)}
}

// --- utility ---

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	cur := p.peek()
	panic(&errors.SentraError{
		Type:    errors.SyntaxError,
		Message: fmt.Sprintf("%s (got '%s')", msg, cur.Lexeme),
		Location: ast.Span{
			File:  p.file,
			Start: ast.Pos{Line: cur.Line, Column: cur.Column},
			End:   ast.Pos{Line: cur.Line, Column: cur.Column},
		},
	})
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) checkNext(t lexer.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.tokens[p.current-1]
}

func (p *Parser) previous() lexer.Token { return p.tokens[p.current-1] }
func (p *Parser) peek() lexer.Token     { return p.tokens[p.current] }
func (p *Parser) isAtEnd() bool         { return p.peek().Type == lexer.TokenEOF }
