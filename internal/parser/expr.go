package parser

import (
	"fmt"

	"sentra/internal/ast"
	"sentra/internal/errors"
	"sentra/internal/lexer"
)

// expression parses a full expression via assignment, the lowest
// precedence level, then precedence-climbs down through the operator
// tiers to primary() - the same shape as the teacher's parseBinary,
// widened to the fuller operator set internal/ast's Binary/Unary/
// Assign/RangeExpr cover.
func (p *Parser) expression() ast.Expr { return p.assignment() }

func (p *Parser) assignment() ast.Expr {
	start := p.peek()
	left := p.logicalOr()
	if op, ok := assignOps[p.peek().Type]; ok {
		p.advance()
		value := p.assignment()
		return &ast.Assign{Op: op, Target: left, Value: value, Sp: p.span(start)}
	}
	return left
}

var assignOps = map[lexer.TokenType]string{
	lexer.TokenEqual:     "=",
	lexer.TokenPlusEq:    "+=",
	lexer.TokenMinusEq:   "-=",
	lexer.TokenStarEq:    "*=",
	lexer.TokenSlashEq:   "/=",
	lexer.TokenPercentEq: "%=",
	lexer.TokenAmpEq:     "&=",
	lexer.TokenPipeEq:    "|=",
	lexer.TokenCaretEq:   "^=",
	lexer.TokenShlEq:     "<<=",
	lexer.TokenShrEq:     ">>=",
}

// binaryLevel builds one precedence tier: parse next(), then fold in
// zero or more `op next()` at this tier, left-associatively.
func (p *Parser) binaryLevel(ops map[lexer.TokenType]string, next func() ast.Expr) ast.Expr {
	start := p.peek()
	left := next()
	for {
		op, ok := ops[p.peek().Type]
		if !ok {
			break
		}
		p.advance()
		right := next()
		left = &ast.Binary{Op: op, Left: left, Right: right, Sp: p.span(start)}
	}
	return left
}

var orOps = map[lexer.TokenType]string{lexer.TokenOr: "||"}
var andOps = map[lexer.TokenType]string{lexer.TokenAnd: "&&"}
var bitOrOps = map[lexer.TokenType]string{lexer.TokenPipe: "|"}
var bitXorOps = map[lexer.TokenType]string{lexer.TokenCaret: "^"}
var bitAndOps = map[lexer.TokenType]string{lexer.TokenAmp: "&"}
var equalityOps = map[lexer.TokenType]string{lexer.TokenDoubleEqual: "==", lexer.TokenNotEqual: "!="}
var comparisonOps = map[lexer.TokenType]string{
	lexer.TokenLT: "<", lexer.TokenGT: ">", lexer.TokenLE: "<=", lexer.TokenGE: ">=",
}
var shiftOps = map[lexer.TokenType]string{lexer.TokenShl: "<<", lexer.TokenShr: ">>"}
var additiveOps = map[lexer.TokenType]string{lexer.TokenPlus: "+", lexer.TokenMinus: "-"}
var multiplicativeOps = map[lexer.TokenType]string{
	lexer.TokenStar: "*", lexer.TokenSlash: "/", lexer.TokenSlashSlash: "//", lexer.TokenPercent: "%",
}

func (p *Parser) logicalOr() ast.Expr  { return p.binaryLevel(orOps, p.logicalAnd) }
func (p *Parser) logicalAnd() ast.Expr { return p.binaryLevel(andOps, p.bitOr) }
func (p *Parser) bitOr() ast.Expr      { return p.binaryLevel(bitOrOps, p.bitXor) }
func (p *Parser) bitXor() ast.Expr     { return p.binaryLevel(bitXorOps, p.bitAnd) }
func (p *Parser) bitAnd() ast.Expr     { return p.binaryLevel(bitAndOps, p.equality) }
func (p *Parser) equality() ast.Expr   { return p.binaryLevel(equalityOps, p.comparison) }
func (p *Parser) comparison() ast.Expr { return p.binaryLevel(comparisonOps, p.shift) }
func (p *Parser) shift() ast.Expr      { return p.binaryLevel(shiftOps, p.rangeExpr) }

func (p *Parser) rangeExpr() ast.Expr {
	start := p.peek()
	left := p.additive()
	if p.check(lexer.TokenDotDot) || p.check(lexer.TokenDotDotEq) {
		inclusive := p.peek().Type == lexer.TokenDotDotEq
		p.advance()
		end := p.additive()
		return &ast.RangeExpr{Start: left, End: end, Inclusive: inclusive, Sp: p.span(start)}
	}
	return left
}

func (p *Parser) additive() ast.Expr       { return p.binaryLevel(additiveOps, p.multiplicative) }
func (p *Parser) multiplicative() ast.Expr { return p.binaryLevel(multiplicativeOps, p.power) }

func (p *Parser) power() ast.Expr {
	start := p.peek()
	left := p.unary()
	if p.match(lexer.TokenStarStar) {
		right := p.power() // right-associative: 2 ** 3 ** 2 == 2 ** (3 ** 2)
		return &ast.Binary{Op: "**", Left: left, Right: right, Sp: p.span(start)}
	}
	return left
}

func (p *Parser) unary() ast.Expr {
	start := p.peek()
	switch {
	case p.match(lexer.TokenNot):
		return &ast.Unary{Op: "!", Operand: p.unary(), Sp: p.span(start)}
	case p.match(lexer.TokenMinus):
		return &ast.Unary{Op: "-", Operand: p.unary(), Sp: p.span(start)}
	case p.match(lexer.TokenTilde):
		return &ast.Unary{Op: "~", Operand: p.unary(), Sp: p.span(start)}
	case p.match(lexer.TokenPlusPlus):
		return &ast.Unary{Op: "++", Operand: p.unary(), Sp: p.span(start)}
	case p.match(lexer.TokenMinusMinus):
		return &ast.Unary{Op: "--", Operand: p.unary(), Sp: p.span(start)}
	default:
		return p.postfix()
	}
}

func (p *Parser) postfix() ast.Expr {
	start := p.peek()
	expr := p.call()
	for {
		switch {
		case p.match(lexer.TokenPlusPlus):
			expr = &ast.Unary{Op: "++", Operand: expr, Postfix: true, Sp: p.span(start)}
		case p.match(lexer.TokenMinusMinus):
			expr = &ast.Unary{Op: "--", Operand: expr, Postfix: true, Sp: p.span(start)}
		default:
			return expr
		}
	}
}

func (p *Parser) call() ast.Expr {
	start := p.peek()
	expr := p.primary()
	for {
		switch {
		case p.match(lexer.TokenLParen):
			expr = &ast.Call{Callee: expr, Args: p.argList(), Sp: p.span(start)}
		case p.match(lexer.TokenLBracket):
			idx := p.expression()
			p.consume(lexer.TokenRBracket, "expect ']' after an index expression")
			expr = &ast.Index{Object: expr, Index: idx, Sp: p.span(start)}
		case p.match(lexer.TokenDot):
			name := p.consume(lexer.TokenIdent, "expect a member name after '.'").Lexeme
			if p.match(lexer.TokenLParen) {
				expr = &ast.MethodCall{Receiver: expr, Method: name, Args: p.argList(), Sp: p.span(start)}
			} else {
				expr = &ast.Member{Object: expr, Name: name, Sp: p.span(start)}
			}
		default:
			return expr
		}
	}
}

func (p *Parser) argList() []ast.Expr {
	var args []ast.Expr
	if !p.check(lexer.TokenRParen) {
		args = append(args, p.expression())
		for p.match(lexer.TokenComma) {
			args = append(args, p.expression())
		}
	}
	p.consume(lexer.TokenRParen, "expect ')' after arguments")
	return args
}

func (p *Parser) primary() ast.Expr {
	start := p.peek()
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenInt:
		v, err := lexer.ParseIntLiteral(tok.Lexeme)
		if err != nil {
			p.syntaxError(tok, fmt.Sprintf("invalid integer literal %q", tok.Lexeme))
		}
		return &ast.IntLit{Value: v, Sp: p.span(start)}
	case lexer.TokenFloat:
		v, err := lexer.ParseFloatLiteral(tok.Lexeme)
		if err != nil {
			p.syntaxError(tok, fmt.Sprintf("invalid float literal %q", tok.Lexeme))
		}
		return &ast.FloatLit{Value: v, Sp: p.span(start)}
	case lexer.TokenString:
		return &ast.StringLit{Value: tok.Lexeme, Sp: p.span(start)}
	case lexer.TokenFStart:
		return p.fstring(tok, start)
	case lexer.TokenChar:
		r := []rune(tok.Lexeme)
		var v rune
		if len(r) > 0 {
			v = r[0]
		}
		return &ast.CharLit{Value: v, Sp: p.span(start)}
	case lexer.TokenTrue:
		return &ast.BoolLit{Value: true, Sp: p.span(start)}
	case lexer.TokenFalse:
		return &ast.BoolLit{Value: false, Sp: p.span(start)}
	case lexer.TokenNull:
		return &ast.NullLit{Sp: p.span(start)}
	case lexer.TokenSelf:
		return &ast.SelfExpr{Sp: p.span(start)}
	case lexer.TokenIdent:
		if p.check(lexer.TokenLBrace) && p.looksLikeStructLit() {
			return p.structLit(tok, start)
		}
		return &ast.Ident{Name: tok.Lexeme, Sp: p.span(start)}
	case lexer.TokenLParen:
		inner := p.expression()
		p.consume(lexer.TokenRParen, "expect ')' after a parenthesized expression")
		return &ast.Group{Inner: inner, Sp: p.span(start)}
	case lexer.TokenLBracket:
		return p.arrayLit(start)
	case lexer.TokenLBrace:
		return p.mapLit(start)
	default:
		p.syntaxError(tok, fmt.Sprintf("unexpected token in expression: '%s'", tok.Lexeme))
		return nil
	}
}

// looksLikeStructLit disambiguates `Name { field: value }` from a
// bare identifier followed by an unrelated block (e.g. `if cond { ... }`
// never reaches here since `if` is parsed as a statement, but a bare
// expression statement `Point {x: 1}` is genuinely ambiguous with a
// block - this scope resolves it greedily: any `Ident {` with an
// immediate `ident :` or a closing brace right after is a struct literal).
func (p *Parser) looksLikeStructLit() bool {
	saved := p.current
	defer func() { p.current = saved }()
	p.advance() // consume '{'
	if p.check(lexer.TokenRBrace) {
		return true
	}
	if !p.check(lexer.TokenIdent) {
		return false
	}
	p.advance()
	return p.check(lexer.TokenColon)
}

func (p *Parser) structLit(nameTok, start lexer.Token) ast.Expr {
	p.consume(lexer.TokenLBrace, "expect '{' to start a struct literal")
	var fields []string
	var values []ast.Expr
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		fname := p.consume(lexer.TokenIdent, "expect a field name").Lexeme
		p.consume(lexer.TokenColon, "expect ':' after a field name")
		fields = append(fields, fname)
		values = append(values, p.expression())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRBrace, "expect '}' after a struct literal")
	return &ast.StructLit{TypeName: nameTok.Lexeme, Fields: fields, Values: values, Sp: p.span(start)}
}

func (p *Parser) arrayLit(start lexer.Token) ast.Expr {
	var elems []ast.Expr
	for !p.check(lexer.TokenRBracket) && !p.isAtEnd() {
		elems = append(elems, p.expression())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRBracket, "expect ']' after array elements")
	return &ast.ArrayLit{Elements: elems, Sp: p.span(start)}
}

func (p *Parser) mapLit(start lexer.Token) ast.Expr {
	var keys, values []ast.Expr
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		k := p.expression()
		p.consume(lexer.TokenColon, "expect ':' after a map key")
		v := p.expression()
		keys = append(keys, k)
		values = append(values, v)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRBrace, "expect '}' after a map literal")
	return &ast.MapLit{Keys: keys, Values: values, Sp: p.span(start)}
}

// fstring re-tokenizes an f-string's raw body into alternating literal
// text and `{expr}` holes, scanning each hole with its own lexer.Scanner
// and parser.Parser - internal/lexer already separated `f"..."` from
// the surrounding stream as one TokenFStart lexeme, so this is purely a
// second, narrower scan of that one lexeme's text.
func (p *Parser) fstring(tok, start lexer.Token) ast.Expr {
	var parts []ast.FStringPart
	body := tok.Lexeme
	i := 0
	for i < len(body) {
		j := i
		for j < len(body) && body[j] != '{' {
			j++
		}
		if j > i {
			parts = append(parts, ast.FStringPart{Text: body[i:j]})
		}
		if j >= len(body) {
			break
		}
		depth := 1
		k := j + 1
		for k < len(body) && depth > 0 {
			switch body[k] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth > 0 {
				k++
			}
		}
		holeSrc := body[j+1 : k]
		holeTokens := lexer.NewScannerFile(holeSrc, p.file).ScanTokens()
		holeParser := NewParserFile(holeTokens, p.file)
		expr := holeParser.expression()
		p.Errors = append(p.Errors, holeParser.Errors...)
		parts = append(parts, ast.FStringPart{Expr: expr})
		i = k + 1
	}
	return &ast.FString{Parts: parts, Sp: p.span(start)}
}

func (p *Parser) syntaxError(tok lexer.Token, msg string) {
	panic(&errors.SentraError{
		Type:    errors.SyntaxError,
		Message: msg,
		Location: ast.Span{
			File:  p.file,
			Start: ast.Pos{Line: tok.Line, Column: tok.Column},
			End:   ast.Pos{Line: tok.Line, Column: tok.Column},
		},
	})
}
