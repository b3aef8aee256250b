// Package ast defines the AST contract that the lexer/parser front end
// produces and that the semantic analyzer (internal/analyzer) and IR
// compiler (internal/ircompile) consume. Every node carries a source
// span so diagnostics and IR debug info can point back at the program
// text.
package ast

// Pos is a single point in a source file.
type Pos struct {
	Line   int
	Column int
}

// Span is a half-open byte range with line/column endpoints, matching
// the shape internal/errors.SourceLocation expects when rendering a
// diagnostic.
type Span struct {
	File  string
	Start Pos
	End   Pos
}
