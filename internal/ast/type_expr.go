package ast

// TypeExpr is the parser's syntax for a type annotation: a bare name
// (`int`, `str`, `MyStruct`) or a name with type parameters
// (`Array<int>`, `Map<str, int>`). The semantic analyzer (internal/analyzer)
// resolves a TypeExpr to an internal/types.Type.
type TypeExpr struct {
	Name   string
	Params []*TypeExpr
	Span   Span
}
