package ast

// Stmt is any statement node.
type Stmt interface {
	Accept(v StmtVisitor) interface{}
	Span() Span
}

// Block is an ordered sequence of statements sharing one block scope.
type Block struct {
	Stmts []Stmt
	Sp    Span
}

func (s *Block) Accept(v StmtVisitor) interface{} { return v.VisitBlock(s) }
func (s *Block) Span() Span                       { return s.Sp }

// Param is a function parameter: name with optional type annotation.
type Param struct {
	Name string
	Type *TypeExpr
}

// VarDecl is `var name: Type = init` (Mutable=true) or `let` sugar for
// the same when the grammar treats `let` as the mutable binding form.
type VarDecl struct {
	Name    string
	Type    *TypeExpr
	Init    Expr // nil when declared without an initializer
	Mutable bool
	Sp      Span
}

func (s *VarDecl) Accept(v StmtVisitor) interface{} { return v.VisitVarDecl(s) }
func (s *VarDecl) Span() Span                       { return s.Sp }

// ConstDecl is `const name: Type = init`; always initialized, never
// reassignable.
type ConstDecl struct {
	Name string
	Type *TypeExpr
	Init Expr
	Sp   Span
}

func (s *ConstDecl) Accept(v StmtVisitor) interface{} { return v.VisitConstDecl(s) }
func (s *ConstDecl) Span() Span                       { return s.Sp }

// FuncDecl is a function (or impl-block method) declaration.
type FuncDecl struct {
	Name   string
	Params []Param
	Return *TypeExpr // nil means implicit null return
	Body   *Block
	Sp     Span
}

func (s *FuncDecl) Accept(v StmtVisitor) interface{} { return v.VisitFuncDecl(s) }
func (s *FuncDecl) Span() Span                       { return s.Sp }

// Field is a struct field declaration.
type Field struct {
	Name string
	Type *TypeExpr
}

// StructDecl declares a named struct type with ordered fields.
type StructDecl struct {
	Name   string
	Fields []Field
	Sp     Span
}

func (s *StructDecl) Accept(v StmtVisitor) interface{} { return v.VisitStructDecl(s) }
func (s *StructDecl) Span() Span                       { return s.Sp }

// EnumVariant is one variant of an enum, with an optional payload type.
type EnumVariant struct {
	Name        string
	PayloadType *TypeExpr // nil for a unit variant
}

// EnumDecl declares a named enum type with ordered variants.
type EnumDecl struct {
	Name     string
	Variants []EnumVariant
	Sp       Span
}

func (s *EnumDecl) Accept(v StmtVisitor) interface{} { return v.VisitEnumDecl(s) }
func (s *EnumDecl) Span() Span                       { return s.Sp }

// ImplBlock attaches a set of methods to a named struct type.
type ImplBlock struct {
	Target  string
	Methods []*FuncDecl
	Sp      Span
}

func (s *ImplBlock) Accept(v StmtVisitor) interface{} { return v.VisitImplBlock(s) }
func (s *ImplBlock) Span() Span                       { return s.Sp }

// ElifClause is one `elif cond { body }` link in an if-chain.
type ElifClause struct {
	Cond Expr
	Body *Block
}

// IfStmt is an if/elif/else chain.
type IfStmt struct {
	Cond  Expr
	Then  *Block
	Elifs []ElifClause
	Else  *Block // nil when there is no else branch
	Sp    Span
}

func (s *IfStmt) Accept(v StmtVisitor) interface{} { return v.VisitIfStmt(s) }
func (s *IfStmt) Span() Span                       { return s.Sp }

// WhileStmt is a while loop.
type WhileStmt struct {
	Cond Expr
	Body *Block
	Sp   Span
}

func (s *WhileStmt) Accept(v StmtVisitor) interface{} { return v.VisitWhileStmt(s) }
func (s *WhileStmt) Span() Span                       { return s.Sp }

// ForStmt is `for loopVar in iterable { body }`. The iterable may be a
// RangeExpr or any array-valued expression.
type ForStmt struct {
	Var      string
	Iterable Expr
	Body     *Block
	Sp       Span
}

func (s *ForStmt) Accept(v StmtVisitor) interface{} { return v.VisitForStmt(s) }
func (s *ForStmt) Span() Span                       { return s.Sp }

// MatchArm is one `pattern => body` (or `_ => body`) arm.
type MatchArm struct {
	Pattern    Expr // nil when Wildcard is true
	Wildcard   bool
	Body       *Block
}

// MatchStmt is a pattern-match over a scrutinee expression.
type MatchStmt struct {
	Scrutinee Expr
	Arms      []MatchArm
	Sp        Span
}

func (s *MatchStmt) Accept(v StmtVisitor) interface{} { return v.VisitMatchStmt(s) }
func (s *MatchStmt) Span() Span                       { return s.Sp }

// ReturnStmt returns from the enclosing function, optionally with a value.
type ReturnStmt struct {
	Value Expr // nil for a bare `return`
	Sp    Span
}

func (s *ReturnStmt) Accept(v StmtVisitor) interface{} { return v.VisitReturnStmt(s) }
func (s *ReturnStmt) Span() Span                       { return s.Sp }

// BreakStmt exits the nearest enclosing loop.
type BreakStmt struct {
	Sp Span
}

func (s *BreakStmt) Accept(v StmtVisitor) interface{} { return v.VisitBreakStmt(s) }
func (s *BreakStmt) Span() Span                       { return s.Sp }

// ContinueStmt skips to the next iteration of the nearest enclosing loop.
type ContinueStmt struct {
	Sp Span
}

func (s *ContinueStmt) Accept(v StmtVisitor) interface{} { return v.VisitContinueStmt(s) }
func (s *ContinueStmt) Span() Span                       { return s.Sp }

// ThrowStmt raises a value as an exception.
type ThrowStmt struct {
	Value Expr
	Sp    Span
}

func (s *ThrowStmt) Accept(v StmtVisitor) interface{} { return v.VisitThrowStmt(s) }
func (s *ThrowStmt) Span() Span                       { return s.Sp }

// TryStmt is a try/catch block; CatchVar binds the caught value inside Handler.
type TryStmt struct {
	Body     *Block
	CatchVar string
	Handler  *Block
	Sp       Span
}

func (s *TryStmt) Accept(v StmtVisitor) interface{} { return v.VisitTryStmt(s) }
func (s *TryStmt) Span() Span                       { return s.Sp }

// UseStmt imports a module path, optionally under an alias.
type UseStmt struct {
	Path  string
	Alias string // empty when no `as` clause is present
	Sp    Span
}

func (s *UseStmt) Accept(v StmtVisitor) interface{} { return v.VisitUseStmt(s) }
func (s *UseStmt) Span() Span                       { return s.Sp }

// ExprStmt wraps an expression used for its side effect; its value is
// discarded.
type ExprStmt struct {
	Expr Expr
	Sp   Span
}

func (s *ExprStmt) Accept(v StmtVisitor) interface{} { return v.VisitExprStmt(s) }
func (s *ExprStmt) Span() Span                       { return s.Sp }

// Program is the root node: an entry file's ordered statements plus
// its use-declarations hoisted for import-graph resolution.
type Program struct {
	File  string
	Uses  []*UseStmt
	Stmts []Stmt
}

// StmtVisitor dispatches over every Stmt variant.
type StmtVisitor interface {
	VisitBlock(s *Block) interface{}
	VisitVarDecl(s *VarDecl) interface{}
	VisitConstDecl(s *ConstDecl) interface{}
	VisitFuncDecl(s *FuncDecl) interface{}
	VisitStructDecl(s *StructDecl) interface{}
	VisitEnumDecl(s *EnumDecl) interface{}
	VisitImplBlock(s *ImplBlock) interface{}
	VisitIfStmt(s *IfStmt) interface{}
	VisitWhileStmt(s *WhileStmt) interface{}
	VisitForStmt(s *ForStmt) interface{}
	VisitMatchStmt(s *MatchStmt) interface{}
	VisitReturnStmt(s *ReturnStmt) interface{}
	VisitBreakStmt(s *BreakStmt) interface{}
	VisitContinueStmt(s *ContinueStmt) interface{}
	VisitThrowStmt(s *ThrowStmt) interface{}
	VisitTryStmt(s *TryStmt) interface{}
	VisitUseStmt(s *UseStmt) interface{}
	VisitExprStmt(s *ExprStmt) interface{}
}
