package ircompile

import (
	"sentra/internal/ast"
	"sentra/internal/ir"
	"sentra/internal/scope"
	"sentra/internal/types"
)

// hoistTypes registers every struct/enum declaration (and the methods
// attached via impl blocks) into the module before any function body
// is compiled, so a struct literal or method call appearing earlier in
// source than its declaration still resolves. Mirrors the teacher's
// two-pass hoisting philosophy from hoisting_compiler.go, applied here
// to type declarations rather than just functions.
func (c *Compiler) hoistTypes(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.StructDecl:
			st := &types.StructType{
				Name:       s.Name,
				FieldNames: make([]string, 0, len(s.Fields)),
				FieldTypes: make(map[string]types.Type),
				Methods:    make(map[string]*types.FunctionType),
			}
			for _, f := range s.Fields {
				st.FieldNames = append(st.FieldNames, f.Name)
				st.FieldTypes[f.Name] = resolveTypeExpr(f.Type)
			}
			c.mod.Structs[s.Name] = st
		case *ast.EnumDecl:
			et := &types.EnumType{
				Name:         s.Name,
				VariantNames: make([]string, 0, len(s.Variants)),
				Payloads:     make(map[string]types.Type),
			}
			for _, v := range s.Variants {
				et.VariantNames = append(et.VariantNames, v.Name)
				if v.PayloadType != nil {
					et.Payloads[v.Name] = resolveTypeExpr(v.PayloadType)
				}
			}
			c.mod.Enums[s.Name] = et
		}
	}
	return nil
}

// hoistFunctions compiles every top-level function declaration and
// impl-block method ahead of the main statement pass, per spec
// section 4.2 ("functions are visible for the whole enclosing scope
// regardless of declaration order").
func (c *Compiler) hoistFunctions(stmts []ast.Stmt) error {
	// A call site compiles its callee as an ordinary expression (so
	// indirect/higher-order calls share one OpCall path), which means
	// a bare function name must resolve through the same global symbol
	// table as any other identifier. Declare every hoisted function's
	// name as a global symbol up front, before compiling any body, so
	// forward references and recursive calls both resolve.
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.FuncDecl:
			c.declareFunctionSymbol(s.Name, s.Sp)
		case *ast.ImplBlock:
			for _, m := range s.Methods {
				c.declareFunctionSymbol(s.Target+"."+m.Name, m.Sp)
			}
		}
	}
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.FuncDecl:
			if err := c.compileFunction(s.Name, s); err != nil {
				return err
			}
		case *ast.ImplBlock:
			for _, m := range s.Methods {
				qualified := s.Target + "." + m.Name
				if err := c.compileFunction(qualified, m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// declareFunctionSymbol registers name as a global, SlotHint -1
// symbol so VisitIdent emits OpLoadGlobal for it; the engine
// pre-populates the global table with a boxed Function value per
// hoisted name before running "main" (internal/engine). Re-declaring
// a name the analyzer would already have rejected as a duplicate is
// ignored here since ircompile trusts its input has passed analysis.
func (c *Compiler) declareFunctionSymbol(name string, sp ast.Span) {
	sym := &scope.Symbol{Name: name, Kind: scope.SymFunction, Mutable: false, Type: types.Any, Init: scope.Initialized, Span: sp, SlotHint: -1}
	_ = c.scopes.Declare(sym)
}

func (c *Compiler) compileFunction(name string, decl *ast.FuncDecl) error {
	outerFn, outerSlot := c.fn, c.slot

	fn := &ir.Function{
		Name:    name,
		Arity:   len(decl.Params),
		Strings: c.mod.Strings,
		Constants: c.mod.Constants,
	}
	// An impl-block method is compiled under "Target.method" and takes
	// its receiver as an implicit first parameter, self, in slot 0.
	isMethod := name != decl.Name
	if isMethod {
		fn.Arity++
		fn.Params = append(fn.Params, "self")
		fn.ParamTypes = append(fn.ParamTypes, types.Any)
	}
	for _, p := range decl.Params {
		fn.Params = append(fn.Params, p.Name)
		fn.ParamTypes = append(fn.ParamTypes, resolveTypeExpr(p.Type))
	}
	fn.Return = resolveTypeExpr(decl.Return)

	c.fn = fn
	c.slot = 0
	c.scopes.Push(scope.FunctionScope)

	if isMethod {
		if _, err := c.declareVar("self", scope.SymParameter, false, types.Any, decl.Sp); err != nil {
			c.scopes.Pop()
			c.fn, c.slot = outerFn, outerSlot
			return err
		}
	}
	for _, p := range decl.Params {
		if _, err := c.declareVar(p.Name, scope.SymParameter, false, resolveTypeExpr(p.Type), decl.Sp); err != nil {
			c.scopes.Pop()
			c.fn, c.slot = outerFn, outerSlot
			return err
		}
	}

	for _, stmt := range decl.Body.Stmts {
		if err := c.compileStmt(stmt); err != nil {
			c.scopes.Pop()
			c.fn, c.slot = outerFn, outerSlot
			return err
		}
	}
	if len(fn.Code) == 0 || (fn.Code[len(fn.Code)-1].Op != ir.OpReturn && fn.Code[len(fn.Code)-1].Op != ir.OpReturnVoid) {
		c.emit(ir.OpReturnVoid, 0, 0, 0, decl.Sp.Start.Line)
	}
	fn.MaxSlot = int(c.slot)

	c.scopes.Pop()
	c.fn, c.slot = outerFn, outerSlot

	c.mod.Functions = append(c.mod.Functions, fn)
	return nil
}

// resolveTypeExpr converts a parsed type annotation into a types.Type.
// A nil annotation (no `: Type` given) is Sentra's implicit Any.
func resolveTypeExpr(te *ast.TypeExpr) types.Type {
	if te == nil {
		return types.Any
	}
	switch te.Name {
	case "int":
		return types.Int
	case "float":
		return types.Float
	case "bool":
		return types.Bool
	case "str":
		return types.Str
	case "char":
		return types.Char
	case "null":
		return types.Null
	case "Any":
		return types.Any
	case "Array":
		if len(te.Params) == 1 {
			return &types.ArrayType{Elem: resolveTypeExpr(te.Params[0])}
		}
		return &types.ArrayType{Elem: types.Any}
	case "Map":
		if len(te.Params) == 2 {
			return &types.MapType{Key: resolveTypeExpr(te.Params[0]), Value: resolveTypeExpr(te.Params[1])}
		}
		return &types.MapType{Key: types.Str, Value: types.Any}
	default:
		// A named struct/enum type; resolved against the module's
		// registered declarations by the analyzer, here treated
		// opaquely by name since the compiler only needs the name for
		// MakeStruct/MakeEnum instructions, not its field layout.
		return &types.StructType{Name: te.Name}
	}
}
