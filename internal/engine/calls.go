package engine

import (
	"sentra/internal/errors"
	"sentra/internal/ir"
	"sentra/internal/values"
)

// callValue implements OpCall's by-value calling convention
// (internal/ircompile's VisitCall compiles every callee, builtin calls
// aside, as an ordinary expression producing a boxed Function or
// NativeFnObj): dispatch on what was actually popped off the stack
// rather than on a static callee name.
func (f *frame) callValue(callee values.Value, args []values.Value, line int) (values.Value, error) {
	if !values.IsFunction(callee) {
		return values.Nil(), errors.NewRuntimeError(errors.KindTypeCoercionFailure,
			"value is not callable", loc(line))
	}
	if isNativeFn(callee) {
		native := values.AsNativeFn(callee)
		if len(args) != native.Arity {
			return values.Nil(), errors.NewRuntimeError(errors.KindArgumentCountMismatch,
				"wrong number of arguments to "+native.Name, loc(line))
		}
		v, err := native.Function(args)
		if err != nil {
			return values.Nil(), asRuntimeErr(err, line)
		}
		return v, nil
	}
	fnObj := values.AsFunction(callee)
	fn, ok := fnObj.Ref.(*ir.Function)
	if !ok {
		return values.Nil(), errors.NewInternalError("function value has no backing IR", loc(line))
	}
	if len(args) != fn.Arity {
		return values.Nil(), errors.NewRuntimeError(errors.KindArgumentCountMismatch,
			"wrong number of arguments to "+fn.Name, loc(line))
	}
	return f.engine.callDepth(fn, args, f.depth+1)
}

// isNativeFn distinguishes the two kinds IsFunction accepts. Both
// FunctionObj and NativeFnObj embed Object as their first field, so
// reading the Kind through an *AsFunction cast is safe regardless of
// the box's real underlying type - the same header-reinterpretation
// trick internal/values' own asObject helper uses internally.
func isNativeFn(v values.Value) bool {
	return values.AsFunction(v).Kind == values.ObjNativeFn
}

// callMethod resolves receiver.methodName against the module's
// impl-block methods, qualified as "TypeName.methodName" the same way
// internal/ircompile/decl.go's hoistFunctions registers them, then
// calls it with the receiver prepended as the method's first ("self")
// argument.
func (f *frame) callMethod(receiver values.Value, methodName string, args []values.Value, line int) (values.Value, error) {
	typeName := values.TypeOf(receiver)
	if values.IsStruct(receiver) {
		typeName = values.AsStruct(receiver).TypeName
	}
	qualified := typeName + "." + methodName
	fn, ok := f.engine.mod.FindFunction(qualified)
	if !ok {
		return values.Nil(), errors.NewRuntimeError(errors.KindKeyNotFound,
			"no method "+methodName+" on "+typeName, loc(line))
	}
	full := append([]values.Value{receiver}, args...)
	if len(full) != fn.Arity {
		return values.Nil(), errors.NewRuntimeError(errors.KindArgumentCountMismatch,
			"wrong number of arguments to "+qualified, loc(line))
	}
	return f.engine.callDepth(fn, full, f.depth+1)
}

func (e *Engine) lookupGlobal(name string) (values.Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.globals[name]
	return v, ok
}

func (e *Engine) storeGlobal(name string, v values.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals[name] = v
}
