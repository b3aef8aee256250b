package engine

import (
	"sentra/internal/errors"
	"sentra/internal/ir"
	"sentra/internal/values"
)

// arith dispatches the binary arithmetic opcodes to internal/values,
// the single place that implements Sentra's Int/Float widening rules
// (spec section 4.5).
func arith(op ir.OpCode, a, b values.Value) (values.Value, error) {
	switch op {
	case ir.OpAdd:
		return values.Add(a, b)
	case ir.OpSub:
		return values.Sub(a, b)
	case ir.OpMul:
		return values.Mul(a, b)
	case ir.OpDiv:
		return values.Div(a, b)
	case ir.OpFloorDiv:
		return values.FloorDiv(a, b)
	case ir.OpMod:
		return values.Mod(a, b)
	case ir.OpPow:
		return values.Pow(a, b)
	}
	return values.Nil(), errors.NewInternalError("unknown arithmetic opcode", loc(0))
}

// wrapArith turns a *values.ArithError into a located *errors.SentraError;
// internal/values has no dependency on internal/errors to avoid an
// import cycle (see values/ops.go's ArithError doc comment), so the
// engine performs this translation at every call site that touches
// arithmetic, comparison, or conversion helpers.
func wrapArith(err error, line int) error {
	if ae, ok := err.(*values.ArithError); ok {
		kind := errors.Kind(ae.Kind)
		return errors.NewRuntimeError(kind, ae.Msg, loc(line))
	}
	return err
}

// asRuntimeErr wraps a plain Go error (from the indexing/field helpers
// below) as a located internal invariant error if it is not already a
// *errors.SentraError.
func asRuntimeErr(err error, line int) error {
	if _, ok := err.(*errors.SentraError); ok {
		return err
	}
	return errors.NewInternalError(err.Error(), loc(line))
}

func indexGet(obj, idx values.Value, line int) (values.Value, error) {
	switch {
	case values.IsArray(obj):
		if !values.IsInt(idx) {
			return values.Nil(), errors.NewRuntimeError(errors.KindTypeCoercionFailure,
				"array index must be int", loc(line))
		}
		elems := values.AsArray(obj).Elements
		i := values.AsInt(idx)
		if i < 0 || i >= int64(len(elems)) {
			return values.Nil(), errors.NewRuntimeError(errors.KindIndexOutOfBounds,
				"array index out of bounds", loc(line))
		}
		return elems[i], nil
	case values.IsMap(obj):
		m := values.AsMap(obj)
		key := values.ToStr(idx)
		v, ok := m.Items[key]
		if !ok {
			return values.Nil(), errors.NewRuntimeError(errors.KindKeyNotFound,
				"key not found: "+key, loc(line))
		}
		return v, nil
	case values.IsString(obj):
		if !values.IsInt(idx) {
			return values.Nil(), errors.NewRuntimeError(errors.KindTypeCoercionFailure,
				"string index must be int", loc(line))
		}
		s := values.AsString(obj).Value
		i := values.AsInt(idx)
		if i < 0 || i >= int64(len(s)) {
			return values.Nil(), errors.NewRuntimeError(errors.KindIndexOutOfBounds,
				"string index out of bounds", loc(line))
		}
		return values.BoxString(string(s[i])), nil
	}
	return values.Nil(), errors.NewRuntimeError(errors.KindTypeCoercionFailure,
		"value is not indexable", loc(line))
}

func indexSet(obj, idx, val values.Value, line int) error {
	switch {
	case values.IsArray(obj):
		if !values.IsInt(idx) {
			return errors.NewRuntimeError(errors.KindTypeCoercionFailure,
				"array index must be int", loc(line))
		}
		a := values.AsArray(obj)
		i := values.AsInt(idx)
		if i < 0 || i >= int64(len(a.Elements)) {
			return errors.NewRuntimeError(errors.KindIndexOutOfBounds,
				"array index out of bounds", loc(line))
		}
		a.Elements[i] = val
		return nil
	case values.IsMap(obj):
		m := values.AsMap(obj)
		key := values.ToStr(idx)
		if _, exists := m.Items[key]; !exists {
			m.Keys = append(m.Keys, key)
		}
		m.Items[key] = val
		return nil
	}
	return errors.NewRuntimeError(errors.KindTypeCoercionFailure,
		"value does not support index assignment", loc(line))
}

func getField(obj values.Value, name string, line int) (values.Value, error) {
	if !values.IsStruct(obj) {
		return values.Nil(), errors.NewRuntimeError(errors.KindTypeCoercionFailure,
			"value is not a struct", loc(line))
	}
	s := values.AsStruct(obj)
	v, ok := s.Fields[name]
	if !ok {
		return values.Nil(), errors.NewRuntimeError(errors.KindKeyNotFound,
			"struct "+s.TypeName+" has no field "+name, loc(line))
	}
	return v, nil
}

func setField(obj values.Value, name string, val values.Value, line int) error {
	if !values.IsStruct(obj) {
		return errors.NewRuntimeError(errors.KindTypeCoercionFailure,
			"value is not a struct", loc(line))
	}
	s := values.AsStruct(obj)
	if _, ok := s.Fields[name]; !ok {
		s.Order = append(s.Order, name)
	}
	s.Fields[name] = val
	return nil
}

// elementsOf materializes the sequence a `for` loop walks: an array's
// own elements, a map's keys in insertion order, or a string's bytes as
// one-character strings. Grounded on the decision (see DESIGN.md) that
// ranges and iteration sources are eagerly materialized rather than
// modeled as a lazy value kind, since internal/values has no Range
// object kind of its own.
func elementsOf(v values.Value) []values.Value {
	switch {
	case values.IsArray(v):
		return values.AsArray(v).Elements
	case values.IsMap(v):
		m := values.AsMap(v)
		out := make([]values.Value, len(m.Keys))
		for i, k := range m.Keys {
			out[i] = values.BoxString(k)
		}
		return out
	case values.IsString(v):
		s := values.AsString(v).Value
		out := make([]values.Value, len(s))
		for i := 0; i < len(s); i++ {
			out[i] = values.BoxString(string(s[i]))
		}
		return out
	}
	return nil
}
