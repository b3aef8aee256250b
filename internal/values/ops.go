package values

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ArithError is returned by the arithmetic helpers below instead of a
// *errors.SentraError so that internal/values has no dependency on
// internal/errors; the engine wraps it with location info at the call
// site, the same split the teacher keeps between internal/vmregister
// (raw numeric faults) and internal/vm (located runtime errors).
type ArithError struct {
	Kind string // "DivisionByZero", "ModuloByZero", "TypeCoercionFailure"
	Msg  string
}

func (e *ArithError) Error() string { return e.Msg }

func arithErr(kind, msg string) *ArithError { return &ArithError{Kind: kind, Msg: msg} }

func numberOf(v Value) (float64, bool) {
	switch {
	case IsInt(v):
		return float64(AsInt(v)), true
	case IsNumber(v):
		return AsNumber(v), true
	}
	return 0, false
}

func bothInt(a, b Value) bool { return IsInt(a) && IsInt(b) }

// Add implements +: numeric addition, or string concatenation when
// either operand is a string (per spec section 4.5's "+ on two
// strings, or a string and any other primitive, concatenates").
func Add(a, b Value) (Value, error) {
	if IsString(a) || IsString(b) || IsChar(a) || IsChar(b) {
		return StringConcat(a, b), nil
	}
	an, aok := numberOf(a)
	bn, bok := numberOf(b)
	if !aok || !bok {
		return Nil(), arithErr("TypeCoercionFailure", "operands to + are not numeric or string")
	}
	if bothInt(a, b) {
		return BoxInt(AsInt(a) + AsInt(b)), nil
	}
	return BoxNumber(an + bn), nil
}

func Sub(a, b Value) (Value, error) {
	an, aok := numberOf(a)
	bn, bok := numberOf(b)
	if !aok || !bok {
		return Nil(), arithErr("TypeCoercionFailure", "operands to - are not numeric")
	}
	if bothInt(a, b) {
		return BoxInt(AsInt(a) - AsInt(b)), nil
	}
	return BoxNumber(an - bn), nil
}

func Mul(a, b Value) (Value, error) {
	an, aok := numberOf(a)
	bn, bok := numberOf(b)
	if !aok || !bok {
		return Nil(), arithErr("TypeCoercionFailure", "operands to * are not numeric")
	}
	if bothInt(a, b) {
		return BoxInt(AsInt(a) * AsInt(b)), nil
	}
	return BoxNumber(an * bn), nil
}

// Div implements / with the spec's width rule: int/int yields float
// unless evenly divisible, in which case it stays int; any operand
// being float yields float. Division by zero is a runtime error, not
// Inf/NaN, per spec section 4.5.
func Div(a, b Value) (Value, error) {
	an, aok := numberOf(a)
	bn, bok := numberOf(b)
	if !aok || !bok {
		return Nil(), arithErr("TypeCoercionFailure", "operands to / are not numeric")
	}
	if bn == 0 {
		return Nil(), arithErr("DivisionByZero", "division by zero")
	}
	if bothInt(a, b) {
		ai, bi := AsInt(a), AsInt(b)
		if ai%bi == 0 {
			return BoxInt(ai / bi), nil
		}
	}
	return BoxNumber(an / bn), nil
}

// FloorDiv implements the `//` operator: always integer-valued.
func FloorDiv(a, b Value) (Value, error) {
	an, aok := numberOf(a)
	bn, bok := numberOf(b)
	if !aok || !bok {
		return Nil(), arithErr("TypeCoercionFailure", "operands to // are not numeric")
	}
	if bn == 0 {
		return Nil(), arithErr("DivisionByZero", "division by zero")
	}
	if bothInt(a, b) {
		ai, bi := AsInt(a), AsInt(b)
		q := ai / bi
		if (ai%bi != 0) && ((ai < 0) != (bi < 0)) {
			q--
		}
		return BoxInt(q), nil
	}
	return BoxNumber(math.Floor(an / bn)), nil
}

// Mod implements %. Integer operands use Go's truncated remainder;
// float operands use math.Mod. Modulo by zero is a runtime error.
func Mod(a, b Value) (Value, error) {
	if bothInt(a, b) {
		bi := AsInt(b)
		if bi == 0 {
			return Nil(), arithErr("ModuloByZero", "modulo by zero")
		}
		return BoxInt(AsInt(a) % bi), nil
	}
	an, aok := numberOf(a)
	bn, bok := numberOf(b)
	if !aok || !bok {
		return Nil(), arithErr("TypeCoercionFailure", "operands to %% are not numeric")
	}
	if bn == 0 {
		return Nil(), arithErr("ModuloByZero", "modulo by zero")
	}
	return BoxNumber(math.Mod(an, bn)), nil
}

// Pow implements **. A negative integer exponent against an integer
// base is a TypeCoercionFailure runtime error (decided open question,
// see DESIGN.md): Sentra has no rational/fraction type, so the result
// cannot be represented as an int, and the language does not silently
// widen ** results to float the way / does.
func Pow(a, b Value) (Value, error) {
	if bothInt(a, b) {
		base, exp := AsInt(a), AsInt(b)
		if exp < 0 {
			return Nil(), arithErr("TypeCoercionFailure", "cannot raise int to a negative integer power")
		}
		result := int64(1)
		for i := int64(0); i < exp; i++ {
			result *= base
		}
		return BoxInt(result), nil
	}
	an, aok := numberOf(a)
	bn, bok := numberOf(b)
	if !aok || !bok {
		return Nil(), arithErr("TypeCoercionFailure", "operands to ** are not numeric")
	}
	return BoxNumber(math.Pow(an, bn)), nil
}

// Neg implements unary -.
func Neg(a Value) (Value, error) {
	if IsInt(a) {
		return BoxInt(-AsInt(a)), nil
	}
	if IsNumber(a) {
		return BoxNumber(-AsNumber(a)), nil
	}
	return Nil(), arithErr("TypeCoercionFailure", "operand to unary - is not numeric")
}

// Compare returns -1, 0, or 1 for ordered comparisons (<, <=, >, >=).
// Only numeric and string operands are ordered; anything else is a
// TypeCoercionFailure.
func Compare(a, b Value) (int, error) {
	if (IsInt(a) || IsNumber(a)) && (IsInt(b) || IsNumber(b)) {
		an, _ := numberOf(a)
		bn, _ := numberOf(b)
		switch {
		case an < bn:
			return -1, nil
		case an > bn:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if IsString(a) && IsString(b) {
		return strings.Compare(AsString(a).Value, AsString(b).Value), nil
	}
	if IsChar(a) && IsChar(b) {
		switch {
		case AsChar(a).Value < AsChar(b).Value:
			return -1, nil
		case AsChar(a).Value > AsChar(b).Value:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, arithErr("TypeCoercionFailure", "operands are not ordered")
}

// Equal implements == with Sentra's value-equality rules: numbers
// compare by value across int/float, strings by content, struct/enum
// instances structurally, everything else by identity of the boxed
// representation.
func Equal(a, b Value) bool {
	if (IsInt(a) || IsNumber(a)) && (IsInt(b) || IsNumber(b)) {
		an, _ := numberOf(a)
		bn, _ := numberOf(b)
		return an == bn
	}
	if IsString(a) && IsString(b) {
		return AsString(a).Value == AsString(b).Value
	}
	if IsChar(a) && IsChar(b) {
		return AsChar(a).Value == AsChar(b).Value
	}
	if IsBool(a) && IsBool(b) {
		return AsBool(a) == AsBool(b)
	}
	if IsNil(a) && IsNil(b) {
		return true
	}
	if IsArray(a) && IsArray(b) {
		ea, eb := AsArray(a).Elements, AsArray(b).Elements
		if len(ea) != len(eb) {
			return false
		}
		for i := range ea {
			if !Equal(ea[i], eb[i]) {
				return false
			}
		}
		return true
	}
	if IsStruct(a) && IsStruct(b) {
		sa, sb := AsStruct(a), AsStruct(b)
		if sa.TypeName != sb.TypeName || len(sa.Fields) != len(sb.Fields) {
			return false
		}
		for k, v := range sa.Fields {
			ov, ok := sb.Fields[k]
			if !ok || !Equal(v, ov) {
				return false
			}
		}
		return true
	}
	if IsEnum(a) && IsEnum(b) {
		ea, eb := AsEnum(a), AsEnum(b)
		if ea.TypeName != eb.TypeName || ea.Variant != eb.Variant || ea.HasPayload != eb.HasPayload {
			return false
		}
		if ea.HasPayload {
			return Equal(ea.Payload, eb.Payload)
		}
		return true
	}
	return a == b
}

// StringConcat implements string concatenation for + when either
// operand is a string: the non-string side is rendered with ToStr.
func StringConcat(a, b Value) Value {
	return BoxString(ToStr(a) + ToStr(b))
}

// Length implements len() over str, Array, and Map values (spec
// section 6), returning the UTF-8 byte count for strings (decided open
// question, see DESIGN.md).
func Length(v Value) (int, error) {
	switch {
	case IsString(v):
		return len(AsString(v).Value), nil
	case IsArray(v):
		return len(AsArray(v).Elements), nil
	case IsMap(v):
		return len(AsMap(v).Keys), nil
	}
	return 0, arithErr("TypeCoercionFailure", "len() requires a str, Array, or Map")
}

// ToBool implements truthiness for conditions: null and false are
// falsy, the int/float zero values are falsy, an empty string is
// falsy, everything else is truthy.
func ToBool(v Value) bool {
	switch {
	case IsNil(v):
		return false
	case IsBool(v):
		return AsBool(v)
	case IsInt(v):
		return AsInt(v) != 0
	case IsNumber(v):
		return AsNumber(v) != 0
	case IsString(v):
		return AsString(v).Value != ""
	default:
		return true
	}
}

// ToInt implements toint(), coercing str/float/bool/char to int.
func ToInt(v Value) (Value, error) {
	switch {
	case IsInt(v):
		return v, nil
	case IsNumber(v):
		return BoxInt(int64(AsNumber(v))), nil
	case IsBool(v):
		if AsBool(v) {
			return BoxInt(1), nil
		}
		return BoxInt(0), nil
	case IsString(v):
		i, err := strconv.ParseInt(strings.TrimSpace(AsString(v).Value), 10, 64)
		if err != nil {
			return Nil(), arithErr("TypeCoercionFailure", fmt.Sprintf("cannot convert %q to int", AsString(v).Value))
		}
		return BoxInt(i), nil
	case IsChar(v):
		return BoxInt(int64(AsChar(v).Value)), nil
	}
	return Nil(), arithErr("TypeCoercionFailure", "value cannot be converted to int")
}

// ToFloat implements tofloat().
func ToFloat(v Value) (Value, error) {
	switch {
	case IsNumber(v):
		return v, nil
	case IsInt(v):
		return BoxNumber(float64(AsInt(v))), nil
	case IsBool(v):
		if AsBool(v) {
			return BoxNumber(1), nil
		}
		return BoxNumber(0), nil
	case IsString(v):
		f, err := strconv.ParseFloat(strings.TrimSpace(AsString(v).Value), 64)
		if err != nil {
			return Nil(), arithErr("TypeCoercionFailure", fmt.Sprintf("cannot convert %q to float", AsString(v).Value))
		}
		return BoxNumber(f), nil
	}
	return Nil(), arithErr("TypeCoercionFailure", "value cannot be converted to float")
}

// ToStr renders any value the way string interpolation and tostr() do.
func ToStr(v Value) string {
	switch {
	case IsNil(v):
		return "null"
	case IsBool(v):
		return strconv.FormatBool(AsBool(v))
	case IsInt(v):
		return strconv.FormatInt(AsInt(v), 10)
	case IsNumber(v):
		return strconv.FormatFloat(AsNumber(v), 'g', -1, 64)
	case IsString(v):
		return AsString(v).Value
	case IsChar(v):
		return string(AsChar(v).Value)
	case IsArray(v):
		elems := AsArray(v).Elements
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = ToStr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case IsMap(v):
		m := AsMap(v)
		parts := make([]string, 0, len(m.Keys))
		for _, k := range m.Keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, ToStr(m.Items[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case IsStruct(v):
		s := AsStruct(v)
		parts := make([]string, 0, len(s.Order))
		for _, name := range s.Order {
			parts = append(parts, fmt.Sprintf("%s: %s", name, ToStr(s.Fields[name])))
		}
		return fmt.Sprintf("%s { %s }", s.TypeName, strings.Join(parts, ", "))
	case IsEnum(v):
		e := AsEnum(v)
		if e.HasPayload {
			return fmt.Sprintf("%s.%s(%s)", e.TypeName, e.Variant, ToStr(e.Payload))
		}
		return fmt.Sprintf("%s.%s", e.TypeName, e.Variant)
	case IsFunction(v):
		if IsPointer(v) && asObject(v).Kind == ObjNativeFn {
			return fmt.Sprintf("<native fn %s>", AsNativeFn(v).Name)
		}
		return fmt.Sprintf("<fn %s>", AsFunction(v).Name)
	}
	return "<unknown>"
}

// TypeOf implements typeof(), returning the fixed set of lowercase type
// tags spec section 6 requires verbatim: struct and enum values report
// the literal tag "struct"/"enum", not their own type name - the type
// name is available from the value's string rendering, not typeof().
func TypeOf(v Value) string {
	switch {
	case IsNil(v):
		return "null"
	case IsBool(v):
		return "bool"
	case IsInt(v):
		return "int"
	case IsNumber(v):
		return "float"
	case IsString(v):
		return "str"
	case IsChar(v):
		return "char"
	case IsArray(v):
		return "array"
	case IsMap(v):
		return "map"
	case IsStruct(v):
		return "struct"
	case IsEnum(v):
		return "enum"
	case IsFunction(v):
		return "function"
	}
	return "unknown"
}
