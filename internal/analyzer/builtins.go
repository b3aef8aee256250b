package analyzer

import "sentra/internal/types"

// builtinSignatures mirrors ircompile's builtin name table (spec
// section 6) with the return type the analyzer should infer for a
// call to each; argument counts/types are intentionally left
// unchecked here since several builtins are variadic (print,
// println).
var builtinSignatures = map[string]types.Type{
	"print":     types.Null,
	"println":   types.Null,
	"printc":    types.Null,
	"printlnc":  types.Null,
	"input":     types.Str,
	"read":      types.Str,
	"write":     types.Null,
	"len":       types.Int,
	"toint":     types.Int,
	"tofloat":   types.Float,
	"tostr":     types.Str,
	"tobool":    types.Bool,
	"typeof":    types.Str,
	"sleep":     types.Null,
}
