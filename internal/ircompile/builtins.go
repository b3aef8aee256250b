package ircompile

// builtinNames is the spec section 6 external-interface table: every
// name here compiles to OpCallBuiltin rather than a user-function
// OpCall. A new builtin is added here, to the engine's builtin table
// (internal/engine/builtins.go) and to internal/analyzer/builtins.go's
// builtinSignatures.
var builtinNames = map[string]bool{
	"print": true, "println": true, "printc": true, "printlnc": true,
	"input": true, "read": true, "write": true,
	"len": true, "toint": true, "tofloat": true, "tostr": true, "tobool": true,
	"typeof": true, "sleep": true,
}

func isBuiltinName(name string) bool { return builtinNames[name] }
