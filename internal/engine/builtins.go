package engine

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sentra/internal/errors"
	"sentra/internal/values"
)

// builtinTable is the spec section 6 external-interface dispatch table,
// keyed the same way internal/ircompile/builtins.go's builtinNames map
// is: every name there must have an entry here. Grounded on the
// teacher's RegisterStdlib pattern of boxing each builtin as a
// NativeFnObj{Name, Arity, Function}, though these are dispatched
// directly by name via OpCallBuiltin rather than loaded as globals -
// Arity is advisory documentation here, not enforced, since several
// (print, println) are variadic.
var builtinTable map[string]*values.NativeFnObj

var stdin = bufio.NewReader(os.Stdin)

func init() {
	builtinTable = map[string]*values.NativeFnObj{
		"print":    {Name: "print", Arity: -1, Function: builtinPrint},
		"println":  {Name: "println", Arity: -1, Function: builtinPrintln},
		"printc":   {Name: "printc", Arity: -1, Function: builtinPrintc},
		"printlnc": {Name: "printlnc", Arity: -1, Function: builtinPrintlnc},
		"input":    {Name: "input", Arity: -1, Function: builtinInput},
		"read":     {Name: "read", Arity: 1, Function: builtinRead},
		"write":    {Name: "write", Arity: 2, Function: builtinWrite},
		"len":      {Name: "len", Arity: 1, Function: builtinLen},
		"toint":    {Name: "toint", Arity: 1, Function: builtinToInt},
		"tofloat":  {Name: "tofloat", Arity: 1, Function: builtinToFloat},
		"tostr":    {Name: "tostr", Arity: 1, Function: builtinToStr},
		"tobool":   {Name: "tobool", Arity: 1, Function: builtinToBool},
		"typeof":   {Name: "typeof", Arity: 1, Function: builtinTypeOf},
		"sleep":    {Name: "sleep", Arity: 1, Function: builtinSleep},
	}
}

// callBuiltin is OpCallBuiltin's dispatch point. Errors from the
// builtin itself (a failed read/write, a bad conversion) arrive as
// plain errors or *values.ArithError and are wrapped with a location
// here, same as every other opcode.
func (e *Engine) callBuiltin(name string, args []values.Value, line int) (values.Value, error) {
	fn, ok := builtinTable[name]
	if !ok {
		return values.Nil(), errors.NewInternalError("unknown builtin "+name, loc(line))
	}
	v, err := fn.Function(args)
	if err != nil {
		return values.Nil(), asRuntimeErr(err, line)
	}
	return v, nil
}

func builtinPrint(args []values.Value) (values.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = values.ToStr(a)
	}
	fmt.Print(strings.Join(parts, " "))
	return values.Nil(), nil
}

func builtinPrintln(args []values.Value) (values.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = values.ToStr(a)
	}
	fmt.Println(strings.Join(parts, " "))
	return values.Nil(), nil
}

// ColorOutput gates whether builtinPrintc/builtinPrintlnc emit ANSI
// escapes at all. The engine never probes the terminal itself - isatty
// detection belongs to cmd/sentrac, the policy owner, which flips this
// switch once at startup based on its own isatty.IsTerminal check and
// leaves it alone for the lifetime of the run.
var ColorOutput = true

// builtinPrintc/builtinPrintlnc take a leading color argument (a
// named ANSI color or a "#RRGGBB" hex string) followed by the same
// variadic print arguments.
func builtinPrintc(args []values.Value) (values.Value, error) {
	return printColored(args, false)
}

func builtinPrintlnc(args []values.Value) (values.Value, error) {
	return printColored(args, true)
}

func printColored(args []values.Value, newline bool) (values.Value, error) {
	if len(args) == 0 {
		return values.Nil(), &values.ArithError{Kind: "TypeCoercionFailure", Msg: "printc requires a color argument"}
	}
	parts := make([]string, len(args)-1)
	for i, a := range args[1:] {
		parts[i] = values.ToStr(a)
	}
	text := strings.Join(parts, " ")
	if !ColorOutput {
		if newline {
			fmt.Println(text)
		} else {
			fmt.Print(text)
		}
		return values.Nil(), nil
	}
	color := ansiColor(values.ToStr(args[0]))
	if newline {
		fmt.Printf("%s%s\x1b[0m\n", color, text)
	} else {
		fmt.Printf("%s%s\x1b[0m", color, text)
	}
	return values.Nil(), nil
}

var namedColors = map[string]string{
	"black": "30", "red": "31", "green": "32", "yellow": "33",
	"blue": "34", "magenta": "35", "cyan": "36", "white": "37",
}

// ansiColor resolves a named color or a "#RRGGBB" literal to an ANSI
// SGR escape sequence: named colors use the standard 3-bit palette,
// hex literals use a 24-bit true-color escape.
func ansiColor(name string) string {
	if code, ok := namedColors[name]; ok {
		return "\x1b[" + code + "m"
	}
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		r, rerr := strconv.ParseInt(name[1:3], 16, 32)
		g, gerr := strconv.ParseInt(name[3:5], 16, 32)
		b, berr := strconv.ParseInt(name[5:7], 16, 32)
		if rerr == nil && gerr == nil && berr == nil {
			return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
		}
	}
	return ""
}

func builtinInput(args []values.Value) (values.Value, error) {
	if len(args) > 0 {
		fmt.Print(values.ToStr(args[0]))
	}
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return values.Nil(), errors.WrapIOError(errors.KindIOFailure, "input: read failed", loc(0), err)
	}
	return values.BoxString(strings.TrimRight(line, "\r\n")), nil
}

func builtinRead(args []values.Value) (values.Value, error) {
	path := values.ToStr(args[0])
	data, err := os.ReadFile(path)
	if err != nil {
		return values.Nil(), errors.WrapIOError(errors.KindIOFailure, "read: "+path, loc(0), err)
	}
	return values.BoxString(string(data)), nil
}

func builtinWrite(args []values.Value) (values.Value, error) {
	path := values.ToStr(args[0])
	content := values.ToStr(args[1])
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return values.Nil(), errors.WrapIOError(errors.KindIOFailure, "write: "+path, loc(0), err)
	}
	return values.Nil(), nil
}

func builtinLen(args []values.Value) (values.Value, error) {
	n, err := values.Length(args[0])
	if err != nil {
		return values.Nil(), err
	}
	return values.BoxInt(int64(n)), nil
}

func builtinToInt(args []values.Value) (values.Value, error)   { return values.ToInt(args[0]) }
func builtinToFloat(args []values.Value) (values.Value, error) { return values.ToFloat(args[0]) }
func builtinToStr(args []values.Value) (values.Value, error) {
	return values.BoxString(values.ToStr(args[0])), nil
}
func builtinToBool(args []values.Value) (values.Value, error) {
	return values.BoxBool(values.ToBool(args[0])), nil
}
func builtinTypeOf(args []values.Value) (values.Value, error) {
	return values.BoxString(values.TypeOf(args[0])), nil
}

func builtinSleep(args []values.Value) (values.Value, error) {
	if !values.IsInt(args[0]) && !values.IsNumber(args[0]) {
		return values.Nil(), &values.ArithError{Kind: "TypeCoercionFailure", Msg: "sleep requires a numeric argument"}
	}
	ms, _ := values.ToFloat(args[0])
	time.Sleep(time.Duration(values.AsNumber(ms)) * time.Millisecond)
	return values.Nil(), nil
}
