// Package errors is the shared diagnostics and error model used
// across the analyzer, compiler, optimizer, and engine: structured
// syntax/semantic/runtime errors with source locations, plus the
// Diagnostic type the semantic analyzer (internal/analyzer) emits.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"sentra/internal/ast"
)

// ErrorType is the broad category of a SentraError, kept from the
// original teacher error model.
type ErrorType string

const (
	SyntaxError    ErrorType = "SyntaxError"
	RuntimeError   ErrorType = "RuntimeError"
	TypeError      ErrorType = "TypeError"
	ReferenceError ErrorType = "ReferenceError"
	ImportError    ErrorType = "ImportError"
	CompileError   ErrorType = "CompileError"
	InternalError  ErrorType = "InternalError"
)

// Kind is the fine-grained error/diagnostic tag from spec section 7's
// taxonomy. Semantic and runtime kinds share one enum since both flow
// through Diagnostic and SentraError respectively.
type Kind string

const (
	// Semantic
	KindUndefinedSymbol       Kind = "UndefinedSymbol"
	KindDuplicateDefinition   Kind = "DuplicateDefinition"
	KindTypeMismatch          Kind = "TypeMismatch"
	KindArgumentCountMismatch Kind = "ArgumentCountMismatch"
	KindInvalidLValue         Kind = "InvalidLValue"
	KindBreakOutsideLoop      Kind = "BreakOutsideLoop"
	KindContinueOutsideLoop   Kind = "ContinueOutsideLoop"
	KindReturnOutsideFunction Kind = "ReturnOutsideFunction"
	KindMissingReturn         Kind = "MissingReturn"
	KindNonExhaustiveMatch    Kind = "NonExhaustiveMatch"
	KindDuplicateMatchArm     Kind = "DuplicateMatchArm"
	KindUnusedSymbol          Kind = "UnusedSymbol" // warning
	KindShadowing             Kind = "Shadowing"     // info

	// Runtime
	KindDivisionByZero         Kind = "DivisionByZero"
	KindModuloByZero           Kind = "ModuloByZero"
	KindIndexOutOfBounds       Kind = "IndexOutOfBounds"
	KindKeyNotFound            Kind = "KeyNotFound"
	KindStackOverflow          Kind = "StackOverflow"
	KindTypeCoercionFailure    Kind = "TypeCoercionFailure"
	KindUninitializedVariable  Kind = "UninitializedVariable"
	KindUnhandledThrow         Kind = "UnhandledThrow"
	KindRecursionLimitExceeded Kind = "RecursionLimitExceeded"
	KindIOFailure              Kind = "IOFailure"

	// Internal invariant violation: a compiler bug, not a user error.
	// Never catchable by try/catch.
	KindInternalInvariant Kind = "InternalInvariant"
)

// Severity is the diagnostic's severity, per spec section 4.1.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is what the semantic analyzer emits: never a Go error
// value by itself (analysis never aborts), just a structured record
// consumed by the external diagnostics renderer per spec section 6.
type Diagnostic struct {
	Severity  Severity
	Kind      Kind
	Message   string
	Primary   ast.Span
	Secondary []ast.Span
	Suggested *string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s[%s]: %s (%s:%d:%d)", d.Severity, d.Kind, d.Message,
		d.Primary.File, d.Primary.Start.Line, d.Primary.Start.Column)
}

// StackFrame represents a single frame in a runtime call stack trace.
type StackFrame struct {
	Function string
	File     string
	Line     int
	Column   int
}

// SentraError represents a runtime, syntax, or internal-invariant
// error with source location information and an optional call stack.
type SentraError struct {
	Type      ErrorType
	Kind      Kind
	Message   string
	Location  ast.Span
	CallStack []StackFrame
	Source    string // the source line where the error occurred
	Cause     error  // wrapped underlying error (e.g. an I/O failure), if any
}

// Error implements the error interface.
func (e *SentraError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s\n", e.Type, e.Message))

	if e.Location.File != "" {
		sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n",
			e.Location.File, e.Location.Start.Line, e.Location.Start.Column))

		if e.Source != "" {
			sb.WriteString(fmt.Sprintf("\n  %d | %s\n", e.Location.Start.Line, e.Source))
			sb.WriteString(fmt.Sprintf("  %s", strings.Repeat(" ", len(fmt.Sprintf("%d | ", e.Location.Start.Line)))))
			if e.Location.Start.Column > 0 {
				sb.WriteString(strings.Repeat(" ", e.Location.Start.Column-1))
			}
			sb.WriteString("^\n")
		}
	}

	if len(e.CallStack) > 0 {
		sb.WriteString("\nCall Stack:\n")
		for _, frame := range e.CallStack {
			if frame.Function != "" {
				sb.WriteString(fmt.Sprintf("  at %s (%s:%d:%d)\n",
					frame.Function, frame.File, frame.Line, frame.Column))
			} else {
				sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n",
					frame.File, frame.Line, frame.Column))
			}
		}
	}

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("caused by: %v\n", e.Cause))
	}

	return sb.String()
}

// Unwrap lets errors.Is/errors.As see through to Cause.
func (e *SentraError) Unwrap() error { return e.Cause }

// NewRuntimeError creates a runtime error of the given kind.
func NewRuntimeError(kind Kind, message string, loc ast.Span) *SentraError {
	return &SentraError{Type: RuntimeError, Kind: kind, Message: message, Location: loc}
}

// NewInternalError creates a compiler-bug-class error: an IR
// invariant violation. These are never caught by try/catch.
func NewInternalError(message string, loc ast.Span) *SentraError {
	return &SentraError{Type: InternalError, Kind: KindInternalInvariant, Message: message, Location: loc}
}

// WrapIOError wraps a failing read/write builtin's underlying error
// with stack context, used by the engine's file builtins (spec
// section 6: read, write).
func WrapIOError(kind Kind, message string, loc ast.Span, cause error) *SentraError {
	return &SentraError{
		Type:     RuntimeError,
		Kind:     kind,
		Message:  message,
		Location: loc,
		Cause:    pkgerrors.Wrap(cause, message),
	}
}

// WithSource adds source code context to the error.
func (e *SentraError) WithSource(source string) *SentraError {
	e.Source = source
	return e
}

// WithStack adds a call stack to the error.
func (e *SentraError) WithStack(stack []StackFrame) *SentraError {
	e.CallStack = stack
	return e
}

// AddStackFrame adds a single stack frame.
func (e *SentraError) AddStackFrame(function, file string, line, column int) *SentraError {
	e.CallStack = append(e.CallStack, StackFrame{
		Function: function,
		File:     file,
		Line:     line,
		Column:   column,
	})
	return e
}
