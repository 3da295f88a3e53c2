// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"
)

// ErrorKind classifies why compilation failed.
type ErrorKind string

const (
	KindUnsupportedConstruct ErrorKind = "unsupported-construct"
	KindUnknownName          ErrorKind = "unknown-name"
	KindTypeShape            ErrorKind = "type-shape"
	KindIO                   ErrorKind = "io"
)

// SourceLocation represents a location in source code.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// CompileError is the single error type every fatal compiler path
// returns. There is no recovery and no partial output once one is
// produced.
type CompileError struct {
	Kind     ErrorKind
	Message  string
	Location SourceLocation
	Source   string // the offending source line, when known
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))
	if loc := e.Location.String(); loc != "" {
		sb.WriteString(fmt.Sprintf(" at %s", loc))
	}
	if e.Source != "" {
		sb.WriteString(fmt.Sprintf("\n  %d | %s", e.Location.Line, e.Source))
		if e.Location.Column > 0 {
			pad := len(fmt.Sprintf("%d | ", e.Location.Line)) + e.Location.Column - 1
			sb.WriteString(fmt.Sprintf("\n  %s^", strings.Repeat(" ", pad)))
		}
	}
	return sb.String()
}

func New(kind ErrorKind, loc SourceLocation, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...), Location: loc}
}

// Unsupported reports an AST node the compiler does not handle.
func Unsupported(loc SourceLocation, format string, args ...interface{}) *CompileError {
	return New(KindUnsupportedConstruct, loc, format, args...)
}

// UnknownName reports a reference to an undeclared variable or function.
func UnknownName(loc SourceLocation, format string, args ...interface{}) *CompileError {
	return New(KindUnknownName, loc, format, args...)
}

// TypeShape reports a builtin argument that is not the required literal kind.
func TypeShape(loc SourceLocation, format string, args ...interface{}) *CompileError {
	return New(KindTypeShape, loc, format, args...)
}

// IO reports a failure to read input or write output.
func IO(format string, args ...interface{}) *CompileError {
	return New(KindIO, SourceLocation{}, format, args...)
}

// WithSource attaches the offending source line for diagnostics.
func (e *CompileError) WithSource(source string) *CompileError {
	e.Source = source
	return e
}
