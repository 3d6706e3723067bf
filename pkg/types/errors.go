package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind identifies a user-visible filter error. The string form is the
// stable message key hosts use for translation.
//
// ErrorKind implements error so kinds can be used as errors.Is targets:
//
//	if errors.Is(err, types.ErrDivideByZero) { ... }
type ErrorKind string

// Syntax errors.
const (
	ErrUnrecognisedToken   ErrorKind = "unrecognisedtoken"
	ErrUnclosedString      ErrorKind = "unclosedstring"
	ErrUnclosedComment     ErrorKind = "unclosedcomment"
	ErrExpectedNotFound    ErrorKind = "expectednotfound"
	ErrUnexpectedToken     ErrorKind = "unexpectedtoken"
	ErrUnexpectedAtEnd     ErrorKind = "unexpectedatend"
	ErrUnrecognisedKeyword ErrorKind = "unrecognisedkeyword"
	ErrUnknownFunction     ErrorKind = "unknownfunction"
	ErrTooDeep             ErrorKind = "toodeep"
)

// Evaluation errors.
const (
	ErrUnrecognisedVar ErrorKind = "unrecognisedvar"
	ErrDisabledVar     ErrorKind = "disabledvar"
	ErrOverrideBuiltin ErrorKind = "overridebuiltin"
	ErrNotArray        ErrorKind = "notarray"
	ErrOutOfBounds     ErrorKind = "outofbounds"
	ErrNegativeIndex   ErrorKind = "negativeindex"
	ErrDivideByZero    ErrorKind = "dividebyzero"
	ErrRegexFailure    ErrorKind = "regexfailure"
	ErrInvalidIPRange  ErrorKind = "invalidiprange"
	ErrNotEnoughArgs   ErrorKind = "notenoughargs"
	ErrTooManyArgs     ErrorKind = "toomanyargs"
	ErrNoParams        ErrorKind = "noparams"
	ErrConditionLimit  ErrorKind = "condlimit"
)

var syntaxKinds = map[ErrorKind]struct{}{
	ErrUnrecognisedToken:   {},
	ErrUnclosedString:      {},
	ErrUnclosedComment:     {},
	ErrExpectedNotFound:    {},
	ErrUnexpectedToken:     {},
	ErrUnexpectedAtEnd:     {},
	ErrUnrecognisedKeyword: {},
	ErrUnknownFunction:     {},
	ErrTooDeep:             {},
}

// Error implements the error interface.
func (k ErrorKind) Error() string {
	return string(k)
}

// String returns the message key.
func (k ErrorKind) String() string {
	return string(k)
}

// IsSyntax reports whether the kind is raised while tokenizing or parsing.
func (k ErrorKind) IsSyntax() bool {
	_, ok := syntaxKinds[k]
	return ok
}

// Error is a positioned filter error.
type Error struct {
	Kind     ErrorKind
	Position int
	Params   []string
	Err      error
}

// NewError creates a new filter error.
func NewError(kind ErrorKind, position int, params ...string) *Error {
	return &Error{
		Kind:     kind,
		Position: position,
		Params:   params,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Position >= 0 {
		fmt.Fprintf(&b, " at position %d", e.Position)
	}
	if len(e.Params) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Params, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error or an ErrorKind of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorKind:
		return e.Kind == t
	case *Error:
		return t != nil && e.Kind == t.Kind
	}
	return false
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// IsSyntax reports whether the error was raised before evaluation.
func (e *Error) IsSyntax() bool {
	return e.Kind.IsSyntax()
}

// Snippet renders the source line holding the error with a caret under
// the offending column, prefixed by its 1-based line and column.
func (e *Error) Snippet(source string) string {
	if e.Position < 0 || e.Position > len(source) {
		return ""
	}
	lineStart := strings.LastIndexByte(source[:e.Position], '\n') + 1
	lineEnd := strings.IndexByte(source[e.Position:], '\n')
	if lineEnd < 0 {
		lineEnd = len(source)
	} else {
		lineEnd += e.Position
	}
	line := strings.Count(source[:lineStart], "\n") + 1
	col := e.Position - lineStart + 1

	prefix := fmt.Sprintf("%d:%d | ", line, col)
	text := strings.ReplaceAll(source[lineStart:lineEnd], "\t", " ")
	caret := strings.Repeat(" ", len(prefix)+col-1) + "^"
	return prefix + text + "\n" + caret
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the kind of a filter error, or "" for other errors.
func KindOf(err error) ErrorKind {
	if fe, ok := AsError(err); ok {
		return fe.Kind
	}
	return ""
}

// InternalError reports an inconsistent syntax tree or a missing handler.
// It indicates a bug in the engine, not in the filter, and is raised with
// panic rather than returned.
type InternalError struct {
	Message  string
	Position int
}

// Internalf creates an InternalError.
func Internalf(position int, format string, args ...any) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...), Position: position}
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error at position %d: %s", e.Position, e.Message)
}
