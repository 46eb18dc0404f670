package errors

import (
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime   Category = "runtime"
	CategoryReconcile Category = "reconcile"
	CategoryTemplate  Category = "template"
	CategoryConfig    Category = "config"
	CategoryStorage   Category = "storage"
	CategoryTransport Category = "transport"
)

// Location represents a position in a source text (template or config file).
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	file := l.File
	if file == "" {
		file = "<input>"
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", file, l.Line)
}

// Error is a structured error with a registered code and optional hints.
type Error struct {
	// Code is a unique error identifier (e.g., "R001").
	Code string

	// Category is the error type (runtime, template, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the source position where the error occurred, if any.
	Location *Location

	// Context contains the offending source line(s).
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a source position to the error.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with formatting.
func (e *Error) WithDetailf(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithContext adds source lines to the error.
func (e *Error) WithContext(lines []string) *Error {
	e.Context = lines
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error. Errors that already are
// *Error are returned unchanged.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*Error); ok {
		return re
	}
	return New(code).Wrap(err)
}

// FromPanic converts a recovered panic value into a coded error.
func FromPanic(r any, code string) *Error {
	if err, ok := r.(error); ok {
		return New(code).Wrap(err)
	}
	return New(code).Wrap(fmt.Errorf("panic: %v", r))
}

// HasCode reports whether err, or any error it wraps, is an *Error with code.
func HasCode(err error, code string) bool {
	for err != nil {
		if re, ok := err.(*Error); ok && re.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
