package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryEngine   Category = "engine"
	CategoryConfig   Category = "config"
	CategoryDevtools Category = "devtools"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a file, such as a configuration file.
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
	if l.Line == 0 {
		return l.File
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ReactiveError is a structured error with a stable code, suggestions, and
// documentation.
type ReactiveError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (engine, config, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred, if any.
	Location *Location

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is code showing the correct approach.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ReactiveError) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		msg = msg + ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ReactiveError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position to the error. A zero line means the
// whole file.
func (e *ReactiveError) WithLocation(file string, line, column int) *ReactiveError {
	e.Location = &Location{File: file, Line: line, Column: column}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ReactiveError) WithSuggestion(s string) *ReactiveError {
	e.Suggestion = s
	return e
}

// WithExample adds a code example to the error.
func (e *ReactiveError) WithExample(ex string) *ReactiveError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *ReactiveError) WithDetail(d string) *ReactiveError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *ReactiveError) Wrap(err error) *ReactiveError {
	e.Wrapped = err
	return e
}

// New creates a ReactiveError from a registered error code.
func New(code string) *ReactiveError {
	template, ok := GetTemplate(code)
	if !ok {
		return &ReactiveError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ReactiveError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
		DocURL:     template.DocURL,
	}
}

// Newf creates a new ReactiveError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ReactiveError {
	return &ReactiveError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// coder is implemented by errors that carry a registry code, such as the
// engine errors in pkg/reactive.
type coder interface {
	Code() string
}

// FromError wraps a standard error in a ReactiveError. Errors that already
// carry a registered code (anywhere in their chain) keep that code; others
// get the fallback code.
func FromError(err error, code string) *ReactiveError {
	if err == nil {
		return nil
	}
	var re *ReactiveError
	if stderrors.As(err, &re) {
		return re
	}
	var c coder
	if stderrors.As(err, &c) {
		if _, ok := GetTemplate(c.Code()); ok {
			code = c.Code()
		}
	}
	return New(code).Wrap(err)
}
