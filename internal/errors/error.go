package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryRoutes   Category = "routes"
	CategoryProtocol Category = "protocol"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// TransitError is a structured error with the files involved, a suggestion,
// and a documentation link.
type TransitError struct {
	// Code is a unique error identifier (e.g., "E202").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Files are the source files involved, in the order they were found.
	Files []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface. Involved files are part of the
// message so that plain error strings still name every conflicting source.
func (e *TransitError) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Files) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Files, ", "))
		b.WriteString("]")
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, ": %v", e.Wrapped)
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *TransitError) Unwrap() error {
	return e.Wrapped
}

// WithFiles records the source files involved.
func (e *TransitError) WithFiles(files ...string) *TransitError {
	e.Files = append(e.Files, files...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *TransitError) WithSuggestion(s string) *TransitError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *TransitError) WithDetail(d string) *TransitError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *TransitError) Wrap(err error) *TransitError {
	e.Wrapped = err
	return e
}

// New creates a TransitError from a registered error code.
func New(code string) *TransitError {
	template, ok := registry[code]
	if !ok {
		return &TransitError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &TransitError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new TransitError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *TransitError {
	return &TransitError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a TransitError.
func FromError(err error, code string) *TransitError {
	if err == nil {
		return nil
	}
	var te *TransitError
	if stderrors.As(err, &te) {
		return te
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err is, or wraps, a TransitError with the code.
func HasCode(err error, code string) bool {
	var te *TransitError
	if !stderrors.As(err, &te) {
		return false
	}
	return te.Code == code
}
