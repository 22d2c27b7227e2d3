package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/vango-dev/treestore/pkg/lens"
	"github.com/vango-dev/treestore/pkg/store"
)

// Category represents the type of error.
type Category string

const (
	CategoryPath     Category = "path"
	CategoryMutation Category = "mutation"
	CategoryNotify   Category = "notify"
	CategoryConfig   Category = "config"
	CategoryInput    Category = "input"
)

// Error is a structured error with a code, a suggestion and the store path
// it concerns.
type Error struct {
	// Code is a unique error identifier (e.g., "T001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Path is the store path the error concerns, if any.
	Path string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Status is the HTTP status used when the error is served.
	Status int

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithPath sets the store path.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
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
			Status:  500,
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
		Status:     template.Status,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Status:   400,
	}
}

// FromError wraps err in an Error. Known engine errors get their own code;
// anything else gets fallback.
func FromError(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(codeFor(err, fallback)).Wrap(err)
}

func codeFor(err error, fallback string) string {
	switch {
	case stderrors.Is(err, lens.ErrBadPath):
		return "T001"
	case stderrors.Is(err, lens.ErrUnresolved):
		return "T002"
	case stderrors.Is(err, lens.ErrNotContainer):
		return "T003"
	case stderrors.Is(err, lens.ErrTypeMismatch):
		return "T004"
	case stderrors.Is(err, store.ErrReadOnly):
		return "T005"
	case stderrors.Is(err, store.ErrNonTerminalWrite):
		return "T006"
	case stderrors.Is(err, store.ErrNotifyStorm):
		return "T010"
	}
	return fallback
}
