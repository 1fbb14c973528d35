package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindDomain       Kind = "domain"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrDomain       = &Error{Kind: KindDomain}
)

// Error carries a kind plus an optional machine-readable code and message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Code != "":
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return string(e.Kind)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden) works
// regardless of code or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

func NotFound(resource string) error {
	return &Error{Kind: KindNotFound, Code: resource + "_not_found", Message: resource + " not found"}
}

func Forbidden(code string) error {
	return &Error{Kind: KindForbidden, Code: code, Message: "not allowed"}
}

func InvalidState(code, message string) error {
	return &Error{Kind: KindInvalidState, Code: code, Message: message}
}

func Domain(code, message string) error {
	return &Error{Kind: KindDomain, Code: code, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
