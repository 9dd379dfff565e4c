package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. Every failed operation aborts its
// enclosing transaction, so a Kind always describes a state the store
// was left unchanged in.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBadRequest
	KindForbidden
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a domain failure with a classification the caller can map to
// its own surface (HTTP status, CLI exit code, ...).
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...interface{}) error {
	return &Error{Kind: KindBadRequest, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the classification of err, or KindInternal for errors
// that did not originate in the domain layer.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsBadRequest(err error) bool { return KindOf(err) == KindBadRequest }
func IsForbidden(err error) bool  { return KindOf(err) == KindForbidden }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
