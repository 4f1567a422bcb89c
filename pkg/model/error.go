package model

import (
	"errors"
	"fmt"
)

type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindInvalidInput
	KindPermissionDenied
	KindSystemUnavailable
	KindConnectionNotFound
	KindOwnerNotFound
	KindNotConnected
	KindInvalidDescriptor
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "no error"
	case KindInvalidInput:
		return "invalid input"
	case KindPermissionDenied:
		return "permission denied"
	case KindSystemUnavailable:
		return "system unavailable"
	case KindConnectionNotFound:
		return "connection not found"
	case KindOwnerNotFound:
		return "owner not found"
	case KindNotConnected:
		return "not connected"
	case KindInvalidDescriptor:
		return "invalid descriptor"
	}
	return fmt.Sprintf("error kind %d", uint8(k))
}

// Error is the single error type produced by every resolution stage.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err,
// &Error{Kind: KindOwnerNotFound}) works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, KindNone for a
// nil error and KindSystemUnavailable for foreign errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystemUnavailable
}
