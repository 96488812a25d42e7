package namelist

import (
	"errors"
	"fmt"
)

// ErrorKind groups failures by what went wrong.
type ErrorKind int

const (
	KindTokenize ErrorKind = iota // malformed lexical content
	KindShape                     // record does not have the assumed shape
	KindSemantic                  // required parameter missing or malformed
	KindResource                  // read or write failure
	KindConfig                    // invalid run configuration
)

func (k ErrorKind) String() string {
	switch k {
	case KindTokenize:
		return "tokenize"
	case KindShape:
		return "record shape"
	case KindSemantic:
		return "semantic"
	case KindResource:
		return "resource"
	case KindConfig:
		return "invalid configuration"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a failure with an optional source location.
type Error struct {
	Kind ErrorKind
	Span *Span
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error. span may be nil.
func Errorf(kind ErrorKind, span *Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Err: fmt.Errorf(format, args...)}
}

// SpanOf returns the span attached to err, if any.
func SpanOf(err error) (Span, bool) {
	var e *Error
	if errors.As(err, &e) && e.Span != nil {
		return *e.Span, true
	}
	return Span{}, false
}

// KindOf returns the kind of err. Errors that are not an *Error are
// reported as KindResource.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindResource
}
