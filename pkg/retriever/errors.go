package retriever

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a retrieval failure.
type Kind int

const (
	KindResourceOpen Kind = iota + 1
	KindFormatUnrecognized
	KindMalformedContainer
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindResourceOpen:
		return "resource_open"
	case KindFormatUnrecognized:
		return "format_unrecognized"
	case KindMalformedContainer:
		return "malformed_container"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels matched by errors.Is against a *Error of the same kind.
var (
	ErrResourceOpen       = errors.New("resource could not be opened")
	ErrFormatUnrecognized = errors.New("format not recognised")
	ErrMalformedContainer = errors.New("malformed container")
	ErrCancelled          = errors.New("retrieval cancelled")
)

// Error is the failure value of a retrieval future.
type Error struct {
	Kind Kind
	Ref  string
	Err  error
}

func newError(kind Kind, ref string, cause error) *Error {
	return &Error{Kind: kind, Ref: ref, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("retrieve %s: %s", e.Ref, e.Kind)
	}
	return fmt.Sprintf("retrieve %s: %s: %v", e.Ref, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrResourceOpen:
		return e.Kind == KindResourceOpen
	case ErrFormatUnrecognized:
		return e.Kind == KindFormatUnrecognized
	case ErrMalformedContainer:
		return e.Kind == KindMalformedContainer
	case ErrCancelled:
		return e.Kind == KindCancelled
	}
	return false
}

// KindOf returns the kind of a retrieval error, or 0 if err is not one.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}
