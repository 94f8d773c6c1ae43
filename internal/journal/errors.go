package journal

import (
	"errors"
	"fmt"
)

// ErrKind discriminates the error conditions a Journal can raise. Hot-path
// kinds (WrongLifecycle, WrongKind) are returned synchronously to the
// caller. A StorageFailure from a background persist is returned only by
// FinishRecording, when it waits on the drain; updates and other
// Controller calls made after the failure do not report it.
type ErrKind int

const (
	_ ErrKind = iota
	InvalidParam
	WrongLifecycle
	UnknownVariable
	UnknownAlias
	WrongKind
	TooManyVariables
	DuplicateName
	NotNumeric
	StorageFailure
	TimeOutOfRange
)

func (k ErrKind) String() string {
	switch k {
	case InvalidParam:
		return "InvalidParam"
	case WrongLifecycle:
		return "WrongLifecycle"
	case UnknownVariable:
		return "UnknownVariable"
	case UnknownAlias:
		return "UnknownAlias"
	case WrongKind:
		return "WrongKind"
	case TooManyVariables:
		return "TooManyVariables"
	case DuplicateName:
		return "DuplicateName"
	case NotNumeric:
		return "NotNumeric"
	case StorageFailure:
		return "StorageFailure"
	case TimeOutOfRange:
		return "TimeOutOfRange"
	default:
		return "Unknown"
	}
}

// Error is the single error type the journal package returns. Op names the
// operation that failed (e.g. "registerDouble", "computeSample"); Err, when
// non-nil, is the underlying cause and participates in errors.Is/As via
// Unwrap.
type Error struct {
	Kind ErrKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("journal: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("journal: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, &journal.Error{Kind: journal.WrongLifecycle}) style
// checks, or more simply compare via KindOf below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind ErrKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the ErrKind from err if it is (or wraps) a *Error.
func KindOf(err error) (ErrKind, bool) {
	var je *Error
	if errors.As(err, &je) {
		return je.Kind, true
	}
	return 0, false
}
