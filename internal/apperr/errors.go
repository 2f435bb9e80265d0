// Package apperr defines the error kinds shared by the ledger, the store and
// the command interpreter.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidEventWindow = errors.New("invalid event window")
	ErrTimeFormat         = errors.New("unrecognised date/time format")
	ErrUnknownKind        = errors.New("unknown task type")
	ErrOutOfSync          = errors.New("ledger file out of sync")
	ErrNotLoaded          = errors.New("the task file could not be loaded, so changes are not saved until it is reloaded")
)

// Kind classifies an Error by how the interpreter reports it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindParse is malformed command syntax or a missing segment.
	KindParse
	// KindValidation is a well-formed command with an unacceptable value.
	KindValidation
	// KindPersistence is a failure writing the ledger file.
	KindPersistence
	// KindLoad is a failure reading the ledger file at startup.
	KindLoad
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse_error"
	case KindValidation:
		return "validation_error"
	case KindPersistence:
		return "persistence_error"
	case KindLoad:
		return "load_error"
	default:
		return "unknown"
	}
}

// Error carries a Kind and a user-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the text shown to the user.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Error()
}

// Parse returns a KindParse error with msg.
func Parse(msg string) *Error {
	return &Error{Kind: KindParse, Msg: msg}
}

// Validation returns a KindValidation error with msg wrapping err.
func Validation(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Err: err}
}

// Persistence wraps an I/O failure.
func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Err: err}
}

// Load wraps a startup read failure.
func Load(err error) *Error {
	return &Error{Kind: KindLoad, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}
