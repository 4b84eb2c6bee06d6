package common

import (
	"errors"
	"fmt"
)

// ErrBackend is the category every persistence failure belongs to.
var ErrBackend = errors.New("dbc: backend failure")

var (
	ErrConnectivity        = errors.New("connectivity")
	ErrSchemaConflict      = errors.New("schema conflict")
	ErrEncoding            = errors.New("encoding")
	ErrSequenceConsistency = errors.New("sequence consistency")
	ErrIteratorExhausted   = errors.New("iterator exhausted")

	// ErrIndexOutOfRange is returned for list positions outside the valid range.
	ErrIndexOutOfRange = errors.New("index out of range")
)

type ErrorKind int

const (
	KindConnectivity ErrorKind = iota
	KindSchemaConflict
	KindEncoding
	KindSequenceConsistency
	KindIteratorExhausted
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConnectivity:
		return ErrConnectivity
	case KindSchemaConflict:
		return ErrSchemaConflict
	case KindEncoding:
		return ErrEncoding
	case KindSequenceConsistency:
		return ErrSequenceConsistency
	case KindIteratorExhausted:
		return ErrIteratorExhausted
	default:
		return nil
	}
}

func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// BackendError is a failure surfaced by the persistence layer.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type BackendError struct {
	Kind  ErrorKind
	Op    string
	Msg   string
	cause error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("dbc %s: %s: %s", e.Op, e.Kind, e.Msg)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.cause }

// Is matches ErrBackend and the sentinel of the error's kind.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend || target == e.Kind.sentinel()
}

func newBackendError(kind ErrorKind, op, msg string, cause error) error {
	return &BackendError{Kind: kind, Op: op, Msg: msg, cause: cause}
}

func Connectivity(op, msg string, cause error) error {
	return newBackendError(KindConnectivity, op, msg, cause)
}

func SchemaConflict(op, msg string, cause error) error {
	return newBackendError(KindSchemaConflict, op, msg, cause)
}

func Encoding(op, msg string, cause error) error {
	return newBackendError(KindEncoding, op, msg, cause)
}

// SequenceConsistency reports a half-applied list mutation. The ordered
// sequence may be inconsistent after this error.
func SequenceConsistency(op, msg string, cause error) error {
	return newBackendError(KindSequenceConsistency, op, msg+" (THE LIST MAY NOW BE INCONSISTENT)", cause)
}

func IteratorExhausted(op, msg string) error {
	return newBackendError(KindIteratorExhausted, op, msg, nil)
}

// IndexError reports a list position outside [0, Size).
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Size)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }
