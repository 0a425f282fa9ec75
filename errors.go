package sso

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rawbytedev/sso/pkg/alloc"
)

var (
	ErrInvalidUTF8   = errors.New("sso: invalid utf-8")
	ErrInvalidUTF16  = errors.New("sso: invalid utf-16")
	ErrShortBuffer   = errors.New("sso: short buffer")
	ErrTrailingBytes = errors.New("sso: trailing bytes")
)

// IndexError is the panic value for byte indexes that are out of range or
// do not fall on a UTF-8 character boundary.
type IndexError struct {
	Op     string
	Index  int
	Len    int
	Reason string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("sso: %s: index %d %s (len %d)", e.Op, e.Index, e.Reason, e.Len)
}

// TryReserveKind classifies a failed reservation.
type TryReserveKind uint8

const (
	CapacityOverflow TryReserveKind = iota + 1
	AllocationFailed
)

func (k TryReserveKind) String() string {
	switch k {
	case CapacityOverflow:
		return "capacity overflow"
	case AllocationFailed:
		return "allocation failed"
	default:
		return "unknown"
	}
}

// TryReserveError is returned by the TryReserve family and is the panic
// value of the non-fallible growth paths. It unwraps to the alloc sentinel.
type TryReserveError struct {
	Kind TryReserveKind
	Err  error
}

func newTryReserveError(err error) *TryReserveError {
	kind := AllocationFailed
	if errors.Is(err, alloc.ErrCapacityOverflow) {
		kind = CapacityOverflow
	}
	return &TryReserveError{Kind: kind, Err: err}
}

func capacityOverflow(format string, args ...any) *TryReserveError {
	return &TryReserveError{
		Kind: CapacityOverflow,
		Err:  errors.Wrapf(alloc.ErrCapacityOverflow, format, args...),
	}
}

func (e *TryReserveError) Error() string {
	return "sso: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *TryReserveError) Unwrap() error { return e.Err }

// FromUTF8Error reports invalid UTF-8 input and keeps the rejected bytes.
type FromUTF8Error struct {
	bytes     []byte
	validUpTo int
	errorLen  int
}

// Bytes returns the rejected input.
func (e *FromUTF8Error) Bytes() []byte { return e.bytes }

// IntoBytes returns the rejected input and drops it from the error.
func (e *FromUTF8Error) IntoBytes() []byte {
	b := e.bytes
	e.bytes = nil
	return b
}

// ValidUpTo is the length of the longest valid prefix.
func (e *FromUTF8Error) ValidUpTo() int { return e.validUpTo }

// ErrorLen is the length of the invalid sequence at ValidUpTo, 0 when the
// input ends in the middle of a sequence.
func (e *FromUTF8Error) ErrorLen() int { return e.errorLen }

func (e *FromUTF8Error) Error() string {
	if e.errorLen == 0 {
		return fmt.Sprintf("sso: incomplete utf-8 byte sequence from index %d", e.validUpTo)
	}
	return fmt.Sprintf("sso: invalid utf-8 sequence of %d bytes from index %d", e.errorLen, e.validUpTo)
}

func (e *FromUTF8Error) Unwrap() error { return ErrInvalidUTF8 }

// FromUTF16Error reports an unpaired surrogate and keeps the rejected units.
type FromUTF16Error struct {
	Units []uint16
	Index int
}

func (e *FromUTF16Error) Error() string {
	return fmt.Sprintf("sso: unpaired surrogate 0x%04x at index %d", e.Units[e.Index], e.Index)
}

func (e *FromUTF16Error) Unwrap() error { return ErrInvalidUTF16 }
