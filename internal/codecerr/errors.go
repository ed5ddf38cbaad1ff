package codecerr

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// Decode errors
	ErrParse = errors.New("parse failure")

	// Type errors
	ErrUnsupportedType = errors.New("unsupported type")

	// Buffer and storage errors
	ErrShortBuffer = errors.New("buffer too short")
	ErrIO          = errors.New("i/o failure")
	ErrNotFound    = errors.New("not found")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

func NewInsufficientDataError(what string, need, have int) error {
	return fmt.Errorf("%w: insufficient data for %s: need %d bytes, have %d", ErrParse, what, need, have)
}

func NewInvalidPresenceError(what string, marker byte) error {
	return fmt.Errorf("%w: invalid presence byte 0x%02x for %s", ErrParse, marker, what)
}

func NewImplausibleCountError(count uint64, remaining int) error {
	return fmt.Errorf("%w: element count %d cannot fit in remaining %d bytes", ErrParse, count, remaining)
}

func NewTrailingDataError(n int) error {
	return fmt.Errorf("%w: %d trailing bytes after value", ErrParse, n)
}

func NewMissingAttributeError(tag, attr string) error {
	return fmt.Errorf("%w: cannot find attribute '%s' on <%s>", ErrParse, attr, tag)
}

func NewInvalidAttributeError(tag, attr, value string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: invalid value %q for attribute '%s' on <%s>: %v", ErrParse, value, attr, tag, cause)
	}
	return fmt.Errorf("%w: invalid value %q for attribute '%s' on <%s>", ErrParse, value, attr, tag)
}

func NewMissingChildError(tag string, index int) error {
	return fmt.Errorf("%w: cannot find child element %d of <%s>", ErrParse, index, tag)
}

func NewUnexpectedTagError(want, got string) error {
	return fmt.Errorf("%w: expected element <%s>, found <%s>", ErrParse, want, got)
}

func NewMalformedDocumentError(cause error) error {
	return fmt.Errorf("%w: invalid XML: %v", ErrParse, cause)
}

func NewEmptyDocumentError() error {
	return fmt.Errorf("%w: empty XML document", ErrParse)
}

func NewUnsupportedTypeError(t reflect.Type, reason string) error {
	if reason != "" {
		return fmt.Errorf("%w: %s: %s", ErrUnsupportedType, t, reason)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func NewShortBufferError(need, have int) error {
	return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, need, have)
}

func NewIOError(op, path string, cause error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, cause)
}

func NewNotFoundError(key string) error {
	return fmt.Errorf("%w: key '%s'", ErrNotFound, key)
}
