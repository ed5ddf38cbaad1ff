package structio

import (
	"errors"

	"github.com/hengadev/structio/internal/codecerr"
)

var (
	// ErrParse is wrapped by every failure to decode binary data or XML.
	ErrParse = codecerr.ErrParse

	// ErrUnsupportedType is returned for types that have no structural
	// category, such as interfaces, funcs and channels.
	ErrUnsupportedType = codecerr.ErrUnsupportedType

	// ErrShortBuffer is returned by Write when the buffer cannot hold the value.
	ErrShortBuffer = codecerr.ErrShortBuffer

	// ErrIO wraps file and store failures.
	ErrIO = codecerr.ErrIO

	// ErrNotFound is returned by stores for a missing key.
	ErrNotFound = codecerr.ErrNotFound

	// ErrInvalidConfiguration is returned for invalid options or configuration.
	ErrInvalidConfiguration = codecerr.ErrInvalidConfiguration
)

// IsParseError returns true if the input could not be decoded as the requested type.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsIOError returns true if the error comes from reading or writing a file or store.
func IsIOError(err error) bool {
	return errors.Is(err, ErrIO) ||
		errors.Is(err, ErrNotFound)
}

// IsConfigurationError returns true if the error represents a configuration problem.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrUnsupportedType)
}
