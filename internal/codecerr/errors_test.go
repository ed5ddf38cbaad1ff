package codecerr

import (
	"errors"
	"io/fs"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{"insufficient data", NewInsufficientDataError("int64", 8, 3), ErrParse, "need 8 bytes, have 3"},
		{"presence", NewInvalidPresenceError("*main.Node", 7), ErrParse, "0x07"},
		{"count", NewImplausibleCountError(1<<40, 12), ErrParse, "remaining 12 bytes"},
		{"trailing", NewTrailingDataError(4), ErrParse, "4 trailing bytes"},
		{"missing attribute", NewMissingAttributeError("iterable", "size"), ErrParse, "'size' on <iterable>"},
		{"invalid attribute", NewInvalidAttributeError("int", "value", "x", errors.New("bad")), ErrParse, "\"x\""},
		{"missing child", NewMissingChildError("tuple", 1), ErrParse, "child element 1 of <tuple>"},
		{"unexpected tag", NewUnexpectedTagError("aggregate", "optional"), ErrParse, "expected element <aggregate>, found <optional>"},
		{"malformed", NewMalformedDocumentError(errors.New("eof")), ErrParse, "invalid XML"},
		{"empty", NewEmptyDocumentError(), ErrParse, "empty XML document"},
		{"unsupported", NewUnsupportedTypeError(reflect.TypeOf(func() {}), "functions cannot be encoded"), ErrUnsupportedType, "func()"},
		{"short buffer", NewShortBufferError(9, 2), ErrShortBuffer, "need 9 bytes"},
		{"not found", NewNotFoundError("users/1"), ErrNotFound, "users/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}

func TestNewIOErrorKeepsCause(t *testing.T) {
	err := NewIOError("open", "/missing", fs.ErrNotExist)

	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrParse)
}
