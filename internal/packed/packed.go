// Package packed implements the binary codec: a flat, unframed encoding that
// concatenates the native bytes of scalars, prefixes sequences with an
// 8-byte element count and optional values with a one-byte presence flag.
package packed

import (
	"reflect"

	"github.com/hengadev/structio/internal/codecerr"
	"github.com/hengadev/structio/internal/shape"
)

// Length returns the exact number of bytes Write produces for v.
func Length(s *shape.Shape, v reflect.Value) int {
	return codecFor(s).length(v)
}

// Write encodes v into the prefix of buf and returns the number of bytes
// written. buf must hold at least Length(s, v) bytes.
func Write(s *shape.Shape, v reflect.Value, buf []byte) (int, error) {
	c := codecFor(s)
	if need := c.length(v); len(buf) < need {
		return 0, codecerr.NewShortBufferError(need, len(buf))
	}
	return c.write(v, buf), nil
}

// Read decodes one value from cur into v, which must be settable.
func Read(s *shape.Shape, cur *Cursor, v reflect.Value) error {
	return codecFor(s).read(cur, v)
}

// Dump encodes v into a buffer of exactly its encoded length.
func Dump(s *shape.Shape, v reflect.Value) []byte {
	c := codecFor(s)
	buf := make([]byte, c.length(v))
	c.write(v, buf)
	return buf
}

// Load decodes one value from the whole of data into v. Bytes left after the
// value are ignored unless strict is set, in which case they fail the load.
func Load(s *shape.Shape, data []byte, strict bool, v reflect.Value) error {
	cur := NewCursor(data)
	if err := codecFor(s).read(cur, v); err != nil {
		return err
	}
	if strict && cur.Len() > 0 {
		return codecerr.NewTrailingDataError(cur.Len())
	}
	return nil
}
