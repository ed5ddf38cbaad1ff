package structio

import (
	"fmt"
	"reflect"

	"github.com/hengadev/structio/internal/packed"
	"github.com/hengadev/structio/internal/shape"
)

// Cursor is a read position over binary data, advanced by Read.
type Cursor = packed.Cursor

// NewCursor returns a cursor at the start of data.
func NewCursor(data []byte) *Cursor {
	return packed.NewCursor(data)
}

// Length returns the exact number of bytes the binary encoding of v takes.
func Length[T any](v T) (int, error) {
	s, err := shape.For[T]()
	if err != nil {
		return 0, err
	}
	return packed.Length(s, reflect.ValueOf(&v).Elem()), nil
}

// Write encodes v into the start of buf and returns the number of bytes
// written. It fails with ErrShortBuffer when buf is smaller than Length(v).
func Write[T any](v T, buf []byte) (int, error) {
	s, err := shape.For[T]()
	if err != nil {
		return 0, err
	}
	return packed.Write(s, reflect.ValueOf(&v).Elem(), buf)
}

// Read decodes one value from c and advances it past the value. Several
// values written back to back can be read in turn from the same cursor.
func Read[T any](c *Cursor) (T, error) {
	var out T
	s, err := shape.For[T]()
	if err != nil {
		return out, err
	}
	if err := packed.Read(s, c, reflect.ValueOf(&out).Elem()); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Dump returns the binary encoding of v.
func Dump[T any](v T, opts ...Option) ([]byte, error) {
	st, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return dump(st, v)
}

func dump[T any](st *settings, v T) ([]byte, error) {
	var data []byte
	err := observe(st, OpDump, reflect.TypeFor[T](), func() (int, error) {
		s, err := shape.For[T]()
		if err != nil {
			return 0, err
		}
		data = packed.Dump(s, reflect.ValueOf(&v).Elem())
		return len(data), nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Load decodes one value of type T from data. Bytes after the value are
// ignored unless WithStrictLength is given.
func Load[T any](data []byte, opts ...Option) (T, error) {
	st, err := newSettings(opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return load[T](st, data)
}

func load[T any](st *settings, data []byte) (T, error) {
	var out T
	t := reflect.TypeFor[T]()
	err := observe(st, OpLoad, t, func() (int, error) {
		s, err := shape.For[T]()
		if err != nil {
			return 0, err
		}
		if err := packed.Load(s, data, st.strict, reflect.ValueOf(&out).Elem()); err != nil {
			return len(data), fmt.Errorf("decode %s: %w", t, err)
		}
		return len(data), nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
