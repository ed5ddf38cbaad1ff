package structio

import (
	"fmt"
	"reflect"

	"github.com/beevik/etree"

	"github.com/hengadev/structio/internal/shape"
	"github.com/hengadev/structio/internal/tree"
)

// WriteElement returns a new detached XML element holding v. Only the
// WithBase64 option applies.
func WriteElement[T any](v T, opts ...Option) (*etree.Element, error) {
	st, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	s, err := shape.For[T]()
	if err != nil {
		return nil, err
	}
	return tree.Write(s, reflect.ValueOf(&v).Elem(), st.mode), nil
}

// ReadElement decodes a value of type T from e and its children.
func ReadElement[T any](e *etree.Element, opts ...Option) (T, error) {
	var out T
	st, err := newSettings(opts)
	if err != nil {
		return out, err
	}
	s, err := shape.For[T]()
	if err != nil {
		return out, err
	}
	if err := tree.Read(s, e, st.mode, reflect.ValueOf(&out).Elem()); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DumpXML returns v as an XML document with a single root element.
func DumpXML[T any](v T, opts ...Option) ([]byte, error) {
	st, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return dumpXML(st, v)
}

func dumpXML[T any](st *settings, v T) ([]byte, error) {
	var data []byte
	err := observe(st, OpDumpXML, reflect.TypeFor[T](), func() (int, error) {
		s, err := shape.For[T]()
		if err != nil {
			return 0, err
		}
		data, err = tree.Dump(s, reflect.ValueOf(&v).Elem(), st.mode, st.indent)
		if err != nil {
			return 0, fmt.Errorf("%w: render xml: %v", ErrIO, err)
		}
		return len(data), nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// LoadXML decodes the root element of an XML document as a value of type T.
// The document must have been written in the same mode, text or base64.
func LoadXML[T any](data []byte, opts ...Option) (T, error) {
	st, err := newSettings(opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return loadXML[T](st, data)
}

func loadXML[T any](st *settings, data []byte) (T, error) {
	var out T
	t := reflect.TypeFor[T]()
	err := observe(st, OpLoadXML, t, func() (int, error) {
		s, err := shape.For[T]()
		if err != nil {
			return 0, err
		}
		if err := tree.Load(s, data, st.mode, reflect.ValueOf(&out).Elem()); err != nil {
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
