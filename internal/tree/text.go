package tree

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/hengadev/structio/internal/shape"
)

// formatter renders a scalar as one or more text fields.
type formatter struct {
	format func(v reflect.Value, out []string) []string
	parse  func(fields []string, v reflect.Value) (int, error)
}

// newFormatter builds the text form of a scalar shape. Integers are decimal,
// floats use the shortest representation that parses back to the same value,
// complex numbers are two floats and arrays flatten to their elements.
func newFormatter(s *shape.Shape) formatter {
	bits := s.Width * 8

	switch s.Scalar {
	case shape.Bool:
		return single(
			func(v reflect.Value) string { return strconv.FormatBool(v.Bool()) },
			func(text string, v reflect.Value) error {
				b, err := strconv.ParseBool(text)
				if err != nil {
					return err
				}
				v.SetBool(b)
				return nil
			})

	case shape.Signed:
		return single(
			func(v reflect.Value) string { return strconv.FormatInt(v.Int(), 10) },
			func(text string, v reflect.Value) error {
				n, err := strconv.ParseInt(text, 10, bits)
				if err != nil {
					return err
				}
				v.SetInt(n)
				return nil
			})

	case shape.Unsigned:
		return single(
			func(v reflect.Value) string { return strconv.FormatUint(v.Uint(), 10) },
			func(text string, v reflect.Value) error {
				n, err := strconv.ParseUint(text, 10, bits)
				if err != nil {
					return err
				}
				v.SetUint(n)
				return nil
			})

	case shape.Float:
		return single(
			func(v reflect.Value) string { return strconv.FormatFloat(v.Float(), 'g', -1, bits) },
			func(text string, v reflect.Value) error {
				f, err := strconv.ParseFloat(text, bits)
				if err != nil {
					return err
				}
				v.SetFloat(f)
				return nil
			})

	case shape.Complex:
		half := bits / 2
		return formatter{
			format: func(v reflect.Value, out []string) []string {
				c := v.Complex()
				return append(out,
					strconv.FormatFloat(real(c), 'g', -1, half),
					strconv.FormatFloat(imag(c), 'g', -1, half))
			},
			parse: func(fields []string, v reflect.Value) (int, error) {
				if len(fields) < 2 {
					return 0, fmt.Errorf("complex value needs 2 components, have %d", len(fields))
				}
				re, err := strconv.ParseFloat(fields[0], half)
				if err != nil {
					return 0, err
				}
				im, err := strconv.ParseFloat(fields[1], half)
				if err != nil {
					return 0, err
				}
				v.SetComplex(complex(re, im))
				return 2, nil
			},
		}

	case shape.Array:
		elem := newFormatter(s.Elem)
		return formatter{
			format: func(v reflect.Value, out []string) []string {
				for i := range s.Len {
					out = elem.format(v.Index(i), out)
				}
				return out
			},
			parse: func(fields []string, v reflect.Value) (int, error) {
				used := 0
				for i := range s.Len {
					n, err := elem.parse(fields[used:], v.Index(i))
					if err != nil {
						return 0, fmt.Errorf("element %d: %w", i, err)
					}
					used += n
				}
				return used, nil
			},
		}

	default:
		panic("tree: no text form for " + s.String())
	}
}

func single(format func(reflect.Value) string, parse func(string, reflect.Value) error) formatter {
	return formatter{
		format: func(v reflect.Value, out []string) []string {
			return append(out, format(v))
		},
		parse: func(fields []string, v reflect.Value) (int, error) {
			if len(fields) == 0 {
				return 0, errors.New("missing value")
			}
			if err := parse(fields[0], v); err != nil {
				return 0, err
			}
			return 1, nil
		},
	}
}

func (f formatter) text(v reflect.Value) string {
	return strings.Join(f.format(v, nil), " ")
}

func (f formatter) scan(text string, v reflect.Value) error {
	fields := strings.Fields(text)
	n, err := f.parse(fields, v)
	if err != nil {
		return err
	}
	if n != len(fields) {
		return fmt.Errorf("%d unexpected extra fields", len(fields)-n)
	}
	return nil
}
