// Package native holds the host in-memory byte layout of scalar values.
//
// Both the binary codec and the base64 mode of the XML codec use it, so a
// scalar has exactly one raw byte representation across the module. The
// layout follows the host byte order and is not portable between machines
// of different endianness.
package native

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/hengadev/structio/internal/shape"
)

// Order is the host byte order.
var Order = binary.NativeEndian

// Encoder writes the raw bytes of v into dst. dst holds exactly the scalar width.
type Encoder func(dst []byte, v reflect.Value)

// Decoder sets v from the raw bytes in src. src holds exactly the scalar width
// and v must be settable.
type Decoder func(src []byte, v reflect.Value)

// Codec pairs the encoder and decoder of one scalar shape.
type Codec struct {
	Width  int
	Encode Encoder
	Decode Decoder
}

var codecs sync.Map // *shape.Shape -> *Codec

// For returns the codec of a scalar shape. It panics when s is not a scalar,
// callers dispatch on the category first.
func For(s *shape.Shape) *Codec {
	if c, ok := codecs.Load(s); ok {
		return c.(*Codec)
	}
	c := build(s)
	actual, _ := codecs.LoadOrStore(s, c)
	return actual.(*Codec)
}

func build(s *shape.Shape) *Codec {
	if s.Category != shape.Scalar {
		panic(fmt.Sprintf("native: %s is not a scalar", s))
	}

	c := &Codec{Width: s.Width}
	switch s.Scalar {
	case shape.Bool:
		c.Encode = func(dst []byte, v reflect.Value) {
			if v.Bool() {
				dst[0] = 0x01
			} else {
				dst[0] = 0x00
			}
		}
		c.Decode = func(src []byte, v reflect.Value) {
			v.SetBool(src[0] != 0x00)
		}

	case shape.Signed:
		c.Encode = func(dst []byte, v reflect.Value) {
			putUint(dst, uint64(v.Int()))
		}
		c.Decode = func(src []byte, v reflect.Value) {
			v.SetInt(signExtend(getUint(src), len(src)))
		}

	case shape.Unsigned:
		c.Encode = func(dst []byte, v reflect.Value) {
			putUint(dst, v.Uint())
		}
		c.Decode = func(src []byte, v reflect.Value) {
			v.SetUint(getUint(src))
		}

	case shape.Float:
		c.Encode = func(dst []byte, v reflect.Value) {
			putFloat(dst, v.Float())
		}
		c.Decode = func(src []byte, v reflect.Value) {
			v.SetFloat(getFloat(src))
		}

	case shape.Complex:
		c.Encode = func(dst []byte, v reflect.Value) {
			half := len(dst) / 2
			x := v.Complex()
			putFloat(dst[:half], real(x))
			putFloat(dst[half:], imag(x))
		}
		c.Decode = func(src []byte, v reflect.Value) {
			half := len(src) / 2
			v.SetComplex(complex(getFloat(src[:half]), getFloat(src[half:])))
		}

	case shape.Array:
		c.Encode, c.Decode = arrayCodec(s)

	default:
		panic(fmt.Sprintf("native: unknown scalar kind %d", s.Scalar))
	}
	return c
}

func arrayCodec(s *shape.Shape) (Encoder, Decoder) {
	// Byte arrays (uuid.UUID, digests) are copied in one go.
	if s.Elem.Type.Kind() == reflect.Uint8 {
		return func(dst []byte, v reflect.Value) {
				reflect.Copy(reflect.ValueOf(dst), v)
			}, func(src []byte, v reflect.Value) {
				reflect.Copy(v, reflect.ValueOf(src))
			}
	}

	elem := For(s.Elem)
	w := elem.Width
	return func(dst []byte, v reflect.Value) {
			for i := range s.Len {
				elem.Encode(dst[i*w:(i+1)*w], v.Index(i))
			}
		}, func(src []byte, v reflect.Value) {
			for i := range s.Len {
				elem.Decode(src[i*w:(i+1)*w], v.Index(i))
			}
		}
}

// Bytes returns the raw representation of the scalar v.
func Bytes(s *shape.Shape, v reflect.Value) []byte {
	c := For(s)
	out := make([]byte, c.Width)
	c.Encode(out, v)
	return out
}

// PutCount writes a sequence element count.
func PutCount(dst []byte, n uint64) {
	Order.PutUint64(dst, n)
}

// Count reads a sequence element count.
func Count(src []byte) uint64 {
	return Order.Uint64(src)
}

func putUint(dst []byte, x uint64) {
	switch len(dst) {
	case 1:
		dst[0] = byte(x)
	case 2:
		Order.PutUint16(dst, uint16(x))
	case 4:
		Order.PutUint32(dst, uint32(x))
	case 8:
		Order.PutUint64(dst, x)
	default:
		panic(fmt.Sprintf("native: unsupported integer width %d", len(dst)))
	}
}

func getUint(src []byte) uint64 {
	switch len(src) {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(Order.Uint16(src))
	case 4:
		return uint64(Order.Uint32(src))
	case 8:
		return Order.Uint64(src)
	default:
		panic(fmt.Sprintf("native: unsupported integer width %d", len(src)))
	}
}

func signExtend(x uint64, width int) int64 {
	switch width {
	case 1:
		return int64(int8(x))
	case 2:
		return int64(int16(x))
	case 4:
		return int64(int32(x))
	default:
		return int64(x)
	}
}

func putFloat(dst []byte, f float64) {
	if len(dst) == 4 {
		Order.PutUint32(dst, math.Float32bits(float32(f)))
		return
	}
	Order.PutUint64(dst, math.Float64bits(f))
}

func getFloat(src []byte) float64 {
	if len(src) == 4 {
		return float64(math.Float32frombits(Order.Uint32(src)))
	}
	return math.Float64frombits(Order.Uint64(src))
}
