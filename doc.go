// Package structio serializes arbitrary Go values to a packed binary format
// and to XML, and back, without annotations on the value's type.
//
// Every type is classified once into one structural category, and both
// codecs are driven by that classification:
//
//   - Scalar: booleans, integers, floats, complex numbers and arrays of them
//   - Record: structs, fields visited in declaration order
//   - Sequence: slices, strings, maps and sets, prefixed by their length
//   - Tuple: Pair, Triple and arrays of non-scalar elements
//   - Optional: Optional[T], a value that may be absent
//   - Box: pointers, an owned successor that may be nil
//
// # Binary format
//
// Scalars are written in the host's native byte layout. Sequences start with
// an 8-byte element count, optional values and boxes with a single presence
// byte. There is no header, version tag or field name in the output:
//
//	type Point struct {
//	    X, Y int32
//	}
//
//	data, err := structio.Dump(Point{1, 2})
//	p, err := structio.Load[Point](data)
//
// The format is not portable across hosts of different endianness.
//
// # XML format
//
// DumpXML writes one element per value, tagged by category ("int",
// "unsigned_int", "float", "aggregate", "iterable", "tuple", "optional",
// "box"). Scalars use a decimal "value" attribute, or with WithBase64 a
// "base64" attribute holding their raw bytes so that floating point values
// keep their exact bit pattern.
//
// # Fields
//
// Records include exported fields only. A field tagged `structio:"-"` is
// skipped. A struct can list its fields explicitly, unexported ones
// included, by implementing FieldLister; the structio-gen command writes
// those methods for structs marked with a //structio:fields comment.
//
// # Errors
//
// Every decoding failure wraps ErrParse. File and store failures wrap ErrIO,
// types that cannot be encoded (interfaces, funcs, channels) ErrUnsupportedType.
package structio
