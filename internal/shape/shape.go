package shape

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hengadev/errsx"

	"github.com/hengadev/structio/internal/codecerr"
)

const (
	// CountWidth is the width in bytes of a sequence element count.
	CountWidth = 8

	// TagName is the struct tag consulted for field options.
	TagName = "structio"
)

// Field is one component of a record or struct tuple.
type Field struct {
	Name string
	// Index is the struct field index, or -1 when the field comes from a FieldLister.
	Index int
	Shape *Shape
}

// Shape is the structural description of a Go type. It is computed once per
// type and shared by both codecs, so fields are visited in the same order on
// every encode and decode.
type Shape struct {
	Type     reflect.Type
	Category Category

	// Scalar
	Scalar ScalarKind
	Width  int

	// Sequence and Tuple
	Container Container
	Len       int

	// Record and struct Tuple
	Fields []Field
	Listed bool

	// Key is the map key shape. Elem is the sequence element (map value),
	// array element, or the optional/box payload.
	Key  *Shape
	Elem *Shape

	// Optional
	ValueField int
	ValidField int
}

var cache sync.Map // reflect.Type -> *Shape

// Of returns the shape of t, classifying it on first use.
func Of(t reflect.Type) (*Shape, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", codecerr.ErrUnsupportedType)
	}
	if s, ok := cache.Load(t); ok {
		return s.(*Shape), nil
	}

	b := &builder{inProgress: make(map[reflect.Type]*Shape)}
	s, err := b.build(t)
	if err != nil {
		return nil, err
	}

	for typ, sub := range b.inProgress {
		if typ != t {
			cache.LoadOrStore(typ, sub)
		}
	}
	actual, _ := cache.LoadOrStore(t, s)
	return actual.(*Shape), nil
}

// For returns the shape of T.
func For[T any]() (*Shape, error) {
	return Of(reflect.TypeFor[T]())
}

type builder struct {
	inProgress map[reflect.Type]*Shape
}

func (b *builder) build(t reflect.Type) (*Shape, error) {
	if s, ok := cache.Load(t); ok {
		return s.(*Shape), nil
	}
	// A type met again while still being built is a recursive reference.
	if s, ok := b.inProgress[t]; ok {
		return s, nil
	}

	s := &Shape{Type: t}
	b.inProgress[t] = s
	if err := b.classify(s); err != nil {
		delete(b.inProgress, t)
		return nil, err
	}
	return s, nil
}

func (b *builder) classify(s *Shape) error {
	t := s.Type

	if kind := scalarKind(t); kind != NotScalar {
		s.Category = Scalar
		s.Scalar = kind
		s.Width = int(t.Size())
		if kind == Array {
			elem, err := b.build(t.Elem())
			if err != nil {
				return err
			}
			s.Elem = elem
			s.Len = t.Len()
		}
		return nil
	}

	switch t.Kind() {
	case reflect.Struct:
		switch {
		case implements(t, optionalMarkerType):
			return b.optional(s)
		case implements(t, tupleMarkerType):
			return b.structTuple(s)
		default:
			return b.record(s)
		}

	case reflect.String:
		s.Category = Sequence
		s.Container = String
		elem, err := b.build(byteType)
		if err != nil {
			return err
		}
		s.Elem = elem
		return nil

	case reflect.Slice:
		s.Category = Sequence
		s.Container = Slice
		elem, err := b.build(t.Elem())
		if err != nil {
			return fmt.Errorf("element of %s: %w", t, err)
		}
		s.Elem = elem
		return nil

	case reflect.Map:
		s.Category = Sequence
		key, err := b.build(t.Key())
		if err != nil {
			return fmt.Errorf("key of %s: %w", t, err)
		}
		s.Key = key
		if isEmptyStruct(t.Elem()) {
			s.Container = Set
			return nil
		}
		s.Container = Map
		elem, err := b.build(t.Elem())
		if err != nil {
			return fmt.Errorf("value of %s: %w", t, err)
		}
		s.Elem = elem
		return nil

	case reflect.Array:
		s.Category = Tuple
		s.Container = FixedArray
		s.Len = t.Len()
		elem, err := b.build(t.Elem())
		if err != nil {
			return fmt.Errorf("element of %s: %w", t, err)
		}
		s.Elem = elem
		return nil

	case reflect.Pointer:
		s.Category = Box
		elem, err := b.build(t.Elem())
		if err != nil {
			return fmt.Errorf("target of %s: %w", t, err)
		}
		s.Elem = elem
		return nil

	case reflect.Interface:
		return codecerr.NewUnsupportedTypeError(t, "interfaces have no static shape")

	default:
		return codecerr.NewUnsupportedTypeError(t, fmt.Sprintf("%s values cannot be encoded", t.Kind()))
	}
}

func scalarKind(t reflect.Type) ScalarKind {
	switch t.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Signed
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Unsigned
	case reflect.Float32, reflect.Float64:
		return Float
	case reflect.Complex64, reflect.Complex128:
		return Complex
	case reflect.Array:
		if scalarKind(t.Elem()) != NotScalar {
			return Array
		}
	}
	return NotScalar
}

func (b *builder) record(s *Shape) error {
	t := s.Type
	s.Category = Record

	if reflect.PointerTo(t).Implements(fieldListerType) {
		return b.listedFields(s)
	}

	var errs errsx.Map
	for i := range t.NumField() {
		field := t.Field(i)

		// Skip unexported fields, they cannot be set through reflection
		if !field.IsExported() {
			continue
		}
		if field.Tag.Get(TagName) == "-" {
			continue
		}

		fs, err := b.build(field.Type)
		if err != nil {
			errs.Set(fmt.Sprintf("field '%s'", field.Name), err)
			continue
		}
		s.Fields = append(s.Fields, Field{Name: field.Name, Index: i, Shape: fs})
	}

	if !errs.IsEmpty() {
		return fmt.Errorf("%w: record %s: %w", codecerr.ErrUnsupportedType, t, errs.AsError())
	}
	return nil
}

func (b *builder) listedFields(s *Shape) error {
	t := s.Type
	s.Listed = true

	sample := reflect.New(t)
	pointers := sample.Interface().(FieldLister).StructioFields()
	base := sample.Pointer()
	size := t.Size()

	var errs errsx.Map
	for i, p := range pointers {
		key := fmt.Sprintf("listed field %d", i)

		pv := reflect.ValueOf(p)
		if pv.Kind() != reflect.Pointer || pv.IsNil() {
			errs.Set(key, fmt.Errorf("expected a non-nil pointer, got %T", p))
			continue
		}
		addr := pv.Pointer()
		if !inside(base, size, addr) {
			errs.Set(key, fmt.Errorf("pointer does not address a field of %s", t))
			continue
		}
		elemType := pv.Type().Elem()
		if elemType == t {
			errs.Set(key, fmt.Errorf("pointer addresses the whole %s", t))
			continue
		}

		fs, err := b.build(elemType)
		if err != nil {
			errs.Set(key, err)
			continue
		}
		s.Fields = append(s.Fields, Field{
			Name:  fieldNameAt(t, addr-base, elemType, i),
			Index: -1,
			Shape: fs,
		})
	}

	if !errs.IsEmpty() {
		return fmt.Errorf("%w: record %s: %w", codecerr.ErrUnsupportedType, t, errs.AsError())
	}
	return nil
}

// inside reports whether addr falls within the size bytes starting at base.
func inside(base, size, addr uintptr) bool {
	return addr >= base && addr-base < size
}

func fieldNameAt(t reflect.Type, offset uintptr, typ reflect.Type, position int) string {
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Offset == offset && f.Type == typ {
			return f.Name
		}
	}
	return fmt.Sprintf("#%d", position)
}

func (b *builder) structTuple(s *Shape) error {
	t := s.Type
	s.Category = Tuple
	s.Container = Struct

	var errs errsx.Map
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fs, err := b.build(field.Type)
		if err != nil {
			errs.Set(fmt.Sprintf("component '%s'", field.Name), err)
			continue
		}
		s.Fields = append(s.Fields, Field{Name: field.Name, Index: i, Shape: fs})
	}

	if !errs.IsEmpty() {
		return fmt.Errorf("%w: tuple %s: %w", codecerr.ErrUnsupportedType, t, errs.AsError())
	}
	return nil
}

func (b *builder) optional(s *Shape) error {
	t := s.Type
	s.Category = Optional

	value, hasValue := t.FieldByName("Value")
	valid, hasValid := t.FieldByName("Valid")
	if !hasValue || !hasValid || len(value.Index) != 1 || len(valid.Index) != 1 || valid.Type.Kind() != reflect.Bool {
		return codecerr.NewUnsupportedTypeError(t, "optional types need a Value field and a Valid bool field")
	}
	s.ValueField = value.Index[0]
	s.ValidField = valid.Index[0]

	elem, err := b.build(value.Type)
	if err != nil {
		return fmt.Errorf("payload of %s: %w", t, err)
	}
	s.Elem = elem
	return nil
}

// FieldValues returns the components of a record or struct tuple held in v,
// in encoding order. Values are settable when v is addressable.
func (s *Shape) FieldValues(v reflect.Value) []reflect.Value {
	out := make([]reflect.Value, len(s.Fields))
	if !s.Listed {
		for i, f := range s.Fields {
			out[i] = v.Field(f.Index)
		}
		return out
	}

	if !v.CanAddr() {
		tmp := reflect.New(s.Type).Elem()
		tmp.Set(v)
		v = tmp
	}
	pointers := v.Addr().Interface().(FieldLister).StructioFields()
	for i := range out {
		out[i] = reflect.ValueOf(pointers[i]).Elem()
	}
	return out
}

// MinWidth is the smallest number of bytes a binary encoding of s can take.
func (s *Shape) MinWidth() int {
	switch s.Category {
	case Scalar:
		return s.Width
	case Record:
		return s.fieldsMinWidth()
	case Tuple:
		if s.Container == FixedArray {
			return s.Len * s.Elem.MinWidth()
		}
		return s.fieldsMinWidth()
	case Sequence:
		return CountWidth
	case Optional, Box:
		return 1
	default:
		return 0
	}
}

func (s *Shape) fieldsMinWidth() int {
	n := 0
	for _, f := range s.Fields {
		n += f.Shape.MinWidth()
	}
	return n
}

// Tag is the XML element name used for values of this shape.
func (s *Shape) Tag() string {
	switch s.Category {
	case Scalar:
		switch s.Scalar {
		case Bool:
			return "bool"
		case Signed:
			return "int"
		case Unsigned:
			return "unsigned_int"
		case Float:
			return "float"
		case Complex:
			return "complex"
		case Array:
			return "array"
		}
	case Record:
		return "aggregate"
	case Sequence:
		return "iterable"
	case Tuple:
		return "tuple"
	case Optional:
		return "optional"
	case Box:
		return "box"
	}
	return "unknown"
}

func (s *Shape) String() string {
	return fmt.Sprintf("%s(%s)", s.Category, s.Type)
}
