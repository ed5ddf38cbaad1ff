package structio

import (
	"github.com/hengadev/structio/internal/shape"
)

// Optional holds a value that may be absent. It is encoded as a presence
// flag followed by the value when Valid is true.
type Optional[T any] struct {
	Value T
	Valid bool
}

// StructioOptional marks Optional as an optional value for the classifier.
func (Optional[T]) StructioOptional() {}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// OrElse returns the value when present, fallback otherwise.
func (o Optional[T]) OrElse(fallback T) T {
	if o.Valid {
		return o.Value
	}
	return fallback
}

// Pair is a two-element tuple. Its components are positional: they are
// encoded without names and without a count.
type Pair[A, B any] struct {
	First  A
	Second B
}

// StructioTuple marks Pair as a tuple for the classifier.
func (Pair[A, B]) StructioTuple() {}

// MakePair returns the pair (a, b).
func MakePair[A, B any](a A, b B) Pair[A, B] {
	return Pair[A, B]{First: a, Second: b}
}

// Triple is a three-element tuple.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// StructioTuple marks Triple as a tuple for the classifier.
func (Triple[A, B, C]) StructioTuple() {}

// FieldLister is implemented by structs that enumerate their own fields.
// StructioFields must return one pointer per field, into the receiver, in
// declaration order. Unexported fields can only be encoded this way.
type FieldLister = shape.FieldLister

// Category is the structural class a type is encoded as.
type Category = shape.Category

const (
	CategoryScalar   = shape.Scalar
	CategoryRecord   = shape.Record
	CategorySequence = shape.Sequence
	CategoryTuple    = shape.Tuple
	CategoryOptional = shape.Optional
	CategoryBox      = shape.Box
)

// CategoryOf returns the category T is encoded as, or ErrUnsupportedType.
func CategoryOf[T any]() (Category, error) {
	s, err := shape.For[T]()
	if err != nil {
		return shape.Invalid, err
	}
	return s.Category, nil
}
