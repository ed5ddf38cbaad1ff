package shape

import "reflect"

// OptionalMarker is implemented by optional wrappers. The implementing struct
// must carry a Value field holding the payload and a Valid bool field.
type OptionalMarker interface {
	StructioOptional()
}

// TupleMarker is implemented by structs whose exported fields form a fixed,
// positional tuple rather than a record.
type TupleMarker interface {
	StructioTuple()
}

// FieldLister lets a struct spell out its fields explicitly. StructioFields
// must return one pointer per field, in declaration order, into the receiver.
// It is the only way to include unexported fields in a record.
type FieldLister interface {
	StructioFields() []any
}

var (
	optionalMarkerType = reflect.TypeFor[OptionalMarker]()
	tupleMarkerType    = reflect.TypeFor[TupleMarker]()
	fieldListerType    = reflect.TypeFor[FieldLister]()
	byteType           = reflect.TypeFor[byte]()
)

func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

func isEmptyStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}
