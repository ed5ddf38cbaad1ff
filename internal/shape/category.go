package shape

// Category is the structural class a type is encoded as.
type Category uint8

const (
	Invalid Category = iota
	Scalar
	Record
	Sequence
	Tuple
	Optional
	Box
)

func (c Category) String() string {
	switch c {
	case Scalar:
		return "scalar"
	case Record:
		return "record"
	case Sequence:
		return "sequence"
	case Tuple:
		return "tuple"
	case Optional:
		return "optional"
	case Box:
		return "box"
	default:
		return "invalid"
	}
}

// ScalarKind refines the Scalar category by the nature of the value.
type ScalarKind uint8

const (
	NotScalar ScalarKind = iota
	Bool
	Signed
	Unsigned
	Float
	Complex
	Array
)

// Container tells which Go construct backs a Sequence or a Tuple.
type Container uint8

const (
	NoContainer Container = iota
	Slice
	String
	Map
	Set
	FixedArray
	Struct
)
