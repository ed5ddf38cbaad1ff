package structio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	some := Some("x")
	v, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Equal(t, "x", some.OrElse("y"))

	none := None[string]()
	_, ok = none.Get()
	assert.False(t, ok)
	assert.Equal(t, "y", none.OrElse("y"))
}

func TestOptionalInvalidValueIsNotEncoded(t *testing.T) {
	// a stale Value behind Valid=false does not reach the output
	data, err := Dump(Optional[int64]{Value: 99, Valid: false})
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, data)

	got, err := Load[Optional[int64]](data)
	require.NoError(t, err)
	assert.Equal(t, None[int64](), got)
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		got  func() (Category, error)
		want Category
	}{
		{"int", CategoryOf[int], CategoryScalar},
		{"complex", CategoryOf[complex128], CategoryScalar},
		{"float array", CategoryOf[[4]float32], CategoryScalar},
		{"struct", CategoryOf[point], CategoryRecord},
		{"listed struct", CategoryOf[ledger], CategoryRecord},
		{"string", CategoryOf[string], CategorySequence},
		{"map", CategoryOf[map[int]string], CategorySequence},
		{"pair", CategoryOf[Pair[int, string]], CategoryTuple},
		{"triple", CategoryOf[Triple[int, int, int]], CategoryTuple},
		{"string array", CategoryOf[[2]string], CategoryTuple},
		{"optional", CategoryOf[Optional[point]], CategoryOptional},
		{"pointer", CategoryOf[*point], CategoryBox},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.got()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := CategoryOf[chan int]()
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestTripleRoundTrip(t *testing.T) {
	want := Triple[string, Optional[uint8], []Pair[int, bool]]{
		First:  "t",
		Second: Some[uint8](255),
		Third:  []Pair[int, bool]{MakePair(1, true), MakePair(-1, false)},
	}

	data, err := Dump(want)
	require.NoError(t, err)
	got, err := Load[Triple[string, Optional[uint8], []Pair[int, bool]]](data)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	doc, err := DumpXML(want)
	require.NoError(t, err)
	got, err = LoadXML[Triple[string, Optional[uint8], []Pair[int, bool]]](doc)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
