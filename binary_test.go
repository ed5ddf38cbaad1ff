package structio

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y float64
}

type shipment struct {
	ID       uuid.UUID
	Origin   point
	Stops    []Pair[string, point]
	Weights  map[string]float32
	Priority Optional[int8]
	Notes    *string
	Flags    [3]bool
}

type ledger struct {
	id      uint64
	holder  string
	entries []int64
}

func (l *ledger) StructioFields() []any {
	return []any{&l.id, &l.holder, &l.entries}
}

type withFunc struct {
	Name     string
	Callback func()
}

func newShipment() shipment {
	note := "fragile"
	return shipment{
		ID:     uuid.MustParse("3f1e9a5c-7d42-4c8e-9b61-0a2d5e6f7081"),
		Origin: point{X: 48.85, Y: 2.35},
		Stops: []Pair[string, point]{
			MakePair("Lyon", point{X: 45.76, Y: 4.84}),
			MakePair("Marseille", point{X: 43.30, Y: 5.37}),
		},
		Weights:  map[string]float32{"box": 1.5, "crate": 12.25},
		Priority: Some[int8](-3),
		Notes:    &note,
		Flags:    [3]bool{true, false, true},
	}
}

func TestDumpLoad(t *testing.T) {
	want := newShipment()

	data, err := Dump(want)
	require.NoError(t, err)

	n, err := Length(want)
	require.NoError(t, err)
	assert.Equal(t, n, len(data))

	got, err := Load[shipment](data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDumpLoadListedFields(t *testing.T) {
	want := ledger{id: 42, holder: "ana", entries: []int64{10, -4, 7}}

	data, err := Dump(want)
	require.NoError(t, err)

	got, err := Load[ledger](data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDumpLoadEmptyValues(t *testing.T) {
	data, err := Dump(shipment{})
	require.NoError(t, err)

	got, err := Load[shipment](data)
	require.NoError(t, err)
	assert.Equal(t, shipment{}, got)
	assert.Nil(t, got.Stops)
	assert.Nil(t, got.Weights)
	assert.Nil(t, got.Notes)
}

func TestWriteAndReadConsecutiveValues(t *testing.T) {
	first := newShipment()
	second := "trailer"

	n1, err := Length(first)
	require.NoError(t, err)
	n2, err := Length(second)
	require.NoError(t, err)

	buf := make([]byte, n1+n2)
	w1, err := Write(first, buf)
	require.NoError(t, err)
	w2, err := Write(second, buf[w1:])
	require.NoError(t, err)
	assert.Equal(t, len(buf), w1+w2)

	cur := NewCursor(buf)
	gotFirst, err := Read[shipment](cur)
	require.NoError(t, err)
	assert.Equal(t, w1, cur.Offset())

	gotSecond, err := Read[string](cur)
	require.NoError(t, err)
	assert.Equal(t, 0, cur.Len())

	assert.Equal(t, first, gotFirst)
	assert.Equal(t, second, gotSecond)
}

func TestWriteShortBuffer(t *testing.T) {
	n, err := Length("hello")
	require.NoError(t, err)
	assert.Equal(t, 8+5, n)

	_, err = Write("hello", make([]byte, n-1))
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestLoadTruncated(t *testing.T) {
	data, err := Dump(newShipment())
	require.NoError(t, err)

	for _, cut := range []int{0, 1, 16, len(data) / 2, len(data) - 1} {
		_, err := Load[shipment](data[:cut])
		assert.True(t, IsParseError(err), "cut at %d: %v", cut, err)
	}
}

func TestLoadTrailingBytes(t *testing.T) {
	data, err := Dump(int32(7))
	require.NoError(t, err)
	data = append(data, 0xff, 0xff)

	got, err := Load[int32](data)
	require.NoError(t, err)
	assert.Equal(t, int32(7), got)

	_, err = Load[int32](data, WithStrictLength())
	assert.True(t, IsParseError(err))
}

func TestUnsupportedType(t *testing.T) {
	_, err := Dump(withFunc{Name: "x"})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.True(t, IsConfigurationError(err))

	_, err = Load[withFunc]([]byte{})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Length[any](1)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestInvalidOption(t *testing.T) {
	_, err := Dump(1, WithObserver(nil))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = Load[int]([]byte{}, WithIndent(-1))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
