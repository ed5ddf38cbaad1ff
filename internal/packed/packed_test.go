package packed

import (
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/structio/internal/codecerr"
	"github.com/hengadev/structio/internal/native"
	"github.com/hengadev/structio/internal/shape"
)

type maybe[T any] struct {
	Value T
	Valid bool
}

func (maybe[T]) StructioOptional() {}

type pair[A, B any] struct {
	First  A
	Second B
}

func (pair[A, B]) StructioTuple() {}

type inner struct {
	A int32
	B bool
	C byte
	D float64
}

type example struct {
	Greeting string
	Numbers  map[string]int64
	Inner    inner
	Extra    *maybe[inner]
}

type node struct {
	Value int
	Next  *node
}

type account struct {
	id      uint64
	owner   string
	balance float64
}

func (a *account) StructioFields() []any {
	return []any{&a.id, &a.owner, &a.balance}
}

type catalog struct {
	ID       uuid.UUID
	Tags     map[string]struct{}
	Ranges   []pair[int16, string]
	Labels   [2]string
	Scores   []float32
	Raw      []byte
	Note     maybe[string]
	Skipped  string `structio:"-"`
	internal int
}

func encode[T any](t *testing.T, v T) []byte {
	t.Helper()
	s, err := shape.For[T]()
	require.NoError(t, err)
	return Dump(s, reflect.ValueOf(v))
}

func decode[T any](data []byte, strict bool) (T, error) {
	var out T
	s, err := shape.For[T]()
	if err != nil {
		return out, err
	}
	err = Load(s, data, strict, reflect.ValueOf(&out).Elem())
	return out, err
}

func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()

	s, err := shape.For[T]()
	require.NoError(t, err)

	data := Dump(s, reflect.ValueOf(v))
	require.Equal(t, len(data), Length(s, reflect.ValueOf(v)))

	out, err := decode[T](data, true)
	require.NoError(t, err)
	return out
}

func newExample() example {
	return example{
		Greeting: "Hello",
		Numbers:  map[string]int64{"One": 1, "Two": 2, "Three": 3},
		Inner:    inner{A: 5, B: true, C: 'c', D: 3.14},
		Extra:    &maybe[inner]{Value: inner{A: -7, C: 'z', D: math.Pi}, Valid: true},
	}
}

func newList(n int) *node {
	var head *node
	for i := n; i > 0; i-- {
		head = &node{Value: i, Next: head}
	}
	return head
}

func TestExampleRedumpIsByteIdentical(t *testing.T) {
	first := encode(t, newExample())
	assert.Len(t, first, 110)

	loaded, err := decode[example](first, true)
	require.NoError(t, err)
	assert.Equal(t, newExample(), loaded)

	second := encode(t, loaded)
	assert.Equal(t, first, second)
}

func TestRoundTrip(t *testing.T) {
	t.Run("scalars", func(t *testing.T) {
		assert.Equal(t, int64(-9), roundTrip(t, int64(-9)))
		assert.Equal(t, true, roundTrip(t, true))
		assert.Equal(t, complex(1, -1), roundTrip(t, complex(1, -1)))
	})

	t.Run("strings", func(t *testing.T) {
		assert.Equal(t, "héllo wörld", roundTrip(t, "héllo wörld"))
		assert.Equal(t, "", roundTrip(t, ""))
	})

	t.Run("records", func(t *testing.T) {
		assert.Equal(t, newExample(), roundTrip(t, newExample()))
	})

	t.Run("listed record", func(t *testing.T) {
		in := account{id: 42, owner: "ada", balance: 12.5}
		assert.Equal(t, in, roundTrip(t, in))
	})

	t.Run("mixed containers", func(t *testing.T) {
		in := catalog{
			ID:     uuid.New(),
			Tags:   map[string]struct{}{"b": {}, "a": {}},
			Ranges: []pair[int16, string]{{1, "one"}, {-2, ""}},
			Labels: [2]string{"left", "right"},
			Scores: []float32{0.5, -1},
			Raw:    []byte{0, 1, 2, 255},
			Note:   maybe[string]{Value: "n", Valid: true},
		}
		assert.Equal(t, in, roundTrip(t, in))
	})

	t.Run("skipped fields stay zero", func(t *testing.T) {
		in := catalog{Skipped: "gone", internal: 3}
		out := roundTrip(t, in)
		assert.Empty(t, out.Skipped)
		assert.Zero(t, out.internal)
	})

	t.Run("empty values", func(t *testing.T) {
		assert.Nil(t, roundTrip(t, []int(nil)))
		assert.Nil(t, roundTrip(t, map[int]string(nil)))
		assert.Nil(t, roundTrip(t, (*node)(nil)))
		assert.Equal(t, maybe[int]{}, roundTrip(t, maybe[int]{}))
	})

	t.Run("nested sequences", func(t *testing.T) {
		in := map[pair[int, int]][][]string{
			{1, 2}: {{"a"}, {"b", "c"}},
			{0, 9}: {{"d"}},
		}
		assert.Equal(t, in, roundTrip(t, in))
	})

	t.Run("zero width elements", func(t *testing.T) {
		in := []struct{}{{}, {}, {}}
		assert.Equal(t, in, roundTrip(t, in))
	})
}

func TestLinkedListOfTenNodes(t *testing.T) {
	head := newList(10)

	out := roundTrip(t, head)

	var got []int
	for n := out; n != nil; n = n.Next {
		got = append(got, n.Value)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
}

func TestLengthMatchesWrite(t *testing.T) {
	values := []any{
		newExample(),
		newList(3),
		catalog{Scores: []float32{1}},
		map[string][]int{"x": {1, 2}, "yy": nil},
		[3]*inner{nil, {A: 1}, nil},
	}

	for _, v := range values {
		rv := reflect.ValueOf(v)
		s, err := shape.Of(rv.Type())
		require.NoError(t, err)

		buf := make([]byte, Length(s, rv)+4)
		n, err := Write(s, rv, buf)
		require.NoError(t, err)
		assert.Equal(t, Length(s, rv), n, rv.Type().String())
	}
}

func TestWireLayout(t *testing.T) {
	data := encode(t, maybe[[]uint16]{Value: []uint16{7}, Valid: true})

	require.Len(t, data, 1+shape.CountWidth+2)
	assert.Equal(t, byte(0x01), data[0])
	assert.Equal(t, uint64(1), native.Count(data[1:]))
	assert.Equal(t, uint16(7), native.Order.Uint16(data[1+shape.CountWidth:]))

	assert.Equal(t, []byte{0x00}, encode(t, (*int)(nil)))
}

func TestMapEncodingIsDeterministic(t *testing.T) {
	m := map[int]string{}
	for i := range 50 {
		m[i*7%50] = string(rune('a' + i%26))
	}
	first := encode(t, m)
	for range 10 {
		assert.Equal(t, first, encode(t, m))
	}
}

func TestMapWithNaNKeys(t *testing.T) {
	m := map[float64]int{math.NaN(): 1, math.NaN(): 3, 2.5: 2}

	first := encode(t, m)
	assert.Equal(t, first, encode(t, m))

	out := roundTrip(t, m)
	assert.Len(t, out, 3)
	assert.Equal(t, 2, out[2.5])
	var nanValues []int
	for k, v := range out {
		if math.IsNaN(k) {
			nanValues = append(nanValues, v)
		}
	}
	assert.ElementsMatch(t, []int{1, 3}, nanValues)
}

func TestTruncationAtEveryOffsetFails(t *testing.T) {
	data := encode(t, newExample())

	for i := range len(data) {
		_, err := decode[example](data[:i], false)
		require.Error(t, err, "prefix of %d bytes", i)
		assert.ErrorIs(t, err, codecerr.ErrParse)
	}

	list := encode(t, newList(10))
	for i := range len(list) {
		_, err := decode[*node](list[:i], false)
		assert.ErrorIs(t, err, codecerr.ErrParse)
	}
}

func TestInvalidInput(t *testing.T) {
	t.Run("presence byte", func(t *testing.T) {
		_, err := decode[*int32]([]byte{0x02, 0, 0, 0, 0}, false)
		assert.ErrorIs(t, err, codecerr.ErrParse)
		assert.Contains(t, err.Error(), "0x02")
	})

	t.Run("implausible count", func(t *testing.T) {
		data := make([]byte, shape.CountWidth+16)
		native.PutCount(data, 1<<60)
		_, err := decode[[]int64](data, false)
		assert.ErrorIs(t, err, codecerr.ErrParse)

		_, err = decode[string](data, false)
		assert.ErrorIs(t, err, codecerr.ErrParse)
	})

	t.Run("zero width count cap", func(t *testing.T) {
		data := make([]byte, shape.CountWidth)
		native.PutCount(data, 1<<30)
		_, err := decode[[]struct{}](data, false)
		assert.ErrorIs(t, err, codecerr.ErrParse)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		data := append(encode(t, int16(3)), 0xff)

		v, err := decode[int16](data, false)
		require.NoError(t, err)
		assert.Equal(t, int16(3), v)

		_, err = decode[int16](data, true)
		assert.ErrorIs(t, err, codecerr.ErrParse)
	})
}

func TestWriteShortBuffer(t *testing.T) {
	s, err := shape.For[string]()
	require.NoError(t, err)

	_, err = Write(s, reflect.ValueOf("abc"), make([]byte, 4))
	assert.ErrorIs(t, err, codecerr.ErrShortBuffer)
}

func TestCursorTracksOffset(t *testing.T) {
	s, err := shape.For[uint16]()
	require.NoError(t, err)

	data := append(encode(t, uint16(1)), encode(t, uint16(2))...)
	cur := NewCursor(data)

	var a, b uint16
	require.NoError(t, Read(s, cur, reflect.ValueOf(&a).Elem()))
	assert.Equal(t, 2, cur.Offset())
	require.NoError(t, Read(s, cur, reflect.ValueOf(&b).Elem()))
	assert.Equal(t, 0, cur.Len())
	assert.Equal(t, []uint16{1, 2}, []uint16{a, b})

	err = Read(s, cur, reflect.ValueOf(&a).Elem())
	assert.ErrorIs(t, err, codecerr.ErrParse)
}
