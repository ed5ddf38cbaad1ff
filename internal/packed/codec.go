package packed

import (
	"reflect"
	"sync"

	"github.com/hengadev/structio/internal/codecerr"
	"github.com/hengadev/structio/internal/native"
	"github.com/hengadev/structio/internal/shape"
)

// maxZeroWidthCount bounds the element count of sequences whose elements may
// encode to zero bytes, since the remaining input cannot bound them.
const maxZeroWidthCount = 1 << 24

// codec is the compiled length/write/read triple of one shape.
type codec struct {
	length func(v reflect.Value) int
	write  func(v reflect.Value, buf []byte) int
	read   func(c *Cursor, v reflect.Value) error
}

var (
	codecs    sync.Map // *shape.Shape -> *codec
	compileMu sync.Mutex
)

func codecFor(s *shape.Shape) *codec {
	if c, ok := codecs.Load(s); ok {
		return c.(*codec)
	}

	compileMu.Lock()
	defer compileMu.Unlock()

	if c, ok := codecs.Load(s); ok {
		return c.(*codec)
	}
	comp := &compiler{pending: make(map[*shape.Shape]*codec)}
	c := comp.compile(s)
	// Publish only once every codec reachable from s is complete.
	for sh, pc := range comp.pending {
		codecs.Store(sh, pc)
	}
	return c
}

type compiler struct {
	pending map[*shape.Shape]*codec
}

func (comp *compiler) compile(s *shape.Shape) *codec {
	if c, ok := codecs.Load(s); ok {
		return c.(*codec)
	}
	if c, ok := comp.pending[s]; ok {
		return c
	}

	c := &codec{}
	comp.pending[s] = c

	switch s.Category {
	case shape.Scalar:
		comp.scalar(s, c)
	case shape.Record:
		comp.fields(s, c)
	case shape.Sequence:
		switch s.Container {
		case shape.String:
			comp.str(s, c)
		case shape.Map:
			comp.mapping(s, c)
		case shape.Set:
			comp.set(s, c)
		default:
			comp.slice(s, c)
		}
	case shape.Tuple:
		if s.Container == shape.FixedArray {
			comp.array(s, c)
		} else {
			comp.fields(s, c)
		}
	case shape.Optional:
		comp.optional(s, c)
	case shape.Box:
		comp.box(s, c)
	default:
		panic("packed: cannot compile " + s.String())
	}
	return c
}

func (comp *compiler) scalar(s *shape.Shape, c *codec) {
	nc := native.For(s)
	w := nc.Width
	what := s.Type.String()

	c.length = func(reflect.Value) int { return w }
	c.write = func(v reflect.Value, buf []byte) int {
		nc.Encode(buf[:w], v)
		return w
	}
	c.read = func(cur *Cursor, v reflect.Value) error {
		b, err := cur.take(w, what)
		if err != nil {
			return err
		}
		nc.Decode(b, v)
		return nil
	}
}

// fields covers records and struct tuples, which share one wire shape.
func (comp *compiler) fields(s *shape.Shape, c *codec) {
	parts := make([]*codec, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = comp.compile(f.Shape)
	}

	if w := fixedWidth(s); w >= 0 {
		c.length = func(reflect.Value) int { return w }
	} else {
		c.length = func(v reflect.Value) int {
			n := 0
			for i, fv := range s.FieldValues(v) {
				n += parts[i].length(fv)
			}
			return n
		}
	}
	c.write = func(v reflect.Value, buf []byte) int {
		n := 0
		for i, fv := range s.FieldValues(v) {
			n += parts[i].write(fv, buf[n:])
		}
		return n
	}
	c.read = func(cur *Cursor, v reflect.Value) error {
		for i, fv := range s.FieldValues(v) {
			if err := parts[i].read(cur, fv); err != nil {
				return err
			}
		}
		return nil
	}
}

func (comp *compiler) array(s *shape.Shape, c *codec) {
	elem := comp.compile(s.Elem)

	if w := fixedWidth(s); w >= 0 {
		c.length = func(reflect.Value) int { return w }
	} else {
		c.length = func(v reflect.Value) int {
			n := 0
			for i := range s.Len {
				n += elem.length(v.Index(i))
			}
			return n
		}
	}
	c.write = func(v reflect.Value, buf []byte) int {
		n := 0
		for i := range s.Len {
			n += elem.write(v.Index(i), buf[n:])
		}
		return n
	}
	c.read = func(cur *Cursor, v reflect.Value) error {
		for i := range s.Len {
			if err := elem.read(cur, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
}

func (comp *compiler) str(s *shape.Shape, c *codec) {
	c.length = func(v reflect.Value) int {
		return shape.CountWidth + v.Len()
	}
	c.write = func(v reflect.Value, buf []byte) int {
		native.PutCount(buf, uint64(v.Len()))
		return shape.CountWidth + copy(buf[shape.CountWidth:], v.String())
	}
	c.read = func(cur *Cursor, v reflect.Value) error {
		n, err := readCount(cur, 1)
		if err != nil {
			return err
		}
		b, err := cur.take(n, "string content")
		if err != nil {
			return err
		}
		if n > 0 {
			v.SetString(string(b))
		}
		return nil
	}
}

func (comp *compiler) slice(s *shape.Shape, c *codec) {
	t := s.Type

	if s.Elem.Type == reflect.TypeFor[byte]() {
		c.length = func(v reflect.Value) int {
			return shape.CountWidth + v.Len()
		}
		c.write = func(v reflect.Value, buf []byte) int {
			native.PutCount(buf, uint64(v.Len()))
			return shape.CountWidth + copy(buf[shape.CountWidth:], v.Bytes())
		}
		c.read = func(cur *Cursor, v reflect.Value) error {
			n, err := readCount(cur, 1)
			if err != nil {
				return err
			}
			b, err := cur.take(n, "byte slice content")
			if err != nil {
				return err
			}
			if n > 0 {
				out := reflect.MakeSlice(t, n, n)
				reflect.Copy(out, reflect.ValueOf(b))
				v.Set(out)
			}
			return nil
		}
		return
	}

	elem := comp.compile(s.Elem)
	elemWidth := fixedWidth(s.Elem)
	minWidth := s.Elem.MinWidth()

	c.length = func(v reflect.Value) int {
		if elemWidth >= 0 {
			return shape.CountWidth + v.Len()*elemWidth
		}
		n := shape.CountWidth
		for i := range v.Len() {
			n += elem.length(v.Index(i))
		}
		return n
	}
	c.write = func(v reflect.Value, buf []byte) int {
		native.PutCount(buf, uint64(v.Len()))
		n := shape.CountWidth
		for i := range v.Len() {
			n += elem.write(v.Index(i), buf[n:])
		}
		return n
	}
	c.read = func(cur *Cursor, v reflect.Value) error {
		n, err := readCount(cur, minWidth)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		out := reflect.MakeSlice(t, n, n)
		for i := range n {
			if err := elem.read(cur, out.Index(i)); err != nil {
				return err
			}
		}
		v.Set(out)
		return nil
	}
}

func (comp *compiler) mapping(s *shape.Shape, c *codec) {
	t := s.Type
	key := comp.compile(s.Key)
	val := comp.compile(s.Elem)
	minWidth := s.Key.MinWidth() + s.Elem.MinWidth()

	c.length = func(v reflect.Value) int {
		n := shape.CountWidth
		iter := v.MapRange()
		for iter.Next() {
			n += key.length(iter.Key()) + val.length(iter.Value())
		}
		return n
	}
	c.write = func(v reflect.Value, buf []byte) int {
		native.PutCount(buf, uint64(v.Len()))
		n := shape.CountWidth
		keys, values := shape.SortedEntries(v)
		for i, k := range keys {
			n += key.write(k, buf[n:])
			n += val.write(values[i], buf[n:])
		}
		return n
	}
	c.read = func(cur *Cursor, v reflect.Value) error {
		n, err := readCount(cur, minWidth)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		out := reflect.MakeMapWithSize(t, n)
		for range n {
			// Each entry is built completely before it enters the map.
			k := reflect.New(t.Key()).Elem()
			if err := key.read(cur, k); err != nil {
				return err
			}
			e := reflect.New(t.Elem()).Elem()
			if err := val.read(cur, e); err != nil {
				return err
			}
			out.SetMapIndex(k, e)
		}
		v.Set(out)
		return nil
	}
}

func (comp *compiler) set(s *shape.Shape, c *codec) {
	t := s.Type
	key := comp.compile(s.Key)
	minWidth := s.Key.MinWidth()
	present := reflect.Zero(t.Elem())

	c.length = func(v reflect.Value) int {
		n := shape.CountWidth
		iter := v.MapRange()
		for iter.Next() {
			n += key.length(iter.Key())
		}
		return n
	}
	c.write = func(v reflect.Value, buf []byte) int {
		native.PutCount(buf, uint64(v.Len()))
		n := shape.CountWidth
		for _, k := range shape.SortedKeys(v) {
			n += key.write(k, buf[n:])
		}
		return n
	}
	c.read = func(cur *Cursor, v reflect.Value) error {
		n, err := readCount(cur, minWidth)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		out := reflect.MakeMapWithSize(t, n)
		for range n {
			k := reflect.New(t.Key()).Elem()
			if err := key.read(cur, k); err != nil {
				return err
			}
			out.SetMapIndex(k, present)
		}
		v.Set(out)
		return nil
	}
}

func (comp *compiler) optional(s *shape.Shape, c *codec) {
	payload := comp.compile(s.Elem)
	what := s.Type.String()

	c.length = func(v reflect.Value) int {
		if !v.Field(s.ValidField).Bool() {
			return 1
		}
		return 1 + payload.length(v.Field(s.ValueField))
	}
	c.write = func(v reflect.Value, buf []byte) int {
		if !v.Field(s.ValidField).Bool() {
			buf[0] = 0x00
			return 1
		}
		buf[0] = 0x01
		return 1 + payload.write(v.Field(s.ValueField), buf[1:])
	}
	c.read = func(cur *Cursor, v reflect.Value) error {
		present, err := readPresence(cur, what)
		if err != nil {
			return err
		}
		v.SetZero()
		if !present {
			return nil
		}
		if err := payload.read(cur, v.Field(s.ValueField)); err != nil {
			return err
		}
		v.Field(s.ValidField).SetBool(true)
		return nil
	}
}

func (comp *compiler) box(s *shape.Shape, c *codec) {
	target := comp.compile(s.Elem)
	elemType := s.Type.Elem()
	what := s.Type.String()

	c.length = func(v reflect.Value) int {
		if v.IsNil() {
			return 1
		}
		return 1 + target.length(v.Elem())
	}
	c.write = func(v reflect.Value, buf []byte) int {
		if v.IsNil() {
			buf[0] = 0x00
			return 1
		}
		buf[0] = 0x01
		return 1 + target.write(v.Elem(), buf[1:])
	}
	c.read = func(cur *Cursor, v reflect.Value) error {
		present, err := readPresence(cur, what)
		if err != nil {
			return err
		}
		if !present {
			v.SetZero()
			return nil
		}
		p := reflect.New(elemType)
		if err := target.read(cur, p.Elem()); err != nil {
			return err
		}
		v.Set(p)
		return nil
	}
}

func readPresence(cur *Cursor, what string) (bool, error) {
	b, err := cur.take(1, what+" presence byte")
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, codecerr.NewInvalidPresenceError(what, b[0])
	}
}

// readCount decodes a sequence count and rejects counts the remaining input
// cannot hold, given the smallest encoding of one element.
func readCount(cur *Cursor, minWidth int) (int, error) {
	b, err := cur.take(shape.CountWidth, "sequence count")
	if err != nil {
		return 0, err
	}
	count := native.Count(b)

	remaining := cur.Len()
	if minWidth > 0 {
		if count > uint64(remaining/minWidth) {
			return 0, codecerr.NewImplausibleCountError(count, remaining)
		}
	} else if count > maxZeroWidthCount {
		return 0, codecerr.NewImplausibleCountError(count, remaining)
	}
	return int(count), nil
}

// fixedWidth returns the encoded size shared by every value of s, or -1 when
// it depends on the value.
func fixedWidth(s *shape.Shape) int {
	switch s.Category {
	case shape.Scalar:
		return s.Width
	case shape.Record:
		return fieldsFixedWidth(s)
	case shape.Tuple:
		if s.Container == shape.FixedArray {
			w := fixedWidth(s.Elem)
			if w < 0 {
				return -1
			}
			return s.Len * w
		}
		return fieldsFixedWidth(s)
	default:
		return -1
	}
}

func fieldsFixedWidth(s *shape.Shape) int {
	n := 0
	for _, f := range s.Fields {
		w := fixedWidth(f.Shape)
		if w < 0 {
			return -1
		}
		n += w
	}
	return n
}
