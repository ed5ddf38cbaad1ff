package tree

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/beevik/etree"

	"github.com/hengadev/structio/internal/codecerr"
	"github.com/hengadev/structio/internal/native"
	"github.com/hengadev/structio/internal/shape"
)

const (
	attrValue    = "value"
	attrBase64   = "base64"
	attrSize     = "size"
	attrHasValue = "has_value"

	tagTuple = "tuple"
)

type codec struct {
	write func(v reflect.Value) *etree.Element
	read  func(e *etree.Element, v reflect.Value) error
}

type codecKey struct {
	shape *shape.Shape
	mode  Mode
}

var (
	codecs    sync.Map // codecKey -> *codec
	compileMu sync.Mutex
)

func codecFor(s *shape.Shape, mode Mode) *codec {
	key := codecKey{s, mode}
	if c, ok := codecs.Load(key); ok {
		return c.(*codec)
	}

	compileMu.Lock()
	defer compileMu.Unlock()

	if c, ok := codecs.Load(key); ok {
		return c.(*codec)
	}
	comp := &compiler{mode: mode, pending: make(map[*shape.Shape]*codec)}
	c := comp.compile(s)
	for sh, pc := range comp.pending {
		codecs.Store(codecKey{sh, mode}, pc)
	}
	return c
}

type compiler struct {
	mode    Mode
	pending map[*shape.Shape]*codec
}

func (comp *compiler) compile(s *shape.Shape) *codec {
	if c, ok := codecs.Load(codecKey{s, comp.mode}); ok {
		return c.(*codec)
	}
	if c, ok := comp.pending[s]; ok {
		return c
	}

	c := &codec{}
	comp.pending[s] = c

	switch s.Category {
	case shape.Scalar:
		if comp.mode == Base64 {
			comp.base64Scalar(s, c)
		} else {
			comp.textScalar(s, c)
		}
	case shape.Record, shape.Tuple:
		comp.positional(s, c)
	case shape.Sequence:
		switch s.Container {
		case shape.Map:
			comp.mapping(s, c)
		case shape.Set:
			comp.set(s, c)
		default:
			comp.list(s, c)
		}
	case shape.Optional:
		comp.optional(s, c)
	case shape.Box:
		comp.box(s, c)
	default:
		panic("tree: cannot compile " + s.String())
	}

	read, tag := c.read, s.Tag()
	c.read = func(e *etree.Element, v reflect.Value) error {
		if err := expectTag(e, tag); err != nil {
			return err
		}
		return read(e, v)
	}
	return c
}

func (comp *compiler) textScalar(s *shape.Shape, c *codec) {
	f := newFormatter(s)
	tag := s.Tag()

	c.write = func(v reflect.Value) *etree.Element {
		e := etree.NewElement(tag)
		e.CreateAttr(attrValue, f.text(v))
		return e
	}
	c.read = func(e *etree.Element, v reflect.Value) error {
		text, err := attr(e, attrValue)
		if err != nil {
			return err
		}
		if err := f.scan(text, v); err != nil {
			return codecerr.NewInvalidAttributeError(e.Tag, attrValue, text, err)
		}
		return nil
	}
}

func (comp *compiler) base64Scalar(s *shape.Shape, c *codec) {
	nc := native.For(s)
	tag := s.Tag()

	c.write = func(v reflect.Value) *etree.Element {
		raw := make([]byte, nc.Width)
		nc.Encode(raw, v)

		e := etree.NewElement(tag)
		e.CreateAttr(attrBase64, base64.StdEncoding.EncodeToString(raw))
		return e
	}
	c.read = func(e *etree.Element, v reflect.Value) error {
		text, err := attr(e, attrBase64)
		if err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return codecerr.NewInvalidAttributeError(e.Tag, attrBase64, text, err)
		}
		if len(raw) < nc.Width {
			return codecerr.NewInvalidAttributeError(e.Tag, attrBase64, text,
				fmt.Errorf("decoded %d bytes, need %d", len(raw), nc.Width))
		}
		nc.Decode(raw[:nc.Width], v)
		return nil
	}
}

// positional covers records, struct tuples and fixed arrays of non-scalars.
// Children carry no names: their order is the only link to the fields.
func (comp *compiler) positional(s *shape.Shape, c *codec) {
	tag := s.Tag()

	if s.Container == shape.FixedArray {
		elem := comp.compile(s.Elem)
		c.write = func(v reflect.Value) *etree.Element {
			parent := etree.NewElement(tag)
			for i := range s.Len {
				parent.AddChild(elem.write(v.Index(i)))
			}
			return parent
		}
		c.read = func(e *etree.Element, v reflect.Value) error {
			children := e.ChildElements()
			for i := range s.Len {
				if i >= len(children) {
					return codecerr.NewMissingChildError(e.Tag, i)
				}
				if err := elem.read(children[i], v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		}
		return
	}

	parts := make([]*codec, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = comp.compile(f.Shape)
	}
	c.write = func(v reflect.Value) *etree.Element {
		parent := etree.NewElement(tag)
		for i, fv := range s.FieldValues(v) {
			parent.AddChild(parts[i].write(fv))
		}
		return parent
	}
	c.read = func(e *etree.Element, v reflect.Value) error {
		children := e.ChildElements()
		for i, fv := range s.FieldValues(v) {
			if i >= len(children) {
				return codecerr.NewMissingChildError(e.Tag, i)
			}
			if err := parts[i].read(children[i], fv); err != nil {
				return err
			}
		}
		return nil
	}
}

func (comp *compiler) list(s *shape.Shape, c *codec) {
	t := s.Type
	elem := comp.compile(s.Elem)
	tag := s.Tag()

	if s.Container == shape.String {
		c.write = func(v reflect.Value) *etree.Element {
			str := v.String()
			parent := newIterable(tag, len(str))
			for i := range len(str) {
				parent.AddChild(elem.write(reflect.ValueOf(str[i])))
			}
			return parent
		}
		c.read = func(e *etree.Element, v reflect.Value) error {
			children, err := iterableChildren(e)
			if err != nil {
				return err
			}
			if len(children) == 0 {
				return nil
			}
			buf := make([]byte, len(children))
			for i, child := range children {
				if err := elem.read(child, reflect.ValueOf(&buf[i]).Elem()); err != nil {
					return err
				}
			}
			v.SetString(string(buf))
			return nil
		}
		return
	}

	c.write = func(v reflect.Value) *etree.Element {
		parent := newIterable(tag, v.Len())
		for i := range v.Len() {
			parent.AddChild(elem.write(v.Index(i)))
		}
		return parent
	}
	c.read = func(e *etree.Element, v reflect.Value) error {
		children, err := iterableChildren(e)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			return nil
		}
		out := reflect.MakeSlice(t, len(children), len(children))
		for i, child := range children {
			if err := elem.read(child, out.Index(i)); err != nil {
				return err
			}
		}
		v.Set(out)
		return nil
	}
}

// mapping writes each entry as a two-child tuple node holding key and value.
func (comp *compiler) mapping(s *shape.Shape, c *codec) {
	t := s.Type
	key := comp.compile(s.Key)
	val := comp.compile(s.Elem)
	tag := s.Tag()

	c.write = func(v reflect.Value) *etree.Element {
		parent := newIterable(tag, v.Len())
		keys, values := shape.SortedEntries(v)
		for i, k := range keys {
			entry := etree.NewElement(tagTuple)
			entry.AddChild(key.write(k))
			entry.AddChild(val.write(values[i]))
			parent.AddChild(entry)
		}
		return parent
	}
	c.read = func(e *etree.Element, v reflect.Value) error {
		entries, err := iterableChildren(e)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		out := reflect.MakeMapWithSize(t, len(entries))
		for _, entry := range entries {
			if err := expectTag(entry, tagTuple); err != nil {
				return err
			}
			pair := entry.ChildElements()
			if len(pair) < 2 {
				return codecerr.NewMissingChildError(entry.Tag, len(pair))
			}
			k := reflect.New(t.Key()).Elem()
			if err := key.read(pair[0], k); err != nil {
				return err
			}
			x := reflect.New(t.Elem()).Elem()
			if err := val.read(pair[1], x); err != nil {
				return err
			}
			out.SetMapIndex(k, x)
		}
		v.Set(out)
		return nil
	}
}

func (comp *compiler) set(s *shape.Shape, c *codec) {
	t := s.Type
	key := comp.compile(s.Key)
	present := reflect.Zero(t.Elem())
	tag := s.Tag()

	c.write = func(v reflect.Value) *etree.Element {
		parent := newIterable(tag, v.Len())
		for _, k := range shape.SortedKeys(v) {
			parent.AddChild(key.write(k))
		}
		return parent
	}
	c.read = func(e *etree.Element, v reflect.Value) error {
		children, err := iterableChildren(e)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			return nil
		}
		out := reflect.MakeMapWithSize(t, len(children))
		for _, child := range children {
			k := reflect.New(t.Key()).Elem()
			if err := key.read(child, k); err != nil {
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
	tag := s.Tag()

	c.write = func(v reflect.Value) *etree.Element {
		valid := v.Field(s.ValidField).Bool()
		e := newPresence(tag, valid)
		if valid {
			e.AddChild(payload.write(v.Field(s.ValueField)))
		}
		return e
	}
	c.read = func(e *etree.Element, v reflect.Value) error {
		child, err := presentChild(e)
		if err != nil {
			return err
		}
		v.SetZero()
		if child == nil {
			return nil
		}
		if err := payload.read(child, v.Field(s.ValueField)); err != nil {
			return err
		}
		v.Field(s.ValidField).SetBool(true)
		return nil
	}
}

func (comp *compiler) box(s *shape.Shape, c *codec) {
	target := comp.compile(s.Elem)
	elemType := s.Type.Elem()
	tag := s.Tag()

	c.write = func(v reflect.Value) *etree.Element {
		e := newPresence(tag, !v.IsNil())
		if !v.IsNil() {
			e.AddChild(target.write(v.Elem()))
		}
		return e
	}
	c.read = func(e *etree.Element, v reflect.Value) error {
		child, err := presentChild(e)
		if err != nil {
			return err
		}
		if child == nil {
			v.SetZero()
			return nil
		}
		p := reflect.New(elemType)
		if err := target.read(child, p.Elem()); err != nil {
			return err
		}
		v.Set(p)
		return nil
	}
}

func expectTag(e *etree.Element, tag string) error {
	if e.Tag != tag {
		return codecerr.NewUnexpectedTagError(tag, e.Tag)
	}
	return nil
}

func attr(e *etree.Element, key string) (string, error) {
	a := e.SelectAttr(key)
	if a == nil {
		return "", codecerr.NewMissingAttributeError(e.Tag, key)
	}
	return a.Value, nil
}

func newIterable(tag string, size int) *etree.Element {
	e := etree.NewElement(tag)
	e.CreateAttr(attrSize, strconv.Itoa(size))
	return e
}

// iterableChildren returns the first size children of a sequence node.
func iterableChildren(e *etree.Element) ([]*etree.Element, error) {
	text, err := attr(e, attrSize)
	if err != nil {
		return nil, err
	}
	size, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return nil, codecerr.NewInvalidAttributeError(e.Tag, attrSize, text, err)
	}
	children := e.ChildElements()
	if size > uint64(len(children)) {
		return nil, codecerr.NewMissingChildError(e.Tag, len(children))
	}
	return children[:size], nil
}

func newPresence(tag string, present bool) *etree.Element {
	e := etree.NewElement(tag)
	e.CreateAttr(attrHasValue, strconv.FormatBool(present))
	return e
}

// presentChild returns the payload node of an optional or box node, or nil
// when it declares no value.
func presentChild(e *etree.Element) (*etree.Element, error) {
	text, err := attr(e, attrHasValue)
	if err != nil {
		return nil, err
	}
	present, err := strconv.ParseBool(text)
	if err != nil {
		return nil, codecerr.NewInvalidAttributeError(e.Tag, attrHasValue, text, err)
	}
	if !present {
		return nil, nil
	}
	children := e.ChildElements()
	if len(children) == 0 {
		return nil, codecerr.NewMissingChildError(e.Tag, 0)
	}
	return children[0], nil
}
