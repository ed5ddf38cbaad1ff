// Package tree implements the XML codec. Every value becomes one element
// whose tag names its structural category; scalars carry their payload in an
// attribute, containers carry their components as ordered child elements.
package tree

import (
	"reflect"

	"github.com/beevik/etree"

	"github.com/hengadev/structio/internal/codecerr"
	"github.com/hengadev/structio/internal/shape"
)

// Mode selects how scalar leaves are written.
type Mode uint8

const (
	// Text writes scalars as readable decimal text in a "value" attribute.
	Text Mode = iota
	// Base64 writes the native bytes of scalars in a "base64" attribute,
	// preserving the exact bit pattern.
	Base64
)

func (m Mode) String() string {
	switch m {
	case Text:
		return "text"
	case Base64:
		return "base64"
	default:
		return "unknown"
	}
}

// DefaultIndent is the number of spaces used to indent dumped documents.
const DefaultIndent = 2

// Write returns a new detached element holding v.
func Write(s *shape.Shape, v reflect.Value, mode Mode) *etree.Element {
	return codecFor(s, mode).write(v)
}

// Read decodes the element e into v, which must be settable.
func Read(s *shape.Shape, e *etree.Element, mode Mode, v reflect.Value) error {
	if e == nil {
		return codecerr.NewEmptyDocumentError()
	}
	return codecFor(s, mode).read(e, v)
}

// Dump renders v as a standalone XML document. An indent of 0 writes the
// document on a single line.
func Dump(s *shape.Shape, v reflect.Value, mode Mode, indent int) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.SetRoot(Write(s, v, mode))
	if indent > 0 {
		doc.Indent(indent)
	}
	return doc.WriteToBytes()
}

// Load parses data as an XML document and decodes its root element into v.
func Load(s *shape.Shape, data []byte, mode Mode, v reflect.Value) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return codecerr.NewMalformedDocumentError(err)
	}
	root := doc.Root()
	if root == nil {
		return codecerr.NewEmptyDocumentError()
	}
	return codecFor(s, mode).read(root, v)
}
