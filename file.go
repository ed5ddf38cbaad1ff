package structio

import (
	"os"

	"github.com/hengadev/structio/internal/codecerr"
)

const filePerm = 0o644

// DumpFile overwrites path with the binary encoding of v.
func DumpFile[T any](path string, v T, opts ...Option) error {
	st, err := newSettings(opts)
	if err != nil {
		return err
	}
	st.target = path

	data, err := dump(st, v)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// LoadFile reads path in full and decodes one value of type T from it.
func LoadFile[T any](path string, opts ...Option) (T, error) {
	st, err := newSettings(opts)
	if err != nil {
		var zero T
		return zero, err
	}
	st.target = path

	data, err := readFile(path)
	if err != nil {
		var zero T
		return zero, err
	}
	return load[T](st, data)
}

// DumpXMLFile overwrites path with v as an XML document.
func DumpXMLFile[T any](path string, v T, opts ...Option) error {
	st, err := newSettings(opts)
	if err != nil {
		return err
	}
	st.target = path

	data, err := dumpXML(st, v)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// LoadXMLFile reads the XML document at path and decodes its root element.
func LoadXMLFile[T any](path string, opts ...Option) (T, error) {
	st, err := newSettings(opts)
	if err != nil {
		var zero T
		return zero, err
	}
	st.target = path

	data, err := readFile(path)
	if err != nil {
		var zero T
		return zero, err
	}
	return loadXML[T](st, data)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return codecerr.NewIOError("write", path, err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, codecerr.NewIOError("read", path, err)
	}
	return data, nil
}
