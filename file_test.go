package structio

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpFileLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipment.bin")
	want := newShipment()

	require.NoError(t, DumpFile(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	n, err := Length(want)
	require.NoError(t, err)
	assert.Len(t, data, n)

	got, err := LoadFile[shipment](path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDumpFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	require.NoError(t, DumpFile(path, int16(3)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 2)
}

func TestDumpXMLFileLoadXMLFile(t *testing.T) {
	dir := t.TempDir()
	want := newShipment()

	for _, opts := range [][]Option{nil, {WithBase64()}} {
		path := filepath.Join(dir, "shipment.xml")
		require.NoError(t, DumpXMLFile(path, want, opts...))

		got, err := LoadXMLFile[shipment](path, opts...)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLoadFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bin")

	_, err := LoadFile[int](path)
	assert.True(t, IsIOError(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = LoadXMLFile[int](path)
	assert.ErrorIs(t, err, ErrIO)
}

func TestDumpFileUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "value.bin")

	err := DumpFile(path, 1)
	assert.ErrorIs(t, err, ErrIO)

	err = DumpXMLFile(path, 1)
	assert.ErrorIs(t, err, ErrIO)
}

func TestLoadFileCorrupt(t *testing.T) {
	dir := t.TempDir()

	bin := filepath.Join(dir, "corrupt.bin")
	require.NoError(t, os.WriteFile(bin, []byte{1, 2, 3}, 0o644))
	_, err := LoadFile[shipment](bin)
	assert.True(t, IsParseError(err))
	assert.False(t, IsIOError(err))

	doc := filepath.Join(dir, "corrupt.xml")
	require.NoError(t, os.WriteFile(doc, []byte("<aggregate>"), 0o644))
	_, err = LoadXMLFile[shipment](doc)
	assert.True(t, IsParseError(err))
}
