package codegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestDiscoverStructs(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "account.go", `package bank

//structio:fields
type Account struct {
	id      uint64
	Owner   string
	balance float64
	cache   map[string]int `+"`structio:\"-\"`"+`
	_       int
}

// Plain is not annotated
type Plain struct {
	A int
}
`)

	writeSource(t, tempDir, "ledger.go", `package bank

import "time"

// Ledger keeps entries.
//
//structio:fields
type Ledger[K comparable, V any] struct {
	entries map[K]V
	*Account
	opened  [2]int64
	Stamp   time.Duration
}

type (
	//structio:fields
	grouped struct{ a, b int32 }

	other struct{ c int }
)
`)

	writeSource(t, tempDir, "account_test.go", `package bank

//structio:fields
type fixture struct{ x int }
`)

	structs, err := DiscoverStructs(tempDir, nil)
	require.NoError(t, err)
	require.Len(t, structs, 3)

	account := structs[0]
	assert.Equal(t, "Account", account.StructName)
	assert.Equal(t, "bank", account.PackageName)
	assert.Equal(t, "account.go", account.SourceFile)
	assert.True(t, account.IsValid, "%v", account.ValidationErrors)
	require.Len(t, account.Fields, 5)
	assert.True(t, account.Fields[3].Skipped)
	assert.True(t, account.Fields[4].Skipped)
	assert.Equal(t, []string{"id", "Owner", "balance"}, names(account.Listed()))

	ledger := structs[1]
	assert.Equal(t, "Ledger", ledger.StructName)
	assert.Equal(t, []string{"K", "V"}, ledger.TypeParams)
	assert.Equal(t, []string{"entries", "Account", "opened", "Stamp"}, names(ledger.Listed()))
	assert.True(t, ledger.Fields[1].Embedded)
	assert.Equal(t, "map[K]V", ledger.Fields[0].Type)
	assert.Equal(t, "*Account", ledger.Fields[1].Type)
	assert.Equal(t, "[2]int64", ledger.Fields[2].Type)
	assert.Equal(t, "time.Duration", ledger.Fields[3].Type)

	grouped := structs[2]
	assert.Equal(t, "grouped", grouped.StructName)
	assert.Equal(t, []string{"a", "b"}, names(grouped.Listed()))
}

func TestDiscoverStructsHandWrittenMethod(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "point.go", `package geo

//structio:fields
type Point struct{ x, y float64 }

func (p *Point) StructioFields() []any { return []any{&p.x, &p.y} }
`)
	writeSource(t, tempDir, "shape.go", `package geo

//structio:fields
type Shape struct{ points []Point }
`)
	writeSource(t, tempDir, "shape_structio.go", `package geo

func (s *Shape) StructioFields() []any { return []any{&s.points} }
`)

	structs, err := DiscoverStructs(tempDir, &DiscoveryConfig{GeneratedSuffix: "_structio"})
	require.NoError(t, err)
	require.Len(t, structs, 2)

	assert.Equal(t, "Point", structs[0].StructName)
	assert.True(t, structs[0].HasMethod)
	assert.False(t, structs[0].IsValid)

	assert.Equal(t, "Shape", structs[1].StructName)
	assert.False(t, structs[1].HasMethod)
	assert.True(t, structs[1].IsValid)
}

func TestDiscoverStructsInvalid(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "bad.go", `package bad

//structio:fields
type Handler struct {
	name     string
	callback func()
	events   chan int
	anything any
	ignored  func() `+"`structio:\"-\"`"+`
	flagged  int    `+"`structio:\"omitempty\"`"+`
}

//structio:fields
type ID string

//structio:fields
type Empty struct{}
`)

	structs, err := DiscoverStructs(tempDir, nil)
	require.NoError(t, err)
	require.Len(t, structs, 3)

	handler := structs[0]
	assert.False(t, handler.IsValid)
	assert.Len(t, handler.ValidationErrors, 4)

	id := structs[1]
	assert.False(t, id.IsValid)
	assert.Equal(t, []string{"ID is not a struct type"}, id.ValidationErrors)

	empty := structs[2]
	assert.False(t, empty.IsValid)
	assert.Contains(t, empty.ValidationErrors[0], "no fields to list")
}

func TestDiscoverStructsBadPackage(t *testing.T) {
	tempDir := t.TempDir()
	writeSource(t, tempDir, "broken.go", "package broken\n\ntype X struct {")

	_, err := DiscoverStructs(tempDir, nil)
	assert.Error(t, err)

	_, err = DiscoverStructs(filepath.Join(tempDir, "missing"), nil)
	assert.Error(t, err)
}

func names(fields []FieldInfo) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}
