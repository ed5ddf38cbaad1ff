package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: structio-gen")

	stderr.Reset()
	assert.Equal(t, 1, run([]string{"explode"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Unknown command: explode")
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "structio v1.0.0")
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "structio.yaml")
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 0, run([]string{"init", "-config", path}, &stdout, &stderr))
	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)

	assert.Equal(t, 1, run([]string{"init", "-config", path}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "already exists")

	assert.Equal(t, 0, run([]string{"init", "-config", path, "-force"}, &stdout, &stderr))
}

func TestRunGenerateAndValidate(t *testing.T) {
	dir := newTestPackage(t)
	config := filepath.Join(t.TempDir(), "absent.yaml")
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 0, run([]string{"validate", "-config", config, dir}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "Found 2 annotated structs")
	assert.Contains(t, stdout.String(), "All validations passed")

	assert.Equal(t, 0, run([]string{"generate", "-config", config, dir}, &stdout, &stderr), stderr.String())
	assert.FileExists(t, filepath.Join(dir, "account_structio.go"))

	// validation still passes once the generated file exists
	stdout.Reset()
	assert.Equal(t, 0, run([]string{"validate", "-config", config, dir}, &stdout, &stderr), stderr.String())
}

func TestRunValidateReportsErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.go"), []byte("package bad\n\n//structio:fields\ntype Bad struct{ c chan int }\n"), 0644))
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, run([]string{"validate", "-config", filepath.Join(dir, "none.yaml"), dir}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "cannot be encoded")
	assert.Contains(t, stderr.String(), "Validation failed")
}

func TestRunBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "structio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"7\"\n"), 0644))
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, run([]string{"generate", "-config", path, t.TempDir()}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Failed to load config")
}
