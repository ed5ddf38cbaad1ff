// Package filestore implements structio.Store over a directory, one file per
// key. Writes go to a temporary file that is renamed into place, so readers
// never observe a partially written document.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hengadev/structio"
)

// Store keeps documents under a root directory. Keys may contain slashes,
// which map to subdirectories.
type Store struct {
	root string
	perm fs.FileMode
}

var _ structio.Store = (*Store)(nil)

// New returns a store rooted at dir, creating it when needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory is required", structio.ErrInvalidConfiguration)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", structio.ErrIO, dir, err)
	}
	return &Store{root: dir, perm: 0o644}, nil
}

// Root returns the directory holding the documents.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory for %q: %w", structio.ErrIO, key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".structio-*")
	if err != nil {
		return fmt.Errorf("%w: create temporary file for %q: %w", structio.ErrIO, key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %q: %w", structio.ErrIO, key, err)
	}
	if err := tmp.Chmod(s.perm); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: chmod %q: %w", structio.ErrIO, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %q: %w", structio.ErrIO, key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename %q: %w", structio.ErrIO, key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: key '%s'", structio.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %w", structio.ErrIO, key, err)
	}
	return data, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete %q: %w", structio.ErrIO, key, err)
	}
	return nil
}

// Keys returns every stored key in sorted order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".structio-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", structio.ErrIO, s.root, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// path maps key to a file below the root, rejecting keys that would escape it.
func (s *Store) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: invalid key %q", structio.ErrInvalidConfiguration, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." || strings.HasPrefix(part, ".structio-") {
			return "", fmt.Errorf("%w: invalid key %q", structio.ErrInvalidConfiguration, key)
		}
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
