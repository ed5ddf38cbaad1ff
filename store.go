package structio

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/hengadev/structio/internal/codecerr"
)

// Store holds encoded documents by key. Get returns an error wrapping
// ErrNotFound for a missing key.
//
// Implementations live under providers/: a directory, SQLite, S3 and Vault,
// plus a compressing decorator over any of them.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// DumpTo stores the binary encoding of v under key.
func DumpTo[T any](ctx context.Context, store Store, key string, v T, opts ...Option) error {
	st, err := storeSettings(ctx, key, opts)
	if err != nil {
		return err
	}
	data, err := dump(st, v)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, data)
}

// LoadFrom decodes the binary value stored under key.
func LoadFrom[T any](ctx context.Context, store Store, key string, opts ...Option) (T, error) {
	var zero T
	st, err := storeSettings(ctx, key, opts)
	if err != nil {
		return zero, err
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	return load[T](st, data)
}

// DumpXMLTo stores v as an XML document under key.
func DumpXMLTo[T any](ctx context.Context, store Store, key string, v T, opts ...Option) error {
	st, err := storeSettings(ctx, key, opts)
	if err != nil {
		return err
	}
	data, err := dumpXML(st, v)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, data)
}

// LoadXMLFrom decodes the XML document stored under key.
func LoadXMLFrom[T any](ctx context.Context, store Store, key string, opts ...Option) (T, error) {
	var zero T
	st, err := storeSettings(ctx, key, opts)
	if err != nil {
		return zero, err
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	return loadXML[T](st, data)
}

func storeSettings(ctx context.Context, key string, opts []Option) (*settings, error) {
	st, err := newSettings(append([]Option{WithContext(ctx)}, opts...))
	if err != nil {
		return nil, err
	}
	st.target = key
	return st, nil
}

// MemoryStore is a Store kept in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(data)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, codecerr.NewNotFoundError(key)
	}
	return slices.Clone(data), nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.data))
}
