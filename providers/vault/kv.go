// Package vault implements structio.Store on a HashiCorp Vault KV v2 engine.
// Documents are stored base64 encoded under the "value" field of a secret,
// so every write creates a new secret version.
package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"

	"github.com/hashicorp/vault/api"

	"github.com/hengadev/structio"
)

// DefaultMount is the mount path of the KV v2 engine in a default Vault setup.
const DefaultMount = "secret"

// KVStore keeps documents in a KV v2 engine.
type KVStore struct {
	client *api.Client
	mount  string
	prefix string
}

var _ structio.Store = (*KVStore)(nil)

// NewKVStore returns a store using client. Secrets live at
// "{mount}/data/{prefix}/{key}".
func NewKVStore(client *api.Client, mount, prefix string) (*KVStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: vault client is required", structio.ErrInvalidConfiguration)
	}
	if mount == "" {
		mount = DefaultMount
	}
	return &KVStore{client: client, mount: mount, prefix: prefix}, nil
}

// NewKVStoreFromEnvironment builds the client with NewClientFromEnvironment.
func NewKVStoreFromEnvironment(mount, prefix string) (*KVStore, error) {
	client, err := NewClientFromEnvironment()
	if err != nil {
		return nil, err
	}
	return NewKVStore(client, mount, prefix)
}

// StoragePath returns the KV v2 API path for key. The "/data/" segment is
// required for KV v2 reads and writes.
func (k *KVStore) StoragePath(key string) string {
	return path.Join(k.mount, "data", k.prefix, key)
}

func (k *KVStore) Put(ctx context.Context, key string, data []byte) error {
	// KV v2 requires data to be wrapped in a "data" key
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"value": base64.StdEncoding.EncodeToString(data),
		},
	}
	if _, err := k.client.Logical().WriteWithContext(ctx, k.StoragePath(key), payload); err != nil {
		return fmt.Errorf("%w: write %s: %w", structio.ErrIO, k.StoragePath(key), err)
	}
	return nil
}

func (k *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	secret, err := k.client.Logical().ReadWithContext(ctx, k.StoragePath(key))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", structio.ErrIO, k.StoragePath(key), err)
	}
	// Vault answers a missing path with a nil secret, not an error.
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: key '%s'", structio.ErrNotFound, key)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		// Deleted versions keep metadata but carry null data.
		return nil, fmt.Errorf("%w: key '%s'", structio.ErrNotFound, key)
	}
	encoded, ok := data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: secret %s has no string value", structio.ErrIO, k.StoragePath(key))
	}
	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", structio.ErrIO, k.StoragePath(key), err)
	}
	return value, nil
}

// Exists reports whether key holds a readable document.
func (k *KVStore) Exists(ctx context.Context, key string) (bool, error) {
	secret, err := k.client.Logical().ReadWithContext(ctx, k.StoragePath(key))
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", structio.ErrIO, k.StoragePath(key), err)
	}
	if secret == nil || secret.Data == nil {
		return false, nil
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return false, nil
	}
	_, ok = data["value"].(string)
	return ok, nil
}
