package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/structio"
)

// mockVaultServer serves a minimal KV v2 engine plus AppRole login
type mockVaultServer struct {
	mu      sync.Mutex
	secrets map[string]map[string]interface{}
	logins  int
}

func newMockVaultServer(t *testing.T) (*mockVaultServer, *httptest.Server) {
	m := &mockVaultServer{secrets: make(map[string]map[string]interface{})}
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/auth/approle/login", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.logins++
		m.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"auth": {"client_token": "approle-token"}}`))
	})

	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/v1/")
		m.mu.Lock()
		defer m.mu.Unlock()

		switch r.Method {
		case http.MethodPut, http.MethodPost:
			var body struct {
				Data map[string]interface{} `json:"data"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, `{"errors":["bad request"]}`, http.StatusBadRequest)
				return
			}
			m.secrets[path] = body.Data
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data": {"version": 1}}`))
		case http.MethodGet:
			data, ok := m.secrets[path]
			w.Header().Set("Content-Type", "application/json")
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"errors":[]}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{"data": data},
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return m, server
}

func newTestClient(t *testing.T, addr string) *api.Client {
	t.Helper()
	config := api.DefaultConfig()
	config.Address = addr
	client, err := api.NewClient(config)
	require.NoError(t, err)
	client.SetToken("test-token")
	return client
}

type profile struct {
	Name  string
	Roles []string
	Quota *uint32
}

func TestPutGet(t *testing.T) {
	mock, server := newMockVaultServer(t)
	store, err := NewKVStore(newTestClient(t, server.URL), "", "structio")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "doc", []byte{0, 255, 10}))
	assert.Contains(t, mock.secrets, "secret/data/structio/doc")
	assert.Equal(t, "AP8K", mock.secrets["secret/data/structio/doc"]["value"])

	data, err := store.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 255, 10}, data)

	exists, err := store.Exists(ctx, "doc")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetMissing(t *testing.T) {
	_, server := newMockVaultServer(t)
	store, err := NewKVStore(newTestClient(t, server.URL), "kv", "")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, structio.ErrNotFound)

	exists, err := store.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetInvalidValue(t *testing.T) {
	mock, server := newMockVaultServer(t)
	store, err := NewKVStore(newTestClient(t, server.URL), "", "")
	require.NoError(t, err)

	mock.secrets["secret/data/bad"] = map[string]interface{}{"value": "not base64!"}
	_, err = store.Get(context.Background(), "bad")
	assert.ErrorIs(t, err, structio.ErrIO)

	mock.secrets["secret/data/number"] = map[string]interface{}{"value": 12}
	_, err = store.Get(context.Background(), "number")
	assert.ErrorIs(t, err, structio.ErrIO)
}

func TestStoragePath(t *testing.T) {
	store, err := NewKVStore(newTestClient(t, "http://127.0.0.1:8200"), "kv", "apps/billing")
	require.NoError(t, err)
	assert.Equal(t, "kv/data/apps/billing/invoice", store.StoragePath("invoice"))

	_, err = NewKVStore(nil, "", "")
	assert.ErrorIs(t, err, structio.ErrInvalidConfiguration)
}

func TestWithCodec(t *testing.T) {
	_, server := newMockVaultServer(t)
	store, err := NewKVStore(newTestClient(t, server.URL), "", "profiles")
	require.NoError(t, err)
	ctx := context.Background()

	quota := uint32(50)
	want := profile{Name: "ada", Roles: []string{"admin", "ops"}, Quota: &quota}
	require.NoError(t, structio.DumpXMLTo(ctx, store, "ada", want))

	got, err := structio.LoadXMLFrom[profile](ctx, store, "ada")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewClientFromEnvironment(t *testing.T) {
	mock, server := newMockVaultServer(t)

	t.Run("token", func(t *testing.T) {
		t.Setenv("VAULT_ADDR", server.URL)
		t.Setenv("VAULT_TOKEN", "direct-token")
		t.Setenv("VAULT_NAMESPACE", "admin/team")

		client, err := NewClientFromEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "direct-token", client.Token())
		assert.Equal(t, "admin/team", client.Namespace())
	})

	t.Run("approle", func(t *testing.T) {
		t.Setenv("VAULT_ADDR", server.URL)
		t.Setenv("VAULT_TOKEN", "")
		t.Setenv("VAULT_ROLE_ID", "role")
		t.Setenv("VAULT_SECRET_ID", "secret")

		client, err := NewClientFromEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "approle-token", client.Token())
		assert.Equal(t, 1, mock.logins)
	})

	t.Run("no auth", func(t *testing.T) {
		t.Setenv("VAULT_ADDR", server.URL)
		t.Setenv("VAULT_TOKEN", "")
		t.Setenv("VAULT_ROLE_ID", "")
		t.Setenv("VAULT_SECRET_ID", "")

		_, err := NewClientFromEnvironment()
		assert.ErrorIs(t, err, structio.ErrInvalidConfiguration)
	})
}
