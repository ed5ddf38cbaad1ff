package s3bucket

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/structio"
)

// mockS3Client keeps objects in memory
type mockS3Client struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	putErr       error
	getErr       error
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	m.objects[id] = data
	m.contentTypes[id] = aws.ToString(params.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type telemetry struct {
	Station string
	Samples []int16
	Healthy bool
}

func TestNew(t *testing.T) {
	_, err := New(nil, "bucket", "")
	assert.ErrorIs(t, err, structio.ErrInvalidConfiguration)

	_, err = New(newMockS3Client(), "", "")
	assert.ErrorIs(t, err, structio.ErrInvalidConfiguration)
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	client := newMockS3Client()
	store, err := New(client, "docs", "v1")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "a.bin", []byte{1, 2}))
	assert.Equal(t, []byte{1, 2}, client.objects["docs/v1/a.bin"])
	assert.Equal(t, "application/octet-stream", client.contentTypes["docs/v1/a.bin"])

	data, err := store.Get(ctx, "a.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
}

func TestContentTypeForXML(t *testing.T) {
	ctx := context.Background()
	client := newMockS3Client()
	store, err := New(client, "docs", "")
	require.NoError(t, err)

	require.NoError(t, structio.DumpXMLTo(ctx, store, "t.xml", telemetry{Station: "north"}))
	assert.Equal(t, "application/xml", client.contentTypes["docs/t.xml"])
}

func TestGetMissing(t *testing.T) {
	store, err := New(newMockS3Client(), "docs", "")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, structio.ErrNotFound)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	client := newMockS3Client()
	client.putErr = errors.New("access denied")
	client.getErr = errors.New("throttled")
	store, err := New(client, "docs", "")
	require.NoError(t, err)

	err = store.Put(ctx, "k", []byte{1})
	assert.ErrorIs(t, err, structio.ErrIO)
	assert.Contains(t, err.Error(), "access denied")

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, structio.ErrIO)
	assert.NotErrorIs(t, err, structio.ErrNotFound)
}

func TestWriter(t *testing.T) {
	ctx := context.Background()
	client := newMockS3Client()
	store, err := New(client, "docs", "stream")
	require.NoError(t, err)

	w := store.Writer(ctx, "big.bin")
	for i := 0; i < 4; i++ {
		_, err := w.Write([]byte{byte(i)})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	assert.Equal(t, []byte{0, 1, 2, 3}, client.objects["docs/stream/big.bin"])
}

func TestWriterReportsUploadError(t *testing.T) {
	client := newMockS3Client()
	client.putErr = errors.New("bucket gone")
	store, err := New(client, "docs", "")
	require.NoError(t, err)

	w := store.Writer(context.Background(), "k")
	_, _ = w.Write([]byte("data"))
	err = w.Close()
	assert.ErrorIs(t, err, structio.ErrIO)
}

func TestWithCodec(t *testing.T) {
	ctx := context.Background()
	store, err := New(newMockS3Client(), "docs", "")
	require.NoError(t, err)

	want := telemetry{Station: "south", Samples: []int16{-3, 0, 12}, Healthy: true}
	require.NoError(t, structio.DumpTo(ctx, store, "t.bin", want))

	got, err := structio.LoadFrom[telemetry](ctx, store, "t.bin")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
