// Package s3bucket implements structio.Store on an S3 bucket.
package s3bucket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hengadev/structio"
)

const (
	contentTypeXML    = "application/xml"
	contentTypeBinary = "application/octet-stream"
)

// Client is the subset of the S3 API the store uses. *s3.Client satisfies it.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store keeps each document as one object under an optional key prefix.
type Store struct {
	client Client
	bucket string
	prefix string
}

var _ structio.Store = (*Store)(nil)

// New returns a store writing to bucket through client.
func New(client Client, bucket, prefix string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: s3 client is required", structio.ErrInvalidConfiguration)
	}
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", structio.ErrInvalidConfiguration)
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}, nil
}

// NewFromConfig builds the client from the default AWS configuration chain.
func NewFromConfig(ctx context.Context, bucket, prefix string) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load AWS config: %w", structio.ErrInvalidConfiguration, err)
	}
	return New(s3.NewFromConfig(cfg), bucket, prefix)
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(data)),
	})
	if err != nil {
		return fmt.Errorf("%w: put s3://%s/%s: %w", structio.ErrIO, s.bucket, s.objectKey(key), err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: key '%s'", structio.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: get s3://%s/%s: %w", structio.ErrIO, s.bucket, s.objectKey(key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read s3://%s/%s: %w", structio.ErrIO, s.bucket, s.objectKey(key), err)
	}
	return data, nil
}

// Writer streams one object to the bucket. The upload runs while the caller
// writes; Close waits for it and reports its error.
func (s *Store) Writer(ctx context.Context, key string) io.WriteCloser {
	reader, writer := io.Pipe()
	uploadCtx, cancel := context.WithCancel(ctx)

	w := &objectWriter{writer: writer, cancel: cancel, done: make(chan error, 1)}
	go func() {
		_, err := s.client.PutObject(uploadCtx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.objectKey(key)),
			Body:        reader,
			ContentType: aws.String(contentTypeBinary),
		})
		if err != nil {
			err = fmt.Errorf("%w: put s3://%s/%s: %w", structio.ErrIO, s.bucket, s.objectKey(key), err)
		}
		// Unblock a writer still waiting on the pipe.
		reader.CloseWithError(err)
		w.done <- err
	}()
	return w
}

type objectWriter struct {
	writer *io.PipeWriter
	cancel context.CancelFunc
	done   chan error
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.writer.Write(p)
}

// Close signals EOF to the upload and waits for it to finish.
func (w *objectWriter) Close() error {
	closeErr := w.writer.Close()
	err := <-w.done
	w.cancel()
	if err != nil {
		return err
	}
	return closeErr
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func contentType(data []byte) string {
	if bytes.HasPrefix(data, []byte("<?xml")) {
		return contentTypeXML
	}
	return contentTypeBinary
}
