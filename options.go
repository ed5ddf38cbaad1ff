package structio

import (
	"context"
	"fmt"

	"github.com/hengadev/structio/internal/monitoring"
	"github.com/hengadev/structio/internal/tree"
)

// Option configures a single encode or decode call.
type Option func(s *settings) error

type settings struct {
	ctx    context.Context
	mode   tree.Mode
	indent int
	strict bool
	hook   ObservabilityHook

	// file path or store key, for observers
	target string
}

func newSettings(opts []Option) (*settings, error) {
	s := &settings{
		ctx:    context.Background(),
		mode:   tree.Text,
		indent: tree.DefaultIndent,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithBase64 writes and reads XML scalars as base64 of their native bytes
// instead of decimal text.
func WithBase64() Option {
	return func(s *settings) error {
		s.mode = tree.Base64
		return nil
	}
}

// WithIndent sets the number of spaces used to indent XML documents.
// Zero writes the document on one line.
func WithIndent(spaces int) Option {
	return func(s *settings) error {
		if spaces < 0 || spaces > MaxXMLIndent {
			return fmt.Errorf("%w: indent must be between 0 and %d, got %d", ErrInvalidConfiguration, MaxXMLIndent, spaces)
		}
		s.indent = spaces
		return nil
	}
}

// WithStrictLength makes binary loads fail when bytes remain after the value.
func WithStrictLength() Option {
	return func(s *settings) error {
		s.strict = true
		return nil
	}
}

// WithObserver reports the call to hook.
func WithObserver(hook ObservabilityHook) Option {
	return func(s *settings) error {
		if hook == nil {
			return fmt.Errorf("%w: observer must not be nil", ErrInvalidConfiguration)
		}
		s.hook = hook
		return nil
	}
}

// WithContext sets the context handed to observers.
func WithContext(ctx context.Context) Option {
	return func(s *settings) error {
		if ctx == nil {
			return fmt.Errorf("%w: context must not be nil", ErrInvalidConfiguration)
		}
		s.ctx = ctx
		return nil
	}
}

// ObservabilityHook receives the lifecycle of encode and decode calls.
type ObservabilityHook = monitoring.ObservabilityHook
