// Package compressed wraps a structio.Store so that documents are compressed
// before they reach it.
//
// Each stored value starts with a one-byte algorithm tag followed by the
// uncompressed length as a uvarint, then the payload. Values that do not
// shrink are stored with the none tag, so Get never pays to decompress them.
package compressed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hengadev/structio"
)

// Algorithm identifies the compression applied to a stored value. The values
// are part of the stored format.
type Algorithm uint8

const (
	None Algorithm = 0
	LZ4  Algorithm = 1
	Zstd Algorithm = 2
)

// maxDecodedSize bounds the length a header may claim.
const maxDecodedSize = 1 << 30

var errIncompressible = errors.New("data is incompressible")

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", a)
	}
}

// ParseAlgorithm parses the name returned by Algorithm.String.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("%w: unknown compression algorithm %q", structio.ErrInvalidConfiguration, name)
	}
}

// Store compresses values on Put and restores them on Get.
type Store struct {
	inner     structio.Store
	algorithm Algorithm
}

var _ structio.Store = (*Store)(nil)

// New wraps inner, compressing new values with algorithm. Get reads values
// written with any algorithm.
func New(inner structio.Store, algorithm Algorithm) (*Store, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: inner store is required", structio.ErrInvalidConfiguration)
	}
	if algorithm > Zstd {
		return nil, fmt.Errorf("%w: unsupported compression algorithm %s", structio.ErrInvalidConfiguration, algorithm)
	}
	return &Store{inner: inner, algorithm: algorithm}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	return s.inner.Put(ctx, key, Encode(data, s.algorithm))
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	stored, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := Decode(stored)
	if err != nil {
		return nil, fmt.Errorf("key '%s': %w", key, err)
	}
	return data, nil
}

// Encode frames data compressed with algorithm, falling back to None when
// compression does not reduce the size.
func Encode(data []byte, algorithm Algorithm) []byte {
	payload, used := data, None
	var err error
	switch algorithm {
	case LZ4:
		payload, err = compressLZ4(data)
		used = LZ4
	case Zstd:
		payload, err = compressZstd(data)
		used = Zstd
	}
	if err != nil {
		payload, used = data, None
	}

	out := make([]byte, 0, 1+binary.MaxVarintLen64+len(payload))
	out = append(out, byte(used))
	out = binary.AppendUvarint(out, uint64(len(data)))
	return append(out, payload...)
}

// Decode reverses Encode.
func Decode(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: empty compressed value", structio.ErrParse)
	}
	algorithm := Algorithm(stored[0])
	size, n := binary.Uvarint(stored[1:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid length header", structio.ErrParse)
	}
	if size > maxDecodedSize {
		return nil, fmt.Errorf("%w: declared length %d exceeds limit", structio.ErrParse, size)
	}
	payload := stored[1+n:]

	var (
		data []byte
		err  error
	)
	switch algorithm {
	case None:
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("%w: stored size %d does not match expected %d", structio.ErrParse, len(payload), size)
		}
		data = payload
	case LZ4:
		data, err = decompressLZ4(payload, int(size))
	case Zstd:
		data, err = decompressZstd(payload, int(size))
	default:
		return nil, fmt.Errorf("%w: unsupported compression tag %d", structio.ErrParse, stored[0])
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", structio.ErrParse, err)
	}
	return data, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use with
// EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compressed: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		panic("compressed: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	data, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(data), size)
	}
	return data, nil
}
