package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// MaxDecodedSize bounds a single decompressed payload.
const MaxDecodedSize = 64 << 20

var zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(MaxDecodedSize))

// Decompress expands a frame payload. The result length must be a multiple
// of elemSize.
func Decompress(encoded []byte, algorithm string, elemSize int) ([]byte, error) {
	if elemSize <= 0 {
		return nil, fmt.Errorf("invalid element size %d", elemSize)
	}
	if len(encoded) == 0 {
		return []byte{}, nil
	}

	var (
		out []byte
		err error
	)
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "lz4":
		out, err = io.ReadAll(io.LimitReader(lz4.NewReader(bytes.NewReader(encoded)), MaxDecodedSize+1))
	case "zstd", "zst":
		out, err = zstdDecoder.DecodeAll(encoded, nil)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("%s decompression failed: %w", algorithm, err)
	}
	if len(out) > MaxDecodedSize {
		return nil, fmt.Errorf("decompressed size exceeds %d bytes", MaxDecodedSize)
	}
	if len(out)%elemSize != 0 {
		return nil, fmt.Errorf("decompressed size %d is not a multiple of %d", len(out), elemSize)
	}
	return out, nil
}
