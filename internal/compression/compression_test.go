package compression

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload() []byte {
	out := make([]byte, 4096)
	for i := range out {
		out[i] = byte(i % 7)
	}
	return out
}

func TestDecompressLZ4(t *testing.T) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err := w.Write(payload())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := Decompress(buf.Bytes(), "LZ4", 2)
	require.NoError(t, err)
	assert.Equal(t, payload(), got)
}

func TestDecompressZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	encoded := enc.EncodeAll(payload(), nil)
	require.NoError(t, enc.Close())

	got, err := Decompress(encoded, "zstd", 2)
	require.NoError(t, err)
	assert.Equal(t, payload(), got)
}

func TestDecompressErrors(t *testing.T) {
	_, err := Decompress([]byte{1}, "bslz4", 2)
	assert.ErrorContains(t, err, "unsupported compression algorithm")

	_, err = Decompress([]byte{1}, "lz4", 0)
	assert.ErrorContains(t, err, "invalid element size")

	_, err = Decompress([]byte{1, 2, 3}, "zstd", 2)
	assert.Error(t, err)
}

func TestDecompressOddLength(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	encoded := enc.EncodeAll([]byte{1, 2, 3}, nil)
	require.NoError(t, enc.Close())

	_, err = Decompress(encoded, "zstd", 2)
	assert.ErrorContains(t, err, "not a multiple")
}

func TestDecompressEmpty(t *testing.T) {
	got, err := Decompress(nil, "lz4", 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}
