package depth

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridFrame builds a 4x4 frame where pixel (x, y) holds 0x0100*y + x.
func gridFrame(stride int) Frame {
	data := make([]byte, stride*4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			binary.LittleEndian.PutUint16(data[y*stride+x*2:], uint16(0x0100*y+x))
		}
	}
	return Frame{Width: 4, Height: 4, BytesPerRow: stride, Format: DepthFloat16, Data: data}
}

func TestSampleCenter(t *testing.T) {
	f := gridFrame(8)
	got, err := SampleCenter(f)
	require.NoError(t, err)
	assert.Equal(t, HalfSample(0x0202), got)
	assert.Equal(t, HalfSample(binary.LittleEndian.Uint16(f.Data[8*2+4:])), got)
}

func TestSampleCenterPaddedStride(t *testing.T) {
	f := gridFrame(12)
	got, err := SampleCenter(f)
	require.NoError(t, err)
	assert.Equal(t, HalfSample(0x0202), got)
}

func TestSampleCenterOddDimensions(t *testing.T) {
	data := make([]byte, 6*3)
	binary.LittleEndian.PutUint16(data[1*6+1*2:], 0x3c00)
	f := Frame{Width: 3, Height: 3, BytesPerRow: 6, Format: DepthFloat16, Data: data}

	got, err := SampleCenter(f)
	require.NoError(t, err)
	assert.Equal(t, float32(1), got.Meters())
	assert.Equal(t, float32(100), Centimeters(got))
}

func TestSampleAtFormatMismatch(t *testing.T) {
	f := gridFrame(8)
	for _, format := range []PixelFormat{DepthFloat32, DisparityFloat16, DisparityFloat32, ""} {
		f.Format = format
		_, err := SampleCenter(f)
		assert.ErrorIs(t, err, ErrFormatMismatch, "format %q", format)
	}
}

func TestSampleAtBounds(t *testing.T) {
	f := gridFrame(8)

	_, err := SampleAt(f, 4, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = SampleAt(f, -1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	f.Data = f.Data[:20]
	_, err = SampleCenter(f)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSampleAtInvalidGeometry(t *testing.T) {
	_, err := SampleCenter(Frame{Width: 0, Height: 4, BytesPerRow: 8, Format: DepthFloat16})
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = SampleCenter(Frame{Width: 4, Height: 4, BytesPerRow: 6, Format: DepthFloat16, Data: make([]byte, 64)})
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestSampleAtHugeStride(t *testing.T) {
	f := Frame{Width: 2, Height: 5, BytesPerRow: 1 << 62, Format: DepthFloat16, Data: make([]byte, 4)}
	_, err := SampleCenter(f)
	assert.ErrorIs(t, err, ErrInvalidFrame)

	// Within the stride limit, but y*BytesPerRow runs past the buffer.
	f.BytesPerRow = MaxBytesPerRow
	_, err = SampleCenter(f)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = SampleAt(f, 1, 0)
	assert.NoError(t, err)
}

func TestSampleAtOversizedFrame(t *testing.T) {
	_, err := SampleCenter(Frame{Width: MaxDimension + 1, Height: 1, BytesPerRow: MaxBytesPerRow, Format: DepthFloat16})
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestFrameValidate(t *testing.T) {
	f := gridFrame(12)
	require.NoError(t, f.Validate())

	// The last row needs no padding.
	f.Data = f.Data[:3*12+8]
	require.NoError(t, f.Validate())

	f.Data = f.Data[:len(f.Data)-1]
	assert.ErrorIs(t, f.Validate(), ErrOutOfBounds)

	f.BytesPerRow = 1 << 62
	assert.ErrorIs(t, f.Validate(), ErrInvalidFrame)
}

func TestPixelFormat(t *testing.T) {
	assert.Equal(t, 2, DepthFloat16.BytesPerSample())
	assert.Equal(t, 4, DisparityFloat32.BytesPerSample())
	assert.Equal(t, 0, PixelFormat("rgb").BytesPerSample())
	assert.True(t, DisparityFloat16.IsDisparity())
	assert.False(t, DepthFloat32.IsDisparity())
}
