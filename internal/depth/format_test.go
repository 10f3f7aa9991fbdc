package depth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFormatWidestHalfDepth(t *testing.T) {
	formats := []FormatDescription{
		{PixelFormat: DepthFloat16, Width: 320, Height: 240},
		{PixelFormat: DepthFloat32, Width: 1280, Height: 960},
		{PixelFormat: DepthFloat16, Width: 640, Height: 480},
		{PixelFormat: DisparityFloat16, Width: 960, Height: 720},
	}
	got, err := SelectFormat(formats)
	require.NoError(t, err)
	assert.Equal(t, FormatDescription{PixelFormat: DepthFloat16, Width: 640, Height: 480}, got)
	assert.Equal(t, "hdep 640x480", got.String())
}

func TestSelectFormatNone(t *testing.T) {
	_, err := SelectFormat([]FormatDescription{{PixelFormat: DepthFloat32, Width: 640, Height: 480}})
	assert.ErrorIs(t, err, ErrNoSupportedFormat)

	_, err = SelectFormat(nil)
	assert.ErrorIs(t, err, ErrNoSupportedFormat)
}
