package simulator

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depthmeter-go/internal/depth"
	"depthmeter-go/internal/types"
)

func TestFrameCenterDepth(t *testing.T) {
	c := DefaultConfig()
	c.NoiseMeters = 0
	frame := c.Frame(rand.New(rand.NewSource(1)), 4, 1.5)

	assert.Equal(t, 4, frame.FrameID)
	assert.Equal(t, c.Width*2+c.RowPadding, frame.BytesPerRow)

	sample, err := depth.SampleCenter(frame.View())
	require.NoError(t, err)
	assert.InDelta(t, 45.0, depth.Centimeters(sample), 0.05)
}

func TestFormatsSelectFullResolution(t *testing.T) {
	c := DefaultConfig()
	got, err := depth.SelectFormat(c.Formats())
	require.NoError(t, err)
	assert.Equal(t, depth.FormatDescription{PixelFormat: depth.DepthFloat16, Width: c.Width, Height: c.Height}, got)
}

func TestStreamStartsWithFormats(t *testing.T) {
	c := Config{Width: 8, Height: 4, BaseMeters: 1, Rate: 1000}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	messages := Stream(ctx, c)
	first := <-messages
	assert.Equal(t, "start", first.Type)
	assert.Len(t, first.Formats, 4)

	second := <-messages
	require.Equal(t, "depth", second.Type)
	assert.Equal(t, 0, second.Frame.FrameID)
	sample, err := depth.SampleCenter(second.Frame.View())
	require.NoError(t, err)
	assert.Equal(t, float32(1), sample.Meters())

	cancel()
	for range messages {
	}
}

func TestEncodeUnknownType(t *testing.T) {
	_, err := Encode(types.RawMessage{Type: "image"})
	assert.Error(t, err)
}
