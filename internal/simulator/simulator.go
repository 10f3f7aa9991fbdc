package simulator

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"time"

	"github.com/x448/float16"

	"depthmeter-go/internal/depth"
	"depthmeter-go/internal/types"
)

// Config describes the synthetic scene: a tilted plane BaseMeters away at
// the center, with per-pixel gaussian noise.
type Config struct {
	Width       int
	Height      int
	RowPadding  int
	BaseMeters  float64
	NoiseMeters float64
	Rate        float64
}

func DefaultConfig() Config {
	return Config{
		Width:       640,
		Height:      480,
		RowPadding:  64,
		BaseMeters:  0.45,
		NoiseMeters: 0.003,
		Rate:        30,
	}
}

// Formats is what the simulated camera advertises.
func (c Config) Formats() []depth.FormatDescription {
	return []depth.FormatDescription{
		{PixelFormat: depth.DisparityFloat16, Width: c.Width, Height: c.Height},
		{PixelFormat: depth.DepthFloat16, Width: c.Width / 2, Height: c.Height / 2},
		{PixelFormat: depth.DepthFloat16, Width: c.Width, Height: c.Height},
		{PixelFormat: depth.DepthFloat32, Width: c.Width, Height: c.Height},
	}
}

// Stream emits a start message followed by depth frames at c.Rate until ctx
// is done.
func Stream(ctx context.Context, c Config) <-chan types.RawMessage {
	out := make(chan types.RawMessage)
	go func() {
		defer close(out)

		rate := c.Rate
		if rate <= 0 {
			rate = 30
		}
		ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
		defer ticker.Stop()

		select {
		case <-ctx.Done():
			return
		case out <- types.RawMessage{Type: "start", SeriesID: 1, Formats: c.Formats()}:
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		frameID := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				frame := c.Frame(rng, frameID, float64(time.Now().UnixNano())/1e9)
				select {
				case <-ctx.Done():
					return
				case out <- types.RawMessage{Type: "depth", Frame: frame}:
				}
				frameID++
			}
		}
	}()
	return out
}

// Frame renders one half-precision depth frame.
func (c Config) Frame(rng *rand.Rand, frameID int, timestamp float64) types.RawFrame {
	stride := c.Width*2 + c.RowPadding
	data := make([]byte, stride*c.Height)
	cx := float64(c.Width) / 2
	for y := 0; y < c.Height; y++ {
		row := data[y*stride:]
		for x := 0; x < c.Width; x++ {
			meters := c.BaseMeters + 0.0002*(float64(x)-cx)
			if c.NoiseMeters > 0 {
				meters += rng.NormFloat64() * c.NoiseMeters
			}
			meters = math.Max(meters, 0)
			binary.LittleEndian.PutUint16(row[x*2:], float16.Fromfloat32(float32(meters)).Bits())
		}
	}
	return types.RawFrame{
		FrameID:     frameID,
		Timestamp:   timestamp,
		PixelFormat: depth.DepthFloat16,
		Width:       c.Width,
		Height:      c.Height,
		BytesPerRow: stride,
		Data:        data,
	}
}
