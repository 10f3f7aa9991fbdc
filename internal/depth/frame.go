// Package depth samples single pixels out of depth frames and converts them
// into distance measurements.
package depth

import (
	"encoding/binary"
	"errors"
	"fmt"

	"depthmeter-go/internal/halffloat"
)

// PixelFormat names the sample encoding of a frame. The values are the
// four-character codes depth cameras report.
type PixelFormat string

const (
	DepthFloat16     PixelFormat = "hdep"
	DepthFloat32     PixelFormat = "fdep"
	DisparityFloat16 PixelFormat = "hdis"
	DisparityFloat32 PixelFormat = "fdis"
)

// BytesPerSample returns the sample width of a known format, or 0.
func (p PixelFormat) BytesPerSample() int {
	switch p {
	case DepthFloat16, DisparityFloat16:
		return 2
	case DepthFloat32, DisparityFloat32:
		return 4
	default:
		return 0
	}
}

// IsDisparity reports whether samples are inverse distances.
func (p PixelFormat) IsDisparity() bool {
	return p == DisparityFloat16 || p == DisparityFloat32
}

var (
	ErrFormatMismatch = errors.New("frame is not half-precision depth")
	ErrInvalidFrame   = errors.New("invalid frame geometry")
	ErrOutOfBounds    = errors.New("pixel out of bounds")
	ErrInvalidSample  = errors.New("sample is not a finite depth")
)

// Frame geometry limits. Anything larger is treated as a malformed frame.
const (
	MaxDimension   = 1 << 14
	MaxBytesPerRow = MaxDimension * 4
)

// Frame is a read-only view of one depth frame. Data belongs to the producer
// and is only valid for the duration of the call it was passed to.
type Frame struct {
	Width       int
	Height      int
	BytesPerRow int
	Format      PixelFormat
	Data        []byte
}

// HalfSample is the raw binary16 bit pattern of one depth pixel.
type HalfSample uint16

// Meters returns the sample as a float32 distance in meters.
func (h HalfSample) Meters() float32 {
	return halffloat.ToFloat32(uint16(h))
}

// Centimeters converts a sample in meters to centimeters.
func Centimeters(h HalfSample) float32 {
	return h.Meters() * 100
}

func (f Frame) validate() error {
	if f.Width <= 0 || f.Height <= 0 || f.Width > MaxDimension || f.Height > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if f.BytesPerRow < f.Width*2 || f.BytesPerRow > MaxBytesPerRow {
		return fmt.Errorf("%w: %d bytes per row for width %d", ErrInvalidFrame, f.BytesPerRow, f.Width)
	}
	return nil
}

// fits reports whether the 2-byte sample at (x, y) lies inside Data without
// computing y*BytesPerRow first.
func (f Frame) fits(x, y int) bool {
	rest := len(f.Data) - x*2 - 2
	if rest < 0 {
		return false
	}
	return y == 0 || f.BytesPerRow <= rest/y
}

// Validate checks the geometry and that Data holds every row up to the
// last sample of the last row.
func (f Frame) Validate() error {
	if err := f.validate(); err != nil {
		return err
	}
	if !f.fits(f.Width-1, f.Height-1) {
		return fmt.Errorf("%w: %d byte buffer for %dx%d frame with %d bytes per row",
			ErrOutOfBounds, len(f.Data), f.Width, f.Height, f.BytesPerRow)
	}
	return nil
}

// SampleAt returns the half-precision sample at (x, y).
func SampleAt(f Frame, x, y int) (HalfSample, error) {
	if f.Format != DepthFloat16 {
		return 0, fmt.Errorf("%w: got %q", ErrFormatMismatch, f.Format)
	}
	if err := f.validate(); err != nil {
		return 0, err
	}
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, f.Width, f.Height)
	}
	if !f.fits(x, y) {
		return 0, fmt.Errorf("%w: (%d,%d) with %d bytes per row in %d byte buffer",
			ErrOutOfBounds, x, y, f.BytesPerRow, len(f.Data))
	}
	offset := y*f.BytesPerRow + x*2
	return HalfSample(binary.LittleEndian.Uint16(f.Data[offset : offset+2])), nil
}

// SampleCenter returns the sample at (Width/2, Height/2).
func SampleCenter(f Frame) (HalfSample, error) {
	return SampleAt(f, f.Width/2, f.Height/2)
}
