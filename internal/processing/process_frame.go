package processing

import (
	"errors"
	"fmt"
	"math"

	"depthmeter-go/internal/depth"
	"depthmeter-go/internal/types"
)

// ProcessRawFrame samples the center of a frame and converts it to
// centimeters. raw.Data is not retained. A center pixel without a depth
// (NaN hole or infinity) is reported as depth.ErrInvalidSample.
func ProcessRawFrame(raw types.RawFrame) (types.Measurement, error) {
	sample, err := depth.SampleCenter(raw.View())
	if err != nil {
		return types.Measurement{}, fmt.Errorf("frame %d: %w", raw.FrameID, err)
	}
	cm := depth.Centimeters(sample)
	if math.IsNaN(float64(cm)) || math.IsInf(float64(cm), 0) {
		return types.Measurement{}, fmt.Errorf("frame %d: %w: raw 0x%04x", raw.FrameID, depth.ErrInvalidSample, uint16(sample))
	}
	return types.Measurement{
		FrameID:     raw.FrameID,
		Timestamp:   raw.Timestamp,
		Received:    raw.Received,
		Raw:         uint16(sample),
		Centimeters: cm,
	}, nil
}

// ErrorReason is the metric label for a ProcessRawFrame error.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, depth.ErrFormatMismatch):
		return "format_mismatch"
	case errors.Is(err, depth.ErrInvalidFrame):
		return "invalid_frame"
	case errors.Is(err, depth.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, depth.ErrInvalidSample):
		return "invalid_sample"
	default:
		return "other"
	}
}
