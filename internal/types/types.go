package types

import (
	"time"

	"depthmeter-go/internal/depth"
)

// RawMessage is one decoded stream message. Only the field matching Type is
// populated.
type RawMessage struct {
	Type     string                    `json:"type"`
	SeriesID int                       `json:"series_id,omitempty"`
	Formats  []depth.FormatDescription `json:"formats,omitempty"`
	Thermal  string                    `json:"thermal,omitempty"`
	Frame    RawFrame                  `json:"-"`
}

// RawFrame is a depth frame as received, before sampling.
type RawFrame struct {
	FrameID     int               `json:"frame_id"`
	Timestamp   float64           `json:"timestamp"`
	PixelFormat depth.PixelFormat `json:"pixel_format"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	BytesPerRow int               `json:"bytes_per_row"`
	Data        []byte            `json:"-"`
	// Received is when the pipeline accepted the frame.
	Received time.Time `json:"-"`
}

func (r RawFrame) View() depth.Frame {
	return depth.Frame{
		Width:       r.Width,
		Height:      r.Height,
		BytesPerRow: r.BytesPerRow,
		Format:      r.PixelFormat,
		Data:        r.Data,
	}
}

// Measurement is the center depth of one frame.
type Measurement struct {
	FrameID     int     `json:"frame_id"`
	Timestamp   float64 `json:"timestamp"`
	Raw         uint16  `json:"raw"`
	Centimeters float32 `json:"cm"`
	// Received is copied from the frame. Meters use it to skip frames that
	// arrived before a capture was armed.
	Received time.Time `json:"-"`
}
