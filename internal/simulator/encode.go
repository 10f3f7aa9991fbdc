package simulator

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"depthmeter-go/internal/types"
)

// Encode renders a message in the ingest wire format.
func Encode(msg types.RawMessage) ([]byte, error) {
	payload := map[string]any{"type": msg.Type}
	switch msg.Type {
	case "start":
		formats := make([]map[string]any, 0, len(msg.Formats))
		for _, f := range msg.Formats {
			formats = append(formats, map[string]any{
				"pixel_format": string(f.PixelFormat),
				"width":        f.Width,
				"height":       f.Height,
			})
		}
		payload["series_id"] = msg.SeriesID
		payload["formats"] = formats
	case "end":
		payload["series_id"] = msg.SeriesID
	case "thermal":
		payload["state"] = msg.Thermal
	case "depth":
		f := msg.Frame
		payload["frame_id"] = f.FrameID
		payload["timestamp"] = f.Timestamp
		payload["pixel_format"] = string(f.PixelFormat)
		payload["width"] = f.Width
		payload["height"] = f.Height
		payload["bytes_per_row"] = f.BytesPerRow
		payload["data"] = f.Data
	default:
		return nil, fmt.Errorf("cannot encode message type %q", msg.Type)
	}
	return cbor.Marshal(payload)
}
