package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"depthmeter-go/internal/depth"
	"depthmeter-go/internal/types"
)

// Message types on the wire.
const (
	TypeStart   = "start"
	TypeDepth   = "depth"
	TypeThermal = "thermal"
	TypeEnd     = "end"
)

const recvTimeout = 250 * time.Millisecond

// RawRecorder receives every payload before it is decoded.
type RawRecorder interface {
	Record(payload []byte) error
}

var (
	decodeFailures atomic.Uint64
	decodeCount    atomic.Uint64
	decodeNanos    atomic.Uint64
)

func DecodeFailures() uint64 { return decodeFailures.Load() }

func DecodeTiming() (uint64, uint64) { return decodeCount.Load(), decodeNanos.Load() }

// Stream connects a PULL socket to endpoint and returns decoded messages.
// Expects CBOR maps shaped like:
// { "type": "depth", "frame_id": <int>, "timestamp": <float>, "pixel_format": "hdep",
//   "width": <int>, "height": <int>, "bytes_per_row": <int>, "data": <bytes|typed array> }
func Stream(ctx context.Context, endpoint string) (<-chan types.RawMessage, error) {
	return StreamWithLogEveryAndRecorder(ctx, endpoint, 1, nil)
}

func StreamWithLogEveryAndRecorder(ctx context.Context, endpoint string, logEvery int, recorder RawRecorder) (<-chan types.RawMessage, error) {
	if logEvery < 1 {
		logEvery = 1
	}
	socket, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return nil, err
	}
	if err := socket.SetRcvtimeo(recvTimeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}
	log.Info().Str("endpoint", endpoint).Msg("ingest connected")

	sampled := log.Sample(&zerolog.BasicSampler{N: uint32(logEvery)})
	out := make(chan types.RawMessage, 128)
	go func() {
		defer close(out)
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := socket.RecvBytes(0)
			if err != nil {
				if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
					continue
				}
				sampled.Warn().Err(err).Msg("ingest recv error")
				continue
			}
			messagesReceived.Inc()
			if recorder != nil {
				if err := recorder.Record(msg); err != nil {
					sampled.Warn().Err(err).Msg("raw log record failed")
				}
			}

			raw, err := decodeMessage(msg)
			if err != nil {
				decodeFailures.Add(1)
				decodeErrors.Inc()
				sampled.Warn().Err(err).Int("bytes", len(msg)).Msg("ingest decode skipped message")
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- raw:
			}
		}
	}()

	return out, nil
}

type wireFormat struct {
	PixelFormat string `cbor:"pixel_format"`
	Width       int    `cbor:"width"`
	Height      int    `cbor:"height"`
}

type wireMessage struct {
	Type        string          `cbor:"type"`
	SeriesID    int             `cbor:"series_id"`
	Formats     []wireFormat    `cbor:"formats"`
	State       string          `cbor:"state"`
	FrameID     int             `cbor:"frame_id"`
	Timestamp   float64         `cbor:"timestamp"`
	PixelFormat string          `cbor:"pixel_format"`
	Width       int             `cbor:"width"`
	Height      int             `cbor:"height"`
	BytesPerRow int             `cbor:"bytes_per_row"`
	Data        cbor.RawMessage `cbor:"data"`
}

func decodeMessage(msg []byte) (types.RawMessage, error) {
	start := time.Now()
	defer func() {
		decodeCount.Add(1)
		decodeNanos.Add(uint64(time.Since(start).Nanoseconds()))
	}()

	var wire wireMessage
	if err := cbor.Unmarshal(msg, &wire); err != nil {
		return types.RawMessage{}, fmt.Errorf("CBOR decode: %w", err)
	}

	switch wire.Type {
	case TypeStart:
		formats := make([]depth.FormatDescription, 0, len(wire.Formats))
		for _, f := range wire.Formats {
			formats = append(formats, depth.FormatDescription{
				PixelFormat: depth.PixelFormat(f.PixelFormat),
				Width:       f.Width,
				Height:      f.Height,
			})
		}
		return types.RawMessage{Type: TypeStart, SeriesID: wire.SeriesID, Formats: formats}, nil
	case TypeEnd:
		return types.RawMessage{Type: TypeEnd, SeriesID: wire.SeriesID}, nil
	case TypeThermal:
		if wire.State == "" {
			return types.RawMessage{}, errors.New("thermal message without state")
		}
		return types.RawMessage{Type: TypeThermal, Thermal: wire.State}, nil
	case TypeDepth:
		frame, err := decodeFrame(wire)
		if err != nil {
			return types.RawMessage{}, err
		}
		return types.RawMessage{Type: TypeDepth, Frame: frame}, nil
	default:
		return types.RawMessage{}, fmt.Errorf("unknown message type %q", wire.Type)
	}
}

func decodeFrame(wire wireMessage) (types.RawFrame, error) {
	if len(wire.Data) == 0 {
		return types.RawFrame{}, errors.New("depth message without data")
	}
	var value any
	if err := cbor.Unmarshal(wire.Data, &value); err != nil {
		return types.RawFrame{}, fmt.Errorf("decode data: %w", err)
	}
	pixels, err := decodePixelData(value)
	if err != nil {
		return types.RawFrame{}, err
	}

	frame := types.RawFrame{
		FrameID:     wire.FrameID,
		Timestamp:   wire.Timestamp,
		PixelFormat: depth.PixelFormat(wire.PixelFormat),
		Width:       wire.Width,
		Height:      wire.Height,
		BytesPerRow: wire.BytesPerRow,
		Data:        pixels.bytes,
	}
	if pixels.rows > 0 {
		if (frame.Width != 0 && frame.Width != pixels.cols) || (frame.Height != 0 && frame.Height != pixels.rows) {
			return types.RawFrame{}, fmt.Errorf("shape %dx%d disagrees with array %dx%d",
				frame.Width, frame.Height, pixels.cols, pixels.rows)
		}
		frame.Width = pixels.cols
		frame.Height = pixels.rows
		frame.BytesPerRow = pixels.cols * halfSize
	}
	if frame.PixelFormat == "" {
		frame.PixelFormat = depth.DepthFloat16
	}
	if frame.Width <= 0 || frame.Height <= 0 || frame.Width > depth.MaxDimension || frame.Height > depth.MaxDimension {
		return types.RawFrame{}, fmt.Errorf("invalid frame size %dx%d", frame.Width, frame.Height)
	}
	if frame.BytesPerRow == 0 {
		frame.BytesPerRow = frame.Width * halfSize
	}
	if err := frame.View().Validate(); err != nil {
		return types.RawFrame{}, fmt.Errorf("frame %d: %w", frame.FrameID, err)
	}
	return frame, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unsupported int type %T", v)
	}
}
