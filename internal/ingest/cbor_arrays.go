package ingest

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"depthmeter-go/internal/compression"
	"depthmeter-go/internal/depth"
)

// RFC 8746 typed array tags plus the compressed-payload wrapper.
const (
	tagMultiDimArray = 40
	tagUint16LE      = 69
	tagFloat16LE     = 84
	tagCompressed    = 56500
)

const halfSize = 2

// pixelData is a decoded frame payload. rows and cols are zero when the
// payload did not carry its own shape.
type pixelData struct {
	bytes []byte
	rows  int
	cols  int
}

func decodePixelData(value any) (pixelData, error) {
	switch v := value.(type) {
	case []byte:
		return pixelData{bytes: v}, nil
	case cbor.Tag:
		switch v.Number {
		case tagMultiDimArray:
			return decodeMultiDimArray(v)
		case tagFloat16LE, tagUint16LE:
			data, err := extractBytes(v)
			if err != nil {
				return pixelData{}, err
			}
			return pixelData{bytes: data}, nil
		case tagCompressed:
			data, err := decompressPayload(v)
			if err != nil {
				return pixelData{}, err
			}
			return pixelData{bytes: data}, nil
		default:
			return pixelData{}, fmt.Errorf("unsupported data tag %d", v.Number)
		}
	default:
		return pixelData{}, fmt.Errorf("unsupported data type %T", value)
	}
}

func decodeMultiDimArray(tag cbor.Tag) (pixelData, error) {
	items, ok := tag.Content.([]any)
	if !ok || len(items) != 2 {
		return pixelData{}, errors.New("invalid multidim array content")
	}

	dimsRaw, ok := items[0].([]any)
	if !ok || len(dimsRaw) != 2 {
		return pixelData{}, errors.New("invalid multidim dimensions")
	}
	rows, err := toInt(dimsRaw[0])
	if err != nil {
		return pixelData{}, err
	}
	cols, err := toInt(dimsRaw[1])
	if err != nil {
		return pixelData{}, err
	}

	if rows <= 0 || cols <= 0 || rows > depth.MaxDimension || cols > depth.MaxDimension {
		return pixelData{}, fmt.Errorf("invalid multidim shape %dx%d", rows, cols)
	}

	inner, ok := items[1].(cbor.Tag)
	if !ok || (inner.Number != tagFloat16LE && inner.Number != tagUint16LE) {
		return pixelData{}, errors.New("multidim array is not 16-bit")
	}
	data, err := extractBytes(inner)
	if err != nil {
		return pixelData{}, err
	}
	if rows*cols*halfSize != len(data) {
		return pixelData{}, fmt.Errorf("dimension mismatch: %dx%d for %d bytes", rows, cols, len(data))
	}
	return pixelData{bytes: data, rows: rows, cols: cols}, nil
}

func extractBytes(tag cbor.Tag) ([]byte, error) {
	switch v := tag.Content.(type) {
	case []byte:
		return v, nil
	case cbor.Tag:
		if v.Number != tagCompressed {
			return nil, fmt.Errorf("unsupported nested tag %d", v.Number)
		}
		return decompressPayload(v)
	default:
		return nil, fmt.Errorf("unsupported typed array content %T", v)
	}
}

func decompressPayload(tag cbor.Tag) ([]byte, error) {
	items, ok := tag.Content.([]any)
	if !ok || len(items) != 3 {
		return nil, errors.New("invalid compressed tag content")
	}
	algorithm, ok := items[0].(string)
	if !ok {
		return nil, errors.New("invalid compression algorithm")
	}
	elemSize, err := toInt(items[1])
	if err != nil {
		return nil, err
	}
	encoded, ok := items[2].([]byte)
	if !ok {
		return nil, errors.New("invalid compressed payload")
	}
	return compression.Decompress(encoded, algorithm, elemSize)
}
