package depth

import (
	"errors"
	"fmt"
)

var ErrNoSupportedFormat = errors.New("no half-precision depth format available")

// FormatDescription is one depth format a camera offers.
type FormatDescription struct {
	PixelFormat PixelFormat `json:"pixel_format"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
}

func (d FormatDescription) String() string {
	return fmt.Sprintf("%s %dx%d", d.PixelFormat, d.Width, d.Height)
}

// SelectFormat picks the widest DepthFloat16 format. Ties keep the first
// one offered.
func SelectFormat(formats []FormatDescription) (FormatDescription, error) {
	var (
		best  FormatDescription
		found bool
	)
	for _, f := range formats {
		if f.PixelFormat != DepthFloat16 || f.Width <= 0 || f.Height <= 0 {
			continue
		}
		if !found || f.Width > best.Width {
			best = f
			found = true
		}
	}
	if !found {
		return FormatDescription{}, fmt.Errorf("%w among %d formats", ErrNoSupportedFormat, len(formats))
	}
	return best, nil
}
