// Package stats accumulates fixed-length measurement runs.
package stats

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidSize = errors.New("run size must be positive")
	ErrNotReady    = errors.New("run is not complete")
	ErrRunComplete = errors.New("run is already complete")
)

// Summary is the result of a completed run.
type Summary struct {
	Mean    float32   `json:"mean"`
	Min     float32   `json:"min"`
	Max     float32   `json:"max"`
	Count   int       `json:"count"`
	Samples []float32 `json:"samples"`
}

// Run collects exactly Size() values. It is not safe for concurrent use.
type Run struct {
	size    int
	count   int
	sum     float32
	min     float32
	max     float32
	samples []float32
}

func NewRun(size int) (*Run, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	r := &Run{
		size:    size,
		samples: make([]float32, 0, size),
	}
	r.Reset()
	return r, nil
}

// Reset discards any partial state and starts collecting again.
func (r *Run) Reset() {
	r.count = 0
	r.sum = 0
	r.min = float32(math.Inf(1))
	r.max = float32(math.Inf(-1))
	r.samples = r.samples[:0]
}

// Add records one value. Once the run is complete it returns ErrRunComplete
// and leaves the run untouched until Reset.
func (r *Run) Add(v float32) error {
	if r.Complete() {
		return ErrRunComplete
	}
	r.sum += v
	if v < r.min {
		r.min = v
	}
	if v > r.max {
		r.max = v
	}
	r.samples = append(r.samples, v)
	r.count++
	return nil
}

// Finalize returns the mean, min and max of a complete run.
func (r *Run) Finalize() (Summary, error) {
	if !r.Complete() {
		return Summary{}, fmt.Errorf("%w: %d of %d", ErrNotReady, r.count, r.size)
	}
	samples := make([]float32, len(r.samples))
	copy(samples, r.samples)
	return Summary{
		Mean:    r.sum / float32(r.size),
		Min:     r.min,
		Max:     r.max,
		Count:   r.count,
		Samples: samples,
	}, nil
}

func (r *Run) Complete() bool { return r.count == r.size }
func (r *Run) Count() int     { return r.count }
func (r *Run) Size() int      { return r.size }
