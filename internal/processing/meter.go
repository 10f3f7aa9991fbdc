package processing

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"depthmeter-go/internal/stats"
	"depthmeter-go/internal/types"
)

var (
	ErrCaptureInProgress = errors.New("capture already in progress")
	ErrNoCapture         = errors.New("no capture in progress")
)

// State of a Meter.
type State int

const (
	StateIdle State = iota
	StateCollecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Meter turns a capture request into one measurement run over the next
// Size() measurements. A Meter must be driven from a single goroutine.
type Meter struct {
	run      *stats.Run
	state    State
	sequence int
	latest   *types.Measurement
	last     *types.Result
	armedAt  time.Time
	nowFunc  func() time.Time
}

func NewMeter(runSize int) (*Meter, error) {
	run, err := stats.NewRun(runSize)
	if err != nil {
		return nil, err
	}
	return &Meter{run: run, nowFunc: time.Now}, nil
}

// Arm starts a new run with the next measurement received after the call.
func (m *Meter) Arm() error {
	if m.state == StateCollecting {
		return ErrCaptureInProgress
	}
	m.run.Reset()
	m.state = StateCollecting
	m.armedAt = m.nowFunc()
	log.Debug().Int("size", m.run.Size()).Msg("capture armed")
	return nil
}

// Cancel abandons a partial run.
func (m *Meter) Cancel() error {
	if m.state != StateCollecting {
		return ErrNoCapture
	}
	collected := m.run.Count()
	m.run.Reset()
	m.state = StateIdle
	runsCancelled.Inc()
	log.Info().Int("collected", collected).Int("size", m.run.Size()).Msg("capture cancelled")
	return nil
}

// AddMeasurement records a measurement. It returns a result when the
// measurement completed the run. Measurements without a Received time are
// always counted.
func (m *Meter) AddMeasurement(meas types.Measurement) (*types.Result, error) {
	latest := meas
	m.latest = &latest
	lastDepth.Set(float64(meas.Centimeters))

	if m.state != StateCollecting {
		return nil, nil
	}
	if !meas.Received.IsZero() && meas.Received.Before(m.armedAt) {
		staleMeasurements.Inc()
		log.Debug().Int("frame_id", meas.FrameID).Msg("frame received before capture was armed")
		return nil, nil
	}
	if err := m.run.Add(meas.Centimeters); err != nil {
		return nil, err
	}
	measurements.Inc()
	log.Info().
		Int("frame_id", meas.FrameID).
		Msgf("measurement %d/%d: %.2f cm", m.run.Count(), m.run.Size(), meas.Centimeters)

	if !m.run.Complete() {
		return nil, nil
	}
	summary, err := m.run.Finalize()
	if err != nil {
		return nil, err
	}
	m.state = StateIdle
	m.sequence++
	runsCompleted.Inc()
	runMean.Set(float64(summary.Mean))

	result := &types.Result{
		Type:     "result",
		Sequence: m.sequence,
		Finished: m.nowFunc().Format(time.RFC3339),
		Summary:  summary,
	}
	m.last = result
	log.Info().
		Int("sequence", m.sequence).
		Str("readings", FormatSamples(summary.Samples)).
		Msgf("depth %.2f cm, range across %d readings %.2f - %.2f cm",
			summary.Mean, summary.Count, summary.Min, summary.Max)
	return result, nil
}

func (m *Meter) State() State { return m.state }

func (m *Meter) Progress() types.Progress {
	p := types.Progress{Type: "progress", Collected: m.run.Count(), Total: m.run.Size()}
	if m.latest != nil {
		p.Last = m.latest.Centimeters
	}
	return p
}

// Latest returns the most recent measurement, armed or not.
func (m *Meter) Latest() (types.Measurement, bool) {
	if m.latest == nil {
		return types.Measurement{}, false
	}
	return *m.latest, true
}

// LastResult returns the most recently completed run.
func (m *Meter) LastResult() (types.Result, bool) {
	if m.last == nil {
		return types.Result{}, false
	}
	return *m.last, true
}

// FormatSamples renders readings as "45.10,45.20,".
func FormatSamples(samples []float32) string {
	buf := make([]byte, 0, len(samples)*7)
	for _, s := range samples {
		buf = fmt.Appendf(buf, "%.2f,", s)
	}
	return string(buf)
}

func Timestamp() string {
	return time.Now().Format("20060102_150405")
}
