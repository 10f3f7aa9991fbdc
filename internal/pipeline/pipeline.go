// Package pipeline wires stream messages through the worker pool into the
// meter and fans results out to the UI and the output directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"depthmeter-go/internal/config"
	"depthmeter-go/internal/depth"
	"depthmeter-go/internal/ingest"
	"depthmeter-go/internal/output"
	"depthmeter-go/internal/processing"
	"depthmeter-go/internal/types"
)

var ErrStopped = errors.New("pipeline is not running")

type metrics struct {
	rawMessages     atomic.Uint64
	depthMessages   atomic.Uint64
	metaMessages    atomic.Uint64
	framesProcessed atomic.Uint64
	framesDropped   atomic.Uint64
	framesBroadcast atomic.Uint64
	outputWriteOK   atomic.Uint64
	outputWriteErr  atomic.Uint64
	processCount    atomic.Uint64
	processNanos    atomic.Uint64
}

func (m *metrics) snapshot() map[string]any {
	return map[string]any{
		"raw_messages_total":     m.rawMessages.Load(),
		"depth_messages_total":   m.depthMessages.Load(),
		"meta_messages_total":    m.metaMessages.Load(),
		"frames_processed_total": m.framesProcessed.Load(),
		"frames_dropped_total":   m.framesDropped.Load(),
		"frames_broadcast_total": m.framesBroadcast.Load(),
		"output_write_ok_total":  m.outputWriteOK.Load(),
		"output_write_err_total": m.outputWriteErr.Load(),
		"process_total":          m.processCount.Load(),
		"process_nanos_total":    m.processNanos.Load(),
	}
}

// formatState tracks the outcome of the last format negotiation.
type formatState int

const (
	formatUnknown formatState = iota
	formatSelected
	formatUnsupported
)

type request struct {
	cancel bool
	reply  chan error
}

type Pipeline struct {
	cfg      config.AppConfig
	meter    *processing.Meter
	requests chan request
	ui       chan any
	done     chan struct{}
	metrics  metrics

	statusMu sync.Mutex
	status   map[string]any

	formatMu sync.Mutex
	format   formatState
	selected depth.FormatDescription

	resultMu   sync.Mutex
	lastResult *types.Result
	runStamp   string
}

func New(cfg config.AppConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	meter, err := processing.NewMeter(cfg.RunSize)
	if err != nil {
		return nil, err
	}
	source := "stream"
	if cfg.Debug {
		source = "simulator"
	}
	return &Pipeline{
		cfg:      cfg,
		meter:    meter,
		requests: make(chan request),
		ui:       make(chan any, 16),
		done:     make(chan struct{}),
		runStamp: processing.Timestamp(),
		status: map[string]any{
			"source":      source,
			"stream":      "idle",
			"format":      "unknown",
			"meter":       processing.StateIdle.String(),
			"thermal":     "nominal",
			"last_frame":  "",
			"last_result": "",
		},
	}, nil
}

// Messages is the UI feed. It is closed when Run returns.
func (p *Pipeline) Messages() <-chan any { return p.ui }

// Capture arms a measurement run.
func (p *Pipeline) Capture(ctx context.Context) error {
	p.formatMu.Lock()
	state := p.format
	p.formatMu.Unlock()
	if state == formatUnsupported {
		return depth.ErrNoSupportedFormat
	}
	return p.send(ctx, request{})
}

// Cancel abandons the run in progress.
func (p *Pipeline) Cancel(ctx context.Context) error {
	return p.send(ctx, request{cancel: true})
}

func (p *Pipeline) send(ctx context.Context, req request) error {
	req.reply = make(chan error, 1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrStopped
	case p.requests <- req:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-req.reply:
		return err
	}
}

// Run consumes messages until the channel closes or ctx is done. The UI
// feed is closed only after every goroutine that writes to it has exited.
func (p *Pipeline) Run(ctx context.Context, messages <-chan types.RawMessage) {
	defer close(p.done)
	defer close(p.ui)

	incoming := make(chan types.RawFrame, 128)
	processed := make(chan types.Measurement, 128)

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		p.dispatch(ctx, messages, incoming)
	}()
	defer func() { <-dispatched }()

	var wg sync.WaitGroup
	wg.Add(p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			p.work(ctx, incoming, processed)
		}()
	}
	go func() {
		wg.Wait()
		close(processed)
	}()

	p.aggregate(ctx, processed)
}

func (p *Pipeline) dispatch(ctx context.Context, messages <-chan types.RawMessage, incoming chan<- types.RawFrame) {
	defer close(incoming)
	for {
		var (
			msg types.RawMessage
			ok  bool
		)
		select {
		case <-ctx.Done():
			return
		case msg, ok = <-messages:
			if !ok {
				return
			}
		}
		p.metrics.rawMessages.Add(1)

		switch msg.Type {
		case ingest.TypeDepth:
			p.metrics.depthMessages.Add(1)
			if p.rejectFrames() {
				p.metrics.framesDropped.Add(1)
				processing.FrameErrors.WithLabelValues("no_format").Inc()
				continue
			}
			frame := msg.Frame
			frame.Received = time.Now()
			select {
			case <-ctx.Done():
				return
			case incoming <- frame:
			}
		case ingest.TypeStart:
			p.metrics.metaMessages.Add(1)
			p.negotiate(msg)
		case ingest.TypeThermal:
			p.metrics.metaMessages.Add(1)
			p.thermal(msg.Thermal)
		case ingest.TypeEnd:
			p.metrics.metaMessages.Add(1)
			log.Info().Int("series_id", msg.SeriesID).Msg("series ended")
			p.setStatus("stream", "idle")
		default:
			log.Warn().Str("type", msg.Type).Msg("ignoring message")
		}
	}
}

func (p *Pipeline) rejectFrames() bool {
	p.formatMu.Lock()
	defer p.formatMu.Unlock()
	return p.format == formatUnsupported
}

func (p *Pipeline) negotiate(msg types.RawMessage) {
	selected, err := depth.SelectFormat(msg.Formats)
	p.formatMu.Lock()
	if err != nil {
		p.format = formatUnsupported
		p.selected = depth.FormatDescription{}
	} else {
		p.format = formatSelected
		p.selected = selected
	}
	p.formatMu.Unlock()

	if err != nil {
		log.Error().Err(err).Int("series_id", msg.SeriesID).Msg("depth format selection failed")
		p.setStatus("format", "unsupported")
		p.alert("Depth format", err.Error())
		return
	}
	log.Info().Int("series_id", msg.SeriesID).Stringer("format", selected).Msg("selected depth format")
	p.setStatus("format", selected.String())
}

func (p *Pipeline) thermal(state string) {
	p.setStatus("thermal", state)
	level := zerolog.InfoLevel
	if state == "serious" || state == "critical" {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).Str("state", state).Msg("thermal state changed")
	p.alert("Thermal state", fmt.Sprintf("Thermal state is %s.", state))
}

func (p *Pipeline) alert(title, message string) {
	select {
	case p.ui <- types.Alert{Type: "alert", Title: title, Message: message}:
	default:
	}
}

func (p *Pipeline) work(ctx context.Context, incoming <-chan types.RawFrame, processed chan<- types.Measurement) {
	for raw := range incoming {
		start := time.Now()
		meas, err := processing.ProcessRawFrame(raw)
		elapsed := time.Since(start)
		p.metrics.processCount.Add(1)
		p.metrics.processNanos.Add(uint64(elapsed.Nanoseconds()))
		processing.ProcessDuration.Observe(elapsed.Seconds())
		if err != nil {
			p.metrics.framesDropped.Add(1)
			reason := processing.ErrorReason(err)
			processing.FrameErrors.WithLabelValues(reason).Inc()
			level := zerolog.WarnLevel
			if reason == "invalid_sample" {
				level = zerolog.DebugLevel
			}
			log.WithLevel(level).Err(err).Str("reason", reason).Msg("frame dropped")
			continue
		}
		p.metrics.framesProcessed.Add(1)
		processing.FramesSampled.Inc()
		p.statusMu.Lock()
		p.status["stream"] = "receiving"
		p.status["last_frame"] = time.Now().Format(time.RFC3339)
		p.statusMu.Unlock()
		select {
		case <-ctx.Done():
			return
		case processed <- meas:
		}
	}
}

// aggregate owns the meter. Every Arm, Cancel and AddMeasurement call
// happens on this goroutine.
func (p *Pipeline) aggregate(ctx context.Context, processed <-chan types.Measurement) {
	ticker := time.NewTicker(p.cfg.UIRate)
	defer ticker.Stop()

	lastPushed := -1
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-p.requests:
			var err error
			if req.cancel {
				err = p.meter.Cancel()
			} else {
				err = p.meter.Arm()
			}
			p.setStatus("meter", p.meter.State().String())
			req.reply <- err
		case meas, ok := <-processed:
			if !ok {
				return
			}
			result, err := p.meter.AddMeasurement(meas)
			if err != nil {
				log.Error().Err(err).Msg("measurement rejected")
				continue
			}
			if result != nil {
				p.finish(*result)
			}
		case <-ticker.C:
			if latest, ok := p.meter.Latest(); ok && latest.FrameID != lastPushed {
				lastPushed = latest.FrameID
				p.push(types.Reading{Type: "reading", FrameID: latest.FrameID, Centimeters: latest.Centimeters})
			}
			if p.meter.State() == processing.StateCollecting {
				p.push(p.meter.Progress())
			}
		}
	}
}

func (p *Pipeline) finish(result types.Result) {
	p.resultMu.Lock()
	p.lastResult = &result
	p.resultMu.Unlock()

	p.statusMu.Lock()
	p.status["meter"] = p.meter.State().String()
	p.status["last_result"] = result.Finished
	p.statusMu.Unlock()

	filename, err := output.WriteRun(p.cfg.OutputDir, p.runStamp, result)
	if err != nil {
		p.metrics.outputWriteErr.Add(1)
		log.Error().Err(err).Msg("run write failed")
	} else {
		p.metrics.outputWriteOK.Add(1)
		log.Info().Str("file", filename).Msg("wrote run")
	}

	select {
	case p.ui <- result:
	case <-time.After(time.Second):
		log.Warn().Int("sequence", result.Sequence).Msg("ui queue full, result not broadcast")
	}
}

func (p *Pipeline) push(message any) {
	select {
	case p.ui <- message:
		p.metrics.framesBroadcast.Add(1)
	default:
	}
}

func (p *Pipeline) setStatus(key string, value any) {
	p.statusMu.Lock()
	p.status[key] = value
	p.statusMu.Unlock()
}

// Status returns a copy of the status map with counters.
func (p *Pipeline) Status() map[string]any {
	p.statusMu.Lock()
	out := make(map[string]any, len(p.status)+1)
	for k, v := range p.status {
		out[k] = v
	}
	p.statusMu.Unlock()

	m := p.metrics.snapshot()
	m["ingest_decode_failures_total"] = ingest.DecodeFailures()
	decodeCount, decodeNanos := ingest.DecodeTiming()
	m["ingest_decode_total"] = decodeCount
	m["ingest_decode_nanos_total"] = decodeNanos
	out["metrics"] = m
	return out
}

// LastResult returns the last completed run, or nil.
func (p *Pipeline) LastResult() any {
	p.resultMu.Lock()
	defer p.resultMu.Unlock()
	if p.lastResult == nil {
		return nil
	}
	return *p.lastResult
}

// Config is the payload sent to newly connected UI clients.
func (p *Pipeline) Config() map[string]any {
	p.formatMu.Lock()
	selected := p.selected
	p.formatMu.Unlock()
	payload := map[string]any{
		"type":     "config",
		"run_size": p.cfg.RunSize,
		"debug":    p.cfg.Debug,
		"endpoint": p.cfg.Endpoint,
	}
	if selected.Width > 0 {
		payload["format"] = selected
	}
	return payload
}
