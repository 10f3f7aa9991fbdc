package processing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesSampled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthmeter_frames_sampled_total",
		Help: "Frames whose center depth was sampled",
	})

	FrameErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depthmeter_frame_errors_total",
		Help: "Frames dropped before sampling, by reason",
	}, []string{"reason"})

	ProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depthmeter_process_duration_seconds",
		Help:    "Time spent sampling one frame",
		Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
	})

	measurements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthmeter_run_measurements_total",
		Help: "Measurements added to a run",
	})

	staleMeasurements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthmeter_run_stale_measurements_total",
		Help: "Measurements skipped because their frame arrived before the capture request",
	})

	runsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthmeter_runs_completed_total",
		Help: "Measurement runs that reached their full size",
	})

	runsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthmeter_runs_cancelled_total",
		Help: "Measurement runs abandoned before completion",
	})

	lastDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depthmeter_last_depth_cm",
		Help: "Most recent center depth in centimeters",
	})

	runMean = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depthmeter_last_run_mean_cm",
		Help: "Mean of the last completed run in centimeters",
	})
)
