package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"depthmeter-go/internal/config"
	"depthmeter-go/internal/ingest"
	"depthmeter-go/internal/output"
	"depthmeter-go/internal/pipeline"
	"depthmeter-go/internal/server"
	"depthmeter-go/internal/simulator"
	"depthmeter-go/internal/types"
)

const hookTimeout = 2 * time.Second

func main() {
	defaults := config.Default()
	var (
		configFile = flag.String("config", "", "Optional YAML configuration file")
		cfg        = defaults
	)
	flag.IntVar(&cfg.Port, "port", defaults.Port, "HTTP port for the web UI")
	flag.StringVar(&cfg.Endpoint, "endpoint", defaults.Endpoint, "ZMQ endpoint publishing depth frames")
	flag.IntVar(&cfg.Workers, "workers", defaults.Workers, "Number of frame sampling workers")
	flag.IntVar(&cfg.RunSize, "run-size", defaults.RunSize, "Measurements averaged per capture")
	flag.BoolVar(&cfg.Debug, "debug", defaults.Debug, "Run with simulated depth frames")
	flag.Float64Var(&cfg.DebugFrameRate, "debug-frame-rate", defaults.DebugFrameRate, "Simulated frames per second")
	flag.Float64Var(&cfg.DebugDistance, "debug-distance", defaults.DebugDistance, "Simulated distance in meters")
	flag.DurationVar(&cfg.UIRate, "ui-rate", defaults.UIRate, "Live reading update interval for websocket clients")
	flag.StringVar(&cfg.OutputDir, "output-dir", defaults.OutputDir, "Directory for run files")
	flag.BoolVar(&cfg.RawLogEnabled, "raw-log", defaults.RawLogEnabled, "Write raw CBOR messages to disk")
	flag.StringVar(&cfg.RawLogDir, "raw-log-dir", defaults.RawLogDir, "Directory for raw ingest logs")
	flag.IntVar(&cfg.IngestLogEvery, "ingest-log-every", defaults.IngestLogEvery, "Log every Nth ingest error")
	flag.BoolVar(&cfg.IngestFallback, "ingest-fallback", defaults.IngestFallback, "Fall back to simulator when ingest fails")
	flag.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if *configFile != "" {
		fileCfg, err := config.ParseFile(*configFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *configFile).Msg("failed to read config")
		}
		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		cfg = overrideFlags(fileCfg, cfg, set)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pipeline")
	}

	go p.Run(ctx, source(ctx, cfg))

	srv := server.New(cfg, server.Hooks{
		Status: p.Status,
		Result: p.LastResult,
		Config: p.Config,
		Capture: func() error {
			hookCtx, cancel := context.WithTimeout(ctx, hookTimeout)
			defer cancel()
			return p.Capture(hookCtx)
		},
		Cancel: func() error {
			hookCtx, cancel := context.WithTimeout(ctx, hookTimeout)
			defer cancel()
			return p.Cancel(hookCtx)
		},
	})

	log.Info().Int("port", cfg.Port).Int("run_size", cfg.RunSize).Msgf("starting web UI at http://localhost:%d", cfg.Port)
	if err := srv.Run(ctx, p.Messages()); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}

// source returns the raw message stream: the simulator in debug mode, the
// ZMQ ingest otherwise. Ingest is restarted when its channel closes.
func source(ctx context.Context, cfg config.AppConfig) <-chan types.RawMessage {
	sim := simulator.DefaultConfig()
	sim.Rate = cfg.DebugFrameRate
	sim.BaseMeters = cfg.DebugDistance

	if cfg.Debug {
		return simulator.Stream(ctx, sim)
	}

	var recorder ingest.RawRecorder
	if cfg.RawLogEnabled {
		writer, err := output.NewRawLogWriter(cfg.RawLogDir, "raw_cbor")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start raw log")
		}
		log.Info().Str("file", writer.Path()).Msg("raw log enabled")
		recorder = writer
		go func() {
			<-ctx.Done()
			if err := writer.Close(); err != nil {
				log.Error().Err(err).Msg("raw log close failed")
				return
			}
			log.Info().Uint32("records", writer.Records()).Str("file", writer.Path()).Msg("raw log closed")
		}()
	}

	out := make(chan types.RawMessage, 128)
	go func() {
		defer close(out)
		var ingestCh <-chan types.RawMessage
		startIngest := func() {
			frames, err := ingest.StreamWithLogEveryAndRecorder(ctx, cfg.Endpoint, cfg.IngestLogEvery, recorder)
			if err == nil {
				ingestCh = frames
				return
			}
			if !cfg.IngestFallback {
				log.Fatal().Err(err).Msg("failed to start ingest")
			}
			log.Error().Err(err).Msg("failed to start ingest, falling back to simulator")
			ingestCh = simulator.Stream(ctx, sim)
		}
		startIngest()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ingestCh:
				if !ok {
					if ctx.Err() != nil {
						return
					}
					startIngest()
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- msg:
				}
			}
		}
	}()
	return out
}

// overrideFlags copies explicitly set flags from flagCfg over fileCfg.
func overrideFlags(fileCfg, flagCfg config.AppConfig, set map[string]bool) config.AppConfig {
	out := fileCfg
	apply := map[string]func(){
		"port":             func() { out.Port = flagCfg.Port },
		"endpoint":         func() { out.Endpoint = flagCfg.Endpoint },
		"workers":          func() { out.Workers = flagCfg.Workers },
		"run-size":         func() { out.RunSize = flagCfg.RunSize },
		"debug":            func() { out.Debug = flagCfg.Debug },
		"debug-frame-rate": func() { out.DebugFrameRate = flagCfg.DebugFrameRate },
		"debug-distance":   func() { out.DebugDistance = flagCfg.DebugDistance },
		"ui-rate":          func() { out.UIRate = flagCfg.UIRate },
		"output-dir":       func() { out.OutputDir = flagCfg.OutputDir },
		"raw-log":          func() { out.RawLogEnabled = flagCfg.RawLogEnabled },
		"raw-log-dir":      func() { out.RawLogDir = flagCfg.RawLogDir },
		"ingest-log-every": func() { out.IngestLogEvery = flagCfg.IngestLogEvery },
		"ingest-fallback":  func() { out.IngestFallback = flagCfg.IngestFallback },
		"log-level":        func() { out.LogLevel = flagCfg.LogLevel },
	}
	for name := range set {
		if fn, ok := apply[name]; ok {
			fn()
		}
	}
	return out
}
