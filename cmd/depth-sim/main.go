package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/pebbe/zmq4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"depthmeter-go/internal/simulator"
)

type Args struct {
	Bind     string  `arg:"-b,--bind" help:"ZMQ PUSH endpoint to bind"`
	Rate     float64 `arg:"-r,--rate" help:"frames per second"`
	Distance float64 `arg:"-d,--distance" help:"scene distance in meters"`
	Noise    float64 `arg:"--noise" help:"per-pixel noise in meters"`
	Thermal  string  `arg:"--thermal" help:"send one thermal state message after start"`
}

func (Args) Description() string {
	return "Publish simulated half-precision depth frames over ZMQ."
}

func main() {
	sim := simulator.DefaultConfig()
	args := Args{Bind: "tcp://*:31001", Rate: sim.Rate, Distance: sim.BaseMeters, Noise: sim.NoiseMeters}
	arg.MustParse(&args)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	socket, err := zmq4.NewSocket(zmq4.PUSH)
	if err != nil {
		log.Fatal().Err(err).Msg("create socket")
	}
	defer socket.Close()
	if err := socket.Bind(args.Bind); err != nil {
		log.Fatal().Err(err).Str("bind", args.Bind).Msg("bind socket")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim.Rate = args.Rate
	sim.BaseMeters = args.Distance
	sim.NoiseMeters = args.Noise

	sent := 0
	for msg := range simulator.Stream(ctx, sim) {
		payload, err := simulator.Encode(msg)
		if err != nil {
			log.Error().Err(err).Msg("encode")
			continue
		}
		if _, err := socket.SendBytes(payload, 0); err != nil {
			log.Error().Err(err).Msg("send")
			continue
		}
		if msg.Type == "start" && args.Thermal != "" {
			msg.Type, msg.Thermal = "thermal", args.Thermal
			if payload, err := simulator.Encode(msg); err == nil {
				_, _ = socket.SendBytes(payload, 0)
			}
		}
		sent++
		if sent%100 == 0 {
			log.Info().Int("sent", sent).Msg("publishing")
		}
	}
}
