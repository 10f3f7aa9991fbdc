package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

type AppConfig struct {
	Port           int           `yaml:"port"`
	Endpoint       string        `yaml:"endpoint"`
	Workers        int           `yaml:"workers"`
	RunSize        int           `yaml:"run-size"`
	Debug          bool          `yaml:"debug"`
	DebugFrameRate float64       `yaml:"debug-frame-rate"`
	DebugDistance  float64       `yaml:"debug-distance"`
	UIRate         time.Duration `yaml:"ui-rate"`
	OutputDir      string        `yaml:"output-dir"`
	RawLogEnabled  bool          `yaml:"raw-log"`
	RawLogDir      string        `yaml:"raw-log-dir"`
	IngestLogEvery int           `yaml:"ingest-log-every"`
	IngestFallback bool          `yaml:"ingest-fallback"`
	LogLevel       string        `yaml:"log-level"`
}

func Default() AppConfig {
	return AppConfig{
		Port:           8888,
		Endpoint:       "tcp://localhost:31001",
		Workers:        2,
		RunSize:        10,
		DebugFrameRate: 30,
		DebugDistance:  0.45,
		UIRate:         250 * time.Millisecond,
		OutputDir:      "output",
		RawLogDir:      "rawlog",
		IngestLogEvery: 100,
		IngestFallback: true,
		LogLevel:       "info",
	}
}

func ParseFile(filename string) (AppConfig, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return AppConfig{}, err
	}
	return Parse(buf)
}

// Parse applies YAML on top of Default.
func Parse(buf []byte) (AppConfig, error) {
	conf := Default()
	if err := yaml.UnmarshalStrict(buf, &conf); err != nil {
		return AppConfig{}, err
	}
	return conf, nil
}

func (c AppConfig) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.RunSize < 1 {
		errs = append(errs, fmt.Errorf("run-size must be positive, got %d", c.RunSize))
	}
	if c.UIRate <= 0 {
		errs = append(errs, fmt.Errorf("ui-rate must be positive, got %s", c.UIRate))
	}
	if c.Debug && c.DebugFrameRate <= 0 {
		errs = append(errs, fmt.Errorf("debug-frame-rate must be positive, got %v", c.DebugFrameRate))
	}
	if !c.Debug && c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required unless debug is set"))
	}
	return errors.Join(errs...)
}
