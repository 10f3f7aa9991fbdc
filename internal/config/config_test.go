package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllDefaults(t *testing.T) {
	conf, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), conf)
	assert.NoError(t, conf.Validate())
}

func TestAllSet(t *testing.T) {
	buf := []byte(`
port: 9000
endpoint: "tcp://10.0.0.2:5555"
workers: 8
run-size: 25
debug: true
debug-frame-rate: 60
debug-distance: 1.2
ui-rate: 1s
output-dir: /tmp/runs
raw-log: true
raw-log-dir: /tmp/raw
ingest-log-every: 5
ingest-fallback: false
log-level: debug
`)
	conf, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, AppConfig{
		Port:           9000,
		Endpoint:       "tcp://10.0.0.2:5555",
		Workers:        8,
		RunSize:        25,
		Debug:          true,
		DebugFrameRate: 60,
		DebugDistance:  1.2,
		UIRate:         time.Second,
		OutputDir:      "/tmp/runs",
		RawLogEnabled:  true,
		RawLogDir:      "/tmp/raw",
		IngestLogEvery: 5,
		IngestFallback: false,
		LogLevel:       "debug",
	}, conf)
}

func TestUnknownKey(t *testing.T) {
	_, err := Parse([]byte("grid-x: 52\n"))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depthmeter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run-size: 3\n"), 0o644))
	conf, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, conf.RunSize)
	assert.Equal(t, 8888, conf.Port)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	conf := Default()
	conf.RunSize = 0
	conf.Workers = 0
	conf.Endpoint = ""
	err := conf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-size")
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "endpoint")

	conf = Default()
	conf.Debug = true
	conf.Endpoint = ""
	assert.NoError(t, conf.Validate())
}
