package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"depthmeter-go/internal/config"
)

func TestOverrideFlags(t *testing.T) {
	fileCfg := config.Default()
	fileCfg.RunSize = 20
	fileCfg.Port = 7000

	flagCfg := config.Default()
	flagCfg.Port = 9000
	flagCfg.Debug = true

	got := overrideFlags(fileCfg, flagCfg, map[string]bool{"port": true, "config": true})
	assert.Equal(t, 9000, got.Port)
	assert.Equal(t, 20, got.RunSize)
	assert.False(t, got.Debug)
}
