package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDirFromArgs(t *testing.T) {
	t.Setenv("OPTIONS_ANALYZER_CONFIG", "")

	assert.Equal(t, "/tmp/a", configDirFromArgs([]string{"scenario", "--config", "/tmp/a", "AAPL"}))
	assert.Equal(t, "/tmp/b", configDirFromArgs([]string{"--config=/tmp/b", "quote", "SPY"}))
	assert.Equal(t, "", configDirFromArgs([]string{"quote", "--", "--config", "/tmp/c"}))
	assert.Equal(t, "", configDirFromArgs([]string{"version"}))

	t.Setenv("OPTIONS_ANALYZER_CONFIG", "/etc/oa")
	assert.Equal(t, "/etc/oa", configDirFromArgs([]string{"version"}))
}
