package main

import (
	"testing"

	"github.com/fzft/go-mock-httpd/log"
	"github.com/stretchr/testify/assert"
)

func TestAtoi(t *testing.T) {
	cases := map[string]int{
		"8080":   8080,
		"  42":   42,
		"+7":     7,
		"-3":     -3,
		"80abc":  80,
		"abc":    0,
		"":       0,
		"-":      0,
		"0x10":   0,
		"\t9 10": 9,
	}
	for in, want := range cases {
		assert.Equal(t, want, atoi(in), "atoi(%q)", in)
	}
}

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestConfigDefaults(t *testing.T) {
	cfg := configFromArgs(nil, env(nil))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, log.DEBUG, cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
}

func TestConfigFromArgs(t *testing.T) {
	cfg := configFromArgs([]string{"9090", "many"}, env(map[string]string{
		"HTTPD_LOG_LEVEL": "warning",
		"HTTPD_LOG_FILE":  "/tmp/httpd.log",
	}))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 0, cfg.Threads)
	assert.Equal(t, log.WARNING, cfg.LogLevel)
	assert.Equal(t, "/tmp/httpd.log", cfg.LogFile)
}

func TestConfigBadLevelKeepsDefault(t *testing.T) {
	cfg := configFromArgs([]string{"x"}, env(map[string]string{"HTTPD_LOG_LEVEL": "loud"}))

	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, log.DEBUG, cfg.LogLevel)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "0.1.0", Version())
}
