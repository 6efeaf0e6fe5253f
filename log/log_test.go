package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARNING,
		"WARN":    WARNING,
		" error ": ERROR,
		"Fatal":   FATAL,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "WARNING", WARNING.String())
	assert.Equal(t, "Level(9)", Level(9).String())
}

func TestFileSinkThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "httpd.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0644))

	require.NoError(t, Init(Options{Level: WARNING, File: path}))
	t.Cleanup(func() { Logger = zap.NewNop() })

	Log(INFO, "dropped record")
	Log(ERROR, "kept record")
	Log(FATAL, "fatal record")
	assert.False(t, Enabled(DEBUG))

	SetLevel(DEBUG)
	assert.True(t, Enabled(DEBUG))
	Log(DEBUG, "debug after lowering")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "previous run")
	assert.Contains(t, out, "kept record")
	assert.Contains(t, out, "fatal record")
	assert.Contains(t, out, "debug after lowering")
	assert.NotContains(t, out, "dropped record")
}
