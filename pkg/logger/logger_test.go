package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseLevel("loud")
	assert.True(t, errors.Is(err, ErrInvalidLogLevel))
}

func TestNewConsoleLogger(t *testing.T) {
	l, err := New(&Config{Level: "debug", Format: "console", Output: "stderr"}, "")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
