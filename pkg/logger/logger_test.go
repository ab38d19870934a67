package logger_test

import (
	"bytes"
	"testing"

	"github.com/c-rw/spicetrader-go/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFiltering(t *testing.T) {
	cases := []struct {
		name       string
		level      string
		wantGlobal zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"info", "info", zerolog.InfoLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"error", "error", zerolog.ErrorLevel},
		{"unknown falls back to info", "bogus", zerolog.InfoLevel},
		{"empty falls back to info", "", zerolog.InfoLevel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_ = logger.New(logger.Config{Level: tc.level})
			assert.Equal(t, tc.wantGlobal, zerolog.GlobalLevel())
		})
	}
}

func TestNew_WritesJSONByDefault(t *testing.T) {
	l := logger.New(logger.Config{Level: "info"})
	var buf bytes.Buffer
	l = l.Output(&buf)

	l.Info().Str("pair", "BTC/USD").Msg("tick")

	require.Contains(t, buf.String(), `"pair":"BTC/USD"`)
	require.Contains(t, buf.String(), `"message":"tick"`)
}

func TestSetGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	logger.SetGlobalLogger(l)

	zerolog.DefaultContextLogger = &l
	assert.NotNil(t, zerolog.DefaultContextLogger)
}
