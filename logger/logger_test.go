package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	req := require.New(t)
	req.Equal(slog.LevelDebug, ParseLevel("debug"))
	req.Equal(slog.LevelWarn, ParseLevel("WARN"))
	req.Equal(slog.LevelError, ParseLevel("Error"))
	req.Equal(slog.LevelInfo, ParseLevel("verbose"))
	req.Equal(slog.LevelInfo, ParseLevel(""))
}

func TestPrettyHandler(t *testing.T) {
	req := require.New(t)
	color.NoColor = true
	var buf bytes.Buffer

	log := NewPretty(&buf, slog.LevelInfo).With(slog.String("op", "tests.pretty"))
	log.Debug("hidden")
	log.Info("chat created", slog.String("chat_id", "42"), Err(errors.New("boom")))

	out := buf.String()
	req.NotContains(out, "hidden")
	req.Contains(out, "INFO:")
	req.Contains(out, "chat created")
	req.Contains(out, `"chat_id": "42"`)
	req.Contains(out, `"op": "tests.pretty"`)
	req.Contains(out, `"error": "boom"`)
}

func TestSetup(t *testing.T) {
	req := require.New(t)

	local := Setup("local", "debug")
	req.IsType(&PrettyHandler{}, local.Handler())
	req.True(local.Enabled(context.Background(), slog.LevelDebug))

	prod := Setup("prod", "warn")
	req.NotNil(prod)
	req.NotSame(local, prod)
}
