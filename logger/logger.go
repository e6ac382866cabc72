package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"chat_back_end_go/config"

	"github.com/mama165/sdk-go/logs"
)

// Setup picks the handler for the environment: colourised text for local
// runs, JSON everywhere else.
func Setup(env, level string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return NewPretty(os.Stdout, ParseLevel(level))
	default:
		return logs.GetLoggerFromString(strings.ToUpper(level))
	}
}

func NewPretty(out io.Writer, level slog.Level) *slog.Logger {
	opts := PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{Level: level},
	}
	return slog.New(opts.NewPrettyHandler(out))
}

// ParseLevel falls back to INFO on anything slog does not understand.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
