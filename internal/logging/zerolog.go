package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts zerolog.Logger to Logger.
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{l: l}
}

// New builds a logger writing to w. format "json" emits one JSON object per
// line; anything else uses the human-readable console writer. Unknown levels
// fall back to info.
func New(w io.Writer, level, format string) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return NewZerologLogger(zerolog.New(w).Level(lvl).With().Timestamp().Logger())
}

func (z *ZerologLogger) Debug(ctx context.Context, msg string, args ...any) {
	z.log(ctx, z.l.Debug(), msg, args)
}

func (z *ZerologLogger) Info(ctx context.Context, msg string, args ...any) {
	z.log(ctx, z.l.Info(), msg, args)
}

func (z *ZerologLogger) Warn(ctx context.Context, msg string, args ...any) {
	z.log(ctx, z.l.Warn(), msg, args)
}

func (z *ZerologLogger) Error(ctx context.Context, msg string, args ...any) {
	z.log(ctx, z.l.Error(), msg, args)
}

func (z *ZerologLogger) With(args ...any) Logger {
	return &ZerologLogger{l: z.l.With().Fields(fields(args)).Logger()}
}

func (z *ZerologLogger) log(ctx context.Context, e *zerolog.Event, msg string, args []any) {
	// e is nil when the level is disabled
	if e == nil {
		return
	}
	e.Ctx(ctx).Fields(fields(args)).Msg(msg)
}

// fields turns alternating key/value args into a map. A dangling key is kept
// under "!BADKEY" the same way log/slog does it.
func fields(args []any) map[string]any {
	m := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			m["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if err, ok := args[i+1].(error); ok {
			m[key] = err.Error()
			continue
		}
		m[key] = args[i+1]
	}
	return m
}
