package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, level string) (*ZerologLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return New(&buf, level, "json"), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestZerologLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t, "debug")
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 4)

	tests := []struct {
		level string
		msg   string
		key   string
		val   float64
	}{
		{"debug", "dbg", "a", 1},
		{"info", "inf", "b", 2},
		{"warn", "wrn", "c", 3},
		{"error", "err", "d", 4},
	}

	for i, tc := range tests {
		assert.Equal(t, tc.level, lines[i]["level"])
		assert.Equal(t, tc.msg, lines[i]["message"])
		assert.Equal(t, tc.val, lines[i][tc.key])
	}
}

func TestZerologLogger_LevelFilter(t *testing.T) {
	log, buf := newTestLogger(t, "warn")
	ctx := context.Background()

	log.Debug(ctx, "hidden")
	log.Info(ctx, "hidden")
	log.Warn(ctx, "shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestZerologLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	log, buf := newTestLogger(t, "loud")
	ctx := context.Background()

	log.Debug(ctx, "hidden")
	log.Info(ctx, "shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
}

func TestZerologLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t, "info")
	ctx := context.Background()

	log2 := log.With("req_id", "123", "user", "alice")
	log2.Info(ctx, "hello", "k", "v", "err", errors.New("boom"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "123", lines[0]["req_id"])
	assert.Equal(t, "alice", lines[0]["user"])
	assert.Equal(t, "v", lines[0]["k"])
	assert.Equal(t, "boom", lines[0]["err"])
}

func TestZerologLogger_DanglingKey(t *testing.T) {
	log, buf := newTestLogger(t, "info")
	log.Info(context.Background(), "odd", "lonely")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "lonely", lines[0]["!BADKEY"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "console")
	log.Info(context.Background(), "plain", "k", "v")

	out := buf.String()
	assert.Contains(t, out, "plain")
	assert.False(t, strings.HasPrefix(out, "{"), "console output must not be JSON")
}

func TestNop_DoesNotPanic(t *testing.T) {
	log := Nop()
	ctx := context.TODO()
	log.Debug(ctx, "x")
	log.Info(ctx, "x")
	log.Warn(ctx, "x")
	log.Error(ctx, "x")
	log.With("a", 1).Info(ctx, "y")
}
