package ui_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"salvage/internal/ui"
)

func TestMultiHandler_FansOut(t *testing.T) {
	var textBuf, jsonBuf bytes.Buffer
	textH := slog.NewTextHandler(&textBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	jsonH := slog.NewJSONHandler(&jsonBuf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(ui.NewMultiHandler(textH, jsonH))
	logger.Info("copy started", "files", 42)

	assert.Contains(t, textBuf.String(), "copy started")
	assert.Contains(t, jsonBuf.String(), `"files":42`)
}

func TestMultiHandler_LevelFiltering(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	debugH := slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	warnH := slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(ui.NewMultiHandler(debugH, warnH))
	logger.Debug("detail")
	logger.Warn("problem")

	assert.Contains(t, debugBuf.String(), "detail")
	assert.Contains(t, debugBuf.String(), "problem")
	assert.NotContains(t, warnBuf.String(), "detail")
	assert.Contains(t, warnBuf.String(), "problem")
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, nil)

	logger := slog.New(ui.NewMultiHandler(h)).With("run", "abc123")
	logger.Info("hello")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "run=abc123")
}
