package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestComponentTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "debug", true)
	defer Initialize("info", false)

	Component("pubsub").Info("published", "topic", "newThread")

	out := buf.String()
	assert.Contains(t, out, `"component":"pubsub"`)
	assert.Contains(t, out, `"topic":"newThread"`)
}
