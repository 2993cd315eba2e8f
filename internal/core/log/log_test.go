package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jnsquire/dapper/internal/core/config"
)

func TestNew_TextHandlerByDefault(t *testing.T) {
	logger := New(config.LogConfig{Level: "info", Format: "text"})
	assert.NotNil(t, logger)
	assert.False(t, logger.Enabled(nil, slog.LevelDebug))
	assert.True(t, logger.Enabled(nil, slog.LevelInfo))
}

func TestNew_JSONHandlerCaseInsensitive(t *testing.T) {
	logger := New(config.LogConfig{Level: "debug", Format: "JSON"})
	assert.True(t, logger.Enabled(nil, slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equalf(t, want, parseLevel(in), "parseLevel(%q)", in)
	}
}

func TestFor_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	scoped := For(base, "backend")
	scoped.Info("hello")

	assert.Contains(t, buf.String(), "component=backend")
	assert.Contains(t, buf.String(), "hello")
}

func TestFor_AppendsExtraAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	scoped := For(base, "backend", "variant", "external")
	scoped.Info("hello")

	assert.Contains(t, buf.String(), "component=backend")
	assert.Contains(t, buf.String(), "variant=external")
}
