package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"kilometers.ai/libbundle/internal/application/ports"
)

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     ports.LogLevel
		expectOut []string
		expectNot []string
	}{
		{
			name:      "info",
			level:     ports.LogLevelInfo,
			expectOut: []string{"copied libfoo", "unresolved libbar", "rewrite failed"},
			expectNot: []string{"reading load commands"},
		},
		{
			name:      "debug",
			level:     ports.LogLevelDebug,
			expectOut: []string{"reading load commands", "copied libfoo"},
		},
		{
			name:      "error",
			level:     ports.LogLevelError,
			expectOut: []string{"rewrite failed"},
			expectNot: []string{"copied libfoo", "unresolved libbar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewConsoleLoggerTo(&buf, tt.level)

			logger.LogDebug("reading load commands", nil)
			logger.LogInfo("copied libfoo", nil)
			logger.LogWarning("unresolved libbar", map[string]interface{}{"arch": "arm64"})
			logger.LogError(errors.New("exit status 1"), "rewrite failed", nil)

			out := buf.String()
			for _, s := range tt.expectOut {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.expectNot {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestConsoleLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, ports.LogLevelInfo)

	logger.LogWarning("unresolved dependency", map[string]interface{}{"name": "libzstd.1.dylib"})
	logger.LogError(errors.New("permission denied"), "copy failed", nil)

	out := buf.String()
	assert.Contains(t, out, Prefix)
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "(fields: map[name:libzstd.1.dylib])")
	assert.Contains(t, out, "copy failed: permission denied")
}

func TestConsoleLogger_SetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, ports.LogLevelInfo)

	logger.SetLogLevel(ports.LogLevelDebug)
	assert.Equal(t, ports.LogLevelDebug, logger.GetLogLevel())

	logger.LogDebug("visible now", nil)
	assert.Contains(t, buf.String(), "visible now")
}
