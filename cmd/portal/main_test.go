package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"hmsportal/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantJSON bool
	}{
		{"production writes json", config.Config{Env: "production", LogLevel: "info"}, true},
		{"development writes console", config.Config{Env: "development", LogLevel: "info"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, &tt.cfg)
			logger.Info().Msg("portal listening")

			out := buf.String()
			assert.Contains(t, out, "portal listening")
			assert.Equal(t, tt.wantJSON, bytes.HasPrefix(buf.Bytes(), []byte("{")), out)
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Config{Env: "production", LogLevel: "warn"})

	logger.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("kept")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
