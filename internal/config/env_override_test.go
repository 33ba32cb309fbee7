package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides_APIKey(t *testing.T) {
	t.Run("API_KEY sets provider if empty", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("API_KEY", "generic-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "generic-key", cfg.Payload.APIKey)
		assert.Equal(t, ProviderGemini, cfg.Payload.Provider)
	})

	t.Run("API_KEY does not override existing provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("API_KEY", "generic-key")

		cfg := &Config{Payload: PayloadConfig{Provider: ProviderFallback}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "generic-key", cfg.Payload.APIKey)
		assert.Equal(t, ProviderFallback, cfg.Payload.Provider)
	})

	t.Run("Precedence: GEMINI_API_KEY overrides API_KEY", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("API_KEY", "generic-key")
		t.Setenv("GEMINI_API_KEY", "gemini-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gemini-key", cfg.Payload.APIKey)
	})

	t.Run("File value kept when env is empty", func(t *testing.T) {
		clearEnv(t)

		cfg := &Config{Payload: PayloadConfig{APIKey: "from-file", Provider: ProviderGemini}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "from-file", cfg.Payload.APIKey)
	})
}

func TestEnvOverrides_Timing(t *testing.T) {
	clearEnv(t)
	t.Setenv("BREACH_TICK", "500ms")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, 500*time.Millisecond, cfg.GetTick())
}

func TestEnvOverrides_Metrics(t *testing.T) {
	clearEnv(t)
	t.Setenv("BREACH_METRICS_ADDR", ":9100")

	cfg := DefaultConfig()
	require.False(t, cfg.Metrics.Enabled)
	cfg.applyEnvOverrides()

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9100", cfg.Metrics.Listen)
}

func TestLoggingConfig_Options(t *testing.T) {
	lc := LoggingConfig{DebugMode: true, Level: "debug", Categories: map[string]bool{"session": false}}

	opts := lc.Options()
	assert.True(t, opts.DebugMode)
	assert.Equal(t, "debug", opts.Level)
	assert.Equal(t, lc.Categories, opts.Categories)
	assert.Equal(t, DefaultConfig().Logging.File, opts.File, "empty file never means stderr")

	lc.File = "custom.log"
	assert.Equal(t, "custom.log", lc.Options().File)
}
