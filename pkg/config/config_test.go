package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	// Check defaults
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "127.0.0.1", cfg.Palette.Host)
	assert.Equal(t, "29222", cfg.Palette.Port)
	assert.Equal(t, "127.0.0.1:29222", cfg.Palette.Addr())
	assert.Equal(t, 120, cfg.View.LookbackDays)
	assert.Equal(t, AnchorFirst, cfg.View.Anchor)
	assert.Equal(t, 5*time.Second, cfg.Palette.ReadTimeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 30, cfg.API.PaletteRateLimit)
	assert.Equal(t, time.Minute, cfg.API.PaletteRateWindow)
	assert.Equal(t, 1024, cfg.Palette.MaxCount)
	assert.Equal(t, 512, cfg.Palette.MaxConns)
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PALETTE_HOST", "palette.internal")
	t.Setenv("PALETTE_PORT", "4000")
	t.Setenv("PALETTE_READ_TIMEOUT", "750ms")
	t.Setenv("VIEW_LOOKBACK_DAYS", "30")
	t.Setenv("VIEW_ANCHOR", "LATEST")
	t.Setenv("API_ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "palette.internal:4000", cfg.Palette.Addr())
	assert.Equal(t, 750*time.Millisecond, cfg.Palette.ReadTimeout)
	assert.Equal(t, 30, cfg.View.LookbackDays)
	assert.Equal(t, AnchorLatest, cfg.View.Anchor)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"invalid env", "ENV", "invalid"},
		{"invalid port", "PALETTE_PORT", "http"},
		{"port out of range", "PALETTE_PORT", "70000"},
		{"zero lookback", "VIEW_LOOKBACK_DAYS", "0"},
		{"unknown anchor", "VIEW_ANCHOR", "middle"},
		{"negative max count", "PALETTE_MAX_COUNT", "-1"},
		{"zero max count", "PALETTE_MAX_COUNT", "0"},
		{"negative max conns", "PALETTE_MAX_CONNS", "-1"},
		{"negative palette rate limit", "API_PALETTE_RATE_LIMIT", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "2h")
	assert.Equal(t, 2*time.Hour, getEnvAsDuration("TEST_DURATION", "1h"))

	t.Setenv("TEST_DURATION", "garbage")
	assert.Equal(t, time.Hour, getEnvAsDuration("TEST_DURATION", "1h"))
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "100")
	assert.Equal(t, 100, getEnvAsInt("TEST_INT", 50))
	assert.Equal(t, 50, getEnvAsInt("TEST_INT_MISSING", 50))
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	assert.True(t, getEnvAsBool("TEST_BOOL", false))

	t.Setenv("TEST_BOOL", "nope")
	assert.False(t, getEnvAsBool("TEST_BOOL", false))
}
