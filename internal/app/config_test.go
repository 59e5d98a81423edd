package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "https://shop.example/static/photos", cfg.PhotoBaseURL())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadAuthSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "   ")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "-1h")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoggerFormats(t *testing.T) {
	buf := new(bytes.Buffer)
	newLogger(&Config{AppEnv: "production", LogFormat: "json"}, buf).Info("started")
	assert.Contains(t, buf.String(), `"msg":"started"`)
	assert.Contains(t, buf.String(), `"env":"production"`)

	buf.Reset()
	newLogger(nil, buf).Info("started")
	assert.Contains(t, buf.String(), "msg=started")
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
