package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setBaseEnv sets the minimum environment Load accepts and clears the
// variables tests care about, so the host environment can't leak in.
func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DB_PATH", "TOKEN_TTL", "COOKIE_SECURE", "GITHUB_CLIENT_ID",
		"GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL", "MEDIA_BACKEND", "MEDIA_DIR",
		"MEDIA_BASE_URL", "CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY",
		"CLOUDINARY_API_SECRET", "MEDIA_TIMEOUT", "MAX_UPLOAD_BYTES",
		"ADMIN_USERNAME", "ADMIN_PASSWORD", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGIN",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/datingapp.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, MediaLocal, cfg.MediaBackend)
	assert.Equal(t, "data/media", cfg.MediaDir)
	assert.Equal(t, "/media", cfg.MediaBaseURL)
	assert.Equal(t, 30*time.Second, cfg.MediaTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHubCallbackURL)
	assert.False(t, cfg.GitHubEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MEDIA_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.MediaTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:9090/auth/github/callback", cfg.GitHubCallbackURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"short secret", "JWT_SECRET", "short"},
		{"bad port", "PORT", "eighty"},
		{"bad timeout", "MEDIA_TIMEOUT", "soon"},
		{"bad backend", "MEDIA_BACKEND", "s3"},
		{"cloudinary without creds", "MEDIA_BACKEND", "cloudinary"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad bool", "COOKIE_SECURE", "maybe"},
		{"admin without password", "ADMIN_USERNAME", "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_CloudinaryWithCreds(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MEDIA_BACKEND", "cloudinary")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MediaCloudinary, cfg.MediaBackend)
}
