// Package config loads runtime settings from the environment.
//
// WHERE SETTINGS COME FROM:
// Plain environment variables, optionally seeded from a .env file in the
// working directory. godotenv never overrides a variable that is already set,
// so a real environment always wins over the file. A missing .env is fine;
// production deployments usually don't have one.
//
// Load validates everything up front. A typo in MEDIA_TIMEOUT should stop the
// server at startup, not surface as a strange timeout on the first upload.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Media backends selectable with MEDIA_BACKEND.
const (
	MediaLocal      = "local"
	MediaCloudinary = "cloudinary"
)

const minJWTSecretLen = 16

// Config holds every setting the server needs.
type Config struct {
	Port   int
	DBPath string

	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	MediaBackend        string
	MediaDir            string
	MediaBaseURL        string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	MediaTimeout        time.Duration
	MaxUploadBytes      int64

	AdminUsername string
	AdminPassword string

	LogLevel   slog.Level
	LogFormat  string
	CORSOrigin string
}

// GitHubEnabled reports whether both GitHub OAuth credentials are present.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (Config, error) {
	// Ignore error if .env doesn't exist.
	_ = godotenv.Load()

	var errs []error

	port, err := getEnvInt("PORT", 8080)
	errs = append(errs, err)
	tokenTTL, err := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	errs = append(errs, err)
	mediaTimeout, err := getEnvDuration("MEDIA_TIMEOUT", 30*time.Second)
	errs = append(errs, err)
	maxUpload, err := getEnvInt64("MAX_UPLOAD_BYTES", 10<<20)
	errs = append(errs, err)
	cookieSecure, err := getEnvBool("COOKIE_SECURE", false)
	errs = append(errs, err)
	logLevel, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	errs = append(errs, err)

	cfg := Config{
		Port:   port,
		DBPath: getEnv("DB_PATH", "data/datingapp.db"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		TokenTTL:     tokenTTL,
		CookieSecure: cookieSecure,

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/auth/github/callback", port)),

		MediaBackend:        strings.ToLower(getEnv("MEDIA_BACKEND", MediaLocal)),
		MediaDir:            getEnv("MEDIA_DIR", "data/media"),
		MediaBaseURL:        getEnv("MEDIA_BASE_URL", "/media"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		MediaTimeout:        mediaTimeout,
		MaxUploadBytes:      maxUpload,

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		LogLevel:   logLevel,
		LogFormat:  strings.ToLower(getEnv("LOG_FORMAT", "text")),
		CORSOrigin: os.Getenv("CORS_ORIGIN"),
	}

	errs = append(errs, cfg.validate())
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if len(c.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.MediaTimeout <= 0 {
		errs = append(errs, errors.New("MEDIA_TIMEOUT must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	switch c.MediaBackend {
	case MediaLocal:
	case MediaCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			errs = append(errs, errors.New("MEDIA_BACKEND=cloudinary needs CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration (try 30s or 24h)", key, v)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %q is not a log level", s)
	}
	return level, nil
}
