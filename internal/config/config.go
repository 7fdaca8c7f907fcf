package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup and treated as immutable.
type Config struct {
	DatabaseURL string

	JWTSecret      string
	GoogleClientID string

	ServerAddr      string
	ShutdownTimeout time.Duration

	AuthRedirectURL string
	CookieDomain    string
	CookieSameSite  http.SameSite

	MediaDir      string
	MediaMaxBytes int64

	VoteRatePerMin int
	LogLevel       slog.Level
}

// LoadDotEnv loads a .env file when one exists. Its absence is not an error.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}
}

// Load reads the server configuration from the environment.
func Load() (*Config, error) {
	LoadDotEnv()

	cfg := &Config{}
	var missing []string

	databaseURL, err := DatabaseURL()
	if err != nil {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.DatabaseURL = databaseURL

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.ServerAddr = getEnvString("SERVER_ADDR", "0.0.0.0:8080")
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	cfg.AuthRedirectURL = getEnvString("AUTH_REDIRECT_URL", "/")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CookieSameSite = parseSameSite(getEnvString("COOKIE_SAMESITE", "lax"))
	cfg.MediaDir = getEnvString("MEDIA_DIR", "./media")
	cfg.MediaMaxBytes = getEnvInt64("MEDIA_MAX_BYTES", 5<<20)
	cfg.VoteRatePerMin = getEnvInt("VOTE_RATE_PER_MIN", 30)
	cfg.LogLevel = parseLevel(getEnvString("LOG_LEVEL", "info"))

	return cfg, nil
}

// DatabaseURL returns DATABASE_URL, or builds one from the POSTGRES_* variables.
func DatabaseURL() (string, error) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v, nil
	}

	host := os.Getenv("POSTGRES_HOST")
	port := getEnvString("POSTGRES_PORT", "5432")
	user := os.Getenv("POSTGRES_USER")
	password := os.Getenv("POSTGRES_PASSWORD")
	name := os.Getenv("POSTGRES_DB")
	if host == "" || user == "" || name == "" {
		return "", errors.New("DATABASE_URL or POSTGRES_HOST, POSTGRES_USER and POSTGRES_DB must be set")
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String(), nil
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func parseLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
