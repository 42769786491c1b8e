package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration, loaded from RALLY_* environment
// variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless a database is configured and
	// reachable.
	ReadinessRequireDB bool

	// VoteWindow is how long a vote round accepts ballots.
	VoteWindow time.Duration
}

// LoadConfig reads Config from the environment with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("RALLY_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("RALLY_LOG_LEVEL", "info"),
		LogFormat: EnvString("RALLY_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("RALLY_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("RALLY_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("RALLY_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("RALLY_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("RALLY_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("RALLY_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("RALLY_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("RALLY_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("RALLY_READINESS_REQUIRE_DB", false),

		VoteWindow: EnvDuration("RALLY_VOTE_WINDOW", 2*time.Minute),
	}
}

// EnvString reads a string env var, falling back to def when unset or blank.
func EnvString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// EnvBool reads a bool env var, falling back to def on absence or parse failure.
func EnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvInt reads a positive int env var, falling back to def otherwise.
func EnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// EnvInt32 reads a non-negative int32 env var, falling back to def otherwise.
func EnvInt32(key string, def int32) int32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return def
	}
	return int32(n)
}

// EnvDuration reads a positive duration env var, falling back to def otherwise.
func EnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
