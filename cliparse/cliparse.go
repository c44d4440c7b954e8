package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort          = 3318
	DefaultTickInterval  = 5 * time.Second
	DefaultVoteRateLimit = 5.0
	DefaultVoteRateBurst = 20
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string // postgres, sqlite or memory
	AdminKeySalt string
	RedisURL     string // optional; enables event publishing and the shared roster

	TickInterval  time.Duration
	VoteRateLimit float64 // votes per second per client IP
	VoteRateBurst int

	LogLevel  string
	LogFormat string
}

// LoadEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are not an error.
func LoadEnv(files ...string) bool {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("no .env file loaded, using environment variables", "error", err)
		return false
	}
	return true
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("quickly-match", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL or SQLite path")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (postgres, sqlite or memory)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL (optional)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")

	fs.DurationVar(&cfg.TickInterval, "tick", 0, "Round timer sweep interval")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", DefaultPort)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envOr("DATABASE_TYPE", "sqlite")
	}
	switch cfg.DatabaseType {
	case "postgres", "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" && cfg.DatabaseType != "memory" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.TickInterval == 0 {
		d, err := envDuration("TICK_INTERVAL", DefaultTickInterval)
		if err != nil {
			return Config{}, err
		}
		cfg.TickInterval = d
	}
	if cfg.TickInterval < 0 {
		return Config{}, errors.New("tick interval must be positive")
	}

	var err error
	if cfg.VoteRateLimit, err = envFloat("VOTE_RATE_LIMIT", DefaultVoteRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.VoteRateBurst, err = envInt("VOTE_RATE_BURST", DefaultVoteRateBurst); err != nil {
		return Config{}, err
	}
	if cfg.VoteRateLimit <= 0 || cfg.VoteRateBurst < 1 {
		return Config{}, errors.New("vote rate limit and burst must be positive")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = envOr("LOG_LEVEL", "info")
	}
	cfg.LogFormat = envOr("LOG_FORMAT", "text")

	return cfg, nil
}

// NewLogger builds the process logger.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return d, nil
}
