// Package config reads service settings from ONCOHUB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string
	PGDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EventsChannel string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	ViewAsTTL    time.Duration
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
	CORSOrigins  []string

	LogLevel        string
	ShutdownTimeout time.Duration
}

// Load reads the environment and applies defaults. It does not validate.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		HTTPAddr:      getEnv("ONCOHUB_HTTP_ADDR", ":8080"),
		GRPCAddr:      getEnv("ONCOHUB_GRPC_ADDR", ":9090"),
		PGDSN:         os.Getenv("ONCOHUB_PG_DSN"),
		RedisAddr:     os.Getenv("ONCOHUB_REDIS_ADDR"),
		RedisPassword: os.Getenv("ONCOHUB_REDIS_PASSWORD"),
		EventsChannel: getEnv("ONCOHUB_EVENTS_CHANNEL", "oncohub:permission-changes"),
		JWTSecret:     os.Getenv("ONCOHUB_JWT_SECRET"),
		JWTIssuer:     getEnv("ONCOHUB_JWT_ISSUER", "oncohub"),
		JWTAudience:   os.Getenv("ONCOHUB_JWT_AUDIENCE"),
		LogLevel:      getEnv("ONCOHUB_LOG_LEVEL", "info"),
		CORSOrigins:   splitList(os.Getenv("ONCOHUB_CORS_ORIGINS")),
	}
	cfg.RedisDB = getInt("ONCOHUB_REDIS_DB", 0, &errs)
	cfg.ViewAsTTL = getDuration("ONCOHUB_VIEW_AS_TTL", 30*time.Minute, &errs)
	cfg.RateBurst = getInt("ONCOHUB_RATE_BURST", 20, &errs)
	cfg.RatePerSec = getInt("ONCOHUB_RATE_PER_SEC", 10, &errs)
	cfg.MaxBodyBytes = int64(getInt("ONCOHUB_MAX_BODY_BYTES", 1<<20, &errs))
	cfg.ShutdownTimeout = getDuration("ONCOHUB_SHUTDOWN_TIMEOUT", 10*time.Second, &errs)
	return cfg, errors.Join(errs...)
}

// Validate reports every setting the service cannot start without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.PGDSN) == "" {
		errs = append(errs, errors.New("ONCOHUB_PG_DSN is required"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("ONCOHUB_JWT_SECRET must be at least 16 bytes"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("ONCOHUB_HTTP_ADDR is required"))
	}
	if c.ViewAsTTL <= 0 {
		errs = append(errs, errors.New("ONCOHUB_VIEW_AS_TTL must be positive"))
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		errs = append(errs, errors.New("rate limit settings must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("ONCOHUB_MAX_BODY_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
