package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DataSource string

const (
	DataSourceLive DataSource = "live"
	DataSourceMock DataSource = "mock"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether photo storage is configured at all.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

type Config struct {
	Env            string
	Port           string
	DatabaseURL    string
	APIBaseURL     string
	DataSource     DataSource
	FallbackToMock bool
	AllowedOrigins []string
	ServiceToken   string

	JWTSecret string
	TokenTTL  time.Duration

	DBConnectTimeout        time.Duration
	LogLevel                string
	AchievementPollInterval time.Duration
	StreakResetAt           string // HH:MM, local time

	StepThreshold float64
	StepCooldown  time.Duration

	R2 R2Config
}

func (c *Config) Development() bool {
	return c.Env == "development"
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local dev
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Env:            getenv("APP_ENV", "production"),
		Port:           getenv("PORT", "5200"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		APIBaseURL:     strings.TrimRight(getenv("API_BASE_URL", "http://localhost:5200"), "/"),
		DataSource:     DataSource(strings.ToLower(getenv("DATA_SOURCE", string(DataSourceLive)))),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
		ServiceToken:   os.Getenv("SERVICE_TOKEN"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		StreakResetAt:  getenv("STREAK_RESET_AT", "00:05"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	cfg.FallbackToMock = parseBool("FALLBACK_TO_MOCK", false, &errs)
	cfg.TokenTTL = parseDuration("TOKEN_TTL", 72*time.Hour, &errs)
	cfg.DBConnectTimeout = parseDuration("DB_CONNECT_TIMEOUT", 10*time.Second, &errs)
	cfg.AchievementPollInterval = parseDuration("ACHIEVEMENT_POLL_INTERVAL", 30*time.Second, &errs)
	cfg.StepCooldown = parseDuration("STEP_COOLDOWN", 250*time.Millisecond, &errs)
	cfg.StepThreshold = parseFloat("STEP_THRESHOLD", 10, &errs)

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.DataSource {
	case DataSourceLive:
		// with fallback enabled a missing URL just means serving mock data
		if c.DatabaseURL == "" && !c.FallbackToMock {
			errs = append(errs, errors.New("DATABASE_URL environment variable not set"))
		}
	case DataSourceMock:
	default:
		errs = append(errs, fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", DataSourceLive, DataSourceMock, c.DataSource))
	}
	if c.JWTSecret == "" {
		if !c.Development() {
			errs = append(errs, errors.New("JWT_SECRET environment variable not set"))
		} else {
			c.JWTSecret = "dev-secret"
		}
	}
	if c.DBConnectTimeout <= 0 {
		errs = append(errs, errors.New("DB_CONNECT_TIMEOUT must be positive"))
	}
	if c.AchievementPollInterval <= 0 {
		errs = append(errs, errors.New("ACHIEVEMENT_POLL_INTERVAL must be positive"))
	}
	if c.StepCooldown < 0 {
		errs = append(errs, errors.New("STEP_COOLDOWN must not be negative"))
	}
	if c.StepThreshold <= 0 {
		errs = append(errs, errors.New("STEP_THRESHOLD must be positive"))
	}
	if _, err := time.Parse("15:04", c.StreakResetAt); err != nil {
		errs = append(errs, fmt.Errorf("STREAK_RESET_AT must be HH:MM: %w", err))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
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

func parseDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func parseBool(key string, fallback bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func parseFloat(key string, fallback float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}
