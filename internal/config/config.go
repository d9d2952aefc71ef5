package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-discount/internal/discount"
	"github.com/noah-isme/backend-discount/internal/store"
)

// Store drivers understood by STORE_DRIVER.
const (
	StoreNone     = store.DriverNone
	StoreRedis    = store.DriverRedis
	StorePostgres = store.DriverPostgres
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	StoreDriver        string
	DatabaseURL        string
	RedisURL           string
	ConfigCacheTTL     time.Duration
	CORSAllowedOrigins []string
	BodyLimitBytes     int64
	RateLimitWindow    time.Duration
	RateLimitMax       int
	AdminJWTSecret     string
	AdminJWTIssuer     string
	AdminJWTAudience   string
	FixedRuleFile      string
	FixedRule          discount.FixedRule
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		StoreDriver:        strings.ToLower(strings.TrimSpace(k.String("STORE_DRIVER"))),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		ConfigCacheTTL:     parseDuration(k.String("CONFIG_CACHE_TTL"), "5m"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:       parseInt(k.String("RATE_LIMIT_MAX"), 600),
		AdminJWTSecret:     k.String("ADMIN_JWT_SECRET"),
		AdminJWTIssuer:     strings.TrimSpace(k.String("ADMIN_JWT_ISSUER")),
		AdminJWTAudience:   strings.TrimSpace(k.String("ADMIN_JWT_AUDIENCE")),
		FixedRuleFile:      strings.TrimSpace(k.String("FIXED_RULE_FILE")),
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreNone
		if strings.TrimSpace(cfg.RedisURL) != "" {
			cfg.StoreDriver = StoreRedis
		}
	}
	switch cfg.StoreDriver {
	case StoreNone:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when STORE_DRIVER=redis")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	rule := discount.DefaultFixedRule()
	if cfg.FixedRuleFile != "" {
		fromFile, err := LoadFixedRuleFile(cfg.FixedRuleFile)
		if err != nil {
			return nil, err
		}
		rule = fromFile
	}
	rule = overrideFixedRule(k, rule)
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	cfg.FixedRule = rule

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func overrideFixedRule(k *koanf.Koanf, rule discount.FixedRule) discount.FixedRule {
	if v := strings.TrimSpace(k.String("FIXED_TARGET_COLLECTION")); v != "" {
		rule.TargetCollection = v
	}
	if v, ok := parseFloat(k.String("FIXED_DISCOUNT_PERCENTAGE")); ok {
		rule.Percentage = v
	}
	if v, ok := parseFloat(k.String("FIXED_CART_THRESHOLD")); ok {
		rule.Threshold = v
	}
	if v := strings.TrimSpace(k.String("FIXED_MESSAGE")); v != "" {
		rule.Message = v
	}
	return rule
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string) (float64, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// ParseBool interprets common truthy strings.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
