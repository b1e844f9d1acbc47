package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"foodbridge/pkg/platform/middleware/metadata"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// MinSigningKeyLength is the shortest HMAC secret accepted at startup.
const MinSigningKeyLength = 16

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	StaticDir   string
	CORSOrigins []string

	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Empty means the
	// peer address is always the client.
	TrustedProxies []netip.Prefix

	Auth      AuthConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
}

// AuthConfig configures credential hashing and token issuance.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration
	BcryptCost    int
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Backend string
	URL     string
	Driver  string
}

// RedisConfig configures the optional Redis connection. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// EventsConfig configures domain event delivery. No brokers means log only.
type EventsConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
	BufferSize   int
}

// RateLimitConfig throttles the auth endpoints per client IP and locks an
// account after repeated failed logins. Zero AuthRequests or LockoutAttempts
// disables the respective check.
type RateLimitConfig struct {
	AuthRequests    int
	Window          time.Duration
	LockoutAttempts int
	LockoutWindow   time.Duration
}

// IsProduction reports whether the process runs in production mode.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:        addrFromEnv(),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		StaticDir:   os.Getenv("STATIC_DIR"),
		CORSOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "*")),
		Auth: AuthConfig{
			JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
			JWTIssuer:     getenv("JWT_ISSUER", "foodbridge"),
		},
		Database: DatabaseConfig{
			Backend: strings.ToLower(getenv("STORAGE_BACKEND", BackendMemory)),
			URL:     os.Getenv("DATABASE_URL"),
			Driver:  getenv("DATABASE_DRIVER", "postgres"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Events: EventsConfig{
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:   getenv("KAFKA_TOPIC", "foodbridge.events"),
		},
	}

	var err error
	if cfg.Auth.TokenTTL, err = durationFromEnv("TOKEN_TTL", 7*24*time.Hour); err != nil {
		return Server{}, err
	}
	if cfg.Auth.BcryptCost, err = intFromEnv("BCRYPT_COST", 10); err != nil {
		return Server{}, err
	}
	if cfg.Events.BufferSize, err = intFromEnv("EVENT_BUFFER", 256); err != nil {
		return Server{}, err
	}
	if cfg.RateLimit.AuthRequests, err = intFromEnv("AUTH_RATE_LIMIT", 30); err != nil {
		return Server{}, err
	}
	if cfg.RateLimit.Window, err = durationFromEnv("AUTH_RATE_WINDOW", time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.RateLimit.LockoutAttempts, err = intFromEnv("AUTH_LOCKOUT_ATTEMPTS", 5); err != nil {
		return Server{}, err
	}
	if cfg.RateLimit.LockoutWindow, err = durationFromEnv("AUTH_LOCKOUT_WINDOW", 15*time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.TrustedProxies, err = metadata.ParseTrustedProxies(splitList(os.Getenv("TRUSTED_PROXIES"))); err != nil {
		return Server{}, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (s Server) Validate() error {
	var errs []error
	if len(s.Auth.JWTSigningKey) < MinSigningKeyLength {
		errs = append(errs, fmt.Errorf("JWT_SIGNING_KEY must be set and at least %d bytes", MinSigningKeyLength))
	}
	if s.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if s.Auth.BcryptCost < 4 || s.Auth.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}
	if s.Events.BufferSize <= 0 {
		errs = append(errs, errors.New("EVENT_BUFFER must be positive"))
	}
	if s.RateLimit.AuthRequests < 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT cannot be negative"))
	}
	if s.RateLimit.AuthRequests > 0 && s.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_WINDOW must be positive"))
	}
	if s.RateLimit.LockoutAttempts < 0 {
		errs = append(errs, errors.New("AUTH_LOCKOUT_ATTEMPTS cannot be negative"))
	}
	if s.RateLimit.LockoutAttempts > 0 && s.RateLimit.LockoutWindow <= 0 {
		errs = append(errs, errors.New("AUTH_LOCKOUT_WINDOW must be positive"))
	}
	switch s.Database.Backend {
	case BackendMemory:
	case BackendPostgres:
		if s.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
		if s.Database.Driver != "postgres" && s.Database.Driver != "pgx" {
			errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", s.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q is not supported", s.Database.Backend))
	}
	return errors.Join(errs...)
}

func addrFromEnv() string {
	if addr := os.Getenv("FOODBRIDGE_ADDR"); addr != "" {
		return addr
	}
	return ":" + getenv("PORT", "5000")
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
