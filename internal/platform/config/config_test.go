package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef-test"

var configVars = []string{
	"PORT", "FOODBRIDGE_ADDR", "JWT_ISSUER", "TOKEN_TTL", "BCRYPT_COST",
	"STORAGE_BACKEND", "DATABASE_URL", "DATABASE_DRIVER", "REDIS_URL",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "EVENT_BUFFER", "STATIC_DIR",
	"CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "ENVIRONMENT",
	"AUTH_RATE_LIMIT", "AUTH_RATE_WINDOW", "AUTH_LOCKOUT_ATTEMPTS",
	"AUTH_LOCKOUT_WINDOW", "TRUSTED_PROXIES",
}

// cleanEnv blanks every variable FromEnv reads so the host environment
// cannot leak into a test.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range configVars {
		t.Setenv(k, "")
	}
	t.Setenv("JWT_SIGNING_KEY", testKey)
}

func TestFromEnvDefaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, "foodbridge", cfg.Auth.JWTIssuer)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, BackendMemory, cfg.Database.Backend)
	assert.Equal(t, "foodbridge.events", cfg.Events.KafkaTopic)
	assert.Equal(t, 256, cfg.Events.BufferSize)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.Events.KafkaBrokers)
	assert.Equal(t, 30, cfg.RateLimit.AuthRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5, cfg.RateLimit.LockoutAttempts)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.LockoutWindow)
	assert.Empty(t, cfg.TrustedProxies)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvAddress(t *testing.T) {
	cleanEnv(t)

	t.Run("port only", func(t *testing.T) {
		t.Setenv("FOODBRIDGE_ADDR", "")
		t.Setenv("PORT", "8081")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8081", cfg.Addr)
	})

	t.Run("explicit address wins", func(t *testing.T) {
		t.Setenv("FOODBRIDGE_ADDR", "127.0.0.1:9000")
		t.Setenv("PORT", "8081")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	})
}

func TestFromEnvOverrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/foodbridge")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUTH_LOCKOUT_ATTEMPTS", "0")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, BackendPostgres, cfg.Database.Backend)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.KafkaBrokers)
	assert.True(t, cfg.IsProduction())
	assert.Zero(t, cfg.RateLimit.LockoutAttempts)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("127.0.0.1/32"),
	}, cfg.TrustedProxies)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing signing key", map[string]string{"JWT_SIGNING_KEY": ""}, "JWT_SIGNING_KEY"},
		{"short signing key", map[string]string{"JWT_SIGNING_KEY": "short"}, "JWT_SIGNING_KEY"},
		{"bad ttl", map[string]string{"TOKEN_TTL": "soon"}, "TOKEN_TTL"},
		{"bad cost", map[string]string{"BCRYPT_COST": "99"}, "BCRYPT_COST"},
		{"postgres without url", map[string]string{"STORAGE_BACKEND": "postgres", "DATABASE_URL": ""}, "DATABASE_URL"},
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "mongo"}, "STORAGE_BACKEND"},
		{"negative rate limit", map[string]string{"AUTH_RATE_LIMIT": "-1"}, "AUTH_RATE_LIMIT"},
		{"zero rate window", map[string]string{"AUTH_RATE_WINDOW": "0s"}, "AUTH_RATE_WINDOW"},
		{"negative lockout", map[string]string{"AUTH_LOCKOUT_ATTEMPTS": "-2"}, "AUTH_LOCKOUT_ATTEMPTS"},
		{"zero lockout window", map[string]string{"AUTH_LOCKOUT_WINDOW": "0s"}, "AUTH_LOCKOUT_WINDOW"},
		{"bad trusted proxy", map[string]string{"TRUSTED_PROXIES": "10.0.0.0/99"}, "TRUSTED_PROXIES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
