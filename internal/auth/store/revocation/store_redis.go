package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "foodbridge_is_token_revoked_duration_ms",
	Help:    "Latency of token revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedTokenKeyPrefix = "trl:jti:"

func revokedKey(jti string) string { return revokedTokenKeyPrefix + jti }

// RedisTRL is a Redis-backed token revocation list. Use it when several
// instances must share logout state.
type RedisTRL struct {
	client *redis.Client
}

// NewRedisTRL constructs a Redis-backed token revocation list.
func NewRedisTRL(client *redis.Client) *RedisTRL {
	return &RedisTRL{client: client}
}

// RevokeToken marks jti as revoked until the token itself would expire.
// Revoking the same token twice keeps the first expiry.
func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if jti == "" {
		return nil
	}
	if err := t.client.SetNX(ctx, revokedKey(jti), time.Now().Add(ttl).Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has a live revocation entry.
func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	start := time.Now()
	n, err := t.client.Exists(ctx, revokedKey(jti)).Result()
	isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n == 1, nil
}
