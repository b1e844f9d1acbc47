//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"foodbridge/internal/auth/store/revocation"
	"foodbridge/pkg/testutil/containers"
)

type RedisTRLSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	trl   *revocation.RedisTRL
}

func TestRedisTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTRLSuite))
}

func (s *RedisTRLSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.trl = revocation.NewRedisTRL(s.redis.Client)
}

func (s *RedisTRLSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTRLSuite) TestRevokeAndCheck() {
	ctx := context.Background()

	revoked, err := s.trl.IsRevoked(ctx, "jti-a")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.trl.RevokeToken(ctx, "jti-a", time.Minute))

	revoked, err = s.trl.IsRevoked(ctx, "jti-a")
	s.Require().NoError(err)
	s.True(revoked)

	ttl, err := s.redis.Client.TTL(ctx, "trl:jti:jti-a").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisTRLSuite) TestEntryExpiresWithToken() {
	ctx := context.Background()
	s.Require().NoError(s.trl.RevokeToken(ctx, "jti-short", 1100*time.Millisecond))

	s.Eventually(func() bool {
		revoked, err := s.trl.IsRevoked(ctx, "jti-short")
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}

type PostgresTRLSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	trl      *revocation.PostgresTRL
	now      time.Time
}

func TestPostgresTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTRLSuite))
}

func (s *PostgresTRLSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), "postgres")
	s.now = time.Now().UTC()
	s.trl = revocation.NewPostgresTRL(s.postgres.DB, revocation.WithPostgresClock(func() time.Time { return s.now }))
}

func (s *PostgresTRLSuite) TestRevokeAndExpire() {
	ctx := context.Background()
	s.Require().NoError(s.trl.RevokeToken(ctx, "jti-pg", time.Hour))

	revoked, err := s.trl.IsRevoked(ctx, "jti-pg")
	s.Require().NoError(err)
	s.True(revoked)

	s.now = s.now.Add(2 * time.Hour)
	revoked, err = s.trl.IsRevoked(ctx, "jti-pg")
	s.Require().NoError(err)
	s.False(revoked)
}
