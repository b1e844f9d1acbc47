//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"foodbridge/internal/ratelimit/store/bucket"
	"foodbridge/pkg/testutil/containers"
)

type RedisBucketSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketSuite))
}

func (s *RedisBucketSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client)
}

func (s *RedisBucketSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketSuite) TestLimitAndReset() {
	ctx := context.Background()
	for i := range 3 {
		res, err := s.store.Allow(ctx, "auth:ip:10.0.0.1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.Allow(ctx, "auth:ip:10.0.0.1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.True(res.ResetAt.After(time.Now()))

	s.Require().NoError(s.store.Reset(ctx, "auth:ip:10.0.0.1"))
	res, err = s.store.Allow(ctx, "auth:ip:10.0.0.1", 3, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisBucketSuite) TestWindowExpires() {
	ctx := context.Background()
	res, err := s.store.Allow(ctx, "short", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = s.store.Allow(ctx, "short", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.False(res.Allowed)

	s.Eventually(func() bool {
		res, err := s.store.Allow(ctx, "short", 1, 200*time.Millisecond)
		return err == nil && res.Allowed
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *RedisBucketSuite) TestPeekDoesNotRecord() {
	ctx := context.Background()
	key := "login:account:a@x.com"

	res, err := s.store.Peek(ctx, key, 2, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)

	for range 2 {
		_, err = s.store.Allow(ctx, key, 2, time.Minute)
		s.Require().NoError(err)
	}
	for range 3 {
		res, err = s.store.Peek(ctx, key, 2, time.Minute)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(0, res.Remaining)
	}

	n, err := s.redis.Client.ZCard(ctx, "rl:"+key).Result()
	s.Require().NoError(err)
	s.EqualValues(2, n, "peeking never adds entries")
}
