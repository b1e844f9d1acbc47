package authlockout

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodbridge/internal/ratelimit/models"
	"foodbridge/internal/ratelimit/store/bucket"
	dErrors "foodbridge/pkg/domain-errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type brokenStore struct{}

func (brokenStore) Allow(context.Context, string, int, time.Duration) (*models.Result, error) {
	return nil, errors.New("redis down")
}

func (brokenStore) Peek(context.Context, string, int, time.Duration) (*models.Result, error) {
	return nil, errors.New("redis down")
}

func (brokenStore) Reset(context.Context, string) error { return errors.New("redis down") }

type scopes struct{ seen []string }

func (c *scopes) IncrementRateLimited(scope string) { c.seen = append(c.seen, scope) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	counter := &scopes{}
	svc := New(bucket.NewInMemoryBucketStore(bucket.WithClock(clock.Now)), 3, 15*time.Minute,
		WithLogger(quietLogger()), WithRejectionCounter(counter))

	for range 3 {
		require.NoError(t, svc.Check(ctx, "asha@x.com"))
		svc.RecordFailure(ctx, "asha@x.com")
	}

	err := svc.Check(ctx, "asha@x.com")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
	assert.Equal(t, []string{"login"}, counter.seen)
	assert.NoError(t, svc.Check(ctx, "other@x.com"), "accounts are independent")

	clock.Advance(16 * time.Minute)
	assert.NoError(t, svc.Check(ctx, "asha@x.com"), "failures age out of the window")
}

func TestClearForgetsFailures(t *testing.T) {
	ctx := context.Background()
	svc := New(bucket.NewInMemoryBucketStore(), 2, time.Hour, WithLogger(quietLogger()))

	svc.RecordFailure(ctx, "asha@x.com")
	svc.Clear(ctx, "asha@x.com")
	svc.RecordFailure(ctx, "asha@x.com")

	assert.NoError(t, svc.Check(ctx, "asha@x.com"), "only one failure since the last success")
}

func TestStoreErrorsFailOpen(t *testing.T) {
	ctx := context.Background()
	svc := New(brokenStore{}, 1, time.Minute, WithLogger(quietLogger()))

	svc.RecordFailure(ctx, "asha@x.com")
	svc.Clear(ctx, "asha@x.com")
	assert.NoError(t, svc.Check(ctx, "asha@x.com"))
}

func TestDisabledLockoutIsNil(t *testing.T) {
	ctx := context.Background()
	svc := New(bucket.NewInMemoryBucketStore(), 0, time.Minute)
	require.Nil(t, svc)

	assert.NotPanics(t, func() {
		svc.RecordFailure(ctx, "asha@x.com")
		svc.Clear(ctx, "asha@x.com")
	})
	assert.NoError(t, svc.Check(ctx, "asha@x.com"))
}
