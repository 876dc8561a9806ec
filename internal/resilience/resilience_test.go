package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("provider down")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func failing() (float64, error) { return 0, errDown }

func succeeding() (float64, error) { return 42, nil }

func countAll(error) bool { return true }

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	cb := NewCircuitBreaker("alphavantage", BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	cb.now = clock.now
	return cb
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)}
	cb := newTestBreaker(clock)

	for i := 0; i < 2; i++ {
		_, err := ExecuteWithResult(cb, countAll, failing)
		assert.ErrorIs(t, err, errDown)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	calls := 0
	_, err := ExecuteWithResult(cb, countAll, func() (float64, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)

	stats := cb.Stats()
	assert.Equal(t, int64(2), stats.TotalCalls)
	assert.Equal(t, int64(1), stats.TotalRejected)
	assert.Equal(t, 100.0, stats.FailureRate())
}

func TestCircuitBreakerRecoversAfterCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)}
	cb := newTestBreaker(clock)

	for i := 0; i < 2; i++ {
		_, _ = ExecuteWithResult(cb, countAll, failing)
	}
	require.Equal(t, CircuitOpen, cb.State())

	clock.advance(time.Minute)
	_, err := ExecuteWithResult(cb, countAll, failing)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, CircuitOpen, cb.State(), "failed trial reopens the circuit")

	clock.advance(time.Minute)
	v, err := ExecuteWithResult(cb, countAll, succeeding)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerIgnoresUncountedErrors(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	cb := newTestBreaker(clock)
	notFound := errors.New("symbol not found")

	for i := 0; i < 5; i++ {
		_, err := ExecuteWithResult(cb, func(err error) bool { return err != notFound }, func() (float64, error) {
			return 0, notFound
		})
		assert.ErrorIs(t, err, notFound)
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker("kite", BreakerConfig{})
	assert.Equal(t, "kite", cb.Name())
	assert.Equal(t, DefaultBreakerConfig(), cb.config)
}

func TestRateLimiter(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)}
	limiter := PerMinute(5)
	limiter.now = clock.now
	limiter.lastUpdate = clock.t

	allowed := 0
	for i := 0; i < 8; i++ {
		if limiter.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed)

	clock.advance(13 * time.Second)
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(0, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)
}
