package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerTransitions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker(2, time.Minute)
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State(), "failed trial reopens")

	now = now.Add(time.Minute)
	require.True(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
}

func TestNilBreakerAlwaysAllows(t *testing.T) {
	var b *Breaker
	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerIgnoresNonConnectionOutcomes(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	b.record(&Error{Kind: ErrNotFound})
	b.record(&Error{Kind: ErrRateLimited})
	b.record(&Error{Kind: ErrUnauthorized})
	b.record(&Error{Kind: ErrConfiguration})
	assert.Equal(t, BreakerClosed, b.State())

	b.record(&Error{Kind: ErrConnection})
	assert.Equal(t, BreakerOpen, b.State())
}

func TestHIBPShortCircuitsWhenOpen(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHIBP(srv.URL, "k", time.Second)
	c.breaker = NewBreaker(2, time.Hour)

	for i := 0; i < 4; i++ {
		_, err := c.BreachedAccount(context.Background(), "a@b.com")
		assert.ErrorIs(t, err, ErrConnection)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
