package ratelimiter

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucket_Allow(t *testing.T) {
	now := time.Now()

	t.Run("spends a token", func(t *testing.T) {
		b := &bucket{tokens: 10, capacity: 10, rate: 1, lastRefill: now}
		assert.True(t, b.allow(now))
		assert.Equal(t, 9.0, b.tokens)
	})

	t.Run("denies when empty", func(t *testing.T) {
		b := &bucket{tokens: 0, capacity: 10, rate: 1, lastRefill: now}
		assert.False(t, b.allow(now))
	})

	t.Run("refills over time", func(t *testing.T) {
		b := &bucket{tokens: 0, capacity: 10, rate: 1, lastRefill: now.Add(-2 * time.Second)}
		assert.True(t, b.allow(now))
		assert.InDelta(t, 1.0, b.tokens, 0.001)
	})

	t.Run("does not exceed capacity", func(t *testing.T) {
		b := &bucket{tokens: 9, capacity: 10, rate: 1, lastRefill: now.Add(-5 * time.Second)}
		assert.True(t, b.allow(now))
		assert.InDelta(t, 9.0, b.tokens, 0.001)
	})
}

func TestLimiter(t *testing.T) {
	t.Run("keys are independent", func(t *testing.T) {
		l := New(0.001, 2, time.Hour)
		defer l.Stop()

		assert.True(t, l.Allow("a"))
		assert.True(t, l.Allow("a"))
		assert.False(t, l.Allow("a"))
		assert.True(t, l.Allow("b"))
		assert.Equal(t, 2, l.Len())
	})

	t.Run("idle keys are forgotten", func(t *testing.T) {
		l := New(1, 1, 20*time.Millisecond)
		defer l.Stop()

		l.Allow("a")
		assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("concurrent callers share one bucket", func(t *testing.T) {
		l := New(0.001, 50, time.Hour)
		defer l.Stop()

		var allowed atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if l.Allow("same") {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(50), allowed.Load())
	})
}
