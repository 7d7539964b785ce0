package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitWithinLimit(t *testing.T) {
	svc := NewService(3, time.Minute)

	for i := 0; i < 3; i++ {
		d := svc.Admit("client-a")
		require.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}
}

func TestDeniesOverLimitWithRetryAfter(t *testing.T) {
	current := time.Now()
	svc := NewService(100, time.Minute, WithClock(func() time.Time { return current }))

	for i := 0; i < 100; i++ {
		d := svc.Admit("client-a")
		require.True(t, d.Allowed)
		current = current.Add(100 * time.Millisecond)
	}

	// 101st request inside the same window is denied.
	d := svc.Admit("client-a")
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}

func TestWindowSlides(t *testing.T) {
	current := time.Now()
	svc := NewService(2, time.Minute, WithClock(func() time.Time { return current }))

	require.True(t, svc.Admit("c").Allowed)
	current = current.Add(30 * time.Second)
	require.True(t, svc.Admit("c").Allowed)
	require.False(t, svc.Admit("c").Allowed)

	// 31s later the first request has aged out, opening one slot.
	current = current.Add(31 * time.Second)
	assert.True(t, svc.Admit("c").Allowed)
	assert.False(t, svc.Admit("c").Allowed)
}

func TestDenialsNotRecorded(t *testing.T) {
	current := time.Now()
	svc := NewService(1, time.Minute, WithClock(func() time.Time { return current }))

	require.True(t, svc.Admit("c").Allowed)
	for i := 0; i < 5; i++ {
		current = current.Add(time.Second)
		require.False(t, svc.Admit("c").Allowed)
	}

	// Recovery time depends only on the one admitted request.
	current = current.Add(56 * time.Second)
	assert.True(t, svc.Admit("c").Allowed)
}

func TestIdentitiesIndependent(t *testing.T) {
	svc := NewService(1, time.Minute)

	require.True(t, svc.Admit("a").Allowed)
	assert.False(t, svc.Admit("a").Allowed)
	assert.True(t, svc.Admit("b").Allowed)
}

func TestPruneDropsIdleIdentities(t *testing.T) {
	current := time.Now()
	svc := NewService(5, time.Minute, WithClock(func() time.Time { return current }))

	svc.Admit("a")
	svc.Admit("b")

	current = current.Add(2 * time.Minute)
	svc.Admit("b")

	removed := svc.Prune()
	assert.Equal(t, 1, removed)
}

func TestConcurrentAdmitsNeverExceedLimit(t *testing.T) {
	svc := NewService(50, time.Minute)

	var wg sync.WaitGroup
	var admitted int64
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.Admit("client-a").Allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), admitted)
}
