package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mathpal-app/mathpal_api/shared"
)

func newTestLimiter(clock *time.Time) *SlidingWindowService {
	return &SlidingWindowService{
		windows:     make(map[string][]time.Time),
		windowSize:  shared.BurstWindowSize,
		maxRequests: shared.BurstMaxRequests,
		now:         func() time.Time { return *clock },
		closed:      make(chan struct{}),
	}
}

func TestSlidingWindowAdmitsUpToLimit(t *testing.T) {
	clock := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc := newTestLimiter(&clock)

	for i := 0; i < shared.BurstMaxRequests; i++ {
		decision := svc.Admit("1.2.3.4")
		assert.True(t, decision.Allowed)
		assert.Equal(t, shared.BurstMaxRequests-i-1, decision.Remaining)
	}

	decision := svc.Admit("1.2.3.4")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.Equal(t, 60, decision.RetryAfterSeconds)
}

func TestSlidingWindowRetryAfterShrinks(t *testing.T) {
	clock := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc := newTestLimiter(&clock)

	for i := 0; i < shared.BurstMaxRequests; i++ {
		svc.Admit("1.2.3.4")
	}

	clock = clock.Add(30 * time.Second)
	decision := svc.Admit("1.2.3.4")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 30, decision.RetryAfterSeconds)

	clock = clock.Add(29 * time.Second)
	decision = svc.Admit("1.2.3.4")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 1, decision.RetryAfterSeconds)
}

func TestSlidingWindowSlides(t *testing.T) {
	clock := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc := newTestLimiter(&clock)

	for i := 0; i < shared.BurstMaxRequests; i++ {
		svc.Admit("1.2.3.4")
	}
	assert.False(t, svc.Admit("1.2.3.4").Allowed)

	clock = clock.Add(61 * time.Second)

	decision := svc.Admit("1.2.3.4")
	assert.True(t, decision.Allowed)
	assert.Equal(t, shared.BurstMaxRequests-1, decision.Remaining)
}

func TestSlidingWindowPartialAgeing(t *testing.T) {
	clock := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc := newTestLimiter(&clock)

	for i := 0; i < 10; i++ {
		svc.Admit("1.2.3.4")
	}
	clock = clock.Add(30 * time.Second)
	for i := 0; i < 10; i++ {
		svc.Admit("1.2.3.4")
	}

	// Only the first batch has aged out.
	clock = clock.Add(31 * time.Second)
	decision := svc.Admit("1.2.3.4")
	assert.True(t, decision.Allowed)
	assert.Equal(t, shared.BurstMaxRequests-11, decision.Remaining)
}

func TestSlidingWindowIdentifiersIndependent(t *testing.T) {
	clock := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc := newTestLimiter(&clock)

	for i := 0; i < shared.BurstMaxRequests; i++ {
		svc.Admit("1.2.3.4")
	}
	assert.False(t, svc.Admit("1.2.3.4").Allowed)

	decision := svc.Admit("5.6.7.8")
	assert.True(t, decision.Allowed)
	assert.Equal(t, shared.BurstMaxRequests-1, decision.Remaining)
}

func TestSlidingWindowCompactionDropsIdleIdentifiers(t *testing.T) {
	clock := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc := newTestLimiter(&clock)

	svc.Admit("1.2.3.4")
	svc.Admit("5.6.7.8")
	assert.Equal(t, 2, svc.ActiveIdentifiers())

	clock = clock.Add(61 * time.Second)
	svc.Admit("9.9.9.9")

	svc.mutex.Lock()
	svc.compactLocked(clock.Add(-svc.windowSize))
	svc.mutex.Unlock()

	assert.Equal(t, 1, svc.ActiveIdentifiers())
}

func TestSlidingWindowConcurrentAdmits(t *testing.T) {
	clock := time.Now()
	svc := newTestLimiter(&clock)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			decision := svc.Admit(fmt.Sprintf("10.0.0.%d", n))
			assert.True(t, decision.Allowed)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, svc.ActiveIdentifiers())
}
