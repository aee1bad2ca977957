package services

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/mathpal-app/mathpal_api/dto"
	"github.com/mathpal-app/mathpal_api/shared"
)

// SlidingWindowService is the in-process burst limiter: per identifier it
// keeps the timestamps of requests inside a trailing window. Memory stays
// bounded by the set of identifiers active within the window; idle entries
// are dropped both opportunistically on admit and by a background sweep.
type SlidingWindowService struct {
	context.DefaultService

	mutex   sync.Mutex
	windows map[string][]time.Time

	windowSize  time.Duration
	maxRequests int

	// now is swappable so tests can advance the clock.
	now func() time.Time

	closed chan struct{}
}

const RATE_LIMIT_SVC = "rate_limit_svc"

// Chance of sweeping idle identifiers on any given admit call.
const compactionProbability = 0.01

const sweepInterval = 5 * time.Minute

func (svc SlidingWindowService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *SlidingWindowService) Configure(ctx *context.Context) error {
	svc.windows = make(map[string][]time.Time)
	svc.windowSize = shared.BurstWindowSize
	svc.maxRequests = shared.BurstMaxRequests
	svc.now = time.Now
	svc.closed = make(chan struct{})
	return svc.DefaultService.Configure(ctx)
}

func (svc *SlidingWindowService) Start() error {
	go svc.startSweepJob()
	return nil
}

func (svc *SlidingWindowService) Shutdown() {
	close(svc.closed)
}

// Admit records the request for the identifier if it fits in the window.
// On rejection RetryAfterSeconds reports how long until the oldest recorded
// request ages out.
func (svc *SlidingWindowService) Admit(identifier string) dto.WindowDecision {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	now := svc.now()
	cutoff := now.Add(-svc.windowSize)

	window := svc.windows[identifier]
	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if rand.Float64() < compactionProbability {
		svc.compactLocked(cutoff)
	}

	if len(kept) >= svc.maxRequests {
		svc.windows[identifier] = kept

		retryAfter := int(math.Ceil(kept[0].Add(svc.windowSize).Sub(now).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}

		return dto.WindowDecision{
			Allowed:           false,
			Remaining:         0,
			RetryAfterSeconds: retryAfter,
		}
	}

	kept = append(kept, now)
	svc.windows[identifier] = kept

	return dto.WindowDecision{
		Allowed:   true,
		Remaining: svc.maxRequests - len(kept),
	}
}

// ActiveIdentifiers reports the number of tracked windows, including ones
// that have gone idle but not yet been swept.
func (svc *SlidingWindowService) ActiveIdentifiers() int {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	return len(svc.windows)
}

func (svc *SlidingWindowService) compactLocked(cutoff time.Time) {
	for identifier, window := range svc.windows {
		live := false
		for _, ts := range window {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(svc.windows, identifier)
		}
	}
}

func (svc *SlidingWindowService) startSweepJob() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.mutex.Lock()
			before := len(svc.windows)
			svc.compactLocked(svc.now().Add(-svc.windowSize))
			swept := before - len(svc.windows)
			svc.mutex.Unlock()

			if swept > 0 {
				log.Printf("Rate limit sweep dropped %d idle identifiers", swept)
			}
		case <-svc.closed:
			return
		}
	}
}
