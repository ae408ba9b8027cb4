package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Service names for rate limiting
	ServiceOverpass = "overpass"
	ServiceSearch   = "search"
	ServiceSpeech   = "speech"
)

// Limit describes the sustained rate and burst allowed for one service.
type Limit struct {
	Every time.Duration `yaml:"every"`
	Burst int           `yaml:"burst"`
}

// DefaultLimits returns the per-service limits used when none are configured.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		// Overpass: 2 requests per minute with bursts of up to 2 requests
		// https://wiki.openstreetmap.org/wiki/Overpass_API#Public_Overpass_API_instances
		ServiceOverpass: {Every: 30 * time.Second, Burst: 2},
		ServiceSearch:   {Every: time.Second, Burst: 1},
		ServiceSpeech:   {Every: 200 * time.Millisecond, Burst: 5},
	}
}

// RateLimiter manages rate limiting for the outbound API services
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewRateLimiter creates a limiter per configured service.
func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	rl := &RateLimiter{limiters: make(map[string]*rate.Limiter, len(limits))}
	for service, l := range limits {
		rl.Update(service, l)
	}
	return rl
}

// Update replaces the limiter for a service.
func (rl *RateLimiter) Update(service string, l Limit) {
	burst := l.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if l.Every > 0 {
		limit = rate.Every(l.Every)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiters[service] = rate.NewLimiter(limit, burst)
}

// Wait blocks until the rate limit for the specified service allows an event
// or the context is canceled.
func (rl *RateLimiter) Wait(ctx context.Context, service string) error {
	rl.mu.RLock()
	limiter, exists := rl.limiters[service]
	rl.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no rate limiter defined for service: %s", service)
	}

	if err := limiter.Wait(ctx); err != nil {
		slog.Debug("rate limiter wait error", "service", service, "error", err)
		return err
	}

	return nil
}
