package upstream

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
	ServiceNominatim = "nominatim"
	ServiceAnalysis  = "analysis"
)

// RateLimiter manages rate limiting for the external services.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

var (
	globalRateLimiter *RateLimiter
	rateLimiterOnce   sync.Once
)

// GetRateLimiter returns the global rate limiter instance.
func GetRateLimiter() *RateLimiter {
	rateLimiterOnce.Do(func() {
		limiters := make(map[string]*rate.Limiter)

		// Nominatim: 1 request per second
		// https://operations.osmfoundation.org/policies/nominatim/
		limiters[ServiceNominatim] = rate.NewLimiter(rate.Every(1*time.Second), 1)

		// The analysis backend runs minute-long raster jobs per request;
		// one concurrent kickoff per second is plenty.
		limiters[ServiceAnalysis] = rate.NewLimiter(rate.Every(1*time.Second), 1)

		globalRateLimiter = &RateLimiter{limiters: limiters}
	})
	return globalRateLimiter
}

// Update replaces the limiter for a service, e.g. when pointing at a
// self-hosted Nominatim with laxer policies.
func (rl *RateLimiter) Update(service string, rps float64, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiters[service] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the rate limit for the specified service allows an
// event or the context is canceled.
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

// WaitForService waits for a service's rate limit using the global limiter.
func WaitForService(ctx context.Context, service string) error {
	return GetRateLimiter().Wait(ctx, service)
}
