package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// EndpointLimiter throttles outgoing calls per upstream endpoint so a burst of
// keystrokes across many sessions cannot flood the flight API.
type EndpointLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	defaults Config
}

type Config struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		BurstSize:         20,
	}
}

func NewEndpointLimiter(cfg Config) *EndpointLimiter {
	if cfg.RequestsPerSecond <= 0 || cfg.BurstSize <= 0 {
		cfg = DefaultConfig()
	}
	return &EndpointLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: cfg,
	}
}

func (l *EndpointLimiter) limiter(endpoint string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[endpoint]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok = l.limiters[endpoint]; ok {
		return lim
	}
	lim = rate.NewLimiter(rate.Limit(l.defaults.RequestsPerSecond), l.defaults.BurstSize)
	l.limiters[endpoint] = lim
	return lim
}

func (l *EndpointLimiter) SetLimit(endpoint string, rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limiters[endpoint] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the endpoint has budget or ctx is done.
func (l *EndpointLimiter) Wait(ctx context.Context, endpoint string) error {
	return l.limiter(endpoint).Wait(ctx)
}
