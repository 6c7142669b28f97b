package oracle

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// adaptiveLimiter is a token bucket that halves its rate after a 429 and
// recovers by 20% per success, never above the configured rate or below a
// quarter of it.
type adaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	max     rate.Limit
	min     rate.Limit
	current rate.Limit
}

func newAdaptiveLimiter(perSecond rate.Limit, burst int) *adaptiveLimiter {
	if burst < 1 {
		burst = 1
	}
	return &adaptiveLimiter{
		limiter: rate.NewLimiter(perSecond, burst),
		max:     perSecond,
		min:     perSecond / 4,
		current: perSecond,
	}
}

func (a *adaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *adaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current >= a.max {
		return
	}
	a.current = min(a.current*1.2, a.max)
	a.limiter.SetLimit(a.current)
}

func (a *adaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = max(a.current*0.5, a.min)
	a.limiter.SetLimit(a.current)
	zap.L().Warn("oracle: rate limited, slowing down",
		zap.Float64("requests_per_second", float64(a.current)),
	)
}

func (a *adaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}
