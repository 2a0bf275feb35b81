package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// XRateLimiter adapts golang.org/x/time/rate's continuous-refill token
// bucket to the Limiter interface. DequeLimiter remains the default (see
// the package doc for its admission rule), but a continuously-refilling bucket is
// sometimes the better local fallback when call volume is steady rather
// than bursty: it smooths admission instead of releasing a full window's
// worth of calls the instant the oldest one ages out.
type XRateLimiter struct {
	limiter *rate.Limiter
}

// NewXRateLimiter builds an XRateLimiter admitting at most ratePerSecond
// calls per second on average, with burst as the maximum instantaneous
// admission size.
func NewXRateLimiter(ratePerSecond float64, burst int) *XRateLimiter {
	return &XRateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Admit implements Limiter.
func (x *XRateLimiter) Admit(ctx context.Context) error {
	return x.limiter.Wait(ctx)
}
