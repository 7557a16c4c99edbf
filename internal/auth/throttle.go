package auth

import (
	"time"

	"golang.org/x/time/rate"
)

// Throttle limits login attempts with a token bucket. The bucket is local to
// the process; with several instances each one throttles on its own.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows perMinute attempts on average with the given burst. A
// non-positive perMinute disables throttling.
func NewThrottle(perMinute, burst int) *Throttle {
	if perMinute <= 0 {
		return &Throttle{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)}
}

// Allow reports whether another attempt may proceed now.
func (t *Throttle) Allow() bool {
	if t == nil || t.limiter == nil {
		return true
	}
	return t.limiter.Allow()
}
