package engine

import "golang.org/x/time/rate"

// limiterBurst is the token bucket burst for copy throttling. Copy
// chunks are capped to this size when a limiter is active so WaitN
// never asks for more than one burst.
const limiterBurst = 1 << 20

// NewBWLimiter creates a rate.Limiter capping aggregate copy throughput
// to bytesPerSec. Returns nil when bytesPerSec is zero (unlimited).
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := int64(limiterBurst)
	if bytesPerSec < burst {
		burst = bytesPerSec
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), int(burst))
}
