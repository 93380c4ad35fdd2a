package retry

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum gap between outbound calls. One Pacer is built per
// set of API credentials at process start and shared by every job.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows one call per interval. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call may go out or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
