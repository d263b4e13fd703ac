package politeness

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Pacer staggers successive requests from this process: each Wait sleeps a
// fixed minimum interval derived from a requests-per-second ceiling, plus a
// random jitter drawn from [jitterMin, jitterMax], so traffic is never bursty.
type Pacer struct {
	base      time.Duration
	jitterMin time.Duration
	jitterMax time.Duration
}

// NewPacer creates a pacer for the given requests-per-second ceiling.
// rps is floored at 0.5 so a misconfigured zero cannot stall forever.
func NewPacer(rps float64, jitterMin, jitterMax time.Duration) *Pacer {
	if rps < 0.5 {
		rps = 0.5
	}
	if jitterMax < jitterMin {
		jitterMax = jitterMin
	}
	return &Pacer{
		base:      time.Duration(float64(time.Second) / rps),
		jitterMin: jitterMin,
		jitterMax: jitterMax,
	}
}

// Wait suspends the caller for the pacing delay, or returns early with the
// context error if ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	delay := p.base + p.jitter()
	select {
	case <-ctx.Done():
		return fmt.Errorf("pacing wait: %w", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

func (p *Pacer) jitter() time.Duration {
	span := p.jitterMax - p.jitterMin
	if span <= 0 {
		return p.jitterMin
	}
	return p.jitterMin + time.Duration(rand.Int64N(int64(span)))
}
