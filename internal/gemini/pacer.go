package gemini

import (
	"context"
	"sync"
	"time"
)

// pacer enforces one sequential emission stream with a minimum spacing of
// 60s / requests-per-minute between request starts. Provider rate limits
// are per-account, so pacing is deliberately stricter than a token bucket:
// no burst is ever allowed.
type pacer struct {
	mu              sync.Mutex
	delay           time.Duration
	lastRequestTime time.Time

	totalWaited   time.Duration
	totalConsumed int64
}

// PacerStatus reports current pacer state.
type PacerStatus struct {
	Delay         time.Duration `json:"delay"`
	TotalConsumed int64         `json:"total_consumed"`
	TotalWaited   time.Duration `json:"total_waited"`
}

func newPacer(requestsPerMinute int) *pacer {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	return &pacer{
		delay: time.Duration(float64(time.Minute) / float64(requestsPerMinute)),
	}
}

// Wait blocks until the spacing requirement is met or the context is
// cancelled. The lock is held across the sleep: callers form a queue, which
// is exactly the sequential-stream guarantee.
func (p *pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastRequestTime.IsZero() {
		elapsed := time.Since(p.lastRequestTime)
		if wait := p.delay - elapsed; wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				p.totalWaited += wait
			}
		}
	}

	p.lastRequestTime = time.Now()
	p.totalConsumed++
	return nil
}

// SetRate updates the spacing. Safe to call mid-run (config hot-reload).
func (p *pacer) SetRate(requestsPerMinute int) {
	if requestsPerMinute <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = time.Duration(float64(time.Minute) / float64(requestsPerMinute))
}

// Status returns current pacer statistics.
func (p *pacer) Status() PacerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PacerStatus{
		Delay:         p.delay,
		TotalConsumed: p.totalConsumed,
		TotalWaited:   p.totalWaited,
	}
}
