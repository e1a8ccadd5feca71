// Package ratelimit paces calls against the destination API.
package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/catalogsync/backend/internal/domain/integration"
)

// PacerStats contains counters about pacer usage.
type PacerStats struct {
	ItemWaits     int64
	Cooldowns     int64
	TotalWaitTime time.Duration
}

// TokenBucketPacer implements integration.Pacer.
// Item pacing uses a token bucket refilled every interval; the page cooldown
// is a plain context-aware sleep.
//
// Thread Safety: Safe for concurrent use.
type TokenBucketPacer struct {
	limiter  *rate.Limiter
	cooldown time.Duration
	sleep    func(ctx context.Context, d time.Duration) error

	itemWaits     atomic.Int64
	cooldowns     atomic.Int64
	totalWaitTime atomic.Int64 // in nanoseconds
}

// NewTokenBucketPacer creates a pacer releasing one item per interval with
// up to burst items back to back. A zero interval disables item pacing.
func NewTokenBucketPacer(interval time.Duration, burst int, cooldown time.Duration) *TokenBucketPacer {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &TokenBucketPacer{
		limiter:  rate.NewLimiter(limit, burst),
		cooldown: cooldown,
		sleep:    sleepContext,
	}
}

// Wait blocks until the bucket releases a token or ctx is done.
func (p *TokenBucketPacer) Wait(ctx context.Context) error {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	p.itemWaits.Add(1)
	p.totalWaitTime.Add(int64(time.Since(start)))
	return nil
}

// PageCooldown sleeps for the configured cooldown or until ctx is done.
func (p *TokenBucketPacer) PageCooldown(ctx context.Context) error {
	if p.cooldown <= 0 {
		return nil
	}
	start := time.Now()
	if err := p.sleep(ctx, p.cooldown); err != nil {
		return err
	}
	p.cooldowns.Add(1)
	p.totalWaitTime.Add(int64(time.Since(start)))
	return nil
}

// Stats returns current pacer counters.
func (p *TokenBucketPacer) Stats() PacerStats {
	return PacerStats{
		ItemWaits:     p.itemWaits.Load(),
		Cooldowns:     p.cooldowns.Load(),
		TotalWaitTime: time.Duration(p.totalWaitTime.Load()),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoopPacer never blocks. Used for dry runs and tests.
type NoopPacer struct{}

// Wait implements integration.Pacer
func (NoopPacer) Wait(ctx context.Context) error { return ctx.Err() }

// PageCooldown implements integration.Pacer
func (NoopPacer) PageCooldown(ctx context.Context) error { return ctx.Err() }

var (
	_ integration.Pacer = (*TokenBucketPacer)(nil)
	_ integration.Pacer = NoopPacer{}
)
