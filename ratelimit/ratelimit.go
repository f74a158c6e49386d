// Package ratelimit implements per-category token-bucket limiting for
// outbound API calls. Each category refills continuously at its own
// steady rate, so bursts are granted immediately up to capacity and
// then throttled without starving other categories.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Category names an API quota class with its own independent bucket.
type Category string

const (
	// CategoryCatalog covers catalog item lookups (product names).
	CategoryCatalog Category = "catalog"
	// CategoryPricing covers competing-offer lookups.
	CategoryPricing Category = "pricing"
)

// BucketConfig defines the steady refill rate and burst capacity for
// one category.
type BucketConfig struct {
	RatePerSecond float64
	Burst         int
}

type bucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

// Limiter governs request rate per category. Buckets are fully
// independent; Acquire on one category never delays another.
type Limiter struct {
	buckets map[Category]*bucket
	now     func() time.Time
}

// NewLimiter builds a limiter from per-category configuration.
func NewLimiter(configs map[Category]BucketConfig) (*Limiter, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("ratelimit: no categories configured")
	}

	buckets := make(map[Category]*bucket, len(configs))
	now := time.Now()
	for category, cfg := range configs {
		if cfg.RatePerSecond <= 0 {
			return nil, fmt.Errorf("ratelimit: category %q rate must be positive", category)
		}
		if cfg.Burst < 1 {
			return nil, fmt.Errorf("ratelimit: category %q burst must be at least 1", category)
		}
		buckets[category] = &bucket{
			rate:   cfg.RatePerSecond,
			burst:  float64(cfg.Burst),
			tokens: float64(cfg.Burst),
			last:   now,
		}
	}

	return &Limiter{
		buckets: buckets,
		now:     time.Now,
	}, nil
}

// Acquire blocks until a token for category is available, then
// consumes it. It returns early only when ctx is done, and never
// consumes a token it could not grant. Fairness between concurrent
// callers is not guaranteed.
func (l *Limiter) Acquire(ctx context.Context, category Category) error {
	b, ok := l.buckets[category]
	if !ok {
		return fmt.Errorf("ratelimit: unknown category %q", category)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, granted := b.take(l.now())
		if granted {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take refills the bucket from the elapsed wall time and either
// consumes a token or reports how long the caller should wait before
// trying again. Refill is fractional; time.Time carries a monotonic
// reading so suspend/clock-step artifacts do not inflate the balance.
func (b *bucket) take(now time.Time) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.burst, b.tokens+elapsed*b.rate)
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}

	wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
	return wait, false
}
