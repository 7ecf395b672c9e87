// Package resilience provides retry with backoff for upstream fetches that are
// allowed to retry, such as layer metadata loading.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff controls retry attempts and the delay between them.
type Backoff struct {
	// Attempts is the total number of tries, including the first. Default: 3.
	Attempts int
	// Initial is the delay before the first retry. Default: 250ms.
	Initial time.Duration
	// Max caps the delay. Default: 10s.
	Max time.Duration
	// Jitter is the fraction of the delay randomised in either direction.
	Jitter float64
	// Name labels retry log lines.
	Name string
}

// DefaultBackoff returns the backoff used for metadata loading.
func DefaultBackoff(name string) Backoff {
	return Backoff{
		Attempts: 3,
		Initial:  250 * time.Millisecond,
		Max:      10 * time.Second,
		Jitter:   0.2,
		Name:     name,
	}
}

func (b Backoff) normalized() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Initial <= 0 {
		b.Initial = 250 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 10 * time.Second
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	return b
}

// delay returns the sleep before retry number n (0-based).
func (b Backoff) delay(n int) time.Duration {
	d := float64(b.Initial) * math.Pow(2, float64(n))
	d = math.Min(d, float64(b.Max))
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	return time.Duration(math.Max(d, 0))
}

// Retry calls fn until it succeeds, returns a non-transient error, the
// attempts run out, or ctx is done. The last error is returned.
func Retry[T any](ctx context.Context, b Backoff, fn func(ctx context.Context) (T, error)) (T, error) {
	b = b.normalized()

	var zero T
	var lastErr error
	for attempt := range b.Attempts {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == b.Attempts-1 {
			break
		}

		zap.L().Warn("retrying",
			zap.String("operation", b.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}
