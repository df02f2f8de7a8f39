package ports

import "context"

// AttemptLimiter tracks failed attempts per key inside a sliding window.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// Cooldown gates repeated actions per key. Acquire reports false while the
// key is cooling down.
type Cooldown interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

// NopLimiter never throttles.
type NopLimiter struct{}

func (NopLimiter) Allow(context.Context, string) (bool, error)   { return true, nil }
func (NopLimiter) RecordFailure(context.Context, string) error   { return nil }
func (NopLimiter) Reset(context.Context, string) error           { return nil }
func (NopLimiter) Acquire(context.Context, string) (bool, error) { return true, nil }
