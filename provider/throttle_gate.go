package provider

import (
	"context"
	"time"
)

// ThrottleCounterKey is the shared counter tracking transfers believed to
// be in flight across all processes.
const ThrottleCounterKey = "offload:transfers:inflight"

// GateStore is the shared counter store behind the throttle gate.
// *infra.RedisClient satisfies it.
type GateStore interface {
	GetCounter(ctx context.Context, key string) (int, bool, error)
	SetCounter(ctx context.Context, key string, value int, ttl time.Duration) error
	DeleteCounter(ctx context.Context, key string) error
}

// ThrottleGate is a soft admission-control limiter for outbound transfers.
// The read-modify-write on the counter is not atomic, so the cap can be
// transiently exceeded under heavy concurrency; it is a brake on server
// load, not a lock. The counter's absolute TTL self-heals a counter
// stranded by a crashed caller.
type ThrottleGate struct {
	store GateStore
	max   int
	ttl   time.Duration
}

func NewThrottleGate(store GateStore, max int, ttl time.Duration) *ThrottleGate {
	if max <= 0 {
		max = 3
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ThrottleGate{store: store, max: max, ttl: ttl}
}

// Acquire admits the caller when fewer than max transfers are in flight.
// On a store failure the gate fails open and returns the error so the
// caller can log it.
func (g *ThrottleGate) Acquire(ctx context.Context) (bool, error) {
	count, _, err := g.store.GetCounter(ctx, ThrottleCounterKey)
	if err != nil {
		return true, err
	}
	if count >= g.max {
		return false, nil
	}
	if err := g.store.SetCounter(ctx, ThrottleCounterKey, count+1, g.ttl); err != nil {
		return true, err
	}
	return true, nil
}

// Release decrements the counter. Best-effort: a failed release is repaired
// by the TTL.
func (g *ThrottleGate) Release(ctx context.Context) {
	count, found, err := g.store.GetCounter(ctx, ThrottleCounterKey)
	if err != nil || !found {
		return
	}
	if count <= 1 {
		_ = g.store.DeleteCounter(ctx, ThrottleCounterKey)
		return
	}
	_ = g.store.SetCounter(ctx, ThrottleCounterKey, count-1, g.ttl)
}
