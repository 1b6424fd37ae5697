package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateStore is an in-memory GateStore with a controllable clock so TTL
// expiry can be tested without sleeping.
type fakeGateStore struct {
	value     int
	expiresAt time.Time
	now       time.Time

	getErr error
	setErr error
}

func newFakeGateStore() *fakeGateStore {
	return &fakeGateStore{now: time.Unix(1700000000, 0)}
}

func (s *fakeGateStore) GetCounter(ctx context.Context, key string) (int, bool, error) {
	if s.getErr != nil {
		return 0, false, s.getErr
	}
	if s.expiresAt.IsZero() || !s.now.Before(s.expiresAt) {
		return 0, false, nil
	}
	return s.value, true, nil
}

func (s *fakeGateStore) SetCounter(ctx context.Context, key string, value int, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.value = value
	s.expiresAt = s.now.Add(ttl)
	return nil
}

func (s *fakeGateStore) DeleteCounter(ctx context.Context, key string) error {
	s.value = 0
	s.expiresAt = time.Time{}
	return nil
}

func TestThrottleGateAdmitsUpToMax(t *testing.T) {
	ctx := context.Background()
	store := newFakeGateStore()
	gate := NewThrottleGate(store, 3, 5*time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := gate.Acquire(ctx)
		require.NoError(t, err)
		require.True(t, ok, "acquire %d of 3", i+1)
	}

	ok, err := gate.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fourth acquire must be denied")
}

func TestThrottleGateReleaseReadmits(t *testing.T) {
	ctx := context.Background()
	store := newFakeGateStore()
	gate := NewThrottleGate(store, 1, 5*time.Minute)

	ok, err := gate.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = gate.Acquire(ctx)
	require.False(t, ok)

	gate.Release(ctx)

	ok, err = gate.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestThrottleGateTTLSelfHeals(t *testing.T) {
	ctx := context.Background()
	store := newFakeGateStore()
	gate := NewThrottleGate(store, 1, time.Minute)

	ok, err := gate.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	// The holder crashes without releasing.

	ok, _ = gate.Acquire(ctx)
	require.False(t, ok)

	store.now = store.now.Add(2 * time.Minute)

	ok, err = gate.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "expired counter must not block new transfers")
}

func TestThrottleGateFailsOpenOnStoreError(t *testing.T) {
	ctx := context.Background()
	store := newFakeGateStore()
	gate := NewThrottleGate(store, 3, time.Minute)

	store.getErr = errors.New("redis: connection refused")
	ok, err := gate.Acquire(ctx)
	assert.True(t, ok, "unavailable store must not block transfers")
	assert.Error(t, err)

	store.getErr = nil
	store.setErr = errors.New("redis: connection refused")
	ok, err = gate.Acquire(ctx)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestThrottleGateDefaults(t *testing.T) {
	gate := NewThrottleGate(newFakeGateStore(), 0, 0)
	assert.Equal(t, 3, gate.max)
	assert.Equal(t, 5*time.Minute, gate.ttl)
}
