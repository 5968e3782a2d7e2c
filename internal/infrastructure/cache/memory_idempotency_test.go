package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(0)
	defer s.Close()

	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ok, err := s.Claim(ctx, "pi_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.Claim(ctx, "pi_1", time.Hour)
	assert.False(t, ok, "second claim within ttl is refused")

	now = now.Add(time.Hour)
	ok, _ = s.Claim(ctx, "pi_1", time.Hour)
	assert.True(t, ok, "expired claim can be taken again")
}

func TestMemoryIdempotencyStore_Cleanup(t *testing.T) {
	s := NewMemoryIdempotencyStore(0)
	defer s.Close()

	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	_, _ = s.Claim(context.Background(), "a", time.Minute)
	_, _ = s.Claim(context.Background(), "b", time.Hour)

	now = now.Add(30 * time.Minute)
	s.cleanup()
	assert.Equal(t, 1, s.Size())
}

func TestMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	s := NewMemoryIdempotencyStore(time.Millisecond)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
