package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXRateLimiter_AdmitsWithinBurst(t *testing.T) {
	l := NewXRateLimiter(10, 3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Admit(ctx))
	}
}

func TestXRateLimiter_BlocksBeyondBurstUntilRefill(t *testing.T) {
	l := NewXRateLimiter(100, 1)
	ctx := context.Background()
	require.NoError(t, l.Admit(ctx))

	start := time.Now()
	require.NoError(t, l.Admit(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestXRateLimiter_RespectsContextCancellation(t *testing.T) {
	l := NewXRateLimiter(1, 1)
	ctx := context.Background()
	require.NoError(t, l.Admit(ctx))

	cancelCtx, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
	defer cancel()
	err := l.Admit(cancelCtx)
	assert.Error(t, err)
}
