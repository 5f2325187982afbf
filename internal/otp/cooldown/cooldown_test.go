package cooldown

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewMemory()
	g.now = func() time.Time { return now }

	ok, err := g.Claim(ctx, "rec-1", 45*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.Claim(ctx, "rec-1", 45*time.Second)
	assert.False(t, ok, "live claim blocks")

	ok, _ = g.Claim(ctx, "rec-2", 45*time.Second)
	assert.True(t, ok, "keys are independent")

	now = now.Add(46 * time.Second)
	ok, _ = g.Claim(ctx, "rec-1", 45*time.Second)
	assert.True(t, ok, "expired claim is reclaimable")

	require.NoError(t, g.Release(ctx, "rec-1"))
	ok, _ = g.Claim(ctx, "rec-1", 45*time.Second)
	assert.True(t, ok, "released claim is reclaimable")
}

func TestMemoryGateConcurrentClaims(t *testing.T) {
	g := NewMemory()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.Claim(context.Background(), "rec", time.Minute); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestNoop(t *testing.T) {
	ok, err := Noop{}.Claim(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
