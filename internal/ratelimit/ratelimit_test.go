package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedRateLimiterAllow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			rl.now = func() time.Time { return fixed }

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("user-1") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiterKeysIndependent(t *testing.T) {
	rl := New(1, 1)
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestKeyedRateLimiterRefills(t *testing.T) {
	rl := New(1, 1)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestKeyedRateLimiterPrune(t *testing.T) {
	rl := New(1, 1)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(time.Hour)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.Prune(30*time.Minute))
	assert.Equal(t, 1, rl.Len())
}
