package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	clock := time.Unix(0, 0)
	rl := NewRateLimiter(2, 3)
	rl.now = func() time.Time { return clock }
	rl.lastRefill = clock

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(), "burst request %d", i)
	}
	assert.False(t, rl.Allow())

	clock = clock.Add(500 * time.Millisecond)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	clock = clock.Add(10 * time.Second)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow())
	}
	assert.False(t, rl.Allow())
}
