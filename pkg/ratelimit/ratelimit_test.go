package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowRefills(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys are independent")

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestEvictRemovesIdleKeys(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	l := New(5, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(90 * time.Second)
	l.Allow("b")
	now = now.Add(time.Minute)
	l.evict()

	assert.NotContains(t, l.buckets, "a")
	assert.Contains(t, l.buckets, "b")
}
