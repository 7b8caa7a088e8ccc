package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLimiterStore_EvictsIdleClients(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newLimiterStore(rate.Every(time.Second), 1)
	store.now = func() time.Time { return now }
	store.lastSweep = now

	first := store.get("10.0.0.1")
	store.get("10.0.0.2")
	assert.Len(t, store.visitors, 2)

	now = now.Add(limiterIdleTTL / 2)
	assert.Same(t, first, store.get("10.0.0.1"))

	now = now.Add(limiterIdleTTL / 2)
	store.get("10.0.0.3")

	assert.Len(t, store.visitors, 2)
	assert.Contains(t, store.visitors, "10.0.0.1")
	assert.Contains(t, store.visitors, "10.0.0.3")
	assert.NotContains(t, store.visitors, "10.0.0.2")
}
