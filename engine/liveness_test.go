package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivenessInclusiveBoundary(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLiveness(StaleThreshold, "temp-1", "temp-2")

	l.Observe("temp-1", now.Add(-60*time.Second))
	l.Observe("temp-2", now.Add(-61*time.Second))

	assert.True(t, l.IsLive("temp-1", now), "60s old reading is online")
	assert.False(t, l.IsLive("temp-2", now), "61s old reading is offline")
}

func TestLivenessNeverObservedIsOffline(t *testing.T) {
	now := time.Now()
	l := NewLiveness(0, "fire")
	assert.False(t, l.IsLive("fire", now))
	assert.False(t, l.IsLive("unknown", now))
	assert.Empty(t, l.Tick(now))
	assert.False(t, l.Online("fire"))
}

func TestLivenessTickEmitsEdgesOnce(t *testing.T) {
	t0 := time.Unix(1000, 0)
	l := NewLiveness(StaleThreshold, "a", "b")
	l.Observe("a", t0)
	l.Observe("b", t0)

	edges := l.Tick(t0)
	require.Len(t, edges, 2)
	assert.Equal(t, "a", edges[0].SensorID)
	assert.True(t, edges[0].Online)

	assert.Empty(t, l.Tick(t0.Add(30*time.Second)))

	edges = l.Tick(t0.Add(61 * time.Second))
	require.Len(t, edges, 2)
	assert.False(t, edges[0].Online)
	assert.Equal(t, t0.Add(61*time.Second), edges[0].At)

	assert.Empty(t, l.Tick(t0.Add(120*time.Second)))
}

func TestLivenessLastWriteWins(t *testing.T) {
	t0 := time.Unix(1000, 0)
	l := NewLiveness(StaleThreshold, "a")
	l.Observe("a", t0)
	l.Observe("a", t0.Add(-time.Hour))

	got, ok := l.LastObserved("a")
	require.True(t, ok)
	assert.Equal(t, t0.Add(-time.Hour), got)
	assert.False(t, l.IsLive("a", t0))
}

func TestLivenessTrackOrder(t *testing.T) {
	l := NewLiveness(StaleThreshold, "b", "a")
	l.Track("a")
	l.Observe("c", time.Now())
	assert.Equal(t, []string{"b", "a", "c"}, l.IDs())
}
