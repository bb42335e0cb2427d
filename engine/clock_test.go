package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClockFiresInOrder(t *testing.T) {
	c := NewManualClock(testEpoch)
	var order []int
	c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	c.AfterFunc(time.Second, func() { order = append(order, 1) })
	stopped := c.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(3 * time.Second)
	assert.Equal(t, []int{1, 3}, order)
	assert.Equal(t, testEpoch.Add(3*time.Second), c.Now())
	assert.Equal(t, 0, c.Pending())
}

func TestManualClockRearmInsideAdvance(t *testing.T) {
	c := NewManualClock(testEpoch)
	fires := 0
	var tick func()
	tick = func() {
		fires++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(5 * time.Second)
	assert.Equal(t, 5, fires)
	assert.Equal(t, 1, c.Pending())
}
