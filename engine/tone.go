package engine

import (
	"io"
	"sync"
)

// Tone is the audible side effect of an alert activation.
type Tone interface {
	Play()
}

// BellTone writes the terminal bell to W.
type BellTone struct {
	mu sync.Mutex
	W  io.Writer
}

// Play rings the bell. Write errors are ignored.
func (b *BellTone) Play() {
	if b == nil || b.W == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = b.W.Write([]byte{'\a'})
}

// NopTone is silent.
type NopTone struct{}

func (NopTone) Play() {}

// CountingTone counts plays. Used by headless modes and tests.
type CountingTone struct {
	mu sync.Mutex
	n  int
}

func (c *CountingTone) Play() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

// Count returns how many times Play was called.
func (c *CountingTone) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
