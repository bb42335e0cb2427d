package engine

import (
	"sync"
	"time"

	"github.com/ftahirops/sensetop/model"
)

// DefaultHistoryCap is the number of applied reading sets kept for trends.
const DefaultHistoryCap = 300

// History is a ring buffer of applied reading sets for the trend charts.
type History struct {
	buf  []*model.ReadingSet
	head int
	size int
	cap  int
	mu   sync.RWMutex
}

// NewHistory creates a ring buffer with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{
		buf: make([]*model.ReadingSet, capacity),
		cap: capacity,
	}
}

// Push adds a copy of rs to the ring buffer.
func (h *History) Push(rs *model.ReadingSet) {
	if rs == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.head] = rs.Clone()
	h.head = (h.head + 1) % h.cap
	if h.size < h.cap {
		h.size++
	}
}

// Len returns the number of sets stored.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Latest returns a copy of the most recent set.
func (h *History) Latest() *model.ReadingSet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return nil
	}
	idx := (h.head - 1 + h.cap) % h.cap
	return h.buf[idx].Clone()
}

// Get returns a copy of the set at position i (0 = oldest in buffer).
func (h *History) Get(i int) *model.ReadingSet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= h.size {
		return nil
	}
	return h.at(i).Clone()
}

// Series returns the values recorded for sensorID, oldest first. Sets
// without that sensor are skipped.
func (h *History) Series(sensorID string) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]float64, 0, h.size)
	for i := 0; i < h.size; i++ {
		if r, ok := h.at(i).Get(sensorID); ok {
			out = append(out, r.Value)
		}
	}
	return out
}

// Times returns the fetch time of every stored set, oldest first.
func (h *History) Times() []time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]time.Time, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.at(i).FetchedAt)
	}
	return out
}

func (h *History) at(i int) *model.ReadingSet {
	return h.buf[(h.head-h.size+i+h.cap)%h.cap]
}
