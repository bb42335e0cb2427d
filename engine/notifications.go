package engine

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/ftahirops/sensetop/model"
)

// DefaultNotificationCap bounds the notification panel.
const DefaultNotificationCap = 50

// Notifications is a bounded ring of panel entries, read newest first.
type Notifications struct {
	buf  []model.Notification
	head int
	size int
	cap  int
	mu   sync.RWMutex
}

// NewNotifications creates a ring with the given capacity.
func NewNotifications(capacity int) *Notifications {
	if capacity <= 0 {
		capacity = DefaultNotificationCap
	}
	return &Notifications{buf: make([]model.Notification, capacity), cap: capacity}
}

// Add appends an entry, evicting the oldest when full.
func (n *Notifications) Add(msg string, level model.StatusLevel, at time.Time) model.Notification {
	entry := model.Notification{ID: uuid.NewString(), Message: msg, Level: level, Time: at}
	n.Push(entry)
	return entry
}

// Push stores a pre-built entry.
func (n *Notifications) Push(entry model.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.buf[n.head] = entry
	n.head = (n.head + 1) % n.cap
	if n.size < n.cap {
		n.size++
	}
}

// All returns a copy of the entries, newest first.
func (n *Notifications) All() []model.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]model.Notification, 0, n.size)
	for i := 0; i < n.size; i++ {
		idx := (n.head - 1 - i + 2*n.cap) % n.cap
		out = append(out, n.buf[idx])
	}
	return out
}

// Len returns the number of stored entries.
func (n *Notifications) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.size
}

// Clear empties the ring.
func (n *Notifications) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.buf = make([]model.Notification, n.cap)
	n.head = 0
	n.size = 0
}

// Age renders how long ago the entry was raised, e.g. "2 minutes ago".
func Age(entry model.Notification, now time.Time) string {
	return humanize.RelTime(entry.Time, now, "ago", "from now")
}
