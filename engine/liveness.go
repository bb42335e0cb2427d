package engine

import "time"

// StaleThreshold is the maximum reading age for a sensor to count as online.
const StaleThreshold = 60 * time.Second

// Transition is an online/offline edge for one sensor.
type Transition struct {
	SensorID string
	Online   bool
	At       time.Time
}

// Liveness tracks the last observation time per sensor and derives
// online/offline state on each Tick. It is not safe for concurrent use;
// the Engine serializes access.
type Liveness struct {
	threshold time.Duration
	order     []string
	last      map[string]time.Time
	online    map[string]bool
}

// NewLiveness tracks ids, all offline until observed.
func NewLiveness(threshold time.Duration, ids ...string) *Liveness {
	if threshold <= 0 {
		threshold = StaleThreshold
	}
	l := &Liveness{
		threshold: threshold,
		last:      make(map[string]time.Time),
		online:    make(map[string]bool),
	}
	for _, id := range ids {
		l.Track(id)
	}
	return l
}

// Track starts tracking id. Tracking an id twice is a no-op.
func (l *Liveness) Track(id string) {
	if _, ok := l.online[id]; ok {
		return
	}
	l.order = append(l.order, id)
	l.online[id] = false
}

// Observe records a reading time for id. The newest applied reading wins,
// even if its timestamp is older than the previous one.
func (l *Liveness) Observe(id string, at time.Time) {
	l.Track(id)
	l.last[id] = at
}

// LastObserved returns the recorded observation time for id.
func (l *Liveness) LastObserved(id string) (time.Time, bool) {
	t, ok := l.last[id]
	return t, ok
}

// IsLive reports whether id has a reading no older than the threshold at now.
func (l *Liveness) IsLive(id string, now time.Time) bool {
	last, ok := l.last[id]
	if !ok || last.IsZero() {
		return false
	}
	return now.Sub(last) <= l.threshold
}

// Tick recomputes every tracked sensor and returns the edges, in tracking order.
func (l *Liveness) Tick(now time.Time) []Transition {
	var edges []Transition
	for _, id := range l.order {
		live := l.IsLive(id, now)
		if live != l.online[id] {
			l.online[id] = live
			edges = append(edges, Transition{SensorID: id, Online: live, At: now})
		}
	}
	return edges
}

// Online returns the state computed at the last Tick.
func (l *Liveness) Online(id string) bool {
	return l.online[id]
}

// IDs returns tracked sensor ids in tracking order.
func (l *Liveness) IDs() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}
