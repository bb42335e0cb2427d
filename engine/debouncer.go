package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/model"
)

// DefaultAlertDuration is how long an alert stays active when not dismissed.
const DefaultAlertDuration = 5 * time.Second

// Debouncer owns the lifecycle of the critical alert. It is Idle until a
// classification pass finds a critical sensor, then Active for a fixed
// duration. Criticals seen while Active are swallowed.
type Debouncer struct {
	mu         sync.Mutex
	clock      Clock
	duration   time.Duration
	tone       Tone
	log        *zap.Logger
	onClose    func(model.AlertEvent)
	active     *model.AlertEvent
	timer      Timer
	gen        uint64
	suppressed int
}

// NewDebouncer returns an idle debouncer. onClose, if set, runs after the
// alert leaves the active state, outside the debouncer lock.
func NewDebouncer(clock Clock, duration time.Duration, tone Tone, log *zap.Logger, onClose func(model.AlertEvent)) *Debouncer {
	if clock == nil {
		clock = RealClock{}
	}
	if duration <= 0 {
		duration = DefaultAlertDuration
	}
	if tone == nil {
		tone = NopTone{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Debouncer{clock: clock, duration: duration, tone: tone, log: log, onClose: onClose}
}

// Evaluate is called once per classification pass with the ids of critical
// sensors. It returns the new alert when this call activated one.
func (d *Debouncer) Evaluate(critical []string, message string) (model.AlertEvent, bool) {
	if len(critical) == 0 {
		return model.AlertEvent{}, false
	}

	d.mu.Lock()
	if d.active != nil {
		d.suppressed++
		n := d.suppressed
		d.mu.Unlock()
		d.log.Debug("alert suppressed while active",
			zap.Strings("sensors", critical),
			zap.Int("suppressed_total", n),
		)
		return model.AlertEvent{}, false
	}

	ev := model.AlertEvent{
		ID:          uuid.NewString(),
		Message:     message,
		Sensors:     append([]string(nil), critical...),
		TriggeredAt: d.clock.Now(),
		Active:      true,
	}
	d.active = &ev
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.duration, func() { d.expire(gen) })
	d.mu.Unlock()

	d.tone.Play()
	d.log.Info("alert activated", zap.String("id", ev.ID), zap.Strings("sensors", ev.Sensors))
	return ev, true
}

// Dismiss closes the active alert now. It reports whether one was active.
func (d *Debouncer) Dismiss() bool {
	d.mu.Lock()
	ev, ok := d.closeLocked(model.CloseDismissed)
	d.mu.Unlock()
	if ok {
		d.log.Info("alert dismissed", zap.String("id", ev.ID))
		d.closed(ev)
	}
	return ok
}

// Active returns a copy of the active alert.
func (d *Debouncer) Active() (model.AlertEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return model.AlertEvent{}, false
	}
	return cloneAlert(*d.active), true
}

// Suppressed returns how many criticals were swallowed while active.
func (d *Debouncer) Suppressed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suppressed
}

// Stop cancels the close timer without running onClose.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) expire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	ev, ok := d.closeLocked(model.CloseExpired)
	d.mu.Unlock()
	if ok {
		d.log.Debug("alert expired", zap.String("id", ev.ID))
		d.closed(ev)
	}
}

func (d *Debouncer) closeLocked(reason model.CloseReason) (model.AlertEvent, bool) {
	if d.active == nil {
		return model.AlertEvent{}, false
	}
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	ev := *d.active
	ev.Active = false
	ev.Reason = reason
	ev.ClosedAt = d.clock.Now()
	d.active = nil
	return ev, true
}

func (d *Debouncer) closed(ev model.AlertEvent) {
	if d.onClose != nil {
		d.onClose(ev)
	}
}

func cloneAlert(ev model.AlertEvent) model.AlertEvent {
	ev.Sensors = append([]string(nil), ev.Sensors...)
	return ev
}
