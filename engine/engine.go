package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/model"
)

// livenessTick is the fixed cadence of the liveness recomputation.
const livenessTick = time.Second

// Options configures an Engine. Zero values get defaults.
type Options struct {
	Sensors         []model.Sensor
	Fetch           FetchFunc
	IntervalSeconds int
	AlertDuration   time.Duration
	StaleThreshold  time.Duration
	FetchTimeout    time.Duration
	HistorySize     int
	NotificationCap int

	Clock    Clock
	Logger   *zap.Logger
	Tone     Tone
	Notifier *Notifier
}

// Engine composes the scheduler, liveness, classifier and alert debouncer.
// All state changes happen under mu, from a timer or fetch callback;
// subscribers are called afterwards with a copy of the view.
type Engine struct {
	mu      sync.Mutex
	clock   Clock
	log     *zap.Logger
	sensors []model.Sensor
	index   map[string]model.Sensor

	sched    *Scheduler
	live     *Liveness
	deb      *Debouncer
	history  *History
	notes    *Notifications
	notifier *Notifier

	latest     map[string]model.SensorReading
	everOnline map[string]bool
	lastUpdate time.Time
	lastSeq    uint64
	fetchErrs  int
	lastErr    string
	loading    bool

	liveTimer Timer
	liveGen   uint64
	started   bool
	stopped   bool
	stopOnce  sync.Once

	subMu     sync.Mutex
	nextSub   int
	viewSubs  map[int]func(model.View)
	transSubs []func(Transition)
	alertSubs []func(model.AlertEvent)
}

// New builds an idle engine. Call Start to begin fetching.
func New(opts Options) (*Engine, error) {
	if len(opts.Sensors) == 0 {
		return nil, errors.New("engine: no sensors configured")
	}
	if opts.Fetch == nil {
		return nil, errors.New("engine: nil fetch func")
	}
	if opts.IntervalSeconds == 0 {
		opts.IntervalSeconds = RefreshIntervals[0]
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	e := &Engine{
		clock:      opts.Clock,
		log:        opts.Logger,
		sensors:    append([]model.Sensor(nil), opts.Sensors...),
		index:      make(map[string]model.Sensor, len(opts.Sensors)),
		history:    NewHistory(opts.HistorySize),
		notes:      NewNotifications(opts.NotificationCap),
		notifier:   opts.Notifier,
		latest:     make(map[string]model.SensorReading),
		everOnline: make(map[string]bool),
		viewSubs:   make(map[int]func(model.View)),
	}
	ids := make([]string, 0, len(opts.Sensors))
	for _, s := range opts.Sensors {
		if _, dup := e.index[s.ID]; dup {
			return nil, fmt.Errorf("engine: duplicate sensor id %q", s.ID)
		}
		e.index[s.ID] = s
		ids = append(ids, s.ID)
	}
	e.live = NewLiveness(opts.StaleThreshold, ids...)
	e.deb = NewDebouncer(opts.Clock, opts.AlertDuration, opts.Tone, opts.Logger, e.alertClosed)

	sched, err := NewScheduler(RefreshConfig{IntervalSeconds: opts.IntervalSeconds}, opts.Fetch, SchedulerOptions{
		Clock:        opts.Clock,
		Logger:       opts.Logger,
		FetchTimeout: opts.FetchTimeout,
		OnResult:     e.apply,
		OnIssue:      e.fetchIssued,
	})
	if err != nil {
		return nil, err
	}
	e.sched = sched
	return e, nil
}

// Start issues the first fetch and starts the periodic and liveness timers.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.armLivenessLocked()
	e.mu.Unlock()

	e.log.Info("engine started",
		zap.Int("sensors", len(e.sensors)),
		zap.Int("interval_sec", e.sched.Interval()),
	)
	return e.sched.Start(ctx)
}

// Stop cancels every timer. Fetches still running are not cancelled but
// their results are discarded. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.stopped = true
		e.liveGen++
		if e.liveTimer != nil {
			e.liveTimer.Stop()
			e.liveTimer = nil
		}
		e.mu.Unlock()
		e.sched.Stop()
		e.deb.Stop()
		e.log.Info("engine stopped")
	})
}

// SetInterval changes the refresh period. See Scheduler.SetInterval.
func (e *Engine) SetInterval(sec int) error {
	if err := e.sched.SetInterval(sec); err != nil {
		return err
	}
	e.publish(e.View())
	return nil
}

// Interval returns the refresh period in seconds.
func (e *Engine) Interval() int { return e.sched.Interval() }

// RefreshNow issues an out-of-band fetch.
func (e *Engine) RefreshNow() { e.sched.RefreshNow() }

// DismissAlert closes the active alert. It reports whether one was active.
func (e *Engine) DismissAlert() bool {
	return e.deb.Dismiss()
}

// ClearNotifications empties the notification panel.
func (e *Engine) ClearNotifications() {
	e.notes.Clear()
	e.publish(e.View())
}

// Notifications returns the panel entries, newest first.
func (e *Engine) Notifications() []model.Notification {
	return e.notes.All()
}

// PushNotification adds a pre-built entry, e.g. one loaded from the alert log.
func (e *Engine) PushNotification(n model.Notification) {
	e.notes.Push(n)
}

// History returns the trend buffer.
func (e *Engine) History() *History { return e.history }

// Sensors returns the sensor catalogue.
func (e *Engine) Sensors() []model.Sensor {
	return append([]model.Sensor(nil), e.sensors...)
}

// View returns a consistent copy of the current state.
func (e *Engine) View() model.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// Subscribe registers fn for every state change. The returned func removes it.
func (e *Engine) Subscribe(fn func(model.View)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.viewSubs[id] = fn
	return func() {
		e.subMu.Lock()
		delete(e.viewSubs, id)
		e.subMu.Unlock()
	}
}

// OnTransition registers fn for every online/offline edge.
func (e *Engine) OnTransition(fn func(Transition)) {
	e.subMu.Lock()
	e.transSubs = append(e.transSubs, fn)
	e.subMu.Unlock()
}

// OnAlert registers fn for alert activation (Active true) and close.
func (e *Engine) OnAlert(fn func(model.AlertEvent)) {
	e.subMu.Lock()
	e.alertSubs = append(e.alertSubs, fn)
	e.subMu.Unlock()
}

func (e *Engine) fetchIssued(kind FetchKind) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.loading = true
	v := e.viewLocked()
	e.mu.Unlock()
	e.log.Debug("fetch issued", zap.String("kind", kind.String()))
	e.publish(v)
}

// apply folds a completed fetch into the state. Results are applied in
// completion order, so an older fetch finishing late wins.
func (e *Engine) apply(res FetchResult) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	// a fetch may have been issued since res was completed
	e.loading = e.sched.Loading()
	if res.Err != nil {
		e.fetchErrs++
		e.lastErr = res.Err.Error()
		v := e.viewLocked()
		e.mu.Unlock()
		e.publish(v)
		return
	}

	if res.Seq < e.lastSeq {
		e.log.Debug("applying out-of-order fetch result",
			zap.Uint64("seq", res.Seq),
			zap.Uint64("newest_applied", e.lastSeq),
		)
	} else {
		e.lastSeq = res.Seq
	}
	for _, r := range res.Set.Readings {
		if _, ok := e.index[r.SensorID]; !ok {
			continue
		}
		e.latest[r.SensorID] = r
		e.live.Observe(r.SensorID, r.ObservedAt)
	}
	e.history.Push(res.Set)
	e.lastUpdate = res.CompletedAt
	e.lastErr = ""

	now := e.clock.Now()
	edges := e.live.Tick(now)
	e.noteTransitionsLocked(edges)

	critical, labels := e.criticalLocked()
	ev, activated := e.deb.Evaluate(critical, alertMessage(labels))
	if activated {
		e.notes.Add(ev.Message, model.StatusCritical, ev.TriggeredAt)
	}
	v := e.viewLocked()
	e.mu.Unlock()

	e.fireTransitions(edges)
	if activated {
		e.notifier.Notify("alert", ev)
		e.fireAlert(ev)
	}
	e.publish(v)
}

func (e *Engine) alertClosed(ev model.AlertEvent) {
	e.mu.Lock()
	stopped := e.stopped
	var v model.View
	if !stopped {
		v = e.viewLocked()
	}
	e.mu.Unlock()
	if stopped {
		return
	}
	e.fireAlert(ev)
	e.publish(v)
}

func (e *Engine) armLivenessLocked() {
	e.liveGen++
	gen := e.liveGen
	e.liveTimer = e.clock.AfterFunc(livenessTick, func() { e.livenessTick(gen) })
}

func (e *Engine) livenessTick(gen uint64) {
	e.mu.Lock()
	if e.stopped || gen != e.liveGen {
		e.mu.Unlock()
		return
	}
	e.armLivenessLocked()
	edges := e.live.Tick(e.clock.Now())
	if len(edges) == 0 {
		e.mu.Unlock()
		return
	}
	e.noteTransitionsLocked(edges)
	v := e.viewLocked()
	e.mu.Unlock()

	e.fireTransitions(edges)
	e.publish(v)
}

// noteTransitionsLocked adds a panel entry for every offline edge, and for
// recoveries of sensors that were online before.
func (e *Engine) noteTransitionsLocked(edges []Transition) {
	for _, t := range edges {
		label := e.index[t.SensorID].Label
		if t.Online {
			if e.everOnline[t.SensorID] {
				e.notes.Add(label+" is back online", model.StatusNormal, t.At)
			}
			e.everOnline[t.SensorID] = true
			e.log.Info("sensor online", zap.String("sensor", t.SensorID))
			continue
		}
		e.notes.Add(label+" went offline", model.StatusOffline, t.At)
		e.log.Warn("sensor offline", zap.String("sensor", t.SensorID))
	}
}

func (e *Engine) criticalLocked() (ids, labels []string) {
	for _, s := range e.sensors {
		r, ok := e.latest[s.ID]
		if !ok {
			continue
		}
		if Classify(s.Metric, r.Value, e.live.Online(s.ID)) == model.StatusCritical {
			ids = append(ids, s.ID)
			labels = append(labels, s.Label)
		}
	}
	return ids, labels
}

func alertMessage(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0] + " is critical"
	}
	return strings.Join(labels, ", ") + " are critical"
}

func (e *Engine) viewLocked() model.View {
	v := model.View{
		Sensors:         make([]model.SensorView, 0, len(e.sensors)),
		Loading:         e.loading,
		LastUpdate:      e.lastUpdate,
		IntervalSeconds: e.sched.Interval(),
		FetchErrors:     e.fetchErrs,
		LastError:       e.lastErr,
		Suppressed:      e.deb.Suppressed(),
	}
	for _, s := range e.sensors {
		sv := model.SensorView{Sensor: s, Online: e.live.Online(s.ID)}
		if r, ok := e.latest[s.ID]; ok {
			sv.Reading = r
			sv.HasReading = true
		}
		sv.Status = Classify(s.Metric, sv.Reading.Value, sv.Online)
		v.Sensors = append(v.Sensors, sv)
	}
	if ev, ok := e.deb.Active(); ok {
		v.Alert = &ev
	}
	return v
}

func (e *Engine) publish(v model.View) {
	e.subMu.Lock()
	subs := make([]func(model.View), 0, len(e.viewSubs))
	for _, fn := range e.viewSubs {
		subs = append(subs, fn)
	}
	e.subMu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

func (e *Engine) fireTransitions(edges []Transition) {
	if len(edges) == 0 {
		return
	}
	e.subMu.Lock()
	subs := append([]func(Transition){}, e.transSubs...)
	e.subMu.Unlock()
	for _, t := range edges {
		for _, fn := range subs {
			fn(t)
		}
	}
}

func (e *Engine) fireAlert(ev model.AlertEvent) {
	e.subMu.Lock()
	subs := append([]func(model.AlertEvent){}, e.alertSubs...)
	e.subMu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
