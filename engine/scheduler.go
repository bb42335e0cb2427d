package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/model"
)

// Refresh intervals offered to the user, in seconds.
var RefreshIntervals = []int{10, 30, 60, 300}

// ErrInvalidInterval is returned for intervals outside RefreshIntervals.
var ErrInvalidInterval = errors.New("invalid refresh interval")

// ErrStopped is returned when operating on a stopped scheduler or engine.
var ErrStopped = errors.New("stopped")

// FetchFunc retrieves the current readings from the backend.
type FetchFunc func(ctx context.Context) (*model.ReadingSet, error)

// FetchKind says what caused a fetch.
type FetchKind int

const (
	FetchInitial FetchKind = iota
	FetchPeriodic
	FetchManual
)

func (k FetchKind) String() string {
	switch k {
	case FetchInitial:
		return "initial"
	case FetchPeriodic:
		return "periodic"
	case FetchManual:
		return "manual"
	}
	return "unknown"
}

// FetchResult is delivered once per fetch, in completion order.
type FetchResult struct {
	Seq         uint64
	Kind        FetchKind
	Set         *model.ReadingSet
	Err         error
	IssuedAt    time.Time
	CompletedAt time.Time
	Loading     bool // other fetches still in flight
}

// RefreshConfig is the user-selectable refresh period.
type RefreshConfig struct {
	IntervalSeconds int
}

// ValidInterval reports whether sec is one of RefreshIntervals.
func ValidInterval(sec int) bool {
	for _, v := range RefreshIntervals {
		if v == sec {
			return true
		}
	}
	return false
}

// NextInterval steps through RefreshIntervals by dir (+1/-1), wrapping.
func NextInterval(cur, dir int) int {
	idx := 0
	for i, v := range RefreshIntervals {
		if v == cur {
			idx = i
			break
		}
	}
	n := len(RefreshIntervals)
	return RefreshIntervals[((idx+dir)%n+n)%n]
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Clock        Clock
	Logger       *zap.Logger
	FetchTimeout time.Duration // 0 = no per-fetch deadline
	OnResult     func(FetchResult)
	OnIssue      func(kind FetchKind) // called before each fetch is started
}

// Scheduler runs fetch once on Start and then every interval.
//
// Fetches never wait for each other: a timer tick issues a new fetch even
// when an older one is still running, and results are handed to OnResult
// in completion order. A slow fetch can therefore overwrite the data of a
// newer, faster one. Callers that care must compare FetchResult.Seq.
type Scheduler struct {
	mu       sync.Mutex
	clock    Clock
	fetch    FetchFunc
	log      *zap.Logger
	opts     SchedulerOptions
	seconds  int
	timer    Timer
	gen      uint64
	seq      uint64
	inflight int
	started  bool
	stopped  bool
	ctx      context.Context
	stopOnce sync.Once
}

// NewScheduler validates cfg and returns an idle scheduler.
func NewScheduler(cfg RefreshConfig, fetch FetchFunc, opts SchedulerOptions) (*Scheduler, error) {
	if !ValidInterval(cfg.IntervalSeconds) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidInterval, cfg.IntervalSeconds)
	}
	if fetch == nil {
		return nil, errors.New("scheduler: nil fetch func")
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{
		clock:   opts.Clock,
		fetch:   fetch,
		log:     opts.Logger,
		opts:    opts,
		seconds: cfg.IntervalSeconds,
		ctx:     context.Background(),
	}, nil
}

// Start issues the first fetch and arms the periodic timer. ctx is passed
// to every fetch; it is not cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if ctx != nil {
		s.ctx = ctx
	}
	s.started = true
	s.armLocked()
	s.mu.Unlock()

	s.issue(FetchInitial)
	return nil
}

// SetInterval replaces the period. The next periodic fetch fires one full
// new period after this call. Exactly one timer is armed afterwards.
func (s *Scheduler) SetInterval(sec int) error {
	if !ValidInterval(sec) {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, sec)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.seconds = sec
	if s.started {
		s.armLocked()
	}
	s.log.Info("refresh interval changed", zap.Int("interval_sec", sec))
	return nil
}

// Interval returns the current period in seconds.
func (s *Scheduler) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seconds
}

// RefreshNow issues an extra fetch. The periodic timer is left alone.
func (s *Scheduler) RefreshNow() {
	s.mu.Lock()
	ok := s.started && !s.stopped
	s.mu.Unlock()
	if ok {
		s.issue(FetchManual)
	}
}

// Loading reports whether any fetch is in flight.
func (s *Scheduler) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Stop cancels the timer. Results of fetches still running are dropped.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.gen++
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.mu.Unlock()
		s.log.Debug("scheduler stopped")
	})
}

// armLocked cancels any armed timer and arms a new one for the current period.
func (s *Scheduler) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	d := time.Duration(s.seconds) * time.Second
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		// superseded by SetInterval or Stop
		s.mu.Unlock()
		return
	}
	s.armLocked()
	s.mu.Unlock()

	s.issue(FetchPeriodic)
}

func (s *Scheduler) issue(kind FetchKind) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.inflight++
	ctx := s.ctx
	issuedAt := s.clock.Now()
	s.mu.Unlock()

	if s.opts.OnIssue != nil {
		s.opts.OnIssue(kind)
	}

	go func() {
		fctx := ctx
		if s.opts.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
			defer cancel()
		}
		set, err := s.fetch(fctx)
		s.complete(FetchResult{
			Seq:      seq,
			Kind:     kind,
			Set:      set,
			Err:      err,
			IssuedAt: issuedAt,
		})
	}()
}

func (s *Scheduler) complete(res FetchResult) {
	s.mu.Lock()
	s.inflight--
	if s.stopped {
		s.mu.Unlock()
		s.log.Debug("discarding fetch result after stop", zap.Uint64("seq", res.Seq))
		return
	}
	res.Loading = s.inflight > 0
	res.CompletedAt = s.clock.Now()
	s.mu.Unlock()

	if res.Err != nil {
		s.log.Warn("fetch failed",
			zap.Uint64("seq", res.Seq),
			zap.String("kind", res.Kind.String()),
			zap.Error(res.Err),
		)
	} else if res.Set == nil {
		res.Err = errors.New("fetch returned no data")
	}
	if s.opts.OnResult != nil {
		s.opts.OnResult(res)
	}
}
