package collector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/model"
)

// Recorder wraps a source and writes every fetched set as a JSON line.
type Recorder struct {
	inner  Source
	writer *json.Encoder
	log    *zap.Logger
	mu     sync.Mutex
}

// NewRecorder creates a recorder that writes JSON lines to w.
func NewRecorder(inner Source, w io.Writer, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{inner: inner, writer: json.NewEncoder(w), log: log}
}

// Name implements Source.
func (r *Recorder) Name() string { return r.inner.Name() }

// Fetch calls the wrapped source and records a successful result.
func (r *Recorder) Fetch(ctx context.Context) (*model.ReadingSet, error) {
	rs, err := r.inner.Fetch(ctx)
	if err != nil || rs == nil {
		return rs, err
	}
	r.mu.Lock()
	if err := r.writer.Encode(rs); err != nil {
		// recording is best effort
		r.log.Warn("record frame", zap.Error(err))
	}
	r.mu.Unlock()
	return rs, nil
}

// Player replays recorded frames as a Source, one frame per Fetch. After
// the last frame it keeps returning it.
//
// Timestamps are shifted so each frame looks freshly fetched: a reading
// that was observed 5s before its frame was fetched is returned as
// observed 5s before now.
type Player struct {
	frames []model.ReadingSet
	idx    int
	mu     sync.Mutex
	now    func() time.Time
}

// NewPlayer reads a recording (JSON lines). Malformed lines are skipped.
func NewPlayer(r io.Reader) (*Player, error) {
	dec := json.NewDecoder(r)
	var frames []model.ReadingSet
	for {
		var frame model.ReadingSet
		if err := dec.Decode(&frame); err != nil {
			if err == io.EOF {
				break
			}
			var syn *json.SyntaxError
			if errors.As(err, &syn) {
				// the decoder cannot resync after a syntax error
				break
			}
			continue
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, errors.New("recording has no frames")
	}
	return &Player{frames: frames, now: time.Now}, nil
}

// Name implements Source.
func (p *Player) Name() string { return "replay" }

// Fetch returns the next frame.
func (p *Player) Fetch(ctx context.Context) (*model.ReadingSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.idx
	if i >= len(p.frames) {
		i = len(p.frames) - 1
	} else {
		p.idx++
	}
	return rebase(&p.frames[i], p.now()), nil
}

// Len returns the number of frames available.
func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// Index returns the next frame index.
func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx
}

// Seek makes frame i the next one returned.
func (p *Player) Seek(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 {
		i = 0
	}
	if i >= len(p.frames) {
		i = len(p.frames) - 1
	}
	p.idx = i
}

func rebase(frame *model.ReadingSet, now time.Time) *model.ReadingSet {
	out := frame.Clone()
	out.FetchedAt = now
	for i := range out.Readings {
		age := frame.FetchedAt.Sub(frame.Readings[i].ObservedAt)
		out.Readings[i].ObservedAt = now.Add(-age)
	}
	return out
}
