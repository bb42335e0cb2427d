package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/model"
)

// Source produces one reading set per call.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*model.ReadingSet, error)
}

// Registry merges several sources into one reading set. When two sources
// report the same sensor the reading with the later ObservedAt wins.
type Registry struct {
	sources []Source
	log     *zap.Logger
	now     func() time.Time
}

// errNoData is returned for a source that answered with neither a set nor
// an error.
var errNoData = errors.New("no data")

// NewRegistry creates a registry over the given sources.
func NewRegistry(log *zap.Logger, sources ...Source) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{sources: sources, log: log, now: time.Now}
}

// Name implements Source.
func (r *Registry) Name() string { return strings.Join(r.Names(), "+") }

// Add registers an additional source.
func (r *Registry) Add(s Source) {
	r.sources = append(r.sources, s)
}

// Names lists the registered sources.
func (r *Registry) Names() []string {
	out := make([]string, len(r.sources))
	for i, s := range r.sources {
		out[i] = s.Name()
	}
	return out
}

// Fetch queries every source in order. It fails only when all of them
// fail; a partial failure is logged and the merged set of the others is
// returned.
func (r *Registry) Fetch(ctx context.Context) (*model.ReadingSet, error) {
	if len(r.sources) == 0 {
		return nil, errors.New("no sources registered")
	}
	if len(r.sources) == 1 {
		rs, err := r.sources[0].Fetch(ctx)
		if err == nil && rs == nil {
			return nil, fmt.Errorf("%s: %w", r.sources[0].Name(), errNoData)
		}
		return rs, err
	}

	merged := &model.ReadingSet{FetchedAt: r.now()}
	pos := make(map[string]int)
	var errs []error
	ok := 0
	for _, s := range r.sources {
		rs, err := s.Fetch(ctx)
		if err == nil && rs == nil {
			err = errNoData
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		ok++
		for _, rd := range rs.Readings {
			if i, seen := pos[rd.SensorID]; seen {
				if rd.ObservedAt.After(merged.Readings[i].ObservedAt) {
					merged.Readings[i] = rd
				}
				continue
			}
			pos[rd.SensorID] = len(merged.Readings)
			merged.Readings = append(merged.Readings, rd)
		}
	}
	if ok == 0 {
		return nil, errors.Join(errs...)
	}
	if len(errs) > 0 {
		r.log.Warn("some sources failed",
			zap.Int("ok", ok),
			zap.Int("failed", len(errs)),
			zap.Error(errors.Join(errs...)),
		)
	}
	return merged, nil
}
