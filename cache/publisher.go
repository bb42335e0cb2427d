package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/model"
)

const (
	keyPrefix      = "sensetop:"
	alertKey       = keyPrefix + "alert:active"
	publishTimeout = 2 * time.Second
)

// SensorKey returns the key holding the latest view of one sensor.
func SensorKey(id string) string {
	return fmt.Sprintf("%ssensor:%s:latest", keyPrefix, id)
}

// AlertKey returns the key holding the active alert, if any.
func AlertKey() string { return alertKey }

// Publisher mirrors engine views into a KVStore. Sensor and alert entries
// expire after twice the stale threshold so a dead sensetop does not leave
// live looking data behind.
type Publisher struct {
	kv      KVStore
	ttl     time.Duration
	log     *zap.Logger
	pending chan model.View
}

// NewPublisher creates a publisher over kv.
func NewPublisher(kv KVStore, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		kv:      kv,
		ttl:     2 * engine.StaleThreshold,
		log:     log,
		pending: make(chan model.View, 1),
	}
}

// Update queues v for publishing without blocking. A view still waiting
// is replaced by the newer one.
func (p *Publisher) Update(v model.View) {
	for {
		select {
		case p.pending <- v:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run publishes queued views until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-p.pending:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := p.Publish(pctx, v); err != nil {
				p.log.Warn("cache publish failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Publish writes every sensor that has a reading, and sets or clears the
// active alert.
func (p *Publisher) Publish(ctx context.Context, v model.View) error {
	for _, s := range v.Sensors {
		if !s.HasReading {
			continue
		}
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal sensor %s: %w", s.Sensor.ID, err)
		}
		if err := p.kv.Set(ctx, SensorKey(s.Sensor.ID), string(data), p.ttl); err != nil {
			return fmt.Errorf("set sensor %s: %w", s.Sensor.ID, err)
		}
	}
	if v.Alert == nil {
		if err := p.kv.Del(ctx, alertKey); err != nil {
			return fmt.Errorf("clear alert: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(v.Alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := p.kv.Set(ctx, alertKey, string(data), p.ttl); err != nil {
		return fmt.Errorf("set alert: %w", err)
	}
	return nil
}

// LatestSensor reads back one sensor. Returns ErrCacheMiss when absent.
func (p *Publisher) LatestSensor(ctx context.Context, id string) (model.SensorView, error) {
	var sv model.SensorView
	raw, err := p.kv.Get(ctx, SensorKey(id))
	if err != nil {
		return sv, err
	}
	if err := json.Unmarshal([]byte(raw), &sv); err != nil {
		return sv, fmt.Errorf("decode sensor %s: %w", id, err)
	}
	return sv, nil
}

// ActiveAlert reads back the active alert. Returns ErrCacheMiss when none.
func (p *Publisher) ActiveAlert(ctx context.Context) (model.AlertEvent, error) {
	var ev model.AlertEvent
	raw, err := p.kv.Get(ctx, alertKey)
	if err != nil {
		return ev, err
	}
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return ev, fmt.Errorf("decode alert: %w", err)
	}
	return ev, nil
}
