package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ftahirops/sensetop/model"
)

// Backend endpoints polled on every fetch.
const (
	PathSensor1     = "/sensor1"
	PathSensor2     = "/sensor2"
	PathFireSmoke   = "/fire-smoke"
	PathElectricity = "/electricity"
)

// APIConfig configures the HTTP backend client.
type APIConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
}

// APISource polls the sensor backend over HTTP.
type APISource struct {
	client *resty.Client
	log    *zap.Logger
	now    func() time.Time
}

// NewAPISource creates a client for cfg.BaseURL.
func NewAPISource(cfg APIConfig, log *zap.Logger) *APISource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &APISource{client: client, log: log, now: time.Now}
}

// Name implements Source.
func (a *APISource) Name() string { return "api" }

// climatePayload is returned by /sensor1 and /sensor2.
type climatePayload struct {
	Suhu       *float64 `json:"suhu"`
	Kelembapan *float64 `json:"kelembapan"`
	Timestamp  flexTime `json:"timestamp"`
}

// fireSmokePayload is returned by /fire-smoke.
type fireSmokePayload struct {
	APIValue  *float64 `json:"api_value"`
	AsapValue *float64 `json:"asap_value"`
	Timestamp flexTime `json:"timestamp"`
}

// electricityPayload is returned by /electricity.
type electricityPayload struct {
	Voltage     *float64 `json:"voltage_3ph"`
	Current     *float64 `json:"current_3ph"`
	Power       *float64 `json:"power_3ph"`
	Energy      *float64 `json:"energy"`
	Frequency   *float64 `json:"frequency"`
	PowerFactor *float64 `json:"power_factor"`
	Timestamp   flexTime `json:"timestamp"`
}

// Fetch GETs every endpoint concurrently. Any failure fails the whole fetch.
func (a *APISource) Fetch(ctx context.Context) (*model.ReadingSet, error) {
	var (
		s1, s2 climatePayload
		fs     fireSmokePayload
		el     electricityPayload
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.get(gctx, PathSensor1, &s1) })
	g.Go(func() error { return a.get(gctx, PathSensor2, &s2) })
	g.Go(func() error { return a.get(gctx, PathFireSmoke, &fs) })
	g.Go(func() error { return a.get(gctx, PathElectricity, &el) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := a.now()
	rs := &model.ReadingSet{FetchedAt: now}
	add := func(id string, v *float64, ts flexTime) {
		if v == nil {
			return
		}
		s, _ := Lookup(id)
		at := ts.Time
		if at.IsZero() {
			at = now
		}
		rs.Readings = append(rs.Readings, model.SensorReading{
			SensorID:   id,
			Metric:     s.Metric,
			Value:      *v,
			Unit:       s.Unit,
			ObservedAt: at,
		})
	}
	add(SensorTemp1, s1.Suhu, s1.Timestamp)
	add(SensorHum1, s1.Kelembapan, s1.Timestamp)
	add(SensorTemp2, s2.Suhu, s2.Timestamp)
	add(SensorHum2, s2.Kelembapan, s2.Timestamp)
	add(SensorFire, fs.APIValue, fs.Timestamp)
	add(SensorSmoke, fs.AsapValue, fs.Timestamp)
	add(SensorVoltage, el.Voltage, el.Timestamp)
	add(SensorCurrent, el.Current, el.Timestamp)
	add(SensorPower, el.Power, el.Timestamp)
	add(SensorEnergy, el.Energy, el.Timestamp)
	add(SensorFrequency, el.Frequency, el.Timestamp)
	add(SensorPowerFactor, el.PowerFactor, el.Timestamp)

	a.log.Debug("fetched readings", zap.Int("readings", len(rs.Readings)))
	return rs, nil
}

// get fetches path into out. A JSON array response is taken to be a
// history, newest last.
func (a *APISource) get(ctx context.Context, path string, out interface{}) error {
	resp, err := a.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode())
	}
	body := bytes.TrimSpace(resp.Body())
	if len(body) > 0 && body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if len(items) == 0 {
			return nil
		}
		body = items[len(items)-1]
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// flexTime accepts RFC 3339, "2006-01-02 15:04:05" or unix seconds/millis.
type flexTime struct {
	time.Time
}

var flexLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		f.Time = unixAuto(n)
		return nil
	}
	str, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", s, err)
	}
	if n, err := strconv.ParseFloat(str, 64); err == nil {
		f.Time = unixAuto(n)
		return nil
	}
	for _, layout := range flexLayouts {
		if t, err := time.ParseInLocation(layout, str, time.Local); err == nil {
			f.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", str)
}

// unixAuto treats values above 1e12 as milliseconds.
func unixAuto(n float64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(int64(n))
	}
	return time.Unix(int64(n), 0)
}
