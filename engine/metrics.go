package engine

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ftahirops/sensetop/model"
)

var (
	descUp = prometheus.NewDesc("sensetop_up",
		"1 once a view has been published.", nil, nil)
	descInterval = prometheus.NewDesc("sensetop_refresh_interval_seconds",
		"Current refresh interval.", nil, nil)
	descFetchErrors = prometheus.NewDesc("sensetop_fetch_errors_total",
		"Failed fetches since start.", nil, nil)
	descSuppressed = prometheus.NewDesc("sensetop_alerts_suppressed_total",
		"Critical detections swallowed while an alert was active.", nil, nil)
	descAlertActive = prometheus.NewDesc("sensetop_alert_active",
		"1 while the critical alert is active.", nil, nil)
	descLastUpdate = prometheus.NewDesc("sensetop_last_update_timestamp_seconds",
		"Unix time of the last applied fetch.", nil, nil)
	descSensorValue = prometheus.NewDesc("sensetop_sensor_value",
		"Latest reading per sensor.", []string{"sensor", "metric", "unit"}, nil)
	descSensorOnline = prometheus.NewDesc("sensetop_sensor_online",
		"1 when the sensor reported within the stale threshold.", []string{"sensor"}, nil)
	descSensorStatus = prometheus.NewDesc("sensetop_sensor_status",
		"Status level: 0 normal, 1 warning, 2 critical, 3 offline.", []string{"sensor", "status"}, nil)
)

// MetricsStore holds the latest view and exports it as Prometheus metrics.
// It implements prometheus.Collector.
type MetricsStore struct {
	mu   sync.RWMutex
	view *model.View
	ts   time.Time

	registry *prometheus.Registry
}

// NewMetricsStore creates a store registered on its own registry.
func NewMetricsStore() *MetricsStore {
	s := &MetricsStore{registry: prometheus.NewRegistry()}
	s.registry.MustRegister(s)
	return s
}

// Update stores the latest view. It has the Subscribe signature.
func (s *MetricsStore) Update(v model.View) {
	s.mu.Lock()
	s.view = &v
	s.ts = time.Now()
	s.mu.Unlock()
}

// View returns the latest stored view.
func (s *MetricsStore) View() (*model.View, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, s.ts
}

// Describe implements prometheus.Collector.
func (s *MetricsStore) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		descUp, descInterval, descFetchErrors, descSuppressed, descAlertActive,
		descLastUpdate, descSensorValue, descSensorOnline, descSensorStatus,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (s *MetricsStore) Collect(ch chan<- prometheus.Metric) {
	v, _ := s.View()
	if v == nil {
		ch <- prometheus.MustNewConstMetric(descUp, prometheus.GaugeValue, 0)
		return
	}
	gauge := func(d *prometheus.Desc, val float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, val, labels...)
	}
	counter := func(d *prometheus.Desc, val float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, val)
	}

	gauge(descUp, 1)
	gauge(descInterval, float64(v.IntervalSeconds))
	counter(descFetchErrors, float64(v.FetchErrors))
	counter(descSuppressed, float64(v.Suppressed))
	gauge(descAlertActive, boolGauge(v.Alert != nil))
	if !v.LastUpdate.IsZero() {
		gauge(descLastUpdate, float64(v.LastUpdate.Unix()))
	}
	for _, sv := range v.Sensors {
		id := sv.Sensor.ID
		if sv.HasReading {
			gauge(descSensorValue, sv.Reading.Value, id, string(sv.Sensor.Metric), sv.Sensor.Unit)
		}
		gauge(descSensorOnline, boolGauge(sv.Online), id)
		gauge(descSensorStatus, float64(sv.Status), id, sv.Status.String())
	}
}

// Handler exposes the latest view. Before the first view it answers 503.
func (s *MetricsStore) Handler() http.Handler {
	prom := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, _ := s.View(); v == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("# no data yet\n"))
			return
		}
		prom.ServeHTTP(w, r)
	})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
