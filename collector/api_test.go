package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/sensetop/model"
)

func newBackend(t *testing.T, routes map[string]string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var auth atomic.Value
	auth.Store("")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &auth
}

func fixedNow(src *APISource, at time.Time) {
	src.now = func() time.Time { return at }
}

func TestAPISourceFetch(t *testing.T) {
	srv, auth := newBackend(t, map[string]string{
		PathSensor1:     `{"suhu": 24.5, "kelembapan": 55, "timestamp": "2024-05-01T11:59:30Z"}`,
		PathSensor2:     `[{"suhu": 20, "kelembapan": 40}, {"suhu": 25.1, "kelembapan": 58.2}]`,
		PathFireSmoke:   `{"api_value": 3, "asap_value": 12.5, "timestamp": 1714564780}`,
		PathElectricity: `{"voltage_3ph": 380.2, "current_3ph": 12, "power_3ph": 4500, "energy": 1200, "frequency": 50.01, "power_factor": 0.93}`,
	})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	src := NewAPISource(APIConfig{BaseURL: srv.URL + "/", Token: "secret"}, nil)
	fixedNow(src, now)

	rs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth.Load())
	assert.Equal(t, now, rs.FetchedAt)
	assert.Len(t, rs.Readings, 12)

	cases := []struct {
		id     string
		value  float64
		metric model.MetricFamily
	}{
		{SensorTemp1, 24.5, model.MetricTemperature},
		{SensorHum1, 55, model.MetricHumidity},
		{SensorTemp2, 25.1, model.MetricTemperature},
		{SensorHum2, 58.2, model.MetricHumidity},
		{SensorFire, 3, model.MetricFire},
		{SensorSmoke, 12.5, model.MetricSmoke},
		{SensorVoltage, 380.2, model.MetricVoltage},
		{SensorPowerFactor, 0.93, model.MetricPowerFactor},
	}
	for _, c := range cases {
		t.Run(c.id, func(t *testing.T) {
			r, ok := rs.Get(c.id)
			require.True(t, ok)
			assert.Equal(t, c.value, r.Value)
			assert.Equal(t, c.metric, r.Metric)
		})
	}

	temp1, _ := rs.Get(SensorTemp1)
	assert.True(t, temp1.ObservedAt.Equal(time.Date(2024, 5, 1, 11, 59, 30, 0, time.UTC)))
	fire, _ := rs.Get(SensorFire)
	assert.Equal(t, int64(1714564780), fire.ObservedAt.Unix())
	temp2, _ := rs.Get(SensorTemp2)
	assert.Equal(t, now, temp2.ObservedAt, "missing timestamp falls back to fetch time")
	assert.Equal(t, "°C", temp2.Unit)
}

func TestAPISourceMissingFieldsSkipped(t *testing.T) {
	srv, _ := newBackend(t, map[string]string{
		PathSensor1:     `{"suhu": 24.5}`,
		PathSensor2:     `{}`,
		PathFireSmoke:   `[]`,
		PathElectricity: `{"voltage_3ph": null}`,
	})
	src := NewAPISource(APIConfig{BaseURL: srv.URL}, nil)
	rs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rs.Readings, 1)
	assert.Equal(t, SensorTemp1, rs.Readings[0].SensorID)
}

func TestAPISourceAnyFailureFailsFetch(t *testing.T) {
	srv, _ := newBackend(t, map[string]string{
		PathSensor1:   `{"suhu": 24.5}`,
		PathSensor2:   `{"suhu": 24.5}`,
		PathFireSmoke: `{"api_value": 1}`,
		// electricity missing -> 404
	})
	src := NewAPISource(APIConfig{BaseURL: srv.URL}, nil)
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), PathElectricity)
}

func TestAPISourceMalformedJSON(t *testing.T) {
	srv, _ := newBackend(t, map[string]string{
		PathSensor1:     `{"suhu": "hot"}`,
		PathSensor2:     `{}`,
		PathFireSmoke:   `{}`,
		PathElectricity: `{}`,
	})
	src := NewAPISource(APIConfig{BaseURL: srv.URL}, nil)
	_, err := src.Fetch(context.Background())
	assert.ErrorContains(t, err, "decode /sensor1")
}

func TestAPISourceContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	src := NewAPISource(APIConfig{BaseURL: srv.URL}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := src.Fetch(ctx)
	assert.Error(t, err)
}

func TestFlexTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{`"2024-05-01T12:00:00Z"`, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{`1714564800`, time.Unix(1714564800, 0)},
		{`1714564800123`, time.UnixMilli(1714564800123)},
		{`"1714564800"`, time.Unix(1714564800, 0)},
		{`"2024-05-01 12:00:00"`, time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)},
		{`null`, time.Time{}},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			var f flexTime
			require.NoError(t, f.UnmarshalJSON([]byte(c.in)))
			assert.True(t, c.want.Equal(f.Time), "got %v want %v", f.Time, c.want)
		})
	}

	var f flexTime
	assert.Error(t, f.UnmarshalJSON([]byte(`"yesterday"`)))
}
