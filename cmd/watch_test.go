package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/sensetop/collector"
	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/model"
)

func newTestEngine(t *testing.T, fetch engine.FetchFunc) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.Options{
		Sensors:         collector.DefaultSensors(),
		Fetch:           fetch,
		IntervalSeconds: 10,
		Tone:            engine.NopTone{},
	})
	require.NoError(t, err)
	t.Cleanup(eng.Stop)
	return eng
}

func okFetch(ctx context.Context) (*model.ReadingSet, error) {
	now := time.Now()
	return &model.ReadingSet{
		FetchedAt: now,
		Readings: []model.SensorReading{
			{SensorID: collector.SensorTemp1, Metric: model.MetricTemperature, Value: 24.5, Unit: "°C", ObservedAt: now},
			{SensorID: collector.SensorSmoke, Metric: model.MetricSmoke, Value: 85, Unit: "%", ObservedAt: now},
		},
	}, nil
}

func TestRunJSON(t *testing.T) {
	eng := newTestEngine(t, okFetch)
	var out bytes.Buffer
	require.NoError(t, runJSON(context.Background(), eng, &out))

	var v model.View
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	sv, ok := v.Sensor(collector.SensorTemp1)
	require.True(t, ok)
	assert.True(t, sv.Online)
	assert.Equal(t, 24.5, sv.Reading.Value)
	assert.Equal(t, model.StatusNormal, sv.Status)

	smoke, _ := v.Sensor(collector.SensorSmoke)
	assert.Equal(t, model.StatusCritical, smoke.Status)

	hum, _ := v.Sensor(collector.SensorHum1)
	assert.Equal(t, model.StatusOffline, hum.Status)
}

func TestRunJSONFetchFailure(t *testing.T) {
	eng := newTestEngine(t, func(ctx context.Context) (*model.ReadingSet, error) {
		return nil, errors.New("connection refused")
	})
	var out bytes.Buffer
	err := runJSON(context.Background(), eng, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, out.String(), `"fetch_errors": 1`)
}

func TestRunWatchCount(t *testing.T) {
	eng := newTestEngine(t, okFetch)
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, runWatch(ctx, eng, Options{Count: 1}, &out))

	s := out.String()
	assert.Contains(t, s, "Temperature (Sensor 1)")
	assert.Contains(t, s, "24.5 °C")
	assert.Contains(t, s, "#1/1")
}

func TestRenderWatch(t *testing.T) {
	v := model.View{
		IntervalSeconds: 30,
		LastUpdate:      time.Now(),
		Alert:           &model.AlertEvent{Message: "Smoke Detection is critical", Active: true},
		LastError:       "GET /sensor1: status 500",
		Sensors: []model.SensorView{
			{Sensor: model.Sensor{Label: "Smoke Detection", Unit: "%"}, HasReading: true, Online: true, Reading: model.SensorReading{Value: 80}, Status: model.StatusCritical},
			{Sensor: model.Sensor{Label: "Power Factor"}, HasReading: true, Reading: model.SensorReading{Value: 0.93}, Status: model.StatusOffline},
			{Sensor: model.Sensor{Label: "Energy", Unit: "kWh"}, Status: model.StatusOffline},
		},
	}
	var out bytes.Buffer
	renderWatch(&out, v, 2, 0)
	s := out.String()
	assert.Contains(t, s, "ALERT")
	assert.Contains(t, s, "Smoke Detection is critical")
	assert.Contains(t, s, "80.0 %")
	assert.Contains(t, s, "0.93")
	assert.Contains(t, s, "--")
	assert.Contains(t, s, "every 30s")
	assert.Contains(t, s, "#2")
	assert.Contains(t, s, "fetch failed")
	assert.Contains(t, s, "CRITICAL")
}
