package ui

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ftahirops/sensetop/model"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string { return ansiRE.ReplaceAllString(s, "") }

func TestPadRight(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 6, "abc   "},
		{"abcde", 5, "ab..."},
		{"hello world", 8, "hello..."},
		{"hello", 2, "he"},
		{"°C°C°C", 4, "°..."},
		{"", 3, "   "},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, padRight(tt.in, tt.width), "padRight(%q, %d)", tt.in, tt.width)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Temper...", truncate("Temperature (Sensor 1)", 9))
	assert.Equal(t, "Te", truncate("Temperature", 2))
}

func TestGaugeBar(t *testing.T) {
	tests := []struct {
		ratio  float64
		filled int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{-1, 0},
		{3, 10},
	}
	for _, tt := range tests {
		got := stripANSI(gaugeBar(tt.ratio, 10, model.StatusNormal))
		assert.Equal(t, tt.filled, strings.Count(got, "█"), "ratio %v", tt.ratio)
		assert.Equal(t, 10, len([]rune(got)))
	}
}

func TestFmtValue(t *testing.T) {
	tests := []struct {
		name string
		sv   model.SensorView
		want string
	}{
		{"no reading", model.SensorView{}, "--"},
		{"trims zeros", model.SensorView{HasReading: true, Sensor: model.Sensor{Unit: "V"}, Reading: model.SensorReading{Value: 230}}, "230 V"},
		{"one digit", model.SensorView{HasReading: true, Sensor: model.Sensor{Unit: "%"}, Reading: model.SensorReading{Value: 55.54}}, "55.5 %"},
		{"power factor", model.SensorView{HasReading: true, Sensor: model.Sensor{Metric: model.MetricPowerFactor}, Reading: model.SensorReading{Value: 0.956}}, "0.96"},
		{"rounds up", model.SensorView{HasReading: true, Sensor: model.Sensor{Unit: "°C"}, Reading: model.SensorReading{Value: 24.96}}, "25 °C"},
		{"power factor rounds to one", model.SensorView{HasReading: true, Sensor: model.Sensor{Metric: model.MetricPowerFactor}, Reading: model.SensorReading{Value: 0.999}}, "1"},
		{"thousands", model.SensorView{HasReading: true, Sensor: model.Sensor{Unit: "kWh"}, Reading: model.SensorReading{Value: 12345.64}}, "12,345.6 kWh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fmtValue(tt.sv))
		})
	}
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, 8, len([]rune(stripANSI(sparkline(nil, 8, 0, 1)))))
	got := stripANSI(sparkline([]float64{0, 5, 10}, 20, 0, 10))
	assert.Equal(t, "▁▄█", got)
	assert.NotPanics(t, func() { sparkline([]float64{3, 3}, 5, 3, 3) })
}

func TestResampleData(t *testing.T) {
	assert.Nil(t, resampleData(nil, 5))
	assert.Equal(t, []float64{1, 2}, resampleData([]float64{1, 2}, 5))
	assert.Equal(t, []float64{1.5, 3.5}, resampleData([]float64{1, 2, 3, 4}, 2))
}

func TestAutoRange(t *testing.T) {
	lo, hi := autoRange(nil, 0, 40)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 40.0, hi)
	lo, hi = autoRange([]float64{-5, 45}, 0, 40)
	assert.Equal(t, -5.0, lo)
	assert.Equal(t, 45.0, hi)
}

func TestBadgeLabels(t *testing.T) {
	for _, s := range []model.StatusLevel{model.StatusNormal, model.StatusWarning, model.StatusCritical, model.StatusOffline} {
		assert.Contains(t, stripANSI(badge(s)), strings.ToUpper(s.String()))
	}
}
