package model

import "time"

// MetricFamily selects how a sensor value is classified and displayed.
type MetricFamily string

const (
	MetricTemperature MetricFamily = "temperature"
	MetricHumidity    MetricFamily = "humidity"
	MetricFire        MetricFamily = "fire"
	MetricSmoke       MetricFamily = "smoke"
	MetricVoltage     MetricFamily = "voltage"
	MetricCurrent     MetricFamily = "current"
	MetricPower       MetricFamily = "power"
	MetricEnergy      MetricFamily = "energy"
	MetricFrequency   MetricFamily = "frequency"
	MetricPowerFactor MetricFamily = "power_factor"
)

// Electrical reports whether the family is one of the phase metrics.
func (f MetricFamily) Electrical() bool {
	switch f {
	case MetricVoltage, MetricCurrent, MetricPower, MetricEnergy, MetricFrequency, MetricPowerFactor:
		return true
	}
	return false
}

// SensorReading is one observed value. A newer reading for the same
// SensorID replaces the older one.
type SensorReading struct {
	SensorID   string       `json:"sensor_id"`
	Metric     MetricFamily `json:"metric"`
	Value      float64      `json:"value"`
	Unit       string       `json:"unit"`
	ObservedAt time.Time    `json:"observed_at"`
}

// ReadingSet is the payload of a single fetch.
type ReadingSet struct {
	Readings  []SensorReading `json:"readings"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Get returns the reading for id, if present.
func (rs *ReadingSet) Get(id string) (SensorReading, bool) {
	if rs == nil {
		return SensorReading{}, false
	}
	for _, r := range rs.Readings {
		if r.SensorID == id {
			return r, true
		}
	}
	return SensorReading{}, false
}

// Clone returns a deep copy.
func (rs *ReadingSet) Clone() *ReadingSet {
	if rs == nil {
		return nil
	}
	out := &ReadingSet{FetchedAt: rs.FetchedAt}
	out.Readings = make([]SensorReading, len(rs.Readings))
	copy(out.Readings, rs.Readings)
	return out
}

// Sensor describes a tracked sensor.
type Sensor struct {
	ID     string       `json:"id"`
	Label  string       `json:"label"`
	Metric MetricFamily `json:"metric"`
	Unit   string       `json:"unit"`
	Min    float64      `json:"min"` // gauge lower bound
	Max    float64      `json:"max"` // gauge upper bound
}
