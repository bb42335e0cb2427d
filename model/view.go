package model

import "time"

// SensorView is the per-sensor state handed to renderers.
type SensorView struct {
	Sensor     Sensor        `json:"sensor"`
	Reading    SensorReading `json:"reading"`
	HasReading bool          `json:"has_reading"`
	Status     StatusLevel   `json:"status"`
	Online     bool          `json:"online"`
}

// View is a consistent copy of the engine state.
type View struct {
	Sensors         []SensorView `json:"sensors"`
	Alert           *AlertEvent  `json:"alert,omitempty"`
	Loading         bool         `json:"loading"`
	LastUpdate      time.Time    `json:"last_update"`
	IntervalSeconds int          `json:"interval_seconds"`
	FetchErrors     int          `json:"fetch_errors"`
	LastError       string       `json:"last_error,omitempty"`
	Suppressed      int          `json:"suppressed_alerts"`
}

// Sensor returns the view for id.
func (v *View) Sensor(id string) (SensorView, bool) {
	if v == nil {
		return SensorView{}, false
	}
	for _, s := range v.Sensors {
		if s.Sensor.ID == id {
			return s, true
		}
	}
	return SensorView{}, false
}

// Worst returns the worst status across all sensors (offline ranks above
// critical).
func (v *View) Worst() StatusLevel {
	worst := StatusNormal
	if v == nil {
		return worst
	}
	for _, s := range v.Sensors {
		if s.Status > worst {
			worst = s.Status
		}
	}
	return worst
}

// Counts tallies sensors per status.
func (v *View) Counts() map[StatusLevel]int {
	out := make(map[StatusLevel]int, 4)
	if v == nil {
		return out
	}
	for _, s := range v.Sensors {
		out[s.Status]++
	}
	return out
}
