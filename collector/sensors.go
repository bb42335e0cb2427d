package collector

import "github.com/ftahirops/sensetop/model"

// Sensor ids reported by the backend.
const (
	SensorTemp1       = "temp-1"
	SensorTemp2       = "temp-2"
	SensorHum1        = "hum-1"
	SensorHum2        = "hum-2"
	SensorFire        = "fire"
	SensorSmoke       = "smoke"
	SensorVoltage     = "voltage"
	SensorCurrent     = "current"
	SensorPower       = "power"
	SensorEnergy      = "energy"
	SensorFrequency   = "frequency"
	SensorPowerFactor = "power-factor"
)

// DefaultSensors is the catalogue of tracked sensors, in display order.
func DefaultSensors() []model.Sensor {
	return []model.Sensor{
		{ID: SensorTemp1, Label: "Temperature (Sensor 1)", Metric: model.MetricTemperature, Unit: "°C", Min: 0, Max: 50},
		{ID: SensorTemp2, Label: "Temperature (Sensor 2)", Metric: model.MetricTemperature, Unit: "°C", Min: 0, Max: 50},
		{ID: SensorHum1, Label: "Humidity (Sensor 1)", Metric: model.MetricHumidity, Unit: "%", Min: 0, Max: 100},
		{ID: SensorHum2, Label: "Humidity (Sensor 2)", Metric: model.MetricHumidity, Unit: "%", Min: 0, Max: 100},
		{ID: SensorFire, Label: "Fire Detection", Metric: model.MetricFire, Unit: "%", Min: 0, Max: 100},
		{ID: SensorSmoke, Label: "Smoke Detection", Metric: model.MetricSmoke, Unit: "%", Min: 0, Max: 100},
		{ID: SensorVoltage, Label: "Voltage (3-Phase)", Metric: model.MetricVoltage, Unit: "V", Min: 0, Max: 450},
		{ID: SensorCurrent, Label: "Current (3-Phase)", Metric: model.MetricCurrent, Unit: "A", Min: 0, Max: 100},
		{ID: SensorPower, Label: "Power (3-Phase)", Metric: model.MetricPower, Unit: "W", Min: 0, Max: 20000},
		{ID: SensorEnergy, Label: "Energy", Metric: model.MetricEnergy, Unit: "kWh", Min: 0, Max: 10000},
		{ID: SensorFrequency, Label: "Frequency", Metric: model.MetricFrequency, Unit: "Hz", Min: 45, Max: 55},
		{ID: SensorPowerFactor, Label: "Power Factor", Metric: model.MetricPowerFactor, Unit: "", Min: 0, Max: 1},
	}
}

// Lookup returns the catalogue entry for id.
func Lookup(id string) (model.Sensor, bool) {
	for _, s := range DefaultSensors() {
		if s.ID == id {
			return s, true
		}
	}
	return model.Sensor{}, false
}
