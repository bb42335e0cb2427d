package engine

import "github.com/ftahirops/sensetop/model"

// Band thresholds. Boundaries listed as inclusive belong to the worse band.
const (
	tempCritLow  = 10.0
	tempWarnLow  = 18.0
	tempWarnHigh = 30.0
	tempCritHigh = 35.0

	humCritLow  = 20.0
	humWarnLow  = 30.0
	humWarnHigh = 70.0
	humCritHigh = 80.0

	intensityWarn = 50.0
	intensityCrit = 80.0
)

// ClassifyTemperature bands a temperature in °C.
func ClassifyTemperature(v float64) model.StatusLevel {
	switch {
	case v < tempCritLow || v > tempCritHigh:
		return model.StatusCritical
	case v < tempWarnLow || v > tempWarnHigh:
		return model.StatusWarning
	default:
		return model.StatusNormal
	}
}

// ClassifyHumidity bands a relative humidity in %.
func ClassifyHumidity(v float64) model.StatusLevel {
	switch {
	case v < humCritLow || v > humCritHigh:
		return model.StatusCritical
	case v < humWarnLow || v > humWarnHigh:
		return model.StatusWarning
	default:
		return model.StatusNormal
	}
}

// ClassifyIntensity bands a fire or smoke intensity on a 0-100 scale.
func ClassifyIntensity(v float64) model.StatusLevel {
	switch {
	case v > intensityCrit:
		return model.StatusCritical
	case v > intensityWarn:
		return model.StatusWarning
	default:
		return model.StatusNormal
	}
}

// Classify returns the status for a value of the given family. A sensor
// that is not live is offline whatever its last value was.
func Classify(family model.MetricFamily, v float64, live bool) model.StatusLevel {
	if !live {
		return model.StatusOffline
	}
	switch family {
	case model.MetricTemperature:
		return ClassifyTemperature(v)
	case model.MetricHumidity:
		return ClassifyHumidity(v)
	case model.MetricFire, model.MetricSmoke:
		return ClassifyIntensity(v)
	}
	// electrical metrics are informational
	return model.StatusNormal
}

// Gauge normalizes v into [0,1] against [min,max].
func Gauge(v, min, max float64) float64 {
	if max <= min {
		return 0
	}
	n := (v - min) / (max - min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
