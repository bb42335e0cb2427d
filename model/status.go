package model

import "fmt"

// StatusLevel is the classification of one metric.
// Order matters: higher is worse, offline beats everything.
type StatusLevel int

const (
	StatusNormal StatusLevel = iota
	StatusWarning
	StatusCritical
	StatusOffline
)

func (s StatusLevel) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	case StatusOffline:
		return "offline"
	}
	return "unknown"
}

// MarshalText encodes the level by name.
func (s StatusLevel) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a level name.
func (s *StatusLevel) UnmarshalText(b []byte) error {
	switch string(b) {
	case "normal":
		*s = StatusNormal
	case "warning":
		*s = StatusWarning
	case "critical":
		*s = StatusCritical
	case "offline":
		*s = StatusOffline
	default:
		return fmt.Errorf("unknown status level %q", string(b))
	}
	return nil
}
