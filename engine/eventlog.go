package engine

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/ftahirops/sensetop/model"
)

// AlertLogWriter appends alert events to a JSONL file.
type AlertLogWriter struct {
	path string
	mu   sync.Mutex
}

// NewAlertLogWriter creates a writer for the given path.
func NewAlertLogWriter(path string) *AlertLogWriter {
	return &AlertLogWriter{path: path}
}

// Path returns the log file location.
func (w *AlertLogWriter) Path() string { return w.path }

// Write appends an event to the log file.
func (w *AlertLogWriter) Write(e model.AlertEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(e)
}

// ReadAlertLog reads all events from a JSONL file, oldest first. A missing
// file is not an error.
func ReadAlertLog(path string) ([]model.AlertEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []model.AlertEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e model.AlertEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip malformed lines
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// AlertNotifications converts activations from the log into panel entries,
// newest last so they can be pushed in order.
func AlertNotifications(events []model.AlertEvent) []model.Notification {
	var out []model.Notification
	for _, e := range events {
		if !e.Active {
			continue
		}
		out = append(out, model.Notification{
			ID:      e.ID,
			Message: e.Message,
			Level:   model.StatusCritical,
			Time:    e.TriggeredAt,
		})
	}
	return out
}
