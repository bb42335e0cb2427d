package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/sensetop/model"
)

func TestAlertLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	w := NewAlertLogWriter(path)

	opened := model.AlertEvent{ID: "a1", Message: "Fire is critical", Sensors: []string{"fire"}, TriggeredAt: testEpoch, Active: true}
	closed := opened
	closed.Active = false
	closed.Reason = model.CloseExpired
	require.NoError(t, w.Write(opened))
	require.NoError(t, w.Write(closed))

	// a torn line must not break reading
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, _ = f.WriteString("{not json\n")
	f.Close()

	events, err := ReadAlertLog(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.CloseExpired, events[1].Reason)

	notes := AlertNotifications(events)
	require.Len(t, notes, 1)
	assert.Equal(t, "a1", notes[0].ID)
	assert.Equal(t, model.StatusCritical, notes[0].Level)
}

func TestReadAlertLogMissingFile(t *testing.T) {
	events, err := ReadAlertLog(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.NoError(t, err)
	assert.Nil(t, events)
}
