package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/sensetop/collector"
	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/export"
	"github.com/ftahirops/sensetop/model"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeBackend struct {
	view      model.View
	notes     []model.Notification
	history   *engine.History
	refreshes int
	intervals []int
}

func newFakeBackend() *fakeBackend {
	var sensors []model.SensorView
	for _, s := range collector.DefaultSensors() {
		sensors = append(sensors, model.SensorView{Sensor: s, Status: model.StatusOffline})
	}
	sensors[0].HasReading = true
	sensors[0].Online = true
	sensors[0].Reading = model.SensorReading{SensorID: sensors[0].Sensor.ID, Value: 36.2, ObservedAt: testNow}
	sensors[0].Status = model.StatusCritical

	h := engine.NewHistory(10)
	for i, v := range []float64{24, 25, 36.2} {
		h.Push(&model.ReadingSet{
			FetchedAt: testNow.Add(time.Duration(i) * 10 * time.Second),
			Readings:  []model.SensorReading{{SensorID: collector.SensorTemp1, Value: v}},
		})
	}
	return &fakeBackend{
		view: model.View{
			Sensors:         sensors,
			IntervalSeconds: 10,
			LastUpdate:      testNow,
			Alert:           &model.AlertEvent{ID: "a1", Message: "Temperature (Sensor 1) is critical", Active: true},
		},
		notes: []model.Notification{
			{ID: "n1", Message: "Temperature (Sensor 1) is critical", Level: model.StatusCritical, Time: testNow.Add(-2 * time.Minute)},
		},
		history: h,
	}
}

func (f *fakeBackend) View() model.View                    { return f.view }
func (f *fakeBackend) RefreshNow()                         { f.refreshes++ }
func (f *fakeBackend) Notifications() []model.Notification { return f.notes }
func (f *fakeBackend) History() *engine.History            { return f.history }
func (f *fakeBackend) ClearNotifications()                 { f.notes = nil }

func (f *fakeBackend) SetInterval(sec int) error {
	if !engine.ValidInterval(sec) {
		return engine.ErrInvalidInterval
	}
	f.intervals = append(f.intervals, sec)
	f.view.IntervalSeconds = sec
	return nil
}

func (f *fakeBackend) DismissAlert() bool {
	if f.view.Alert == nil {
		return false
	}
	f.view.Alert = nil
	return true
}

type fakeExporter struct {
	kinds []export.Kind
	err   error
}

func (f *fakeExporter) Export(ctx context.Context, kind export.Kind) (string, error) {
	f.kinds = append(f.kinds, kind)
	if f.err != nil {
		return "", f.err
	}
	return kind.FileName(), nil
}

func newTestModel(b *fakeBackend, exp Exporter) Model {
	m := NewModel(b, exp)
	m.now = func() time.Time { return testNow }
	m.width, m.height = 120, 50
	return m
}

func press(t *testing.T, m Model, key string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestIntervalKeys(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, nil)

	m, _ = press(t, m, "i")
	m, _ = press(t, m, "i")
	assert.Equal(t, []int{30, 60}, b.intervals)
	assert.Equal(t, 60, m.view.IntervalSeconds)

	m, _ = press(t, m, "I")
	assert.Equal(t, 30, m.view.IntervalSeconds)

	b.view.IntervalSeconds = 10
	m.view.IntervalSeconds = 10
	m, _ = press(t, m, "I")
	assert.Equal(t, 300, m.view.IntervalSeconds, "wraps backwards")
	assert.Equal(t, "Refresh every 5m", m.statusMsg)
}

func TestActionKeys(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, nil)

	m, _ = press(t, m, "r")
	assert.Equal(t, 1, b.refreshes)

	assert.Contains(t, m.View(), "CRITICAL ALERT")
	m, _ = press(t, m, "x")
	assert.Nil(t, m.view.Alert)
	assert.NotContains(t, m.View(), "CRITICAL ALERT")

	m, _ = press(t, m, "c")
	assert.Empty(t, m.notes)
}

func TestPageKeys(t *testing.T) {
	m := newTestModel(newFakeBackend(), nil)
	tests := []struct {
		key  string
		want Page
	}{
		{"2", PageTrends},
		{"3", PageElectricity},
		{"4", PageNotifications},
		{"1", PageOverview},
		{"tab", PageTrends},
	}
	for _, tt := range tests {
		m, _ = press(t, m, tt.key)
		assert.Equal(t, tt.want, m.page, "after %q", tt.key)
	}
}

func TestExportFlow(t *testing.T) {
	exp := &fakeExporter{}
	m := newTestModel(newFakeBackend(), exp)

	m, _ = press(t, m, "e")
	assert.True(t, m.exportPending)
	assert.Contains(t, m.renderStatusBar(), "fire-smoke")

	m, cmd := press(t, m, "2")
	require.NotNil(t, cmd)
	assert.False(t, m.exportPending)
	assert.True(t, m.exporting)

	done := cmd()
	next, _ := m.Update(done)
	m = next.(Model)
	assert.Equal(t, []export.Kind{export.KindFireSmoke}, exp.kinds)
	assert.False(t, m.exporting)
	assert.Equal(t, "Exported fire-smoke-data.xlsx", m.statusMsg)
}

func TestExportCancelAndFailure(t *testing.T) {
	exp := &fakeExporter{err: errors.New("status 401")}
	m := newTestModel(newFakeBackend(), exp)

	m, _ = press(t, m, "e")
	m, cmd := press(t, m, "esc")
	assert.Nil(t, cmd)
	assert.Equal(t, "Export cancelled", m.statusMsg)

	m, _ = press(t, m, "e")
	m, cmd = press(t, m, "1")
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Contains(t, m.statusMsg, "failed: status 401")
}

func TestExportNotConfigured(t *testing.T) {
	m := newTestModel(newFakeBackend(), nil)
	m, _ = press(t, m, "e")
	assert.False(t, m.exportPending)
	assert.Equal(t, "Export is not configured", m.statusMsg)
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(newFakeBackend(), nil)
	m, _ = press(t, m, "?")
	assert.Contains(t, m.View(), "Press any key to close")
	m, cmd := press(t, m, "q")
	assert.Nil(t, cmd, "first key only closes help")
	assert.False(t, m.showHelp)

	_, cmd = press(t, m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTickRefreshesView(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, nil)
	b.view.IntervalSeconds = 300
	next, cmd := m.Update(tickMsg(testNow))
	assert.NotNil(t, cmd)
	assert.Equal(t, 300, next.(Model).view.IntervalSeconds)
}

func TestPagesRender(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, nil)

	out := m.View()
	assert.Contains(t, out, "Temperature (Sensor 1)")
	assert.Contains(t, out, "36.2 °C")
	assert.Contains(t, out, "Sensor Status")
	assert.Contains(t, out, "Safety Status")
	assert.Contains(t, out, "OFFLINE")

	m.page = PageTrends
	out = m.View()
	assert.Contains(t, out, "3 samples kept")
	assert.Contains(t, out, "now: 36.2")

	m.page = PageElectricity
	out = m.View()
	assert.Contains(t, out, "Voltage (3-Phase)")

	m.page = PageNotifications
	out = m.View()
	assert.Contains(t, out, "2 minutes ago")
}

func TestFmtInterval(t *testing.T) {
	assert.Equal(t, "10s", fmtInterval(10))
	assert.Equal(t, "1m", fmtInterval(60))
	assert.Equal(t, "5m", fmtInterval(300))
}

func TestStatusBarShowsFetchError(t *testing.T) {
	b := newFakeBackend()
	b.view.LastError = "GET /sensor1: status 500"
	m := newTestModel(b, nil)
	assert.True(t, strings.Contains(m.renderStatusBar(), "fetch failed"))
	assert.Equal(t, model.StatusWarning, networkStatus(m.view))
}
