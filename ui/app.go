package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/export"
	"github.com/ftahirops/sensetop/model"
)

// Page identifies the current screen.
type Page int

const (
	PageOverview Page = iota
	PageTrends
	PageElectricity
	PageNotifications
	pageCount
)

var pageNames = []string{"Overview", "Trends", "Electricity", "Notifications"}

// pollInterval is how often the model re-reads the engine view. Fetch
// cadence is owned by the engine.
const pollInterval = time.Second

const statusTTL = 5 * time.Second

// Backend is the engine surface the TUI drives.
type Backend interface {
	View() model.View
	RefreshNow()
	SetInterval(sec int) error
	DismissAlert() bool
	ClearNotifications()
	Notifications() []model.Notification
	History() *engine.History
}

// Exporter writes backend data to a spreadsheet.
type Exporter interface {
	Export(ctx context.Context, kind export.Kind) (string, error)
}

type tickMsg time.Time

type exportDoneMsg struct {
	kind export.Kind
	path string
	err  error
}

// Model is the bubbletea model.
type Model struct {
	backend  Backend
	exporter Exporter
	now      func() time.Time

	width  int
	height int

	view  model.View
	notes []model.Notification

	page          Page
	showHelp      bool
	exportPending bool
	exporting     bool

	statusMsg  string
	statusTime time.Time
}

// NewModel creates a TUI over backend. exporter may be nil.
func NewModel(backend Backend, exporter Exporter) Model {
	return Model{
		backend:  backend,
		exporter: exporter,
		now:      time.Now,
		view:     backend.View(),
		notes:    backend.Notifications(),
	}
}

func (m Model) Init() tea.Cmd {
	return tick(pollInterval)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func runExport(exp Exporter, kind export.Kind) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		path, err := exp.Export(ctx, kind)
		return exportDoneMsg{kind: kind, path: path, err: err}
	}
}

func (m *Model) refresh() {
	m.view = m.backend.View()
	m.notes = m.backend.Notifications()
}

func (m *Model) setStatus(format string, args ...interface{}) {
	m.statusMsg = fmt.Sprintf(format, args...)
	m.statusTime = m.now()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.refresh()
		return m, tick(pollInterval)
	case exportDoneMsg:
		m.exporting = false
		if msg.err != nil {
			m.setStatus("Export %s failed: %v", msg.kind, msg.err)
		} else {
			m.setStatus("Exported %s", msg.path)
		}
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.exportPending {
		m.exportPending = false
		idx := int(key[0] - '1')
		if len(key) != 1 || idx < 0 || idx >= len(export.Kinds) {
			m.setStatus("Export cancelled")
			return m, nil
		}
		kind := export.Kinds[idx]
		m.exporting = true
		m.setStatus("Exporting %s data...", kind)
		return m, runExport(m.exporter, kind)
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "r":
		m.backend.RefreshNow()
		m.setStatus("Refreshing")
	case "i", "I":
		dir := 1
		if key == "I" {
			dir = -1
		}
		next := engine.NextInterval(m.view.IntervalSeconds, dir)
		if err := m.backend.SetInterval(next); err != nil {
			m.setStatus("Interval: %v", err)
		} else {
			m.setStatus("Refresh every %s", fmtInterval(next))
		}
	case "x":
		if m.backend.DismissAlert() {
			m.setStatus("Alert dismissed")
		}
	case "c":
		m.backend.ClearNotifications()
		m.setStatus("Notifications cleared")
	case "e":
		switch {
		case m.exporter == nil:
			m.setStatus("Export is not configured")
		case m.exporting:
			m.setStatus("Export already running")
		default:
			m.exportPending = true
		}
	case "1", "2", "3", "4":
		m.page = Page(key[0] - '1')
	case "tab":
		m.page = (m.page + 1) % pageCount
	case "shift+tab":
		m.page = (m.page + pageCount - 1) % pageCount
	}
	m.refresh()
	return m, nil
}

func fmtInterval(sec int) string {
	if sec%60 == 0 {
		return fmt.Sprintf("%dm", sec/60)
	}
	return fmt.Sprintf("%ds", sec)
}

func (m Model) View() string {
	if m.showHelp {
		return renderHelp()
	}
	width, height := m.width, m.height
	if width == 0 {
		width, height = 100, 40
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader(width) + "\n")
	if m.view.Alert != nil && m.view.Alert.Active {
		banner := "⚠ CRITICAL ALERT  " + m.view.Alert.Message + "   [x] dismiss"
		sb.WriteString(bannerStyle.Width(width).Render(banner) + "\n")
	}
	sb.WriteString("\n")

	var content string
	switch m.page {
	case PageOverview:
		content = renderOverview(m.view, width)
	case PageTrends:
		content = renderTrends(m.view, m.backend.History(), width, height)
	case PageElectricity:
		content = renderElectricity(m.view, m.backend.History(), width)
	case PageNotifications:
		content = renderNotifications(m.notes, m.now(), width, height)
	}

	lines := strings.Split(content, "\n")
	maxLines := height - 5
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n" + m.renderStatusBar())
	return sb.String()
}

func (m Model) renderHeader(width int) string {
	left := titleStyle.Render("sensetop") + dimStyle.Render("  UMM-BSID Monitoring System")

	var parts []string
	if m.view.Loading {
		parts = append(parts, warnStyle.Render("loading"))
	}
	if !m.view.LastUpdate.IsZero() {
		parts = append(parts, "updated "+m.view.LastUpdate.Local().Format("15:04:05"))
	} else {
		parts = append(parts, "waiting for data")
	}
	parts = append(parts, "every "+fmtInterval(m.view.IntervalSeconds))
	if n := len(m.notes); n > 0 {
		parts = append(parts, critStyle.Render(fmt.Sprintf("🔔 %d", n)))
	}
	right := dimStyle.Render(strings.Join(parts, "  "))
	return styledPad(left, width-lipgloss.Width(right)) + right
}

func (m Model) renderStatusBar() string {
	var tabs []string
	for i, name := range pageNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Page(i) == m.page {
			tabs = append(tabs, selectedStyle.Render(" "+label+" "))
		} else {
			tabs = append(tabs, dimStyle.Render(" "+label+" "))
		}
	}
	bar := strings.Join(tabs, "")

	switch {
	case m.exportPending:
		bar += "  " + warnStyle.Render("export: 1 sensor  2 fire-smoke  3 electricity  (any other key cancels)")
	case m.statusMsg != "" && m.now().Sub(m.statusTime) < statusTTL:
		bar += "  " + okStyle.Render(m.statusMsg)
	case m.view.LastError != "":
		bar += "  " + warnStyle.Render("fetch failed: "+truncate(m.view.LastError, 60))
	default:
		bar += "  " + helpStyle.Render("r refresh  i interval  x dismiss  e export  ? help  q quit")
	}
	return bar
}
