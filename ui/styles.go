package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/sensetop/model"
)

var (
	// Colors
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorGray    = lipgloss.Color("#6272A4")
	colorPanel   = lipgloss.Color("#44475A")
	colorBlack   = lipgloss.Color("#282A36")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle   = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite)
	helpStyle     = lipgloss.NewStyle().Foreground(colorGray)
	dimStyle      = lipgloss.NewStyle().Foreground(colorGray)

	bannerStyle = lipgloss.NewStyle().
			Background(colorRed).
			Foreground(colorWhite).
			Bold(true).
			Padding(0, 1)
)

// statusStyle maps a status level to its foreground colour.
func statusStyle(s model.StatusLevel) lipgloss.Style {
	switch s {
	case model.StatusNormal:
		return okStyle
	case model.StatusWarning:
		return warnStyle
	case model.StatusCritical:
		return critStyle
	default:
		return dimStyle
	}
}

func statusColor(s model.StatusLevel) lipgloss.Color {
	switch s {
	case model.StatusNormal:
		return colorGreen
	case model.StatusWarning:
		return colorYellow
	case model.StatusCritical:
		return colorRed
	default:
		return colorGray
	}
}

// badge renders a status pill, e.g. " CRITICAL ".
func badge(s model.StatusLevel) string {
	return lipgloss.NewStyle().
		Background(statusColor(s)).
		Foreground(colorBlack).
		Bold(true).
		Padding(0, 1).
		Render(strings.ToUpper(s.String()))
}

// onlineDot is a filled dot when the sensor reports, hollow otherwise.
func onlineDot(online bool) string {
	if online {
		return okStyle.Render("●")
	}
	return dimStyle.Render("○")
}
