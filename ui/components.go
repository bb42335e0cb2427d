package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/model"
)

const (
	cardInner = 26 // inner width of a sensor card
	colLabel  = 24
)

// styledPad pads a styled string to the given visual width using spaces.
// Unlike fmt.Sprintf("%-Xs"), this accounts for ANSI escape codes.
func styledPad(styled string, width int) string {
	visW := lipgloss.Width(styled)
	if visW >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-visW)
}

// ─── BOX DRAWING HELPERS ─────────────────────────────────────────────────────

// boxTop renders the top border of a rounded box.
func boxTop(innerW int) string {
	return dimStyle.Render("╭" + strings.Repeat("─", innerW+2) + "╮")
}

func boxBot(innerW int) string {
	return dimStyle.Render("╰" + strings.Repeat("─", innerW+2) + "╯")
}

func boxMid(innerW int) string {
	return dimStyle.Render("├" + strings.Repeat("─", innerW+2) + "┤")
}

// boxRow renders one content line inside a box, padded to innerW.
func boxRow(content string, innerW int) string {
	pad := innerW - lipgloss.Width(content)
	if pad < 0 {
		pad = 0
	}
	return dimStyle.Render("│") + " " + content + strings.Repeat(" ", pad) + " " + dimStyle.Render("│")
}

// boxSection renders a titled section inside a bordered box.
func boxSection(title string, lines []string, innerW int) string {
	var sb strings.Builder
	sb.WriteString(boxTop(innerW) + "\n")
	sb.WriteString(boxRow(headerStyle.Render(title), innerW) + "\n")
	sb.WriteString(boxMid(innerW) + "\n")
	for _, line := range lines {
		sb.WriteString(boxRow(line, innerW) + "\n")
	}
	sb.WriteString(boxBot(innerW))
	return sb.String()
}

// pageInnerW computes box inner width from terminal width.
func pageInnerW(termWidth int) int {
	w := termWidth - 4
	if w < 40 {
		w = 40
	}
	return w
}

// gaugeBar renders ratio (0..1) as a bar coloured by status.
func gaugeBar(ratio float64, width int, s model.StatusLevel) string {
	if width < 1 {
		width = 10
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	b := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return statusStyle(s).Render(b)
}

// fmtValue renders the reading rounded and digit-grouped, with trailing
// zeros trimmed, or "--" when the sensor never reported.
func fmtValue(sv model.SensorView) string {
	if !sv.HasReading {
		return "--"
	}
	digits := 1
	if sv.Sensor.Metric == model.MetricPowerFactor {
		digits = 2
	}
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(sv.Reading.Value, 'f', digits, 64), 64)
	v := humanize.Commaf(rounded)
	if sv.Sensor.Unit == "" {
		return v
	}
	return v + " " + sv.Sensor.Unit
}

// sensorCard renders one sensor as a bordered card.
func sensorCard(sv model.SensorView) string {
	ratio := 0.0
	if sv.HasReading {
		ratio = engine.Gauge(sv.Reading.Value, sv.Sensor.Min, sv.Sensor.Max)
	}
	lines := []string{
		styledPad(valueStyle.Render(fmtValue(sv)), cardInner-2) + onlineDot(sv.Online),
		gaugeBar(ratio, cardInner, sv.Status),
		badge(sv.Status),
	}
	return boxSection(truncate(sv.Sensor.Label, cardInner), lines, cardInner)
}

// statusRow renders "label ........ BADGE" for the status panels.
func statusRow(label string, s model.StatusLevel) string {
	return styledPad(dimStyle.Render(truncate(label, colLabel)), colLabel+2) + badge(s)
}

func padRight(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		if width > 3 {
			return string(r[:width-3]) + "..."
		}
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

// truncate shortens s to maxLen runes with ellipsis if needed.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// sparkline renders a single-line chart. Empty data renders a flat line.
func sparkline(data []float64, width int, minVal, maxVal float64) string {
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	if len(data) == 0 {
		return dimStyle.Render(strings.Repeat("▁", width))
	}
	if maxVal <= minVal {
		maxVal = minVal + 1
	}
	resampled := resampleData(data, width)

	var sb strings.Builder
	for _, v := range resampled {
		ratio := (v - minVal) / (maxVal - minVal)
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		idx := int(ratio * float64(len(blocks)-1))
		sb.WriteString(titleStyle.Render(string(blocks[idx])))
	}
	return sb.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
