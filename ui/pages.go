package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/sensetop/collector"
	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/model"
)

// overviewCards are the dashboard cards, in display order.
var overviewCards = []string{
	collector.SensorTemp1, collector.SensorTemp2,
	collector.SensorHum1, collector.SensorHum2,
	collector.SensorFire, collector.SensorSmoke,
	collector.SensorVoltage, collector.SensorPower,
}

var electricitySensors = []string{
	collector.SensorVoltage, collector.SensorCurrent, collector.SensorPower,
	collector.SensorEnergy, collector.SensorFrequency, collector.SensorPowerFactor,
}

func renderOverview(v model.View, width int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Monitoring Dashboard") + "\n")

	cardW := cardInner + 4
	perRow := width / (cardW + 1)
	if perRow < 1 {
		perRow = 1
	}
	if perRow > 4 {
		perRow = 4
	}
	var row []string
	for _, id := range overviewCards {
		sv, ok := v.Sensor(id)
		if !ok {
			continue
		}
		row = append(row, sensorCard(sv))
		if len(row) == perRow {
			sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, spaced(row)...) + "\n")
			row = nil
		}
	}
	if len(row) > 0 {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, spaced(row)...) + "\n")
	}

	panelW := colLabel + 12
	sensorStatus := make([]string, 0, 4)
	for _, id := range []string{collector.SensorTemp1, collector.SensorTemp2, collector.SensorHum1, collector.SensorHum2} {
		if sv, ok := v.Sensor(id); ok {
			sensorStatus = append(sensorStatus, statusRow(sv.Sensor.Label, sv.Status))
		}
	}
	safety := make([]string, 0, 4)
	for _, id := range []string{collector.SensorFire, collector.SensorSmoke} {
		if sv, ok := v.Sensor(id); ok {
			safety = append(safety, statusRow(sv.Sensor.Label, sv.Status))
		}
	}
	safety = append(safety,
		statusRow("Network Status", networkStatus(v)),
		statusRow("System Status", v.Worst()))

	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		boxSection("Sensor Status", sensorStatus, panelW), " ",
		boxSection("Safety Status", safety, panelW)))
	return sb.String()
}

// networkStatus is warning while the last fetch failed, normal otherwise.
func networkStatus(v model.View) model.StatusLevel {
	if v.LastError != "" {
		return model.StatusWarning
	}
	return model.StatusNormal
}

func spaced(blocks []string) []string {
	out := make([]string, 0, 2*len(blocks))
	for i, b := range blocks {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, b)
	}
	return out
}

func renderTrends(v model.View, h *engine.History, width, height int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Trends") + dimStyle.Render(fmt.Sprintf("  %s kept", plural(h.Len(), "sample"))) + "\n\n")

	times := h.Times()
	var start, end time.Time
	if len(times) > 0 {
		start, end = times[0], times[len(times)-1]
	}

	chartH := (height - 10) / 4
	if chartH < 3 {
		chartH = 3
	}
	chartW := width/2 - 2
	if chartW < 30 {
		chartW = width - 2
	}

	chart := func(id string, colorFn func(float64) lipgloss.Style, floor, ceil float64) string {
		label := id
		if sv, ok := v.Sensor(id); ok {
			label = sv.Sensor.Label
		}
		data := h.Series(id)
		lo, hi := autoRange(data, floor, ceil)
		return areaChart(data, label, chartW, chartH, lo, hi, colorFn, start, end)
	}

	temps := []string{
		chart(collector.SensorTemp1, temperatureColor, 0, 40),
		chart(collector.SensorTemp2, temperatureColor, 0, 40),
	}
	hums := []string{
		chart(collector.SensorHum1, humidityColor, 0, 100),
		chart(collector.SensorHum2, humidityColor, 0, 100),
	}
	if chartW == width-2 {
		sb.WriteString(strings.Join(append(temps, hums...), "\n\n"))
		return sb.String()
	}
	sb.WriteString(headerStyle.Render("Temperature") + "\n")
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, temps[0], "  ", temps[1]) + "\n\n")
	sb.WriteString(headerStyle.Render("Humidity") + "\n")
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, hums[0], "  ", hums[1]))
	return sb.String()
}

func renderElectricity(v model.View, h *engine.History, width int) string {
	innerW := pageInnerW(width)
	sparkW := innerW - colLabel - 16 - 12
	if sparkW < 10 {
		sparkW = 10
	}
	lines := make([]string, 0, len(electricitySensors))
	for _, id := range electricitySensors {
		sv, ok := v.Sensor(id)
		if !ok {
			continue
		}
		lo, hi := autoRange(h.Series(id), sv.Sensor.Min, sv.Sensor.Max)
		lines = append(lines, onlineDot(sv.Online)+" "+
			styledPad(sv.Sensor.Label, colLabel)+
			styledPad(valueStyle.Render(fmtValue(sv)), 16)+
			styledPad(badge(sv.Status), 12)+
			sparkline(h.Series(id), sparkW, lo, hi))
	}
	return boxSection("Electricity", lines, innerW)
}

func renderNotifications(notes []model.Notification, now time.Time, width, height int) string {
	innerW := pageInnerW(width)
	if len(notes) == 0 {
		return boxSection("Notifications", []string{dimStyle.Render("No notifications")}, innerW)
	}
	maxRows := height - 8
	if maxRows < 1 {
		maxRows = 1
	}
	lines := make([]string, 0, len(notes))
	for i, n := range notes {
		if i == maxRows {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("... %d more", len(notes)-maxRows)))
			break
		}
		age := engine.Age(n, now)
		msgW := innerW - 12 - len(age) - 2
		if msgW < 10 {
			msgW = 10
		}
		lines = append(lines, styledPad(badge(n.Level), 12)+
			styledPad(padRight(n.Message, msgW), msgW+2)+
			dimStyle.Render(age))
	}
	return boxSection(fmt.Sprintf("Notifications (%d)", len(notes)), lines, innerW)
}

func renderHelp() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("sensetop  environmental and power monitor"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("Pages"))
	sb.WriteString("\n")
	sb.WriteString("  1         Overview (sensor cards, status panels)\n")
	sb.WriteString("  2         Trends (temperature and humidity history)\n")
	sb.WriteString("  3         Electricity (3-phase meter)\n")
	sb.WriteString("  4         Notifications\n")
	sb.WriteString("  Tab       Next page\n")
	sb.WriteString("\n")
	sb.WriteString(headerStyle.Render("Controls"))
	sb.WriteString("\n")
	sb.WriteString("  r         Refresh now\n")
	sb.WriteString("  i / I     Next / previous refresh interval (10s, 30s, 1m, 5m)\n")
	sb.WriteString("  x         Dismiss the alert banner\n")
	sb.WriteString("  c         Clear notifications\n")
	sb.WriteString("  e 1/2/3   Export sensor / fire-smoke / electricity data to xlsx\n")
	sb.WriteString("  ?         Toggle this help\n")
	sb.WriteString("  q/Ctrl+C  Quit\n")
	sb.WriteString("\n")
	sb.WriteString(headerStyle.Render("Status"))
	sb.WriteString("\n")
	sb.WriteString("  " + badge(model.StatusNormal) + " " + badge(model.StatusWarning) + " " +
		badge(model.StatusCritical) + " " + badge(model.StatusOffline) + "\n")
	sb.WriteString("  A sensor is offline when it has not reported for 60s.\n")
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Press any key to close"))
	return sb.String()
}
