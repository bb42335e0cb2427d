package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/sensetop/engine"
)

// areaChart renders a multi-line area chart with Y-axis labels, sub-cell
// resolution using fractional block characters, and per-cell coloring.
//
//	Temperature (Sensor 1)                           now: 26.4
//	 40│
//	 30│          ████
//	 20│████████████████████████████████
//	 10│████████████████████████████████████████
//	   └────────────────────────────────────────
//	   16:30:00                        16:35:00
func areaChart(data []float64, label string, width, height int, minVal, maxVal float64,
	colorFn func(float64) lipgloss.Style, startTime, endTime time.Time) string {

	if height < 2 {
		height = 2
	}
	if maxVal <= minVal {
		maxVal = minVal + 1
	}

	axisW := 4 // e.g. "100│"
	chartW := width - axisW - 1
	if chartW < 10 {
		chartW = 10
	}

	resampled := resampleData(data, chartW)

	// Sub-block characters for fractional fill within a cell
	subBlocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render(label))
	if len(data) > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  now: %.1f", data[len(data)-1])))
	} else {
		sb.WriteString(dimStyle.Render("  no data yet"))
	}
	sb.WriteString("\n")

	rangeVal := maxVal - minVal

	for row := height - 1; row >= 0; row-- {
		yVal := minVal + (float64(row+1)/float64(height))*rangeVal
		sb.WriteString(dimStyle.Render(fmt.Sprintf("%3.0f", yVal)))
		sb.WriteString(dimStyle.Render("│"))

		for col := 0; col < len(resampled); col++ {
			val := resampled[col]
			normalized := (val - minVal) / rangeVal * float64(height)

			cellBottom := float64(row)
			cellTop := float64(row + 1)

			var ch rune
			switch {
			case normalized >= cellTop:
				ch = '█'
			case normalized <= cellBottom:
				ch = ' '
			default:
				idx := int((normalized - cellBottom) * 8)
				if idx >= len(subBlocks) {
					idx = len(subBlocks) - 1
				}
				if idx < 0 {
					idx = 0
				}
				ch = subBlocks[idx]
			}

			if ch == ' ' {
				sb.WriteRune(' ')
			} else {
				sb.WriteString(colorFn(val).Render(string(ch)))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(dimStyle.Render("   └" + strings.Repeat("─", len(resampled))))
	sb.WriteString("\n")

	if !startTime.IsZero() && !endTime.IsZero() {
		left := startTime.Format("15:04:05")
		right := endTime.Format("15:04:05")
		gap := len(resampled) - len(left) - len(right) + axisW
		if gap < 1 {
			gap = 1
		}
		sb.WriteString(dimStyle.Render("   " + left + strings.Repeat(" ", gap) + right))
	}

	return sb.String()
}

// resampleData reduces or returns data to fit targetWidth columns.
func resampleData(data []float64, targetWidth int) []float64 {
	if len(data) == 0 || targetWidth <= 0 {
		return nil
	}
	if len(data) <= targetWidth {
		return data
	}
	result := make([]float64, targetWidth)
	for i := 0; i < targetWidth; i++ {
		// Average the bucket of source values that map to this column
		srcStart := i * len(data) / targetWidth
		srcEnd := (i + 1) * len(data) / targetWidth
		if srcEnd > len(data) {
			srcEnd = len(data)
		}
		if srcStart >= srcEnd {
			srcStart = srcEnd - 1
			if srcStart < 0 {
				srcStart = 0
			}
		}
		sum := float64(0)
		count := 0
		for j := srcStart; j < srcEnd; j++ {
			sum += data[j]
			count++
		}
		if count > 0 {
			result[i] = sum / float64(count)
		}
	}
	return result
}

func temperatureColor(v float64) lipgloss.Style {
	return statusStyle(engine.ClassifyTemperature(v))
}

func humidityColor(v float64) lipgloss.Style {
	return statusStyle(engine.ClassifyHumidity(v))
}

// autoRange pads the observed range so a flat series is still visible.
func autoRange(data []float64, floor, ceil float64) (float64, float64) {
	if len(data) == 0 {
		return floor, ceil
	}
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo > floor {
		lo = floor
	}
	if hi < ceil {
		hi = ceil
	}
	return lo, hi
}
