package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/tgienger/bugtrack/internal/category"
	"github.com/tgienger/bugtrack/internal/models"
	"github.com/tgienger/bugtrack/internal/ui/styles"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline draws one rune per value, scaled to the largest value
func sparkline(values []int) string {
	peak := 0
	for _, v := range values {
		peak = max(peak, v)
	}

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if peak > 0 && v > 0 {
			idx = v * (len(sparkLevels) - 1) / peak
		}
		b.WriteRune(sparkLevels[idx])
	}
	return b.String()
}

const chartLabelWidth = 26

// distributionBars renders one horizontal bar per category. Empty categories
// are left out.
func distributionBars(s *styles.Styles, cats []models.BugCategory, width int) string {
	peak := 0
	for _, c := range cats {
		peak = max(peak, c.Count)
	}
	if peak == 0 {
		return s.TitleMuted.Render("No categorised bugs yet.")
	}

	barWidth := max(width-chartLabelWidth-8, 4)
	var rows []string
	for _, c := range cats {
		if c.Count == 0 {
			continue
		}
		n := max(c.Count*barWidth/peak, 1)
		label := runewidth.FillRight(category.Truncate(c.Name, chartLabelWidth-4), chartLabelWidth)
		rows = append(rows, fmt.Sprintf("%s%s %d",
			s.ChartLabel.Render(label),
			s.ChartBar.Render(strings.Repeat("█", n)),
			c.Count,
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
