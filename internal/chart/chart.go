// Package chart renders the per-direction distribution as a PNG bar
// chart for the /grafik command.
package chart

import (
	"bytes"
	"errors"
	"fmt"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/shohabbosdev/registrybot/internal/registry"
)

// ErrNoData means the grouping column had no non-empty values.
var ErrNoData = errors.New("no data to chart")

// maxLabelLen keeps long direction names from colliding on the axis.
const maxLabelLen = 24

// DirectionBar renders one bar per group, ordered by descending count.
func DirectionBar(groups []registry.GroupSummary) (*bytes.Buffer, error) {
	if len(groups) == 0 {
		return nil, ErrNoData
	}

	bars := make([]gochart.Value, 0, len(groups))
	for _, g := range groups {
		bars = append(bars, gochart.Value{
			Label: fmt.Sprintf("%s (%d)", trimLabel(g.Label), g.Total),
			Value: float64(g.Total),
		})
	}

	width := 80 * len(bars)
	if width < 800 {
		width = 800
	}
	if width > 1600 {
		width = 1600
	}

	bc := gochart.BarChart{
		Title:    "Yo'nalishlar bo'yicha taqsimot",
		Width:    width,
		Height:   600,
		BarWidth: 48,
		Bars:     bars,
		XAxis: gochart.Style{
			TextRotationDegrees: 45,
		},
	}

	buf := &bytes.Buffer{}
	if err := bc.Render(gochart.PNG, buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf, nil
}

func trimLabel(s string) string {
	runes := []rune(s)
	if len(runes) <= maxLabelLen {
		return s
	}
	return string(runes[:maxLabelLen-1]) + "…"
}
