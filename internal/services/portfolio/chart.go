package portfolio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/foliohq/folio/internal/domain"
	"github.com/foliohq/folio/internal/models"
)

// RenderNetValueChart renders a PNG line chart of the portfolio's net
// value history. NetValues is stored newest-first, one point per
// contribution; the chart plots it in chronological order. Returns raw
// PNG bytes.
func RenderNetValueChart(portfolio *models.Portfolio) ([]byte, error) {
	points := portfolio.Ledger.NetValues
	if len(points) < 2 {
		return nil, domain.Validation("need at least 2 net value points, got %d", len(points))
	}

	// NetValues is newest-first, Contributions oldest-first. Timestamps
	// come from the matching contribution where history still has one;
	// points pruned past the contribution window fall back to day spacing.
	contributions := portfolio.Ledger.Contributions
	xValues := make([]time.Time, len(points))
	yValues := make([]float64, len(points))

	now := time.Now()
	for i, v := range points {
		chronological := len(points) - 1 - i
		if ci := len(contributions) - 1 - i; ci >= 0 {
			xValues[chronological] = contributions[ci].Timestamp
		} else {
			xValues[chronological] = now.AddDate(0, 0, -i)
		}
		yValues[chronological] = v
	}

	netSeries := chart.TimeSeries{
		Name: "Net Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Net Value", portfolio.Name),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			netSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
