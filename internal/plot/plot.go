// Package plot renders the dashboard charts as standalone ECharts pages.
package plot

import (
	"fmt"
	"io"

	"market-dashboard/internal/analytics"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Renderer is anything that can write itself as an HTML page.
type Renderer interface {
	Render(w io.Writer) error
}

const (
	lossColor  = "red"
	gainColor  = "green"
	rangeColor = "navy"
)

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: title,
		Width:     "100%",
		Height:    "420px",
	})
}

// LossProfit draws the per-ticker loss and profit counts as stacked bars.
func LossProfit(c *analytics.LossProfitChart) *charts.Bar {
	title := fmt.Sprintf("Counts of Losses and Profits by Ticker in %d", c.Year)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Ticker"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
	)

	bar.SetXAxis(c.Tickers).
		AddSeries("Loss", intBars(c.Losses), charts.WithItemStyleOpts(opts.ItemStyle{Color: lossColor})).
		AddSeries("Profit", intBars(c.Profits), charts.WithItemStyleOpts(opts.ItemStyle{Color: gainColor})).
		SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "direction"}))
	return bar
}

// PercentageChange draws the daily percentage change per ticker.
func PercentageChange(c *analytics.PercentageChangeChart) *charts.Bar {
	title := fmt.Sprintf("Price Percentage Change in %d", c.Year)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)

	bar.SetXAxis(c.Dates)
	for _, s := range c.Series {
		bar.AddSeries(s.Name, floatBars(s.Values))
	}
	return bar
}

// MonthlyVolume draws the monthly volume sums as grouped bars, one group per month.
func MonthlyVolume(c *analytics.MonthlyVolumeChart) *charts.Bar {
	title := fmt.Sprintf("Monthly Volume Sum for Each Ticker in %d", c.Year)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Month"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Volume"}),
	)

	bar.SetXAxis(c.Months)
	for _, s := range c.Series {
		data := make([]opts.BarData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.BarData{Value: v}
		}
		bar.AddSeries(s.Name, data)
	}
	return bar
}

// AdjClose draws adjusted close lines with a range slider under the plot.
func AdjClose(c *analytics.AdjCloseChart) *charts.Line {
	title := "Adjusted Close Over Time"

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%s to %s", c.From, c.To)}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Adj Close"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100, XAxisIndex: []int{0}}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100, XAxisIndex: []int{0}}),
	)

	line.SetXAxis(c.Dates)
	for i, s := range c.Series {
		style := opts.LineStyle{}
		if i%2 == 1 {
			// moving average of the preceding ticker line
			style.Type = "dashed"
		} else if len(c.Series) == 2 {
			style.Color = rangeColor
		}
		line.AddSeries(s.Name, floatLines(s.Values), charts.WithLineStyleOpts(style))
	}
	return line
}

func intBars(values []int) []opts.BarData {
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}
	return data
}

// missing is the ECharts placeholder for an absent point.
const missing = "-"

func floatBars(values []*float64) []opts.BarData {
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		if v == nil {
			data[i] = opts.BarData{Value: missing}
			continue
		}
		data[i] = opts.BarData{Value: *v}
	}
	return data
}

func floatLines(values []*float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if v == nil {
			data[i] = opts.LineData{Value: missing}
			continue
		}
		data[i] = opts.LineData{Value: *v}
	}
	return data
}
