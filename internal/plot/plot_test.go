package plot

import (
	"bytes"
	"testing"

	"market-dashboard/internal/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func render(t *testing.T, r Renderer) string {
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	return buf.String()
}

func TestLossProfit(t *testing.T) {
	chart := &analytics.LossProfitChart{Year: 2021, Tickers: []string{"AAA", "BBB"}, Losses: []int{1, 3}, Profits: []int{2, 0}}

	html := render(t, LossProfit(chart))

	assert.Contains(t, html, "Counts of Losses and Profits by Ticker in 2021")
	assert.Contains(t, html, "Loss")
	assert.Contains(t, html, "Profit")
	assert.Contains(t, html, "direction")
	assert.Contains(t, html, "AAA")
}

func TestPercentageChange(t *testing.T) {
	chart := &analytics.PercentageChangeChart{
		Year:   2021,
		Dates:  []string{"2021-01-04", "2021-01-05"},
		Series: []analytics.Series{{Name: "AAA", Values: []*float64{f(1.5), nil}}},
	}

	html := render(t, PercentageChange(chart))

	assert.Contains(t, html, "Price Percentage Change in 2021")
	assert.Contains(t, html, "2021-01-05")
	assert.Contains(t, html, "1.5")
}

func TestMonthlyVolume(t *testing.T) {
	chart := &analytics.MonthlyVolumeChart{
		Year:   2021,
		Months: []string{"January", "March"},
		Series: []analytics.VolumeSeries{{Name: "Alpha", Values: []int64{30, 40}}},
	}

	html := render(t, MonthlyVolume(chart))

	assert.Contains(t, html, "Monthly Volume Sum for Each Ticker in 2021")
	assert.Contains(t, html, "January")
	assert.Contains(t, html, "Alpha")
}

func TestAdjClose(t *testing.T) {
	chart := &analytics.AdjCloseChart{
		Year:  2021,
		From:  "2021-01-04",
		To:    "2021-01-05",
		Dates: []string{"2021-01-04", "2021-01-05"},
		Series: []analytics.Series{
			{Name: "AAA", Values: []*float64{f(10), f(11)}},
			{Name: "AAA Moving Average", Values: []*float64{nil, nil}},
		},
	}

	html := render(t, AdjClose(chart))

	assert.Contains(t, html, "Adjusted Close Over Time")
	assert.Contains(t, html, "2021-01-04 to 2021-01-05")
	assert.Contains(t, html, "slider")
	assert.Contains(t, html, "navy")
	assert.Contains(t, html, "dashed")
}

func TestFloatLines_Gaps(t *testing.T) {
	data := floatLines([]*float64{f(1), nil})

	assert.Equal(t, 1.0, data[0].Value)
	assert.Equal(t, missing, data[1].Value)
}
