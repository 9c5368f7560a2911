// Package analytics turns a year of market rows into the data behind the
// dashboard charts.
package analytics

import (
	"sort"
	"time"

	"market-dashboard/internal/market"
)

// Series is one named line or bar series aligned with a chart's categories.
// A nil value means the series has no point for that category.
type Series struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// LossProfitChart counts loss (direction 0) and profit (direction 1) days per ticker.
type LossProfitChart struct {
	Year    int      `json:"year"`
	Tickers []string `json:"tickers"`
	Losses  []int    `json:"losses"`
	Profits []int    `json:"profits"`
}

// PercentageChangeChart holds the daily percentage change per ticker.
type PercentageChangeChart struct {
	Year   int      `json:"year"`
	Dates  []string `json:"dates"`
	Series []Series `json:"series"`
}

// VolumeSeries is the monthly volume of one ticker name.
type VolumeSeries struct {
	Name   string  `json:"name"`
	Values []int64 `json:"values"`
}

// MonthlyVolumeChart sums volume by month and ticker name.
type MonthlyVolumeChart struct {
	Year   int            `json:"year"`
	Months []string       `json:"months"`
	Series []VolumeSeries `json:"series"`
}

// AdjCloseChart holds adjusted close and moving average lines over the
// selection's date range.
type AdjCloseChart struct {
	Year   int      `json:"year"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Dates  []string `json:"dates"`
	Series []Series `json:"series"`
}

// LossProfit groups rows by ticker and counts the price change directions.
func LossProfit(year int, rows []market.Row) *LossProfitChart {
	type counts struct{ loss, profit int }
	byTicker := make(map[string]*counts)
	for _, row := range rows {
		c, ok := byTicker[row.Ticker]
		if !ok {
			c = &counts{}
			byTicker[row.Ticker] = c
		}
		if row.PriceChangeDirection == 1 {
			c.profit++
		} else {
			c.loss++
		}
	}

	chart := &LossProfitChart{Year: year, Tickers: sortedKeys(byTicker)}
	for _, ticker := range chart.Tickers {
		chart.Losses = append(chart.Losses, byTicker[ticker].loss)
		chart.Profits = append(chart.Profits, byTicker[ticker].profit)
	}
	return chart
}

// PercentageChange lays out the percentage change of every row on the
// sorted timestamp axis, one series per ticker. Rows without a percentage
// change (zero open) leave a gap.
func PercentageChange(year int, rows []market.Row) *PercentageChangeChart {
	dates, pos := dateAxis(rows)

	byTicker := make(map[string][]*float64)
	for _, row := range rows {
		values, ok := byTicker[row.Ticker]
		if !ok {
			values = make([]*float64, len(dates))
			byTicker[row.Ticker] = values
		}
		values[pos[row.Date.UnixNano()]] = row.PricePercentageChange
	}

	chart := &PercentageChangeChart{Year: year, Dates: dates}
	for _, ticker := range sortedKeys(byTicker) {
		chart.Series = append(chart.Series, Series{Name: ticker, Values: byTicker[ticker]})
	}
	return chart
}

// MonthlyVolume sums volume by calendar month and ticker name. Months are
// in calendar order and only months with rows are included.
func MonthlyVolume(year int, rows []market.Row) *MonthlyVolumeChart {
	var present [13]bool
	sums := make(map[string]*[13]int64)
	for _, row := range rows {
		m := row.Date.Month()
		present[m] = true
		s, ok := sums[row.TickerName]
		if !ok {
			s = &[13]int64{}
			sums[row.TickerName] = s
		}
		s[m] += row.Volume
	}

	chart := &MonthlyVolumeChart{Year: year}
	var months []time.Month
	for m := time.January; m <= time.December; m++ {
		if present[m] {
			months = append(months, m)
			chart.Months = append(chart.Months, m.String())
		}
	}
	for _, name := range sortedKeys(sums) {
		vs := VolumeSeries{Name: name}
		for _, m := range months {
			vs.Values = append(vs.Values, sums[name][m])
		}
		chart.Series = append(chart.Series, vs)
	}
	return chart
}

// AdjClose builds one adjusted close series and one moving average series
// per ticker over the selection's date range.
func AdjClose(year int, rows []market.Row) *AdjCloseChart {
	dates, pos := dateAxis(rows)

	type lines struct{ adj, ma []*float64 }
	byTicker := make(map[string]*lines)
	for _, row := range rows {
		l, ok := byTicker[row.Ticker]
		if !ok {
			l = &lines{adj: make([]*float64, len(dates)), ma: make([]*float64, len(dates))}
			byTicker[row.Ticker] = l
		}
		i := pos[row.Date.UnixNano()]
		adj := row.AdjClose
		l.adj[i] = &adj
		l.ma[i] = row.MovingAverage
	}

	chart := &AdjCloseChart{Year: year, Dates: dates}
	if len(dates) > 0 {
		chart.From, chart.To = dates[0], dates[len(dates)-1]
	}
	for _, ticker := range sortedKeys(byTicker) {
		chart.Series = append(chart.Series,
			Series{Name: ticker, Values: byTicker[ticker].adj},
			Series{Name: ticker + " Moving Average", Values: byTicker[ticker].ma},
		)
	}
	return chart
}

// dateAxis returns the distinct row timestamps in time order, labelled with
// market.FormatDate, and the axis position of each timestamp.
func dateAxis(rows []market.Row) ([]string, map[int64]int) {
	var stamps []time.Time
	pos := make(map[int64]int)
	for _, row := range rows {
		at := row.Date.UnixNano()
		if _, ok := pos[at]; ok {
			continue
		}
		pos[at] = 0
		stamps = append(stamps, row.Date)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	dates := make([]string, len(stamps))
	for i, at := range stamps {
		dates[i] = market.FormatDate(at)
		pos[at.UnixNano()] = i
	}
	return dates, pos
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
