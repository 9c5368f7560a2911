package market

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"time"

	"market-dashboard/internal/models"
)

// DefaultMovingAverageWindow is the trailing window used for Moving_Average.
const DefaultMovingAverageWindow = 5

// Row is a market record together with its derived statistics.
type Row struct {
	Date       time.Time `json:"date"`
	Ticker     string    `json:"ticker"`
	TickerName string    `json:"ticker_name"`
	Open       float64   `json:"open"`
	Close      float64   `json:"close"`
	AdjClose   float64   `json:"adj_close"`
	Volume     int64     `json:"volume"`

	// PriceChange is AdjClose - Open.
	PriceChange          float64 `json:"price_change"`
	PriceChangeDirection int     `json:"price_change_direction"`
	// PricePercentageChange is (Close-Open)/Open*100, nil when Open is zero.
	PricePercentageChange          *float64 `json:"price_percentage_change"`
	PricePercentageChangeDirection int      `json:"price_percentage_change_direction"`
	// MovingAverage is nil until a full window of rows has been seen.
	MovingAverage *float64 `json:"moving_average"`
	MonthName     string   `json:"month_name"`
}

// Year returns the calendar year of the row.
func (r Row) Year() int { return r.Date.Year() }

// Options controls how derived columns are computed.
type Options struct {
	MovingAverageWindow int
	// PartitionByTicker computes the moving average per ticker instead of
	// across the whole table in row order.
	PartitionByTicker bool
}

func (o Options) window() int {
	if o.MovingAverageWindow <= 0 {
		return DefaultMovingAverageWindow
	}
	return o.MovingAverageWindow
}

// Table is an immutable set of rows. Filtering returns new tables.
type Table struct {
	rows        []Row
	fingerprint string
	zeroOpen    int
}

// NewTable derives statistics for records, keeping their order.
func NewTable(records []models.MarketRecord, opts Options) *Table {
	rows := make([]Row, len(records))
	zeroOpen := 0
	for i, rec := range records {
		rows[i] = deriveRow(rec)
		if rows[i].PricePercentageChange == nil {
			zeroOpen++
		}
	}
	applyMovingAverage(rows, opts)

	return &Table{
		rows:        rows,
		fingerprint: fingerprint(records, opts),
		zeroOpen:    zeroOpen,
	}
}

func deriveRow(rec models.MarketRecord) Row {
	row := Row{
		Date:       rec.Date,
		Ticker:     rec.Ticker,
		TickerName: rec.TickerName,
		Open:       rec.Open,
		Close:      rec.Close,
		AdjClose:   rec.AdjClose,
		Volume:     rec.Volume,
		MonthName:  rec.Date.Month().String(),
	}

	row.PriceChange = rec.AdjClose - rec.Open
	row.PriceChangeDirection = direction(row.PriceChange)

	if rec.Open != 0 {
		pct := (rec.Close - rec.Open) / rec.Open * 100
		row.PricePercentageChange = &pct
		row.PricePercentageChangeDirection = direction(pct)
	}
	return row
}

func direction(v float64) int {
	if v > 0 {
		return 1
	}
	return 0
}

func applyMovingAverage(rows []Row, opts Options) {
	window := opts.window()

	groups := map[string][]int{"": nil}
	order := []string{""}
	for i, row := range rows {
		key := ""
		if opts.PartitionByTicker {
			key = row.Ticker
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range order {
		idx := groups[key]
		for n := window - 1; n < len(idx); n++ {
			sum := 0.0
			for _, j := range idx[n-window+1 : n+1] {
				sum += rows[j].AdjClose
			}
			avg := sum / float64(window)
			rows[idx[n]].MovingAverage = &avg
		}
	}
}

// fingerprint identifies the table contents and derivation options.
func fingerprint(records []models.MarketRecord, opts Options) string {
	h := fnv.New64a()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(strconv.Itoa(opts.window()))
	write(strconv.FormatBool(opts.PartitionByTicker))
	for _, rec := range records {
		write(rec.Date.Format(time.RFC3339))
		write(rec.Ticker)
		write(rec.TickerName)
		write(strconv.FormatUint(math.Float64bits(rec.Open), 16))
		write(strconv.FormatUint(math.Float64bits(rec.Close), 16))
		write(strconv.FormatUint(math.Float64bits(rec.AdjClose), 16))
		write(strconv.FormatInt(rec.Volume, 10))
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows in table order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Fingerprint identifies the contents the table was built from.
func (t *Table) Fingerprint() string { return t.fingerprint }

// ZeroOpenRows is the number of rows whose percentage change is undefined.
func (t *Table) ZeroOpenRows() int { return t.zeroOpen }

// Years returns the distinct calendar years in ascending order.
func (t *Table) Years() []int {
	seen := make(map[int]struct{})
	var years []int
	for _, row := range t.rows {
		y := row.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Tickers returns the distinct tickers in ascending order.
func (t *Table) Tickers() []string {
	seen := make(map[string]struct{})
	var tickers []string
	for _, row := range t.rows {
		if _, ok := seen[row.Ticker]; ok {
			continue
		}
		seen[row.Ticker] = struct{}{}
		tickers = append(tickers, row.Ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// Filter returns a new table holding the rows for which keep is true.
// Derived values are carried over, not recomputed.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{fingerprint: t.fingerprint}
	for _, row := range t.rows {
		if keep(row) {
			out.rows = append(out.rows, row)
			if row.PricePercentageChange == nil {
				out.zeroOpen++
			}
		}
	}
	return out
}

// ForYear returns the rows of year. ErrYearNotFound is returned when the
// year has no rows.
func (t *Table) ForYear(year int) (*Table, error) {
	view := t.Filter(func(r Row) bool { return r.Year() == year })
	if view.Len() == 0 {
		return nil, fmt.Errorf("%w: %d", ErrYearNotFound, year)
	}
	return view, nil
}
