package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"market-dashboard/internal/models"
)

// CSV column names.
const (
	ColDate       = "Date"
	ColTicker     = "Ticker"
	ColTickerName = "Ticker_Name"
	ColOpen       = "Open"
	ColClose      = "Close"
	ColAdjClose   = "Adj Close"
	ColVolume     = "Volume"
)

var requiredColumns = []string{ColDate, ColTicker, ColTickerName, ColOpen, ColClose, ColAdjClose, ColVolume}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
}

const (
	dayLayout       = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.999999999"
)

// FormatDate renders t as a plain date, or with the time of day when t is
// not at midnight.
func FormatDate(t time.Time) string {
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Format(dayLayout)
	}
	return t.Format(timestampLayout)
}

// ParseCSV reads market records from r. Column order is free and extra
// columns are ignored; every column in requiredColumns must be present.
// A ticker may appear only once per timestamp.
func ParseCSV(r io.Reader) ([]models.MarketRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}
	reader.FieldsPerRecord = len(header)

	type rowKey struct {
		ticker string
		at     int64
	}
	seen := make(map[rowKey]int)

	var records []models.MarketRecord
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := parseRecord(fields, index)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		key := rowKey{ticker: rec.Ticker, at: rec.Date.UnixNano()}
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: line %d: duplicate %s %q at %s (first on line %d)",
				ErrMalformedRow, line, ColTicker, rec.Ticker, FormatDate(rec.Date), prev)
		}
		seen[key] = line

		rec.Seq = len(records)
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrEmptyTable
	}
	return records, nil
}

func parseRecord(fields []string, index map[string]int) (models.MarketRecord, error) {
	get := func(col string) string { return strings.TrimSpace(fields[index[col]]) }

	var rec models.MarketRecord
	var err error

	if rec.Date, err = parseDate(get(ColDate)); err != nil {
		return rec, err
	}
	rec.Ticker = get(ColTicker)
	if rec.Ticker == "" {
		return rec, fmt.Errorf("empty %s", ColTicker)
	}
	rec.TickerName = get(ColTickerName)

	if rec.Open, err = parseFloat(ColOpen, get(ColOpen)); err != nil {
		return rec, err
	}
	if rec.Close, err = parseFloat(ColClose, get(ColClose)); err != nil {
		return rec, err
	}
	if rec.AdjClose, err = parseFloat(ColAdjClose, get(ColAdjClose)); err != nil {
		return rec, err
	}
	if rec.Volume, err = parseVolume(get(ColVolume)); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q", ColDate, s)
}

func parseFloat(col, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", col, s)
	}
	return v, nil
}

// parseVolume accepts integers and float notation such as "1.5e6".
func parseVolume(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := parseFloat(ColVolume, s)
	if err != nil {
		return 0, err
	}
	f = math.Round(f)
	// 2^63 is the first float64 past MaxInt64.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid %s %q: out of range", ColVolume, s)
	}
	return int64(f), nil
}

// WriteCSV writes records in the column layout ParseCSV reads.
func WriteCSV(w io.Writer, records []models.MarketRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(requiredColumns); err != nil {
		return err
	}
	for _, rec := range records {
		err := writer.Write([]string{
			FormatDate(rec.Date),
			rec.Ticker,
			rec.TickerName,
			strconv.FormatFloat(rec.Open, 'f', -1, 64),
			strconv.FormatFloat(rec.Close, 'f', -1, 64),
			strconv.FormatFloat(rec.AdjClose, 'f', -1, 64),
			strconv.FormatInt(rec.Volume, 10),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
