package market

import "errors"

var (
	// ErrMissingColumn is returned when the CSV header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrMalformedRow is returned when a CSV field cannot be parsed.
	ErrMalformedRow = errors.New("malformed row")
	// ErrEmptyTable is returned when a source yields no records.
	ErrEmptyTable = errors.New("no market records")
	// ErrYearNotFound is returned when a year has no records in the table.
	ErrYearNotFound = errors.New("year not found")
	// ErrNotLoaded is returned by the Store before the first successful load.
	ErrNotLoaded = errors.New("market table not loaded")
)
