package analytics

import (
	"context"
	"errors"
	"fmt"

	"market-dashboard/internal/market"
)

// ErrTickerNotFound is returned when a ticker filter matches no rows of the year.
var ErrTickerNotFound = errors.New("ticker not found")

// TableSource provides the current market table.
type TableSource interface {
	Table() (*market.Table, error)
}

// Service answers chart queries against the current table.
type Service struct {
	tables TableSource
}

// NewService creates a Service reading from tables.
func NewService(tables TableSource) *Service {
	return &Service{tables: tables}
}

// Version identifies the table the answers are computed from.
func (s *Service) Version(ctx context.Context) (string, error) {
	t, err := s.tables.Table()
	if err != nil {
		return "", err
	}
	return t.Fingerprint(), nil
}

// Years returns the selectable years in ascending order.
func (s *Service) Years(ctx context.Context) ([]int, error) {
	t, err := s.tables.Table()
	if err != nil {
		return nil, err
	}
	return t.Years(), nil
}

// Tickers returns the tickers present in year.
func (s *Service) Tickers(ctx context.Context, year int) ([]string, error) {
	view, err := s.year(year)
	if err != nil {
		return nil, err
	}
	return view.Tickers(), nil
}

// LossProfit returns the loss/profit counts for year.
func (s *Service) LossProfit(ctx context.Context, year int) (*LossProfitChart, error) {
	view, err := s.year(year)
	if err != nil {
		return nil, err
	}
	return LossProfit(year, view.Rows()), nil
}

// PercentageChange returns the percentage change series for year.
func (s *Service) PercentageChange(ctx context.Context, year int) (*PercentageChangeChart, error) {
	view, err := s.year(year)
	if err != nil {
		return nil, err
	}
	return PercentageChange(year, view.Rows()), nil
}

// MonthlyVolume returns the monthly volume sums for year.
func (s *Service) MonthlyVolume(ctx context.Context, year int) (*MonthlyVolumeChart, error) {
	view, err := s.year(year)
	if err != nil {
		return nil, err
	}
	return MonthlyVolume(year, view.Rows()), nil
}

// AdjClose returns the adjusted close lines for year. An empty ticker
// selects every ticker.
func (s *Service) AdjClose(ctx context.Context, year int, ticker string) (*AdjCloseChart, error) {
	view, err := s.year(year)
	if err != nil {
		return nil, err
	}
	if ticker != "" {
		view = view.Filter(func(r market.Row) bool { return r.Ticker == ticker })
		if view.Len() == 0 {
			return nil, fmt.Errorf("%w: %s in %d", ErrTickerNotFound, ticker, year)
		}
	}
	return AdjClose(year, view.Rows()), nil
}

func (s *Service) year(year int) (*market.Table, error) {
	t, err := s.tables.Table()
	if err != nil {
		return nil, err
	}
	return t.ForYear(year)
}
