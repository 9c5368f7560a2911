package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"market-dashboard/internal/analytics"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockCharts is a mock implementation of the Charts interface.
type MockCharts struct {
	mock.Mock
}

func (m *MockCharts) Version(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockCharts) Years(ctx context.Context) ([]int, error) {
	args := m.Called(ctx)
	years, _ := args.Get(0).([]int)
	return years, args.Error(1)
}

func (m *MockCharts) Tickers(ctx context.Context, year int) ([]string, error) {
	args := m.Called(ctx, year)
	tickers, _ := args.Get(0).([]string)
	return tickers, args.Error(1)
}

func (m *MockCharts) LossProfit(ctx context.Context, year int) (*analytics.LossProfitChart, error) {
	args := m.Called(ctx, year)
	chart, _ := args.Get(0).(*analytics.LossProfitChart)
	return chart, args.Error(1)
}

func (m *MockCharts) PercentageChange(ctx context.Context, year int) (*analytics.PercentageChangeChart, error) {
	args := m.Called(ctx, year)
	chart, _ := args.Get(0).(*analytics.PercentageChangeChart)
	return chart, args.Error(1)
}

func (m *MockCharts) MonthlyVolume(ctx context.Context, year int) (*analytics.MonthlyVolumeChart, error) {
	args := m.Called(ctx, year)
	chart, _ := args.Get(0).(*analytics.MonthlyVolumeChart)
	return chart, args.Error(1)
}

func (m *MockCharts) AdjClose(ctx context.Context, year int, ticker string) (*analytics.AdjCloseChart, error) {
	args := m.Called(ctx, year, ticker)
	chart, _ := args.Get(0).(*analytics.AdjCloseChart)
	return chart, args.Error(1)
}

var lossProfit = &analytics.LossProfitChart{Year: 2021, Tickers: []string{"AAA"}, Losses: []int{1}, Profits: []int{2}}

func TestNewChartCache_Defaults(t *testing.T) {
	c := NewChartCache(nil, 0, new(MockCharts), "", zap.NewNop())
	assert.Equal(t, 5*time.Minute, c.ttl)
	assert.Equal(t, "charts", c.namespace)

	c = NewChartCache(nil, time.Hour, new(MockCharts), "dash", zap.NewNop())
	assert.Equal(t, time.Hour, c.ttl)
	assert.Equal(t, "dash", c.namespace)
}

func TestChartCache_NilRedis(t *testing.T) {
	inner := new(MockCharts)
	inner.On("LossProfit", mock.Anything, 2021).Return(lossProfit, nil).Twice()
	c := NewChartCache(nil, time.Minute, inner, "charts", zap.NewNop())

	for i := 0; i < 2; i++ {
		chart, err := c.LossProfit(context.Background(), 2021)
		require.NoError(t, err)
		assert.Equal(t, lossProfit, chart)
	}
	inner.AssertExpectations(t)
	inner.AssertNotCalled(t, "Version", mock.Anything)
}

func TestChartCache_CacheHit(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cachedJSON, _ := json.Marshal(lossProfit)
	rmock.ExpectGet("charts:abc123:loss-profit:2021").SetVal(string(cachedJSON))

	inner := new(MockCharts)
	inner.On("Version", mock.Anything).Return("abc123", nil)

	c := NewChartCache(rdb, time.Minute, inner, "charts", zap.NewNop())
	chart, err := c.LossProfit(context.Background(), 2021)

	require.NoError(t, err)
	assert.Equal(t, lossProfit, chart)
	inner.AssertNotCalled(t, "LossProfit", mock.Anything, mock.Anything)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestChartCache_CacheMiss(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedJSON, _ := json.Marshal(lossProfit)
	rmock.ExpectGet("charts:abc123:loss-profit:2021").RedisNil()
	rmock.ExpectSet("charts:abc123:loss-profit:2021", expectedJSON, time.Minute).SetVal("OK")

	inner := new(MockCharts)
	inner.On("Version", mock.Anything).Return("abc123", nil)
	inner.On("LossProfit", mock.Anything, 2021).Return(lossProfit, nil).Once()

	c := NewChartCache(rdb, time.Minute, inner, "charts", zap.NewNop())
	chart, err := c.LossProfit(context.Background(), 2021)

	require.NoError(t, err)
	assert.Equal(t, lossProfit, chart)
	inner.AssertExpectations(t)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestChartCache_CorruptedEntry(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	tickers := []string{"AAA", "BBB"}
	expectedJSON, _ := json.Marshal(tickers)
	rmock.ExpectGet("charts:v1:tickers:2021").SetVal("invalid json")
	rmock.ExpectDel("charts:v1:tickers:2021").SetVal(1)
	rmock.ExpectSet("charts:v1:tickers:2021", expectedJSON, time.Minute).SetVal("OK")

	inner := new(MockCharts)
	inner.On("Version", mock.Anything).Return("v1", nil)
	inner.On("Tickers", mock.Anything, 2021).Return(tickers, nil).Once()

	c := NewChartCache(rdb, time.Minute, inner, "charts", zap.NewNop())
	got, err := c.Tickers(context.Background(), 2021)

	require.NoError(t, err)
	assert.Equal(t, tickers, got)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestChartCache_InnerError(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := errors.New("year not found")
	rmock.ExpectGet("charts:v1:monthly-volume:1999").RedisNil()

	inner := new(MockCharts)
	inner.On("Version", mock.Anything).Return("v1", nil)
	inner.On("MonthlyVolume", mock.Anything, 1999).Return(nil, expectedErr)

	c := NewChartCache(rdb, time.Minute, inner, "charts", zap.NewNop())
	_, err := c.MonthlyVolume(context.Background(), 1999)

	assert.ErrorIs(t, err, expectedErr)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestChartCache_VersionError(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := errors.New("not loaded")
	inner := new(MockCharts)
	inner.On("Version", mock.Anything).Return("", expectedErr)

	c := NewChartCache(rdb, time.Minute, inner, "charts", zap.NewNop())
	_, err := c.PercentageChange(context.Background(), 2021)

	assert.ErrorIs(t, err, expectedErr)
	inner.AssertNotCalled(t, "PercentageChange", mock.Anything, mock.Anything)
}

func TestChartCache_AdjCloseKeyIncludesTicker(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	adj := &analytics.AdjCloseChart{Year: 2021, From: "2021-01-04", To: "2021-01-05", Dates: []string{"2021-01-04", "2021-01-05"}}
	expectedJSON, _ := json.Marshal(adj)
	rmock.ExpectGet("charts:v1:adj-close:2021:BRK%3AA").RedisNil()
	rmock.ExpectSet("charts:v1:adj-close:2021:BRK%3AA", expectedJSON, time.Minute).SetVal("OK")

	inner := new(MockCharts)
	inner.On("Version", mock.Anything).Return("v1", nil)
	inner.On("AdjClose", mock.Anything, 2021, "BRK:A").Return(adj, nil)

	c := NewChartCache(rdb, time.Minute, inner, "charts", zap.NewNop())
	got, err := c.AdjClose(context.Background(), 2021, "BRK:A")

	require.NoError(t, err)
	assert.Equal(t, adj, got)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestChartCache_DistinctTickersGetDistinctKeys(t *testing.T) {
	c := NewChartCache(nil, time.Minute, new(MockCharts), "charts", zap.NewNop())

	keys := make(map[string]string)
	for _, ticker := range []string{"BRK B", "BRK_B", "BRK:B", "BRK%20B", "BRK+B"} {
		key := c.cacheKey("v1", "adj-close:2021:"+safe(ticker))
		prev, dup := keys[key]
		assert.False(t, dup, "%q and %q share key %s", prev, ticker, key)
		keys[key] = ticker
	}
	assert.Equal(t, "charts:v1:adj-close:2021:BRK+B", c.cacheKey("v1", "adj-close:2021:"+safe("BRK B")))
}

func TestChartCache_YearsPassThrough(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	inner := new(MockCharts)
	inner.On("Years", mock.Anything).Return([]int{2020, 2021}, nil)

	c := NewChartCache(rdb, time.Minute, inner, "charts", zap.NewNop())
	years, err := c.Years(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2021}, years)
	assert.NoError(t, rmock.ExpectationsWereMet())
}
