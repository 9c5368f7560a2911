package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"market-dashboard/internal/database"
	"market-dashboard/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const csvBody = `Date,Ticker,Ticker_Name,Open,Close,Adj Close,Volume
2021-01-04,AAPL,Apple,133.52,129.41,127.33,143301900
2022-01-03,MSFT,Microsoft,335.35,334.75,329.49,28865100
`

func TestRun(t *testing.T) {
	t.Run("ImportsIntoDatabase", func(t *testing.T) {
		// Arrange
		path := filepath.Join(t.TempDir(), "MarketData.csv")
		require.NoError(t, os.WriteFile(path, []byte(csvBody), 0o644))
		db, err := database.NewDatabase("file::memory:")
		require.NoError(t, err)
		repo := database.NewRepository(db)

		// Act
		err = run(context.Background(), source.NewFileSource(path), repo, zap.NewNop())

		// Assert
		require.NoError(t, err)
		records, err := repo.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "MSFT", records[1].Ticker)
	})

	t.Run("LoadErrorLeavesDatabase", func(t *testing.T) {
		db, err := database.NewDatabase("file::memory:")
		require.NoError(t, err)
		repo := database.NewRepository(db)

		err = run(context.Background(), source.NewFileSource(filepath.Join(t.TempDir(), "missing.csv")), repo, zap.NewNop())

		assert.True(t, errors.Is(err, os.ErrNotExist))
		n, err := repo.Count(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
