// Package source provides the loaders the market store reads records from.
package source

import (
	"context"
	"fmt"
	"os"

	"market-dashboard/internal/config"
	"market-dashboard/internal/database"
	"market-dashboard/internal/market"
	"market-dashboard/internal/models"

	"go.uber.org/zap"
)

// Source kinds accepted in data.source.
const (
	KindFile     = "file"
	KindHTTP     = "http"
	KindDatabase = "database"
)

// FileSource reads the market CSV from a local path.
type FileSource struct {
	path string
}

var _ market.Loader = (*FileSource)(nil)

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load opens and parses the file.
func (s *FileSource) Load(ctx context.Context) ([]models.MarketRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	records, err := market.ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return records, nil
}

// New returns the loader selected by cfg.Data.Source. The database
// connection is opened only for the database kind.
func New(cfg *config.Config, logger *zap.Logger) (market.Loader, error) {
	switch cfg.Data.Source {
	case KindFile, "":
		logger.Info("Using market data file", zap.String("path", cfg.Data.Path))
		return NewFileSource(cfg.Data.Path), nil
	case KindHTTP:
		if cfg.Data.URL == "" {
			return nil, fmt.Errorf("data.url is required for source %q", KindHTTP)
		}
		logger.Info("Using remote market data", zap.String("url", cfg.Data.URL))
		return NewHTTPSource(cfg.Data.URL, &cfg.Remote, logger), nil
	case KindDatabase:
		db, err := database.NewDatabase(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("Using market data database", zap.String("dsn", cfg.Database.DSN))
		return database.NewRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}
