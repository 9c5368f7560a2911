package market

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"market-dashboard/internal/models"

	"go.uber.org/zap"
)

// Loader fetches the base market records from wherever they live.
type Loader interface {
	Load(ctx context.Context) ([]models.MarketRecord, error)
}

// Store holds the current table. The table is built once per load and
// swapped atomically, so readers never see a partially derived table.
type Store struct {
	logger *zap.Logger
	loader Loader
	opts   Options

	table    atomic.Pointer[Table]
	loadedAt atomic.Pointer[time.Time]
	mu       sync.Mutex // serialises reloads
}

// NewStore creates a Store. Call Reload before serving.
func NewStore(logger *zap.Logger, loader Loader, opts Options) *Store {
	return &Store{logger: logger, loader: loader, opts: opts}
}

// Table returns the current table or ErrNotLoaded.
func (s *Store) Table() (*Table, error) {
	t := s.table.Load()
	if t == nil {
		return nil, ErrNotLoaded
	}
	return t, nil
}

// LoadedAt returns when the current table was built.
func (s *Store) LoadedAt() time.Time {
	if t := s.loadedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// Reload loads the records again and replaces the table. On failure the
// previous table stays in place.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	records, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load market records: %w", err)
	}
	if len(records) == 0 {
		return ErrEmptyTable
	}

	table := NewTable(records, s.opts)
	if prev := s.table.Load(); prev != nil && prev.Fingerprint() == table.Fingerprint() {
		s.logger.Debug("Market data unchanged", zap.String("fingerprint", table.Fingerprint()))
		return nil
	}

	s.table.Store(table)
	now := time.Now()
	s.loadedAt.Store(&now)

	s.logger.Info("Market table loaded",
		zap.Int("rows", table.Len()),
		zap.Ints("years", table.Years()),
		zap.String("fingerprint", table.Fingerprint()),
		zap.Duration("took", time.Since(start)),
	)
	if n := table.ZeroOpenRows(); n > 0 {
		s.logger.Warn("Rows with zero open price have no percentage change", zap.Int("rows", n))
	}
	return nil
}

// Run reloads the table every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting reload loop", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping reload loop")
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				s.logger.Error("Reload failed, keeping previous table", zap.Error(err))
			}
		}
	}
}
