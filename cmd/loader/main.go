package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"market-dashboard/internal/config"
	"market-dashboard/internal/database"
	"market-dashboard/internal/logger"
	"market-dashboard/internal/market"
	"market-dashboard/internal/models"
	"market-dashboard/internal/source"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "./configs", "directory holding config.yml")
	csvPath := flag.String("csv", "", "CSV file to import (defaults to data.path)")
	url := flag.String("url", "", "download the CSV from this URL instead of a file")
	flag.Parse()

	// Load application configuration
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var loader market.Loader
	switch {
	case *url != "":
		loader = source.NewHTTPSource(*url, &cfg.Remote, log)
	case *csvPath != "":
		loader = source.NewFileSource(*csvPath)
	default:
		loader = source.NewFileSource(cfg.Data.Path)
	}

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := run(ctx, loader, database.NewRepository(db), log); err != nil {
		log.Fatal("Import failed", zap.Error(err))
	}
}

// recordWriter stores a full set of records.
type recordWriter interface {
	ReplaceAll(ctx context.Context, records []models.MarketRecord) error
}

// run loads every record and replaces the database contents with them.
func run(ctx context.Context, loader market.Loader, repo recordWriter, log *zap.Logger) error {
	records, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	if err := repo.ReplaceAll(ctx, records); err != nil {
		return err
	}

	table := market.NewTable(records, market.Options{})

	log.Info("Imported market records",
		zap.Int("rows", table.Len()),
		zap.Ints("years", table.Years()),
		zap.Strings("tickers", table.Tickers()),
	)
	return nil
}
