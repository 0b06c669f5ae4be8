// Command saldo-import imports one or more Saldenliste export files from
// disk, bypassing the HTTP upload path. Useful for backfilling history.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"saldo/internal/config"
	"saldo/internal/ledger"
	applog "saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "import"})
	applog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("Usage: saldo-import <Saldenliste-MM-YYYY.csv> [...]")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	imports := services.NewImportService(ledger.NewStore(), repo, repo, nil, cfg.NumberFormat())

	ctx := context.Background()
	failed := 0
	for _, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("Failed to read file", "path", path, "error", err)
			failed++
			continue
		}

		result, err := imports.ImportFile(ctx, filepath.Base(path), data)
		if err != nil {
			logger.Error("Import failed", "path", path, "error", err)
			failed++
			continue
		}

		logger.Info("Imported file",
			"path", path,
			"year", result.Batch.Year,
			"month", result.Batch.Month,
			"accounts", result.Batch.AccountCount,
			"skipped_rows", len(result.SkippedRows))
	}

	if failed > 0 {
		logger.Error("Some imports failed", "failed", failed, "total", len(os.Args)-1)
		os.Exit(1)
	}
}
