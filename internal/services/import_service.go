package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/classify"
	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/parser"
	"saldo/internal/store"
)

// BatchPublisher announces imported batches to interested consumers (the
// export worker). Publishing is best-effort; a failed publish never fails
// the import.
type BatchPublisher interface {
	PublishBatchImported(ctx context.Context, filename string, year, month, accountCount int) error
}

// ImportService runs one upload through parse, classify, persist and merge.
type ImportService struct {
	store     *ledger.Store
	writer    store.ImportWriter
	deleter   store.BatchDeleter
	publisher BatchPublisher // optional
	parser    *parser.Parser
}

// ImportResult reports the outcome of one upload: the recorded batch plus
// any rows that were skipped as malformed.
type ImportResult struct {
	Batch       core.UploadBatch
	SkippedRows []parser.RowError
}

func NewImportService(ledgerStore *ledger.Store, writer store.ImportWriter, deleter store.BatchDeleter, publisher BatchPublisher, format core.NumberFormat) *ImportService {
	return &ImportService{
		store:     ledgerStore,
		writer:    writer,
		deleter:   deleter,
		publisher: publisher,
		parser:    parser.New(format),
	}
}

// ImportFile imports one Saldenliste export.
//
// Persistence happens before the in-memory merge: if the durable write
// fails the upload is rejected wholesale and neither store observes a
// half-merged batch. Re-running the same upload is idempotent because all
// merge keys are natural keys.
func (s *ImportService) ImportFile(ctx context.Context, filename string, data []byte) (*ImportResult, error) {
	parsed, err := s.parser.Parse(filename, data)
	if err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	accounts := make([]core.Account, len(parsed.Accounts))
	distinct := make(map[string]struct{}, len(parsed.Accounts))
	for i, a := range parsed.Accounts {
		accounts[i] = classify.Apply(a)
		distinct[a.Number] = struct{}{}
	}

	batch := core.UploadBatch{
		Filename:     filename,
		Year:         parsed.Period.Year,
		Month:        parsed.Period.Month,
		AccountCount: len(distinct),
		ImportedAt:   time.Now().UTC(),
	}

	if err := s.writer.SaveImport(ctx, accounts, parsed.Balances, batch); err != nil {
		return nil, fmt.Errorf("persist upload %s: %w", filename, err)
	}

	// Same ordering in memory: balances, accounts, batch record last.
	if err := s.store.MergeBalances(parsed.Balances); err != nil {
		return nil, fmt.Errorf("merge balances: %w", err)
	}
	if err := s.store.MergeAccounts(accounts); err != nil {
		return nil, fmt.Errorf("merge accounts: %w", err)
	}
	if err := s.store.RecordBatch(batch); err != nil {
		return nil, fmt.Errorf("record batch: %w", err)
	}

	for _, rowErr := range parsed.RowErrors {
		slog.WarnContext(ctx, "Skipped malformed row",
			"filename", filename,
			"line", rowErr.Line,
			"reason", rowErr.Reason)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishBatchImported(ctx, batch.Filename, batch.Year, batch.Month, batch.AccountCount); err != nil {
			// The batch is durable; the worker's pending-export scan will
			// pick it up even without the event.
			slog.ErrorContext(ctx, "Failed to publish batch imported message",
				"filename", filename, "error", err)
		}
	}

	slog.InfoContext(ctx, "Upload imported",
		"filename", filename,
		"year", batch.Year,
		"month", batch.Month,
		"accounts", batch.AccountCount,
		"balances", len(parsed.Balances),
		"skipped_rows", len(parsed.RowErrors))

	return &ImportResult{Batch: batch, SkippedRows: parsed.RowErrors}, nil
}

// RemoveUpload deletes the bookkeeping record of one upload. Balances
// merged from it stay in the ledger.
func (s *ImportService) RemoveUpload(ctx context.Context, filename string) error {
	if err := s.deleter.DeleteBatch(ctx, filename); err != nil {
		return fmt.Errorf("delete batch %s: %w", filename, err)
	}
	s.store.RemoveBatch(filename)

	slog.InfoContext(ctx, "Upload bookkeeping removed", "filename", filename)
	return nil
}
