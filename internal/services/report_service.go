package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/store"
)

// ReportService rebuilds the in-memory ledger from the persistence contract
// and serves the derived reporting reads. Comparisons, aggregates and the
// audit are recomputed from the ledger on every call; nothing derived is
// cached or persisted.
type ReportService struct {
	store  *ledger.Store
	reader store.LedgerReader
}

func NewReportService(ledgerStore *ledger.Store, reader store.LedgerReader) *ReportService {
	return &ReportService{store: ledgerStore, reader: reader}
}

// Refresh loads the full account, balance and batch sets and merges them
// into the ledger. The three bulk reads run concurrently.
func (s *ReportService) Refresh(ctx context.Context) error {
	var (
		accounts []core.Account
		balances []core.MonthlyBalance
		batches  []core.UploadBatch
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.reader.LoadAccounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		balances, err = s.reader.LoadBalances(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		batches, err = s.reader.LoadBatches(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load ledger data: %w", err)
	}

	if err := s.store.MergeBalances(balances); err != nil {
		return fmt.Errorf("merge balances: %w", err)
	}
	if err := s.store.MergeAccounts(accounts); err != nil {
		return fmt.Errorf("merge accounts: %w", err)
	}
	for _, b := range batches {
		if err := s.store.RecordBatch(b); err != nil {
			return fmt.Errorf("record batch %s: %w", b.Filename, err)
		}
	}

	slog.InfoContext(ctx, "Ledger refreshed from storage",
		"accounts", len(accounts),
		"balances", len(balances),
		"batches", len(batches))
	return nil
}

// Comparison returns the per-account period comparison for one month.
func (s *ReportService) Comparison(p core.Period) ([]ledger.ComparisonRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return ledger.Compare(s.store, p), nil
}

// AreaSummary returns the per-(area, kind) aggregate for one month.
func (s *ReportService) AreaSummary(p core.Period) ([]ledger.AreaAggregate, error) {
	rows, err := s.Comparison(p)
	if err != nil {
		return nil, err
	}
	return ledger.Aggregate(rows), nil
}

// AuditReport runs the data quality audit over the current ledger.
func (s *ReportService) AuditReport() ledger.Report {
	return ledger.Audit(s.store)
}

// Batches lists the recorded upload batches, oldest first.
func (s *ReportService) Batches() []core.UploadBatch {
	return s.store.Batches()
}
