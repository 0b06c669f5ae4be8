// Package memory is the in-memory persistence adapter, the default backend
// for local development and tests. It implements the same ports as the
// sqlite adapter, including the balances-then-accounts-then-batch write
// order, so the two are interchangeable behind the store contract.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"saldo/internal/core"
	"saldo/internal/store"
)

type balanceKey struct {
	number string
	year   int
	month  int
}

type batchState struct {
	batch    core.UploadBatch
	exported bool
	failed   bool
}

type Repository struct {
	mu       sync.Mutex
	accounts map[string]core.Account
	balances map[balanceKey]core.MonthlyBalance
	batches  map[core.Period]*batchState
}

func NewRepository() *Repository {
	return &Repository{
		accounts: make(map[string]core.Account),
		balances: make(map[balanceKey]core.MonthlyBalance),
		batches:  make(map[core.Period]*batchState),
	}
}

// SaveImport implements store.ImportWriter.
func (r *Repository) SaveImport(ctx context.Context, accounts []core.Account, balances []core.MonthlyBalance, batch core.UploadBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range balances {
		r.balances[balanceKey{number: b.AccountNumber, year: b.Year, month: b.Month}] = b
	}
	for _, a := range accounts {
		r.accounts[a.Number] = a
	}
	r.batches[batch.Period()] = &batchState{batch: batch}
	return nil
}

// DeleteBatch implements store.BatchDeleter.
func (r *Repository) DeleteBatch(ctx context.Context, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for p, st := range r.batches {
		if st.batch.Filename == filename {
			delete(r.batches, p)
			return nil
		}
	}
	return fmt.Errorf("batch %s: %w", filename, store.ErrBatchNotFound)
}

// LoadAccounts implements store.LedgerReader.
func (r *Repository) LoadAccounts(ctx context.Context) ([]core.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]core.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// LoadBalances implements store.LedgerReader.
func (r *Repository) LoadBalances(ctx context.Context) ([]core.MonthlyBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]core.MonthlyBalance, 0, len(r.balances))
	for _, b := range r.balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountNumber != out[j].AccountNumber {
			return out[i].AccountNumber < out[j].AccountNumber
		}
		return out[i].Period().Before(out[j].Period())
	})
	return out, nil
}

// LoadBatches implements store.LedgerReader.
func (r *Repository) LoadBatches(ctx context.Context) ([]core.UploadBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]core.UploadBatch, 0, len(r.batches))
	for _, st := range r.batches {
		out = append(out, st.batch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period().Before(out[j].Period()) })
	return out, nil
}

// PendingExportBatches implements store.ExportTracker.
func (r *Repository) PendingExportBatches(ctx context.Context, limit int) ([]core.UploadBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []core.UploadBatch
	for _, st := range r.batches {
		if !st.exported && !st.failed {
			out = append(out, st.batch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period().Before(out[j].Period()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkExported implements store.ExportTracker.
func (r *Repository) MarkExported(ctx context.Context, filename string) error {
	return r.setExportState(filename, func(st *batchState) {
		st.exported = true
		st.failed = false
	})
}

// MarkExportError implements store.ExportTracker.
func (r *Repository) MarkExportError(ctx context.Context, filename string) error {
	return r.setExportState(filename, func(st *batchState) {
		st.failed = true
	})
}

func (r *Repository) setExportState(filename string, update func(*batchState)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, st := range r.batches {
		if st.batch.Filename == filename {
			update(st)
			return nil
		}
	}
	return fmt.Errorf("batch %s: %w", filename, store.ErrBatchNotFound)
}
