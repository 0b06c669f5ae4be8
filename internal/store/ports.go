// Package store defines the narrow persistence contract the ledger core
// talks to. Adapters live in the sqlite and memory subpackages.
package store

import (
	"context"
	"errors"

	"saldo/internal/core"
)

// ErrBatchNotFound is returned by adapters when a filename does not match
// any recorded batch.
var ErrBatchNotFound = errors.New("batch not found")

// Ports for outbound persistence adapters.
type (
	// LedgerReader is the bulk read contract consumed once at startup or
	// refresh to rebuild the in-memory ledger.
	LedgerReader interface {
		LoadAccounts(ctx context.Context) ([]core.Account, error)
		LoadBalances(ctx context.Context) ([]core.MonthlyBalance, error)
		LoadBatches(ctx context.Context) ([]core.UploadBatch, error)
	}

	// ImportWriter persists one upload as a single logical transaction.
	// Either all accounts and balances land together with the batch record
	// or nothing does; when the backend cannot give multi-record atomicity
	// it must write balances, then accounts, then the batch record last,
	// so a recorded batch always implies its data is present.
	ImportWriter interface {
		SaveImport(ctx context.Context, accounts []core.Account, balances []core.MonthlyBalance, batch core.UploadBatch) error
	}

	// BatchDeleter removes a batch bookkeeping record by filename. The
	// balances merged from that upload are kept: this is a provenance
	// delete only.
	BatchDeleter interface {
		DeleteBatch(ctx context.Context, filename string) error
	}

	// ExportTracker tracks which imported batches still need a report
	// export, the worker's backup path for lost messages.
	ExportTracker interface {
		PendingExportBatches(ctx context.Context, limit int) ([]core.UploadBatch, error)
		MarkExported(ctx context.Context, filename string) error
		MarkExportError(ctx context.Context, filename string) error
	}
)
