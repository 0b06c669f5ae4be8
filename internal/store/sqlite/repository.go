// Package sqlite persists the ledger in a local SQLite database.
//
// Amounts are stored as decimal strings, never as floats, so round-trips
// through the database keep balances exact.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"saldo/internal/core"
	"saldo/internal/store"
)

const (
	exportStatePending = "pending"
	exportStateDone    = "exported"
	exportStateError   = "error"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveImport implements store.ImportWriter. One upload is one transaction;
// inside it the write order is balances, accounts, batch record last, so
// even a torn transaction log can never show a batch without its data.
func (r *Repository) SaveImport(ctx context.Context, accounts []core.Account, balances []core.MonthlyBalance, batch core.UploadBatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback()

	for _, b := range balances {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO balances (account_number, year, month, debit, credit, net)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(account_number, year, month) DO UPDATE SET
				debit = excluded.debit,
				credit = excluded.credit,
				net = excluded.net`,
			b.AccountNumber, b.Year, b.Month, b.Debit.String(), b.Credit.String(), b.Net.String())
		if err != nil {
			return fmt.Errorf("upsert balance %s %04d-%02d: %w", b.AccountNumber, b.Year, b.Month, err)
		}
	}

	for _, a := range accounts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (number, name, class, area, kind, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(number) DO UPDATE SET
				name = excluded.name,
				class = excluded.class,
				area = excluded.area,
				kind = excluded.kind,
				updated_at = CURRENT_TIMESTAMP`,
			a.Number, a.Name, a.Class, string(a.Area), string(a.Kind))
		if err != nil {
			return fmt.Errorf("upsert account %s: %w", a.Number, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (year, month, filename, account_count, imported_at, export_state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(year, month) DO UPDATE SET
			filename = excluded.filename,
			account_count = excluded.account_count,
			imported_at = excluded.imported_at,
			export_state = excluded.export_state`,
		batch.Year, batch.Month, batch.Filename, batch.AccountCount,
		batch.ImportedAt.UTC().Format(time.RFC3339), exportStatePending)
	if err != nil {
		return fmt.Errorf("upsert batch %s: %w", batch.Filename, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import transaction: %w", err)
	}

	slog.InfoContext(ctx, "Import persisted",
		"filename", batch.Filename,
		"year", batch.Year,
		"month", batch.Month,
		"accounts", len(accounts),
		"balances", len(balances))
	return nil
}

// DeleteBatch implements store.BatchDeleter. Only the bookkeeping row goes;
// the balances merged from that upload stay.
func (r *Repository) DeleteBatch(ctx context.Context, filename string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM batches WHERE filename = ?`, filename)
	if err != nil {
		return fmt.Errorf("delete batch %s: %w", filename, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete batch %s: %w", filename, err)
	}
	if affected == 0 {
		return fmt.Errorf("batch %s: %w", filename, store.ErrBatchNotFound)
	}

	slog.InfoContext(ctx, "Batch bookkeeping removed, balances kept", "filename", filename)
	return nil
}

// LoadAccounts implements store.LedgerReader.
func (r *Repository) LoadAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT number, name, class, area, kind FROM accounts ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var area, kind string
		if err := rows.Scan(&a.Number, &a.Name, &a.Class, &area, &kind); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Area = core.BusinessArea(area)
		a.Kind = core.LedgerKind(kind)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return accounts, nil
}

// LoadBalances implements store.LedgerReader.
func (r *Repository) LoadBalances(ctx context.Context) ([]core.MonthlyBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_number, year, month, debit, credit, net
		FROM balances ORDER BY account_number, year, month`)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	defer rows.Close()

	var balances []core.MonthlyBalance
	for rows.Next() {
		var b core.MonthlyBalance
		var debit, credit, net string
		if err := rows.Scan(&b.AccountNumber, &b.Year, &b.Month, &debit, &credit, &net); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		if b.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("balance %s %04d-%02d debit: %w", b.AccountNumber, b.Year, b.Month, err)
		}
		if b.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("balance %s %04d-%02d credit: %w", b.AccountNumber, b.Year, b.Month, err)
		}
		if b.Net, err = decimal.NewFromString(net); err != nil {
			return nil, fmt.Errorf("balance %s %04d-%02d net: %w", b.AccountNumber, b.Year, b.Month, err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	return balances, nil
}

// LoadBatches implements store.LedgerReader.
func (r *Repository) LoadBatches(ctx context.Context) ([]core.UploadBatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT year, month, filename, account_count, imported_at
		FROM batches ORDER BY year, month`)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	defer rows.Close()

	batches, err := scanBatches(rows)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	return batches, nil
}

// PendingExportBatches implements store.ExportTracker.
func (r *Repository) PendingExportBatches(ctx context.Context, limit int) ([]core.UploadBatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT year, month, filename, account_count, imported_at
		FROM batches WHERE export_state = ? ORDER BY year, month LIMIT ?`,
		exportStatePending, limit)
	if err != nil {
		return nil, fmt.Errorf("load pending export batches: %w", err)
	}
	defer rows.Close()

	batches, err := scanBatches(rows)
	if err != nil {
		return nil, fmt.Errorf("load pending export batches: %w", err)
	}
	return batches, nil
}

// MarkExported implements store.ExportTracker.
func (r *Repository) MarkExported(ctx context.Context, filename string) error {
	if err := r.setExportState(ctx, filename, exportStateDone); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Batch marked as exported", "filename", filename)
	return nil
}

// MarkExportError implements store.ExportTracker.
func (r *Repository) MarkExportError(ctx context.Context, filename string) error {
	if err := r.setExportState(ctx, filename, exportStateError); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Batch marked with export error", "filename", filename)
	return nil
}

func (r *Repository) setExportState(ctx context.Context, filename, state string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE batches SET export_state = ? WHERE filename = ?`, state, filename)
	if err != nil {
		return fmt.Errorf("set export state %s for %s: %w", state, filename, err)
	}
	return nil
}

func scanBatches(rows *sql.Rows) ([]core.UploadBatch, error) {
	var batches []core.UploadBatch
	for rows.Next() {
		var b core.UploadBatch
		var importedAt string
		if err := rows.Scan(&b.Year, &b.Month, &b.Filename, &b.AccountCount, &importedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		t, err := time.Parse(time.RFC3339, importedAt)
		if err != nil {
			return nil, fmt.Errorf("batch %s imported_at: %w", b.Filename, err)
		}
		b.ImportedAt = t
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
