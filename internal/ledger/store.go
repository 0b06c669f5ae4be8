// Package ledger holds the canonical in-memory ledger and the derived
// reporting computations over it: period comparisons, area aggregates and
// the data quality audit.
package ledger

import (
	"fmt"
	"sort"
	"sync"

	"saldo/internal/classify"
	"saldo/internal/core"
)

type balanceKey struct {
	number string
	year   int
	month  int
}

// Store is the deduplicated set of accounts, the time series of monthly
// balances and the upload bookkeeping. All mutation goes through the merge
// methods; reads return copies, never internal state.
//
// Merges are atomic over the incoming slice: the whole slice is validated
// before the first upsert, so a failed merge leaves the store unchanged.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]core.Account
	balances map[balanceKey]core.MonthlyBalance
	batches  map[core.Period]core.UploadBatch
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]core.Account),
		balances: make(map[balanceKey]core.MonthlyBalance),
		batches:  make(map[core.Period]core.UploadBatch),
	}
}

// MergeAccounts classifies and upserts accounts by number, last write wins.
// Re-seeing an account overwrites name, class, area and kind, so a later
// upload can correct an earlier classification.
func (s *Store) MergeAccounts(accounts []core.Account) error {
	for i, a := range accounts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		s.accounts[a.Number] = classify.Apply(a)
	}
	return nil
}

// MergeBalances upserts balances by (account number, year, month), last
// write wins. Re-importing the same period is idempotent.
func (s *Store) MergeBalances(balances []core.MonthlyBalance) error {
	for i, b := range balances {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("balance %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range balances {
		s.balances[balanceKey{number: b.AccountNumber, year: b.Year, month: b.Month}] = b
	}
	return nil
}

// RecordBatch upserts the batch bookkeeping entry for its (year, month),
// replacing any earlier upload of the same period.
func (s *Store) RecordBatch(batch core.UploadBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.Period()] = batch
	return nil
}

// RemoveBatch deletes the bookkeeping entry for a filename and reports
// whether one existed. Balances merged from that upload stay in place:
// batch removal is a provenance delete only.
func (s *Store) RemoveBatch(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p, b := range s.batches {
		if b.Filename == filename {
			delete(s.batches, p)
			return true
		}
	}
	return false
}

// Account returns the master record for a number.
func (s *Store) Account(number string) (core.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[number]
	return a, ok
}

// Accounts returns all accounts sorted by number.
func (s *Store) Accounts() []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Balance returns the balance of one account in one period.
func (s *Store) Balance(number string, p core.Period) (core.MonthlyBalance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[balanceKey{number: number, year: p.Year, month: p.Month}]
	return b, ok
}

// Balances returns all balances sorted by account number, then period.
func (s *Store) Balances() []core.MonthlyBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.MonthlyBalance, 0, len(s.balances))
	for _, b := range s.balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountNumber != out[j].AccountNumber {
			return out[i].AccountNumber < out[j].AccountNumber
		}
		return out[i].Period().Before(out[j].Period())
	})
	return out
}

// Batches returns all upload batches sorted by period.
func (s *Store) Batches() []core.UploadBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.UploadBatch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period().Before(out[j].Period()) })
	return out
}

// AccountCount returns the number of distinct accounts in the store.
func (s *Store) AccountCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// activeNumbers returns the sorted account numbers that have a balance in
// any of the given periods.
func (s *Store) activeNumbers(periods ...core.Period) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for key := range s.balances {
		for _, p := range periods {
			if key.year == p.Year && key.month == p.Month {
				seen[key.number] = struct{}{}
				break
			}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
