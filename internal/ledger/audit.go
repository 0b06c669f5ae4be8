package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

type (
	// ClassReconciliation carries per-account-class totals used to tie the
	// imported data back to the source export's class totals.
	ClassReconciliation struct {
		Class        string
		AccountCount int
		DebitTotal   decimal.Decimal
		CreditTotal  decimal.Decimal
		NetTotal     decimal.Decimal
	}

	// PeriodPresence flags whether an upload batch exists for one month of
	// the expected contiguous import history.
	PeriodPresence struct {
		Period  core.Period
		Present bool
	}

	// Report is the outcome of one data quality audit. It is informational:
	// findings never block imports or reporting.
	Report struct {
		UnclassifiedAccounts []core.Account
		UntypedAccounts      []core.Account
		ClassReconciliation  []ClassReconciliation
		MissingPeriods       []PeriodPresence
	}
)

// Audit scans the store for classification gaps, per-class totals and holes
// in the monthly import history. It is read-only and re-derivable: running
// it twice over the same store yields the same report.
func Audit(s *Store) Report {
	var report Report

	accounts := s.Accounts()
	classByNumber := make(map[string]string, len(accounts))
	classAccounts := make(map[string]int)
	for _, a := range accounts {
		if a.Area == core.AreaSonstige {
			report.UnclassifiedAccounts = append(report.UnclassifiedAccounts, a)
		}
		if a.Kind == core.KindNeutral {
			report.UntypedAccounts = append(report.UntypedAccounts, a)
		}
		classByNumber[a.Number] = a.Class
		classAccounts[a.Class]++
	}

	totals := make(map[string]*ClassReconciliation)
	for _, b := range s.Balances() {
		class, ok := classByNumber[b.AccountNumber]
		if !ok && b.AccountNumber != "" {
			// Balance without a master record; fall back to the leading
			// digit, which is how exports derive the class anyway.
			class = b.AccountNumber[:1]
		}
		t, ok := totals[class]
		if !ok {
			t = &ClassReconciliation{Class: class}
			totals[class] = t
		}
		t.DebitTotal = t.DebitTotal.Add(b.Debit)
		t.CreditTotal = t.CreditTotal.Add(b.Credit)
		t.NetTotal = t.NetTotal.Add(b.Net)
	}
	for class, count := range classAccounts {
		t, ok := totals[class]
		if !ok {
			t = &ClassReconciliation{Class: class}
			totals[class] = t
		}
		t.AccountCount = count
	}
	for _, t := range totals {
		report.ClassReconciliation = append(report.ClassReconciliation, *t)
	}
	sort.Slice(report.ClassReconciliation, func(i, j int) bool {
		return report.ClassReconciliation[i].Class < report.ClassReconciliation[j].Class
	})

	report.MissingPeriods = missingPeriods(s.Batches())
	return report
}

// missingPeriods walks month by month from the earliest to the latest
// uploaded batch, inclusive, and flags each month's presence. With no
// batches there is no range to infer, so the list is empty.
func missingPeriods(batches []core.UploadBatch) []PeriodPresence {
	if len(batches) == 0 {
		return nil
	}

	present := make(map[core.Period]bool, len(batches))
	earliest := batches[0].Period()
	latest := earliest
	for _, b := range batches {
		p := b.Period()
		present[p] = true
		if p.Before(earliest) {
			earliest = p
		}
		if latest.Before(p) {
			latest = p
		}
	}

	var out []PeriodPresence
	for p := earliest; !latest.Before(p); p = p.Next() {
		out = append(out, PeriodPresence{Period: p, Present: present[p]})
	}
	return out
}
