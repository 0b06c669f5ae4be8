package ledger

import (
	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// ComparisonRow joins one account's balance in the selected period against
// the previous month and the same month one year earlier.
//
// A nil leg means "no data for that period", which is distinct from a zero
// balance: a delta against missing history is nil as well, never zero.
type ComparisonRow struct {
	Account core.Account

	Current       *decimal.Decimal
	PreviousMonth *decimal.Decimal
	PreviousYear  *decimal.Decimal

	DeltaPreviousMonth    *decimal.Decimal
	DeltaPctPreviousMonth *decimal.Decimal
	DeltaPreviousYear     *decimal.Decimal
	DeltaPctPreviousYear  *decimal.Decimal
}

// Compare builds one row per account that has any balance in the selected
// period, the previous month, or the same month of the previous year.
//
// The result is derived fresh from the store on every call and is sorted by
// account number, so two calls over the same store state return identical
// output.
func Compare(s *Store, p core.Period) []ComparisonRow {
	prevMonth := p.Previous()
	prevYear := p.PreviousYear()

	numbers := s.activeNumbers(p, prevMonth, prevYear)
	rows := make([]ComparisonRow, 0, len(numbers))
	for _, number := range numbers {
		account, ok := s.Account(number)
		if !ok {
			// A balance without a master row still participates; the
			// audit reports the gap separately.
			account = core.Account{Number: number, Area: core.AreaSonstige, Kind: core.KindNeutral}
		}

		row := ComparisonRow{
			Account:       account,
			Current:       s.netFor(number, p),
			PreviousMonth: s.netFor(number, prevMonth),
			PreviousYear:  s.netFor(number, prevYear),
		}
		row.DeltaPreviousMonth, row.DeltaPctPreviousMonth = deltas(row.Current, row.PreviousMonth)
		row.DeltaPreviousYear, row.DeltaPctPreviousYear = deltas(row.Current, row.PreviousYear)
		rows = append(rows, row)
	}
	return rows
}

func (s *Store) netFor(number string, p core.Period) *decimal.Decimal {
	b, ok := s.Balance(number, p)
	if !ok {
		return nil
	}
	net := b.Net
	return &net
}

// deltas derives the absolute and percentage change of current against a
// comparison leg. Both are nil when either side is missing; the percentage
// is additionally nil when the base is zero, because a change against a
// zero base has no meaningful percentage.
func deltas(current, previous *decimal.Decimal) (delta, pct *decimal.Decimal) {
	if current == nil || previous == nil {
		return nil, nil
	}
	d := current.Sub(*previous)
	delta = &d
	if previous.IsZero() {
		return delta, nil
	}
	p := d.Div(previous.Abs()).Mul(decimal.NewFromInt(100))
	return delta, &p
}
