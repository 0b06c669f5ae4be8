package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// AreaAggregate sums comparison rows per (business area, ledger kind).
//
// A leg is nil only when every contributing account is missing data for
// that period. As soon as one sibling has a value, missing accounts
// contribute zero, so partial history still yields a usable partial sum.
// Deltas are re-derived from the aggregate sums rather than summed from the
// per-account deltas.
type AreaAggregate struct {
	Area core.BusinessArea
	Kind core.LedgerKind

	AccountCount int

	Current       *decimal.Decimal
	PreviousMonth *decimal.Decimal
	PreviousYear  *decimal.Decimal

	DeltaPreviousMonth    *decimal.Decimal
	DeltaPctPreviousMonth *decimal.Decimal
	DeltaPreviousYear     *decimal.Decimal
	DeltaPctPreviousYear  *decimal.Decimal
}

type groupKey struct {
	area core.BusinessArea
	kind core.LedgerKind
}

// legSum accumulates one leg across a group; the sum only becomes non-nil
// once at least one contributor had data.
type legSum struct {
	total decimal.Decimal
	seen  bool
}

func (l *legSum) add(v *decimal.Decimal) {
	if v == nil {
		return
	}
	l.total = l.total.Add(*v)
	l.seen = true
}

func (l *legSum) value() *decimal.Decimal {
	if !l.seen {
		return nil
	}
	total := l.total
	return &total
}

// Aggregate groups comparison rows by (area, kind). Output is sorted by
// area, then kind, for deterministic rendering.
func Aggregate(rows []ComparisonRow) []AreaAggregate {
	type sums struct {
		count                               int
		current, previousMonth, previousYear legSum
	}

	groups := make(map[groupKey]*sums)
	for _, row := range rows {
		key := groupKey{area: row.Account.Area, kind: row.Account.Kind}
		g, ok := groups[key]
		if !ok {
			g = &sums{}
			groups[key] = g
		}
		g.count++
		g.current.add(row.Current)
		g.previousMonth.add(row.PreviousMonth)
		g.previousYear.add(row.PreviousYear)
	}

	out := make([]AreaAggregate, 0, len(groups))
	for key, g := range groups {
		agg := AreaAggregate{
			Area:          key.area,
			Kind:          key.kind,
			AccountCount:  g.count,
			Current:       g.current.value(),
			PreviousMonth: g.previousMonth.value(),
			PreviousYear:  g.previousYear.value(),
		}
		agg.DeltaPreviousMonth, agg.DeltaPctPreviousMonth = deltas(agg.Current, agg.PreviousMonth)
		agg.DeltaPreviousYear, agg.DeltaPctPreviousYear = deltas(agg.Current, agg.PreviousYear)
		out = append(out, agg)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Area != out[j].Area {
			return out[i].Area < out[j].Area
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
