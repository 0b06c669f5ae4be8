// Package classify maps general-ledger accounts to business areas and
// ledger kinds.
//
// The mapping follows the hotel chart of accounts: class 4 holds operating
// revenue, classes 5-8 hold cost of goods and operating expense, everything
// else is neutral balance-sheet activity. Within a class the account number
// range decides the department.
package classify

import (
	"strconv"
	"strings"

	"saldo/internal/core"
)

// rule maps a class prefix (and optionally a number range) to an area.
// Rules are evaluated in order; the first match wins.
type rule struct {
	classPrefix string
	fromNumber  int // inclusive, 0 means no range restriction
	toNumber    int // inclusive
	area        core.BusinessArea
}

var rules = []rule{
	// Revenue (class 4) by department.
	{classPrefix: "4", fromNumber: 4000, toNumber: 4199, area: core.AreaLogis},
	{classPrefix: "4", fromNumber: 4200, toNumber: 4499, area: core.AreaFoodBeverage},
	{classPrefix: "4", fromNumber: 4500, toNumber: 4599, area: core.AreaSpa},

	// Cost of goods (class 5) is almost exclusively F&B purchasing.
	{classPrefix: "5", area: core.AreaFoodBeverage},

	// Personnel expense (class 6).
	{classPrefix: "6", area: core.AreaPersonal},

	// Operating expense (class 7) split by number range.
	{classPrefix: "7", fromNumber: 7000, toNumber: 7199, area: core.AreaInstandhaltung},
	{classPrefix: "7", fromNumber: 7200, toNumber: 7299, area: core.AreaEnergie},
	{classPrefix: "7", area: core.AreaVerwaltung},

	// Financial and remaining expense (class 8).
	{classPrefix: "8", area: core.AreaVerwaltung},
}

// Classify maps an account's class and number to a (BusinessArea, LedgerKind)
// pair. It is a pure function: identical inputs always yield identical
// output. Accounts no rule matches fall back to AreaSonstige, and classes
// outside the P&L ranges fall back to KindNeutral; both are surfaced by the
// data quality audit rather than treated as errors.
func Classify(class, number string) (core.BusinessArea, core.LedgerKind) {
	return area(class, number), kind(class, number)
}

// Apply returns a copy of the account with Area and Kind recomputed.
func Apply(a core.Account) core.Account {
	a.Area, a.Kind = Classify(a.Class, a.Number)
	return a
}

func area(class, number string) core.BusinessArea {
	class = strings.TrimSpace(class)
	num, hasNum := parseNumber(number)

	for _, r := range rules {
		if !strings.HasPrefix(class, r.classPrefix) {
			continue
		}
		if r.fromNumber != 0 || r.toNumber != 0 {
			if !hasNum || num < r.fromNumber || num > r.toNumber {
				continue
			}
		}
		return r.area
	}
	return core.AreaSonstige
}

func kind(class, number string) core.LedgerKind {
	class = strings.TrimSpace(class)
	if class == "" {
		// Some exports omit the class column; fall back to the leading
		// digit of the account number.
		class = strings.TrimSpace(number)
	}
	if class == "" {
		return core.KindNeutral
	}
	switch class[0] {
	case '4':
		return core.KindRevenue
	case '5', '6', '7', '8':
		return core.KindExpense
	default:
		return core.KindNeutral
	}
}

func parseNumber(number string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil {
		return 0, false
	}
	return n, true
}
