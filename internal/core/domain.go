package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AreaLogis          BusinessArea = "Logis"
	AreaFoodBeverage   BusinessArea = "Food & Beverage"
	AreaSpa            BusinessArea = "Spa"
	AreaPersonal       BusinessArea = "Personal"
	AreaEnergie        BusinessArea = "Energie"
	AreaInstandhaltung BusinessArea = "Instandhaltung"
	AreaVerwaltung     BusinessArea = "Verwaltung"
	AreaSonstige       BusinessArea = "Sonstige"
)

const (
	KindRevenue LedgerKind = "revenue"
	KindExpense LedgerKind = "expense"
	KindNeutral LedgerKind = "neutral"
)

type (
	// BusinessArea is the department grouping an account belongs to.
	BusinessArea string

	// LedgerKind says whether an account carries revenue, expense or
	// neutral (non-P&L) activity.
	LedgerKind string

	// Period identifies one accounting month.
	Period struct {
		Year  int
		Month int // 1-12
	}

	// Account is the master record of one general-ledger account.
	// Number is the stable natural key; Area and Kind are derived from
	// Class/Number by the classifier and recomputed on every import.
	Account struct {
		Number string
		Name   string
		Class  string
		Area   BusinessArea
		Kind   LedgerKind
	}

	// MonthlyBalance is one account's totals for one period.
	// Net is signed: positive means debit-heavy.
	MonthlyBalance struct {
		AccountNumber string
		Year          int
		Month         int // 1-12
		Debit         decimal.Decimal
		Credit        decimal.Decimal
		Net           decimal.Decimal
	}

	// UploadBatch is the bookkeeping record of one monthly export upload.
	UploadBatch struct {
		Filename     string
		Year         int
		Month        int // 1-12
		AccountCount int
		ImportedAt   time.Time
	}
)

var (
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrEmptyAccountNumber = errors.New("empty account number")
	ErrEmptyFilename      = errors.New("empty filename")
	ErrInvalidAmount      = errors.New("invalid amount")
)

// NewPeriod creates a Period without validating it; call Validate when the
// values come from untrusted input.
func NewPeriod(year, month int) Period {
	return Period{Year: year, Month: month}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1000 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Previous returns the immediately preceding month, wrapping January to
// December of the prior year.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// PreviousYear returns the same month one year earlier.
func (p Period) PreviousYear() Period {
	return Period{Year: p.Year - 1, Month: p.Month}
}

// Next returns the immediately following month, wrapping December to
// January of the next year.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Before reports whether p is chronologically before other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Number) == "" {
		return ErrEmptyAccountNumber
	}
	return nil
}

func (b MonthlyBalance) Validate() error {
	if strings.TrimSpace(b.AccountNumber) == "" {
		return ErrEmptyAccountNumber
	}
	return NewPeriod(b.Year, b.Month).Validate()
}

// Period returns the accounting month this balance belongs to.
func (b MonthlyBalance) Period() Period {
	return Period{Year: b.Year, Month: b.Month}
}

func (u UploadBatch) Validate() error {
	if strings.TrimSpace(u.Filename) == "" {
		return ErrEmptyFilename
	}
	return NewPeriod(u.Year, u.Month).Validate()
}

// Period returns the accounting month this batch covers.
func (u UploadBatch) Period() Period {
	return Period{Year: u.Year, Month: u.Month}
}

// DisplayNet converts a signed net balance into its reporting value.
// Revenue accounts are credit-heavy and expense accounts debit-heavy by
// convention, so both are shown as absolute values; neutral accounts keep
// their sign.
func DisplayNet(kind LedgerKind, net decimal.Decimal) decimal.Decimal {
	if kind == KindRevenue || kind == KindExpense {
		return net.Abs()
	}
	return net
}
