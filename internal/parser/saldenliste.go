// Package parser turns raw Saldenliste exports into typed account and
// balance records.
//
// One export file covers one accounting month; the month and year are
// encoded in the filename ("Saldenliste-MM-YYYY.csv"). Parsing is
// best-effort per row: malformed rows are reported and skipped, the rest of
// the file is still imported.
package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"saldo/internal/core"
)

// filenamePattern is the bit-exact upload contract: zero-padded month,
// 4-digit year, any extension.
var filenamePattern = regexp.MustCompile(`^Saldenliste-(\d{2})-(\d{4})\.[A-Za-z0-9]+$`)

// ErrInvalidFilename rejects uploads whose filename does not match the
// Saldenliste-MM-YYYY contract; nothing is parsed in that case.
var ErrInvalidFilename = fmt.Errorf("filename does not match Saldenliste-MM-YYYY.<ext>")

// RowError describes one malformed data row that was skipped.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d skipped: %s", e.Line, e.Reason)
}

// Result is the outcome of parsing one export file.
//
// Accounts and Balances may contain duplicate account numbers (sub-ledger
// rows); consolidating them is the ledger store's job, not the parser's.
type Result struct {
	Period    core.Period
	Accounts  []core.Account
	Balances  []core.MonthlyBalance
	RowErrors []RowError
}

// Parser reads delimited Saldenliste text using a configurable numeric
// locale. The zero value is not usable; use New.
type Parser struct {
	format core.NumberFormat
}

func New(format core.NumberFormat) *Parser {
	return &Parser{format: format}
}

// PeriodFromFilename extracts (year, month) from an upload filename.
// Returns ErrInvalidFilename for any shape other than the documented
// contract, including out-of-range months.
func PeriodFromFilename(filename string) (core.Period, error) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return core.Period{}, fmt.Errorf("%q: %w", filename, ErrInvalidFilename)
	}
	month, err := strconv.Atoi(m[1])
	if err != nil {
		return core.Period{}, fmt.Errorf("%q: %w", filename, ErrInvalidFilename)
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return core.Period{}, fmt.Errorf("%q: %w", filename, ErrInvalidFilename)
	}
	p := core.NewPeriod(year, month)
	if err := p.Validate(); err != nil {
		return core.Period{}, fmt.Errorf("%q: %w", filename, ErrInvalidFilename)
	}
	return p, nil
}

// Parse reads one export. The filename decides the period, the payload
// supplies one row per account: class, number, name, then either
// debit/credit or debit/credit/net columns in locale numeric format.
func (p *Parser) Parse(filename string, data []byte) (*Result, error) {
	period, err := PeriodFromFilename(filename)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", filename, err)
	}

	res := &Result{Period: period}
	for i, rec := range records {
		line := i + 1
		if isBlankRecord(rec) {
			continue
		}
		if len(rec) < 5 {
			res.addRowError(line, "expected at least 5 columns (class, number, name, debit, credit)")
			continue
		}

		number := strings.TrimSpace(rec[1])
		if number == "" {
			// Export footers carry totals without an account number.
			continue
		}

		balance, err := p.parseBalance(number, period, rec[3:])
		if err != nil {
			if i == 0 {
				// A header row has text in every numeric column.
				continue
			}
			res.addRowError(line, err.Error())
			continue
		}

		res.Accounts = append(res.Accounts, core.Account{
			Number: number,
			Name:   strings.TrimSpace(rec[2]),
			Class:  strings.TrimSpace(rec[0]),
		})
		res.Balances = append(res.Balances, balance)
	}

	return res, nil
}

// parseBalance reads the numeric tail of a row. Two columns are
// debit/credit with net derived as debit-credit; a third column is a net
// amount supplied by the source and trusted as-is.
func (p *Parser) parseBalance(number string, period core.Period, cols []string) (core.MonthlyBalance, error) {
	debit, err := p.format.ParseAmount(cols[0])
	if err != nil {
		return core.MonthlyBalance{}, fmt.Errorf("debit %q: %w", cols[0], err)
	}
	credit, err := p.format.ParseAmount(cols[1])
	if err != nil {
		return core.MonthlyBalance{}, fmt.Errorf("credit %q: %w", cols[1], err)
	}

	net := debit.Sub(credit)
	if len(cols) >= 3 && strings.TrimSpace(cols[2]) != "" {
		net, err = p.format.ParseAmount(cols[2])
		if err != nil {
			return core.MonthlyBalance{}, fmt.Errorf("net %q: %w", cols[2], err)
		}
	}

	return core.MonthlyBalance{
		AccountNumber: number,
		Year:          period.Year,
		Month:         period.Month,
		Debit:         debit,
		Credit:        credit,
		Net:           net,
	}, nil
}

func (r *Result) addRowError(line int, reason string) {
	r.RowErrors = append(r.RowErrors, RowError{Line: line, Reason: reason})
}

// detectDelimiter chooses between ';' and ','. Semicolon wins whenever it
// appears at all: German-locale exports use ',' as the decimal separator,
// so counting commas would misfire.
func detectDelimiter(data []byte) rune {
	if bytes.ContainsRune(data, ';') {
		return ';'
	}
	return ','
}

func isBlankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
