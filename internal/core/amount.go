// Package core provides the ledger domain model and amount parsing utilities.
//
// This file contains locale-aware parsing of balance amounts. Trial-balance
// exports from German-speaking accounting systems write amounts with a dot as
// thousands separator and a comma as decimal separator (e.g. "1.234,56").
// The separators are configurable so the parser is not tied to one locale.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NumberFormat describes the separators used by a numeric locale.
type NumberFormat struct {
	DecimalSep   rune
	ThousandsSep rune
}

// GermanFormat is the format used by Saldenliste exports: "1.234,56".
func GermanFormat() NumberFormat {
	return NumberFormat{DecimalSep: ',', ThousandsSep: '.'}
}

// EnglishFormat parses "1,234.56".
func EnglishFormat() NumberFormat {
	return NumberFormat{DecimalSep: '.', ThousandsSep: ','}
}

// ParseAmount converts a localized numeric string into a decimal.
//
// Examples with GermanFormat:
//
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("-12,5")    -> -12.5
//	ParseAmount("300")      -> 300
//
// The sign may be a leading "-" or "+". Returns ErrInvalidAmount for empty
// input, stray characters, or multiple decimal separators.
func (f NumberFormat) ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	var b strings.Builder
	b.Grow(len(s))
	seenDecimal := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == f.DecimalSep:
			if seenDecimal {
				return decimal.Zero, ErrInvalidAmount
			}
			seenDecimal = true
			b.WriteByte('.')
		case r == f.ThousandsSep:
			// Grouping separators are only valid before the decimal part.
			if seenDecimal {
				return decimal.Zero, ErrInvalidAmount
			}
		default:
			return decimal.Zero, ErrInvalidAmount
		}
	}

	normalized := b.String()
	if normalized == "" || normalized == "." {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
