// Package google pushes per-period area summaries to a management
// spreadsheet. The hotel controllers review the monthly figures in Google
// Sheets; the worker appends one block per imported batch.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional: GOOGLE_REPORT_SHEET_NAME (default "Reporting").
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	reportSheet := strings.TrimSpace(os.Getenv("GOOGLE_REPORT_SHEET_NAME"))
	if reportSheet == "" {
		reportSheet = "Reporting"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   reportSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also honor the standard Google Cloud environment variable.
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// AppendAreaSummary appends one block of rows for a period: a header row
// followed by one row per (area, kind) aggregate. Revenue and expense
// figures are written as display values (absolute), matching how the
// dashboard presents them.
func (c *Client) AppendAreaSummary(ctx context.Context, period core.Period, aggregates []ledger.AreaAggregate) error {
	values := [][]interface{}{
		{period.String(), "Bereich", "Art", "Aktuell", "Vormonat", "Vorjahr", "Δ Vormonat %", "Δ Vorjahr %"},
	}
	for _, agg := range aggregates {
		values = append(values, []interface{}{
			period.String(),
			string(agg.Area),
			string(agg.Kind),
			displayCell(agg.Kind, agg.Current),
			displayCell(agg.Kind, agg.PreviousMonth),
			displayCell(agg.Kind, agg.PreviousYear),
			pctCell(agg.DeltaPctPreviousMonth),
			pctCell(agg.DeltaPctPreviousYear),
		})
	}

	rangeRef := fmt.Sprintf("%s!A:H", c.reportSheet)
	vr := &gsheet.ValueRange{Values: values}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rangeRef, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append area summary for %s: %w", period, err)
	}

	slog.InfoContext(ctx, "Area summary exported to spreadsheet",
		"period", period.String(),
		"rows", len(aggregates),
		"sheet", c.reportSheet)
	return nil
}

// displayCell renders a nullable aggregate leg; missing data stays an empty
// cell, never a zero.
func displayCell(kind core.LedgerKind, v *decimal.Decimal) interface{} {
	if v == nil {
		return ""
	}
	return core.DisplayNet(kind, *v).StringFixed(2)
}

func pctCell(v *decimal.Decimal) interface{} {
	if v == nil {
		return ""
	}
	return v.StringFixed(1)
}
