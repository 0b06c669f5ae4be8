package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/parser"
	"saldo/internal/store"
)

type (
	errorResponse struct {
		Error string `json:"error"`
	}

	skippedRowJSON struct {
		Line   int    `json:"line"`
		Reason string `json:"reason"`
	}

	uploadJSON struct {
		Filename     string           `json:"filename"`
		Year         int              `json:"year"`
		Month        int              `json:"month"`
		AccountCount int              `json:"account_count"`
		ImportedAt   time.Time        `json:"imported_at"`
		SkippedRows  []skippedRowJSON `json:"skipped_rows,omitempty"`
	}

	comparisonRowJSON struct {
		AccountNumber string `json:"account_number"`
		AccountName   string `json:"account_name"`
		Class         string `json:"class"`
		Area          string `json:"area"`
		Kind          string `json:"kind"`

		Current       *decimal.Decimal `json:"current"`
		PreviousMonth *decimal.Decimal `json:"previous_month"`
		PreviousYear  *decimal.Decimal `json:"previous_year"`

		DeltaPreviousMonth    *decimal.Decimal `json:"delta_previous_month"`
		DeltaPctPreviousMonth *decimal.Decimal `json:"delta_pct_previous_month"`
		DeltaPreviousYear     *decimal.Decimal `json:"delta_previous_year"`
		DeltaPctPreviousYear  *decimal.Decimal `json:"delta_pct_previous_year"`
	}

	areaAggregateJSON struct {
		Area         string `json:"area"`
		Kind         string `json:"kind"`
		AccountCount int    `json:"account_count"`

		Current       *decimal.Decimal `json:"current"`
		PreviousMonth *decimal.Decimal `json:"previous_month"`
		PreviousYear  *decimal.Decimal `json:"previous_year"`

		DeltaPreviousMonth    *decimal.Decimal `json:"delta_previous_month"`
		DeltaPctPreviousMonth *decimal.Decimal `json:"delta_pct_previous_month"`
		DeltaPreviousYear     *decimal.Decimal `json:"delta_previous_year"`
		DeltaPctPreviousYear  *decimal.Decimal `json:"delta_pct_previous_year"`
	}

	accountJSON struct {
		Number string `json:"number"`
		Name   string `json:"name"`
		Class  string `json:"class"`
		Area   string `json:"area"`
		Kind   string `json:"kind"`
	}

	classReconciliationJSON struct {
		Class        string          `json:"class"`
		AccountCount int             `json:"account_count"`
		DebitTotal   decimal.Decimal `json:"debit_total"`
		CreditTotal  decimal.Decimal `json:"credit_total"`
		NetTotal     decimal.Decimal `json:"net_total"`
	}

	periodPresenceJSON struct {
		Year    int  `json:"year"`
		Month   int  `json:"month"`
		Present bool `json:"present"`
	}

	auditJSON struct {
		UnclassifiedAccounts []accountJSON             `json:"unclassified_accounts"`
		UntypedAccounts      []accountJSON             `json:"untyped_accounts"`
		ClassReconciliation  []classReconciliationJSON `json:"class_reconciliation"`
		MissingPeriods       []periodPresenceJSON      `json:"missing_periods"`
	}
)

// handleUploads lists recorded batches (GET) or imports a new export (POST).
func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		batches := s.reports.Batches()
		out := make([]uploadJSON, 0, len(batches))
		for _, b := range batches {
			out = append(out, uploadJSON{
				Filename:     b.Filename,
				Year:         b.Year,
				Month:        b.Month,
				AccountCount: b.AccountCount,
				ImportedAt:   b.ImportedAt,
			})
		}
		writeJSON(w, r, http.StatusOK, out)
	case http.MethodPost:
		s.handleImport(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleImport accepts a multipart upload (field "file") or a raw body with
// a "filename" query parameter.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	filename, data, err := readUpload(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.imports.ImportFile(r.Context(), filename, data)
	if err != nil {
		if errors.Is(err, parser.ErrInvalidFilename) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Upload import failed", "filename", filename, "error", err)
		writeError(w, r, http.StatusInternalServerError, "import failed")
		return
	}

	resp := uploadJSON{
		Filename:     result.Batch.Filename,
		Year:         result.Batch.Year,
		Month:        result.Batch.Month,
		AccountCount: result.Batch.AccountCount,
		ImportedAt:   result.Batch.ImportedAt,
	}
	for _, skipped := range result.SkippedRows {
		resp.SkippedRows = append(resp.SkippedRows, skippedRowJSON{Line: skipped.Line, Reason: skipped.Reason})
	}
	writeJSON(w, r, http.StatusCreated, resp)
}

// handleUploadByName removes one upload's bookkeeping record.
func (s *Server) handleUploadByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/api/uploads/")
	if filename == "" || strings.Contains(filename, "/") {
		writeError(w, r, http.StatusBadRequest, "missing or invalid filename")
		return
	}

	if err := s.imports.RemoveUpload(r.Context(), filename); err != nil {
		if errors.Is(err, store.ErrBatchNotFound) {
			writeError(w, r, http.StatusNotFound, "upload not found")
			return
		}
		slog.ErrorContext(r.Context(), "Upload removal failed", "filename", filename, "error", err)
		writeError(w, r, http.StatusInternalServerError, "removal failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	period, ok := s.periodFromQuery(w, r)
	if !ok {
		return
	}

	rows, err := s.reports.Comparison(period)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	out := make([]comparisonRowJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, comparisonRowJSON{
			AccountNumber:         row.Account.Number,
			AccountName:           row.Account.Name,
			Class:                 row.Account.Class,
			Area:                  string(row.Account.Area),
			Kind:                  string(row.Account.Kind),
			Current:               row.Current,
			PreviousMonth:         row.PreviousMonth,
			PreviousYear:          row.PreviousYear,
			DeltaPreviousMonth:    row.DeltaPreviousMonth,
			DeltaPctPreviousMonth: row.DeltaPctPreviousMonth,
			DeltaPreviousYear:     row.DeltaPreviousYear,
			DeltaPctPreviousYear:  row.DeltaPctPreviousYear,
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleAreaSummary(w http.ResponseWriter, r *http.Request) {
	period, ok := s.periodFromQuery(w, r)
	if !ok {
		return
	}

	aggregates, err := s.reports.AreaSummary(period)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	out := make([]areaAggregateJSON, 0, len(aggregates))
	for _, agg := range aggregates {
		out = append(out, areaAggregateJSON{
			Area:                  string(agg.Area),
			Kind:                  string(agg.Kind),
			AccountCount:          agg.AccountCount,
			Current:               agg.Current,
			PreviousMonth:         agg.PreviousMonth,
			PreviousYear:          agg.PreviousYear,
			DeltaPreviousMonth:    agg.DeltaPreviousMonth,
			DeltaPctPreviousMonth: agg.DeltaPctPreviousMonth,
			DeltaPreviousYear:     agg.DeltaPreviousYear,
			DeltaPctPreviousYear:  agg.DeltaPctPreviousYear,
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	report := s.reports.AuditReport()
	out := auditJSON{
		UnclassifiedAccounts: accountsJSON(report.UnclassifiedAccounts),
		UntypedAccounts:      accountsJSON(report.UntypedAccounts),
		ClassReconciliation:  make([]classReconciliationJSON, 0, len(report.ClassReconciliation)),
		MissingPeriods:       make([]periodPresenceJSON, 0, len(report.MissingPeriods)),
	}
	for _, c := range report.ClassReconciliation {
		out.ClassReconciliation = append(out.ClassReconciliation, classReconciliationJSON{
			Class:        c.Class,
			AccountCount: c.AccountCount,
			DebitTotal:   c.DebitTotal,
			CreditTotal:  c.CreditTotal,
			NetTotal:     c.NetTotal,
		})
	}
	for _, p := range report.MissingPeriods {
		out.MissingPeriods = append(out.MissingPeriods, periodPresenceJSON{
			Year:    p.Period.Year,
			Month:   p.Period.Month,
			Present: p.Present,
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func accountsJSON(accounts []core.Account) []accountJSON {
	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountJSON{
			Number: a.Number,
			Name:   a.Name,
			Class:  a.Class,
			Area:   string(a.Area),
			Kind:   string(a.Kind),
		})
	}
	return out
}

// periodFromQuery reads year/month query parameters, defaulting to the
// current month. Writes a 400 and returns ok=false on invalid input.
func (s *Server) periodFromQuery(w http.ResponseWriter, r *http.Request) (core.Period, bool) {
	now := time.Now()
	period := core.NewPeriod(now.Year(), int(now.Month()))

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid year")
			return core.Period{}, false
		}
		period.Year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid month")
			return core.Period{}, false
		}
		period.Month = m
	}
	if err := period.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return core.Period{}, false
	}
	return period, true
}

// readUpload extracts (filename, payload) from a multipart form or a raw
// request body.
func readUpload(r *http.Request) (string, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, errors.New("missing multipart field 'file'")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, errors.New("read upload body failed")
		}
		return header.Filename, data, nil
	}

	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		return "", nil, errors.New("missing 'filename' query parameter")
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, errors.New("read upload body failed")
	}
	return filename, data, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err, "url", r.URL.Path)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}
