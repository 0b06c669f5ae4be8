package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/services"
	"saldo/internal/store/memory"
)

const sampleUpload = "Klasse;Konto;Bezeichnung;Soll;Haben\n" +
	"4;4010;Logis Erlöse;0,00;12.500,00\n" +
	"6;6020;Gehälter;8.300,50;0,00\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ledgerStore := ledger.NewStore()
	repo := memory.NewRepository()
	imports := services.NewImportService(ledgerStore, repo, repo, nil, core.GermanFormat())
	reports := services.NewReportService(ledgerStore, repo)

	srv := NewServer(":0", imports, reports)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func uploadFile(t *testing.T, srv *Server, filename, payload string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(payload)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return doRequest(srv, req)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestHandleImport_Multipart(t *testing.T) {
	srv := newTestServer(t)

	rec := uploadFile(t, srv, "Saldenliste-07-2024.csv", sampleUpload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/uploads = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp uploadJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Filename != "Saldenliste-07-2024.csv" || resp.Year != 2024 || resp.Month != 7 {
		t.Errorf("response = %+v", resp)
	}
	if resp.AccountCount != 2 {
		t.Errorf("account_count = %d, want 2", resp.AccountCount)
	}
}

func TestHandleImport_RawBodyWithFilenameQuery(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost,
		"/api/uploads?filename=Saldenliste-07-2024.csv",
		strings.NewReader(sampleUpload))
	rec := doRequest(srv, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/uploads = %d, want 201: %s", rec.Code, rec.Body)
	}
}

func TestHandleImport_InvalidFilename(t *testing.T) {
	srv := newTestServer(t)

	rec := uploadFile(t, srv, "report.csv", sampleUpload)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("POST with bad filename = %d, want 422: %s", rec.Code, rec.Body)
	}
}

func TestHandleImport_MissingFilename(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(sampleUpload))
	rec := doRequest(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST without filename = %d, want 400: %s", rec.Code, rec.Body)
	}
}

func TestHandleUploads_List(t *testing.T) {
	srv := newTestServer(t)
	if rec := uploadFile(t, srv, "Saldenliste-07-2024.csv", sampleUpload); rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/uploads", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/uploads = %d, want 200", rec.Code)
	}

	var uploads []uploadJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &uploads); err != nil {
		t.Fatal(err)
	}
	if len(uploads) != 1 || uploads[0].Filename != "Saldenliste-07-2024.csv" {
		t.Errorf("uploads = %+v", uploads)
	}
}

func TestHandleUploadByName_Delete(t *testing.T) {
	srv := newTestServer(t)
	if rec := uploadFile(t, srv, "Saldenliste-07-2024.csv", sampleUpload); rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec := doRequest(srv, httptest.NewRequest(http.MethodDelete, "/api/uploads/Saldenliste-07-2024.csv", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d, want 204: %s", rec.Code, rec.Body)
	}

	rec = doRequest(srv, httptest.NewRequest(http.MethodDelete, "/api/uploads/Saldenliste-07-2024.csv", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second DELETE = %d, want 404: %s", rec.Code, rec.Body)
	}

	// Comparison data survives the provenance delete.
	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/comparison?year=2024&month=7", nil))
	var rows []comparisonRowJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d comparison rows after delete, want 2", len(rows))
	}
}

func TestHandleComparison(t *testing.T) {
	srv := newTestServer(t)
	if rec := uploadFile(t, srv, "Saldenliste-06-2024.csv", "4;4010;Logis;0,00;100,00\n"); rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}
	if rec := uploadFile(t, srv, "Saldenliste-07-2024.csv", "4;4010;Logis;0,00;150,00\n"); rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/comparison?year=2024&month=7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/comparison = %d, want 200: %s", rec.Code, rec.Body)
	}

	var rows []comparisonRowJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.AccountNumber != "4010" || row.Area != string(core.AreaLogis) {
		t.Errorf("row = %+v", row)
	}
	if row.Current == nil || row.Current.String() != "-150" {
		t.Errorf("current = %v, want -150", row.Current)
	}
	if row.DeltaPctPreviousMonth == nil || row.DeltaPctPreviousMonth.String() != "-50" {
		t.Errorf("delta pct = %v, want -50", row.DeltaPctPreviousMonth)
	}
	if row.PreviousYear != nil {
		t.Errorf("previous year = %v, want null", row.PreviousYear)
	}
}

func TestHandleComparison_InvalidPeriod(t *testing.T) {
	srv := newTestServer(t)

	for _, query := range []string{"?year=2024&month=13", "?year=abc", "?month=x"} {
		rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/comparison"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET /api/comparison%s = %d, want 400", query, rec.Code)
		}
	}
}

func TestHandleAreaSummary(t *testing.T) {
	srv := newTestServer(t)
	if rec := uploadFile(t, srv, "Saldenliste-07-2024.csv", sampleUpload); rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/areas?year=2024&month=7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/areas = %d, want 200: %s", rec.Code, rec.Body)
	}

	var aggs []areaAggregateJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &aggs); err != nil {
		t.Fatal(err)
	}
	if len(aggs) != 2 {
		t.Fatalf("got %d aggregates, want 2: %s", len(aggs), rec.Body)
	}
	if aggs[0].Area != string(core.AreaLogis) || aggs[0].Kind != string(core.KindRevenue) {
		t.Errorf("aggs[0] = %+v", aggs[0])
	}
}

func TestHandleAudit(t *testing.T) {
	srv := newTestServer(t)
	if rec := uploadFile(t, srv, "Saldenliste-01-2024.csv", sampleUpload); rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}
	if rec := uploadFile(t, srv, "Saldenliste-03-2024.csv", sampleUpload); rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/audit = %d, want 200: %s", rec.Code, rec.Body)
	}

	var audit auditJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &audit); err != nil {
		t.Fatal(err)
	}
	if len(audit.MissingPeriods) != 3 {
		t.Fatalf("got %d period entries, want 3: %+v", len(audit.MissingPeriods), audit.MissingPeriods)
	}
	if audit.MissingPeriods[1].Month != 2 || audit.MissingPeriods[1].Present {
		t.Errorf("middle period = %+v, want absent february", audit.MissingPeriods[1])
	}
	if len(audit.ClassReconciliation) != 2 {
		t.Errorf("got %d class totals, want 2", len(audit.ClassReconciliation))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(srv, httptest.NewRequest(http.MethodPut, "/api/uploads", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /api/uploads = %d, want 405", rec.Code)
	}

	rec = doRequest(srv, httptest.NewRequest(http.MethodPost, "/api/audit", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/audit = %d, want 405", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/uploads", nil))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
