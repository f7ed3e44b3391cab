package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/internal/reconciler"
	"payment-reconciliation-service/internal/reporter"
	"payment-reconciliation-service/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()

	st := store.NewMemoryStore()
	svc := reconciler.NewService(st, nil)
	rep := reporter.NewReporter(st)
	return NewServer(DefaultConfig(), st, svc, rep), st
}

func seedMatchedPair(t *testing.T, st *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, st.SaveTransaction(ctx, &models.Transaction{
		TransactionID:   "TX001",
		MerchantID:      "MERCH001",
		Amount:          decimal.NewFromFloat(100.50),
		Currency:        "USD",
		Timestamp:       time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Status:          models.TransactionSuccess,
		BankReferenceID: "BANK001",
	}))
	require.NoError(t, st.SaveStatement(ctx, &models.BankStatement{
		BankReferenceID:   "BANK001",
		Amount:            decimal.NewFromFloat(100.50),
		MerchantAccountID: "MERCH001",
		SettlementDate:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:            models.StatementCleared,
	}))
}

func doRequest(t *testing.T, s *Server, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestRunReconciliation(t *testing.T) {
	s, st := newTestServer(t)
	seedMatchedPair(t, st)

	rec := doRequest(t, s, http.MethodPost, "/api/reconcile", map[string]string{"X-Actor": "ops@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Reconciliation completed", body["message"])
	assert.NotEmpty(t, body["run_id"])
	assert.Equal(t, float64(1), body["matched_count"])
	assert.Equal(t, float64(0), body["partial_count"])
	assert.Equal(t, float64(0), body["unmatched_count"])
	assert.Equal(t, float64(1), body["total"])

	require.Len(t, st.AuditEvents, 1)
	assert.Equal(t, "ops@example.com", st.AuditEvents[0].Actor)
}

func TestRunReconciliationPreconditions(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		s, _ := newTestServer(t)

		rec := doRequest(t, s, http.MethodPost, "/api/reconcile", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no_transactions", decodeBody(t, rec)["code"])
	})

	t.Run("no statements", func(t *testing.T) {
		s, st := newTestServer(t)
		require.NoError(t, st.SaveTransaction(context.Background(), &models.Transaction{
			TransactionID: "TX001",
			MerchantID:    "MERCH001",
			Amount:        decimal.NewFromFloat(10.00),
			Timestamp:     time.Now().UTC(),
			Status:        models.TransactionSuccess,
		}))

		rec := doRequest(t, s, http.MethodPost, "/api/reconcile", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no_statements", decodeBody(t, rec)["code"])
	})
}

func TestSummaryBeforeAnyRun(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/reconcile/summary", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_runs", decodeBody(t, rec)["code"])
}

func TestSummaryAfterRun(t *testing.T) {
	s, st := newTestServer(t)
	seedMatchedPair(t, st)
	doRequest(t, s, http.MethodPost, "/api/reconcile", nil)

	rec := doRequest(t, s, http.MethodGet, "/api/reconcile/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	summary, ok := body["summary"].(map[string]interface{})
	require.True(t, ok, "expected a summary object, got %v", body)
	assert.Equal(t, float64(1), summary["total_transactions"])
	assert.Equal(t, float64(1), summary["matched"])
	assert.NotEmpty(t, body["runDate"])
}

func TestMismatches(t *testing.T) {
	s, st := newTestServer(t)
	seedMatchedPair(t, st)
	require.NoError(t, st.SaveTransaction(context.Background(), &models.Transaction{
		TransactionID: "TX_LONELY",
		MerchantID:    "MERCH_OTHER",
		Amount:        decimal.NewFromFloat(55.00),
		Timestamp:     time.Now().UTC(),
		Status:        models.TransactionSuccess,
	}))
	doRequest(t, s, http.MethodPost, "/api/reconcile", nil)

	rec := doRequest(t, s, http.MethodGet, "/api/reconcile/mismatches", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"], "matched records must be filtered out")

	rec = doRequest(t, s, http.MethodGet, "/api/reconcile/mismatches?showAll=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"], "showAll must return every detail")
}

func TestHistory(t *testing.T) {
	s, st := newTestServer(t)
	seedMatchedPair(t, st)
	doRequest(t, s, http.MethodPost, "/api/reconcile", nil)
	doRequest(t, s, http.MethodPost, "/api/reconcile", nil)
	doRequest(t, s, http.MethodPost, "/api/reconcile", nil)

	rec := doRequest(t, s, http.MethodGet, "/api/reconcile/history?limit=2&offset=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["limit"])
	items, ok := body["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestHistoryEmptyIsNotAnError(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/reconcile/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["total"])
}

func TestDownload(t *testing.T) {
	s, st := newTestServer(t)
	seedMatchedPair(t, st)
	doRequest(t, s, http.MethodPost, "/api/reconcile", nil)

	rec := doRequest(t, s, http.MethodGet, "/api/reconcile/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reconciliation_report.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "transactionId,"))
	assert.True(t, strings.HasPrefix(lines[1], "TX001,"))
}

func TestDownloadBeforeAnyRun(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/reconcile/download", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRun(t *testing.T) {
	s, st := newTestServer(t)
	seedMatchedPair(t, st)
	rec := doRequest(t, s, http.MethodPost, "/api/reconcile", nil)
	runID, _ := decodeBody(t, rec)["run_id"].(string)
	require.NotEmpty(t, runID)

	rec = doRequest(t, s, http.MethodDelete, "/api/reconcile/"+runID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/api/reconcile/"+runID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAllRuns(t *testing.T) {
	s, st := newTestServer(t)
	seedMatchedPair(t, st)
	doRequest(t, s, http.MethodPost, "/api/reconcile", nil)
	doRequest(t, s, http.MethodPost, "/api/reconcile", nil)

	rec := doRequest(t, s, http.MethodDelete, "/api/reconcile/all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["deleted"])

	rec = doRequest(t, s, http.MethodGet, "/api/reconcile/summary", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTransactionsAndStatements(t *testing.T) {
	s, st := newTestServer(t)
	seedMatchedPair(t, st)

	rec := doRequest(t, s, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])

	rec = doRequest(t, s, http.MethodGet, "/api/statements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])
}

func TestCORSHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/reconcile/history", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
