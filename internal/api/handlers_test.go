package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/creatives"
	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/models"
	"github.com/patrickwarner/adcreatives/internal/observability"
)

type stubFetcher struct {
	resp *models.CreativesResponse
	err  error
	got  creatives.Request
	fn   func()
}

func (f *stubFetcher) Fetch(ctx context.Context, req creatives.Request) (*models.CreativesResponse, error) {
	f.got = req
	if f.fn != nil {
		f.fn()
	}
	return f.resp, f.err
}

func newTestServer() *Server {
	svc := creatives.NewService(nil, nil, nil, nil, nil, creatives.Config{}, zap.NewNop(), observability.NewNoOpRegistry())
	return &Server{
		Logger:    zap.NewNop(),
		Creatives: svc,
		Metrics:   observability.NewNoOpRegistry(),
	}
}

func postCreatives(srv *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/creatives", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.CreativesHandler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestCreativesHandler_MockToken(t *testing.T) {
	srv := newTestServer()

	rec := postCreatives(srv, `{"accessToken":"mock","adAccountId":"act_1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var resp models.CreativesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Message != creatives.MessageMock {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Creatives) != 4 {
		t.Fatalf("expected 4 sample creatives, got %d", len(resp.Creatives))
	}
	if resp.Creatives[0].AdAccountID != "act_1" {
		t.Fatalf("expected sample records for act_1, got %q", resp.Creatives[0].AdAccountID)
	}
}

func TestCreativesHandler_InvalidJSON(t *testing.T) {
	srv := newTestServer()

	rec := postCreatives(srv, `{"accessToken":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg == "" {
		t.Fatalf("expected error message")
	}
}

func TestCreativesHandler_MissingFields(t *testing.T) {
	srv := newTestServer()

	rec := postCreatives(srv, `{"accessToken":"tok"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != creatives.ErrInvalidRequest.Error() {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestCreativesHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/creatives", nil)
	rec := httptest.NewRecorder()
	srv.CreativesHandler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCreativesHandler_AccountAPIError(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()
	fetcher := &stubFetcher{err: fmt.Errorf("fetch ad account: %w", &graph.APIError{Message: "Invalid OAuth access token.", Code: 190})}
	srv := &Server{Logger: zap.NewNop(), Creatives: fetcher, Metrics: metrics}

	rec := postCreatives(srv, `{"accessToken":"bad","adAccountId":"act_1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Invalid OAuth access token." {
		t.Fatalf("expected upstream message, got %q", msg)
	}
	if metrics.Count("requests:/creatives:POST:400") != 1 {
		t.Fatalf("expected 400 to be recorded")
	}
}

func TestCreativesHandler_UnexpectedError(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("dial tcp: connection refused")}
	srv := &Server{Logger: zap.NewNop(), Creatives: fetcher, Metrics: observability.NewNoOpRegistry()}

	rec := postCreatives(srv, `{"accessToken":"tok","adAccountId":"act_1"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); strings.Contains(msg, "connection refused") {
		t.Fatalf("internal error leaked to client: %q", msg)
	}
}

func TestCreativesHandler_Panic(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()
	fetcher := &stubFetcher{fn: func() { panic("boom") }}
	srv := &Server{Logger: zap.NewNop(), Creatives: fetcher, Metrics: metrics}

	rec := postCreatives(srv, `{"accessToken":"tok","adAccountId":"act_1"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if metrics.Count("requests:/creatives:POST:500") != 1 {
		t.Fatalf("expected 500 to be recorded")
	}
}

func TestCreativesHandler_PassesOptions(t *testing.T) {
	fetcher := &stubFetcher{resp: &models.CreativesResponse{Success: true, Creatives: []models.CreativeRecord{}}}
	srv := &Server{Logger: zap.NewNop(), Creatives: fetcher, Metrics: observability.NewNoOpRegistry()}

	rec := postCreatives(srv, `{"accessToken":"tok","adAccountId":"act_9","dateRange":"last_30d","cacheTtlHours":0,"refresh":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := fetcher.got
	if got.AccessToken != "tok" || got.AdAccountID != "act_9" || got.DateRange != "last_30d" || !got.Refresh {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.CacheTTLHours == nil || *got.CacheTTLHours != 0 {
		t.Fatalf("expected explicit zero ttl, got %v", got.CacheTTLHours)
	}
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.HealthHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestRoutes(t *testing.T) {
	srv := newTestServer()
	r := mux.NewRouter()
	srv.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/creatives", strings.NewReader(`{"accessToken":"mock","adAccountId":"1"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreativeReportHandler_Unavailable(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/reports/creatives?adAccountId=act_1", nil)
	rec := httptest.NewRecorder()
	srv.CreativeReportHandler(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestCreativeReportHandler_BadParams(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()
	srv := newTestServer()
	srv.ClickHouseDB = db

	for _, target := range []string{
		"/reports/creatives",
		"/reports/creatives?adAccountId=act_1&days=-1",
		"/reports/creatives?adAccountId=act_1&limit=x",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.CreativeReportHandler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestCreativeReportHandler(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`ORDER BY latest_ctr DESC`).
		WithArgs("act_1", 365, 10).
		WillReturnRows(sqlmock.NewRows([]string{"creative_id", "latest_name", "latest_type", "latest_impressions",
			"latest_clicks", "latest_spend", "latest_ctr", "latest_cpc", "latest_frequency", "latest_performance",
			"latest_fatigue", "last_seen"}))
	mock.ExpectQuery(`HAVING snapshots > 1`).
		WithArgs("act_1", 365, 10).
		WillReturnRows(sqlmock.NewRows([]string{"creative_id", "latest_name", "first_frequency", "last_frequency",
			"first_ctr", "last_ctr", "snapshots"}))
	mock.ExpectQuery(`GROUP BY latest_type`).
		WithArgs("act_1", 365).
		WillReturnRows(sqlmock.NewRows([]string{"latest_type", "creatives", "impressions", "clicks", "spend"}).
			AddRow("image", int64(2), 1000.0, 10.0, 5.0))

	srv := newTestServer()
	srv.ClickHouseDB = db

	req := httptest.NewRequest(http.MethodGet, "/reports/creatives?adAccountId=act_1&days=9999", nil)
	rec := httptest.NewRecorder()
	srv.CreativeReportHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"image"`) {
		t.Fatalf("expected type breakdown in body: %s", rec.Body.String())
	}
}

func TestCreativeReportHandler_UnprefixedAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`ORDER BY latest_ctr DESC`).
		WithArgs("act_123", 7, 10).
		WillReturnRows(sqlmock.NewRows([]string{"creative_id", "latest_name", "latest_type", "latest_impressions",
			"latest_clicks", "latest_spend", "latest_ctr", "latest_cpc", "latest_frequency", "latest_performance",
			"latest_fatigue", "last_seen"}))
	mock.ExpectQuery(`HAVING snapshots > 1`).
		WithArgs("act_123", 7, 10).
		WillReturnRows(sqlmock.NewRows([]string{"creative_id", "latest_name", "first_frequency", "last_frequency",
			"first_ctr", "last_ctr", "snapshots"}))
	mock.ExpectQuery(`GROUP BY latest_type`).
		WithArgs("act_123", 7).
		WillReturnRows(sqlmock.NewRows([]string{"latest_type", "creatives", "impressions", "clicks", "spend"}))

	srv := newTestServer()
	srv.ClickHouseDB = db

	req := httptest.NewRequest(http.MethodGet, "/reports/creatives?adAccountId=123", nil)
	rec := httptest.NewRecorder()
	srv.CreativeReportHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
