package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/dashboard"
	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/observability"
	"cryptopunks-analysis/internal/storage/memory"
)

var start = time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)

func seedTransfers(t *testing.T, values ...float64) *memory.TransferStore {
	t.Helper()
	store := memory.NewTransferStore()
	var batch []*domain.Transfer
	for i, v := range values {
		batch = append(batch, &domain.Transfer{
			TxHash:     "0x" + string(rune('a'+i)),
			Timestamp:  start.Add(time.Duration(i) * 6 * time.Hour),
			Sender:     "0xminter",
			Receiver:   "0xholder" + string(rune('a'+i%5)),
			Value:      v,
			EventIndex: 0,
		})
	}
	require.NoError(t, store.InsertBulk(context.Background(), batch))
	return store
}

func newTestHandlers(t *testing.T, source TransferSource) (*Handlers, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("", reg)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	analyzer, err := analytics.New(analytics.Options{Recorder: metrics})
	require.NoError(t, err)

	return &Handlers{
		Source:    source,
		Analyzer:  analyzer,
		Dashboard: dashboard.NewBuilder(),
		Metrics:   metrics,
		Logger:    logger,
		Now:       func() time.Time { return start.AddDate(0, 1, 0) },
	}, reg
}

func newTestServer(t *testing.T, source TransferSource, cfg ServerConfig) (*Server, *prometheus.Registry) {
	t.Helper()
	h, reg := newTestHandlers(t, source)
	srv, err := NewServer(ServerDeps{Handlers: h, Config: cfg})
	require.NoError(t, err)
	return srv, reg
}

func do(srv *Server, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, seedTransfers(t, 1, 2, 3), ServerConfig{})

	rec := do(srv, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 3, resp.Transfers)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAnalysis_FullBundle(t *testing.T) {
	srv, _ := newTestServer(t, seedTransfers(t, 1, 2, 3, 4, 5, 6, 7, 8, 9, 100), ServerConfig{})

	rec := do(srv, http.MethodGet, "/v1/analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.HolderStats, 5)
	assert.Equal(t, 10, resp.RowsAnalyzed)
	assert.Len(t, resp.Liquidity, 3)
	assert.Len(t, resp.PriceImpact, 3)
	require.NotEmpty(t, resp.WhaleTrades)
	assert.Equal(t, 100.0, resp.WhaleTrades[len(resp.WhaleTrades)-1].Value)
	assert.Equal(t, 0.9, resp.Params.WhaleQuantile)
}

func TestAnalysisPart(t *testing.T) {
	srv, _ := newTestServer(t, seedTransfers(t, 1, 2, 3, 4, 5), ServerConfig{})

	rec := do(srv, http.MethodGet, "/v1/analysis/liquidity", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Part  string          `json:"part"`
		Items []LiquidityJSON `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.PartLiquidity, resp.Part)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "2021-08-01", resp.Items[0].Date)
	assert.Equal(t, 4, resp.Items[0].TransactionCount)

	rec = do(srv, http.MethodGet, "/v1/analysis/volatility", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysis_UndefinedResultIs422(t *testing.T) {
	srv, reg := newTestServer(t, seedTransfers(t, 0, 0, 0), ServerConfig{})

	rec := do(srv, http.MethodGet, "/v1/analysis", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Error, "holders")
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "insufficient_data", details["kind"])
	assert.Equal(t, analytics.PassHolders, details["pass"])

	mfs, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "cryptopunks_analysis_pass_errors_total" {
			found = true
		}
	}
	assert.True(t, found, "expected pass error metric")
}

func TestAnalysis_InvalidFilter(t *testing.T) {
	srv, _ := newTestServer(t, seedTransfers(t, 1), ServerConfig{})

	rec := do(srv, http.MethodGet, "/v1/analysis?period=hourly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodGet, "/v1/summary?size=tiny", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodGet, "/v1/summary?start=08/01/2021", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary_Filtered(t *testing.T) {
	srv, _ := newTestServer(t, seedTransfers(t, 1, 20, 60, 150, 2), ServerConfig{})

	rec := do(srv, http.MethodGet, "/v1/summary?size=small,whale", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary dashboard.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.TransferCount)
	assert.Equal(t, 153.0, summary.Metrics.TotalVolume.Value)
	assert.Equal(t, []dashboard.SizeCategory{dashboard.SizeSmall, dashboard.SizeWhale}, summary.Filter.Sizes)
}

func TestSummary_CustomRangeFromDates(t *testing.T) {
	srv, _ := newTestServer(t, seedTransfers(t, 1, 2, 3, 4, 5, 6), ServerConfig{})

	rec := do(srv, http.MethodGet, "/v1/summary?start=2021-08-02&end=2021-08-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary dashboard.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, dashboard.PeriodCustom, summary.Filter.Period)
	assert.Equal(t, 2, summary.TransferCount)
}

func TestAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, seedTransfers(t, 1, 2), ServerConfig{APIKey: "secret"})

	rec := do(srv, http.MethodGet, "/v1/summary", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(srv, http.MethodGet, "/v1/summary", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open without a token.
	rec = do(srv, http.MethodGet, "/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, seedTransfers(t, 1, 2), ServerConfig{})

	do(srv, http.MethodGet, "/v1/health", nil)
	rec := do(srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cryptopunks_api_requests_total{code="200",route="/v1/health"} 1`)
}

func TestNotFound(t *testing.T) {
	srv, _ := newTestServer(t, seedTransfers(t, 1), ServerConfig{})

	rec := do(srv, http.MethodGet, "/v2/whatever", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingSource struct{}

func (failingSource) GetAll(context.Context) ([]*domain.Transfer, error) {
	return nil, errors.New("connection refused")
}

func (failingSource) Count(context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

func TestSourceFailure(t *testing.T) {
	srv, _ := newTestServer(t, failingSource{}, ServerConfig{})

	rec := do(srv, http.MethodGet, "/v1/summary", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Details, "internal details hidden outside dev mode")

	rec = do(srv, http.MethodGet, "/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyze_ReturnsErrorsWithoutWriting(t *testing.T) {
	h, _ := newTestHandlers(t, seedTransfers(t, 0, 0, 0))
	e := echo.New()

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"bad filter", "/v1/analysis?period=hourly", http.StatusBadRequest},
		{"undefined analysis", "/v1/analysis", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, tt.target, nil), rec)

			resp, err := h.analyze(c)
			assert.Nil(t, resp)
			require.Error(t, err)

			var re *requestError
			require.True(t, errors.As(err, &re), "expected *requestError, got %T", err)
			assert.Equal(t, tt.code, re.Code)
			assert.False(t, c.Response().Committed, "analyze must leave the response to the caller")

			require.NoError(t, h.fail(c, err))
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	h.Source = failingSource{}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/analysis", nil), httptest.NewRecorder())
	_, err := h.analyze(c)
	var re *requestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.Code)
	assert.EqualError(t, errors.Unwrap(err), "connection refused")
}
