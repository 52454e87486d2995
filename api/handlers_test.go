package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/notes-discovery/config"
	"github.com/gcbaptista/notes-discovery/internal/analytics"
	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/internal/jobs"
	"github.com/gcbaptista/notes-discovery/internal/ledger"
	"github.com/gcbaptista/notes-discovery/internal/session"
	"github.com/gcbaptista/notes-discovery/internal/source"
	"github.com/gcbaptista/notes-discovery/internal/testutil"
	"github.com/gcbaptista/notes-discovery/model"
	"github.com/gcbaptista/notes-discovery/services"
)

type testServer struct {
	router    *gin.Engine
	session   *session.Session
	analytics *analytics.Service
}

func setupTestServer(t *testing.T, src source.ContentSource) *testServer {
	t.Helper()

	settings := config.Default()
	settings.Match.ParallelThreshold = 0

	sess, err := session.New(src, settings, nil)
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	store, err := ledger.NewMemoryStore("", nil)
	require.NoError(t, err)
	l := ledger.New(store, sess, settings.Ledger, nil)
	sess.SetEntitlements(l)

	jobManager := jobs.NewManager(2, 0, nil)
	t.Cleanup(jobManager.Stop)

	stats := analytics.NewService(sess, "", 0, nil)

	return &testServer{
		router: setupTestRouter(Dependencies{
			Searcher:  sess,
			Corpus:    sess,
			Ledger:    l,
			Jobs:      jobManager,
			Analytics: stats,
		}),
		session:   sess,
		analytics: stats,
	}
}

func setupTestRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware(), MetricsMiddleware())
	SetupRoutes(router, deps)
	return router
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func hitIDs(result services.SearchResult) []string {
	ids := make([]string, len(result.Hits))
	for i, h := range result.Hits {
		ids[i] = h.Item.ID
	}
	return ids
}

// failingSource cannot reach its backend
type failingSource struct{}

func (failingSource) FetchNotes(context.Context) ([]model.NoteRecord, error) {
	return nil, errors.New("connection refused")
}
func (failingSource) FetchPremiumSummaries(context.Context) ([]model.PremiumSummaryRecord, error) {
	return nil, errors.New("connection refused")
}
func (failingSource) FetchSubjects(context.Context) ([]model.Subject, error) {
	return nil, errors.New("connection refused")
}

func TestHealthCheckHandler(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))

	w := performRequest(srv.router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "notes-discovery", body["service"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestSearchQueryHandler(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))

	w := performRequest(srv.router, http.MethodGet, "/search?q=calculus", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[services.SearchResult](t, w)
	assert.Equal(t, []string{"n-calc", "p-calc", "n-calc-typo"}, hitIDs(result))
	assert.Equal(t, 2, result.FreeTotal)
	assert.Equal(t, 1, result.PremiumTotal)
	assert.Equal(t, 20, result.Hits[1].CreditPrice)
	assert.NotEmpty(t, result.QueryId)
	assert.Equal(t, 1, srv.analytics.EventCount(), "Searches are tracked for analytics")
}

func TestSearchHandlers_Filters(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   []string
	}{
		{
			name:   "POST pdf rated four or more",
			method: http.MethodPost,
			path:   "/search",
			body:   map[string]interface{}{"filters": map[string]interface{}{"file_kind": "pdf", "min_rating": 4}},
			want:   []string{"n-calc", "p-calc"},
		},
		{
			name:   "GET university substring",
			method: http.MethodGet,
			path:   "/search?university=lisboa",
			want:   []string{"n-calc"},
		},
		{
			name:   "GET subject with query",
			method: http.MethodGet,
			path:   "/search?q=organic&subject_id=chem&file_kind=IMAGE",
			want:   []string{"n-chem"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(srv.router, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, hitIDs(decode[services.SearchResult](t, w)))
		})
	}
}

func TestSearchHandlers_InvalidRequests(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))

	tests := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		wantCode ErrorCode
		field    string
	}{
		{name: "invalid JSON", method: http.MethodPost, path: "/search", body: "{not json", wantCode: ErrorCodeInvalidJSON},
		{name: "page not a number", method: http.MethodGet, path: "/search?page=abc", wantCode: ErrorCodeValidationFailed, field: "page"},
		{name: "rating not a number", method: http.MethodGet, path: "/search?min_rating=high", wantCode: ErrorCodeValidationFailed, field: "min_rating"},
		{name: "negative page", method: http.MethodGet, path: "/search?page=-1", wantCode: ErrorCodeValidationFailed, field: "page"},
		{name: "query too long", method: http.MethodGet, path: "/search?q=" + strings.Repeat("a", maxQueryLength+1), wantCode: ErrorCodeValidationFailed, field: "query"},
		{name: "unknown file kind", method: http.MethodGet, path: "/search?file_kind=exe", wantCode: ErrorCodeInvalidConfiguration, field: "file_kind"},
		{name: "unknown subject", method: http.MethodPost, path: "/search", body: map[string]interface{}{"filters": map[string]string{"subject_id": "history"}}, wantCode: ErrorCodeInvalidConfiguration, field: "subject_id"},
		{name: "rating out of range", method: http.MethodGet, path: "/search?min_rating=6", wantCode: ErrorCodeInvalidConfiguration, field: "min_rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(srv.router, tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			apiErr := decode[APIError](t, w)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.NotEmpty(t, apiErr.RequestID)
			if tt.field != "" {
				require.NotEmpty(t, apiErr.Details)
				assert.Equal(t, tt.field, apiErr.Details[0].Field)
			}
		})
	}
}

func TestSearchHandler_DegradedCorpus(t *testing.T) {
	srv := setupTestServer(t, failingSource{})

	w := performRequest(srv.router, http.MethodGet, "/search?q=calculus", nil)

	require.Equal(t, http.StatusOK, w.Code)
	result := decode[services.SearchResult](t, w)
	assert.True(t, result.Degraded)
	assert.Empty(t, result.Hits)
	assert.NotEmpty(t, result.Warnings)

	health := decode[map[string]interface{}](t, performRequest(srv.router, http.MethodGet, "/health", nil))
	assert.Equal(t, "degraded", health["status"])
}

func TestRedemptionFlow(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))
	r := srv.router

	w := performRequest(r, http.MethodPost, "/accounts/u1", OpenAccountRequest{OpeningBalance: 30})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 30, decode[model.CreditAccount](t, w).Balance)

	// First unlock debits the price
	w = performRequest(r, http.MethodPost, "/accounts/u1/redemptions", map[string]interface{}{"item_id": "p-calc", "price": 20})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[RedeemResponse](t, w)
	assert.Equal(t, model.RedeemUnlocked, first.Status)
	assert.Equal(t, 10, first.Balance)
	require.NotNil(t, first.Record)

	// Repeating it is free
	w = performRequest(r, http.MethodPost, "/accounts/u1/redemptions", map[string]interface{}{"item_id": "p-calc", "price": 20})
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[RedeemResponse](t, w)
	assert.Equal(t, model.RedeemAlreadyUnlocked, again.Status)
	assert.Equal(t, 10, again.Balance)
	assert.Equal(t, first.Record.ID, again.Record.ID)

	// Not enough left for the chemistry summary
	w = performRequest(r, http.MethodPost, "/accounts/u1/redemptions", map[string]interface{}{"item_id": "p-chem", "price": 15})
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	short := decode[RedeemResponse](t, w)
	assert.Equal(t, model.RedeemInsufficientCredits, short.Status)
	assert.Equal(t, 5, short.Shortfall)
	assert.Equal(t, 10, short.Balance)
	assert.NotEmpty(t, short.Message)

	w = performRequest(r, http.MethodGet, "/accounts/u1/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.CreditAccount{UserID: "u1", Balance: 10}, decode[model.CreditAccount](t, w))

	w = performRequest(r, http.MethodGet, "/accounts/u1/redemptions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[struct {
		Redemptions []model.RedemptionRecord `json:"redemptions"`
		Total       int                      `json:"total"`
	}](t, w)
	require.Equal(t, 1, listed.Total)
	assert.Equal(t, "p-calc", listed.Redemptions[0].ItemID)

	// Searches on behalf of u1 show the unlocked summary
	w = performRequest(r, http.MethodGet, "/search?q=calculus&user_id=u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[services.SearchResult](t, w)
	require.Equal(t, "p-calc", result.Hits[1].Item.ID)
	assert.True(t, result.Hits[1].Unlocked)
}

func TestRedeemHandler_Errors(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))
	performRequest(srv.router, http.MethodPost, "/accounts/u1", OpenAccountRequest{OpeningBalance: 100})

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   ErrorCode
	}{
		{name: "price differs from catalog", body: map[string]interface{}{"item_id": "p-calc", "price": 5}, wantStatus: http.StatusBadRequest, wantCode: ErrorCodeInvalidConfiguration},
		{name: "non-positive price", body: map[string]interface{}{"item_id": "p-calc", "price": 0}, wantStatus: http.StatusBadRequest, wantCode: ErrorCodeInvalidConfiguration},
		{name: "free item", body: map[string]interface{}{"item_id": "n-calc", "price": 5}, wantStatus: http.StatusBadRequest, wantCode: ErrorCodeInvalidConfiguration},
		{name: "unknown item", body: map[string]interface{}{"item_id": "p-missing", "price": 5}, wantStatus: http.StatusNotFound, wantCode: ErrorCodeItemNotFound},
		{name: "missing price", body: map[string]interface{}{"item_id": "p-calc"}, wantStatus: http.StatusBadRequest, wantCode: ErrorCodeValidationFailed},
		{name: "missing item", body: map[string]interface{}{"price": 20}, wantStatus: http.StatusBadRequest, wantCode: ErrorCodeValidationFailed},
		{name: "invalid JSON", body: "{", wantStatus: http.StatusBadRequest, wantCode: ErrorCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(srv.router, http.MethodPost, "/accounts/u1/redemptions", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decode[APIError](t, w).Code)
		})
	}

	// Nothing was debited by the failed attempts
	w := performRequest(srv.router, http.MethodGet, "/accounts/u1/balance", nil)
	assert.Equal(t, 100, decode[model.CreditAccount](t, w).Balance)
}

func TestOpenAccountHandler_Validation(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))

	w := performRequest(srv.router, http.MethodPost, "/accounts/u1", OpenAccountRequest{OpeningBalance: -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := decode[APIError](t, w)
	assert.Equal(t, ErrorCodeValidationFailed, apiErr.Code)
	require.NotEmpty(t, apiErr.Details)
	assert.Equal(t, "opening_balance", apiErr.Details[0].Field)

	w = performRequest(srv.router, http.MethodPost, "/accounts/%20u1", OpenAccountRequest{OpeningBalance: 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// busyLedger reports every account as contended
type busyLedger struct{}

func (busyLedger) Redeem(_ context.Context, userID, _ string, _ int) (model.RedeemResult, error) {
	return model.RedeemResult{}, internalErrors.NewLedgerContentionError(userID, 3, 750*time.Millisecond)
}
func (busyLedger) Balance(context.Context, string) (int, error) { return 0, errors.New("disk on fire") }
func (busyLedger) OpenAccount(_ context.Context, userID string, _ int) (model.CreditAccount, error) {
	return model.CreditAccount{}, internalErrors.NewLedgerContentionError(userID, 1, time.Second)
}
func (busyLedger) Redemptions(context.Context, string) ([]model.RedemptionRecord, error) {
	return nil, nil
}

func TestLedgerHandlers_ServerErrors(t *testing.T) {
	sess, err := session.New(source.NewStaticSource(testutil.Seed()), config.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	router := setupTestRouter(Dependencies{Searcher: sess, Corpus: sess, Ledger: busyLedger{}})

	w := performRequest(router, http.MethodPost, "/accounts/u1/redemptions", map[string]interface{}{"item_id": "p-calc", "price": 20})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	apiErr := decode[APIError](t, w)
	assert.Equal(t, ErrorCodeLedgerContention, apiErr.Code)
	assert.True(t, apiErr.Retryable)

	w = performRequest(router, http.MethodGet, "/accounts/u1/balance", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ErrorCodeInternalError, decode[APIError](t, w).Code)

	w = performRequest(router, http.MethodGet, "/accounts/u1/redemptions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redemptions":[]`)
}

func TestRefreshCorpusHandler(t *testing.T) {
	t.Run("synchronous", func(t *testing.T) {
		srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))

		w := performRequest(srv.router, http.MethodPost, "/corpus/refresh", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		info := decode[services.CorpusInfo](t, w)
		assert.Equal(t, 5, info.Items)
		assert.Equal(t, 2, info.Dropped)

		w = performRequest(srv.router, http.MethodGet, "/corpus", nil)
		assert.Equal(t, info.SnapshotID, decode[services.CorpusInfo](t, w).SnapshotID)
	})

	t.Run("source unavailable", func(t *testing.T) {
		srv := setupTestServer(t, failingSource{})

		w := performRequest(srv.router, http.MethodPost, "/corpus/refresh", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		apiErr := decode[APIError](t, w)
		assert.Equal(t, ErrorCodeSourceUnavailable, apiErr.Code)
		assert.True(t, apiErr.Retryable)
	})

	t.Run("as a job", func(t *testing.T) {
		srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))

		w := performRequest(srv.router, http.MethodPost, "/corpus/refresh?async=true", nil)
		require.Equal(t, http.StatusAccepted, w.Code)
		jobID, _ := decode[map[string]interface{}](t, w)["job_id"].(string)
		require.NotEmpty(t, jobID)

		require.Eventually(t, func() bool {
			w := performRequest(srv.router, http.MethodGet, "/jobs/"+jobID, nil)
			var job model.Job
			return w.Code == http.StatusOK && json.Unmarshal(w.Body.Bytes(), &job) == nil && job.Status == model.JobStatusCompleted
		}, 2*time.Second, 10*time.Millisecond)

		assert.Equal(t, 5, srv.session.CorpusInfo().Items)

		w = performRequest(srv.router, http.MethodGet, "/jobs?status=completed", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decode[map[string]interface{}](t, w)["total"])
	})
}

func TestJobHandlers(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))

	w := performRequest(srv.router, http.MethodGet, "/jobs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeJobNotFound, decode[APIError](t, w).Code)

	w = performRequest(srv.router, http.MethodGet, "/jobs/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success_rate"`)
}

func TestOptionalServicesNotEnabled(t *testing.T) {
	sess, err := session.New(source.NewStaticSource(testutil.Seed()), config.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	router := setupTestRouter(Dependencies{Searcher: sess, Corpus: sess, Ledger: busyLedger{}})

	for _, path := range []string{"/jobs", "/jobs/metrics", "/jobs/abc", "/analytics"} {
		w := performRequest(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotImplemented, w.Code, path)
	}

	// Without a job manager an async refresh runs inline
	w := performRequest(router, http.MethodPost, "/corpus/refresh?async=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetAnalyticsHandler(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))
	performRequest(srv.router, http.MethodGet, "/search?q=calculus", nil)
	performRequest(srv.router, http.MethodGet, "/search?q=quantum%20chromodynamics", nil)

	w := performRequest(srv.router, http.MethodGet, "/analytics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	dashboard := decode[model.AnalyticsDashboard](t, w)
	assert.Equal(t, 2, dashboard.TotalSearches)
	require.Len(t, dashboard.ZeroResultSearches, 1)
	assert.Equal(t, "quantum chromodynamics", dashboard.ZeroResultSearches[0].Query)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))
	performRequest(srv.router, http.MethodGet, "/search?q=calculus", nil)

	w := performRequest(srv.router, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `notes_http_requests_total{method="GET",route="/search",status="200"}`)
	assert.Contains(t, w.Body.String(), "notes_search_requests_total")
}

func TestRequestIDMiddleware(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))

	req, _ := http.NewRequest(http.MethodGet, "/search?page=x", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
	assert.Equal(t, "req-123", decode[APIError](t, w).RequestID)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := performRequest(router, http.MethodOptions, "/ping", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = performRequest(router, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	srv := setupTestServer(t, source.NewStaticSource(testutil.Seed()))
	router := gin.New()
	router.Use(RequestSizeLimitMiddleware(64))
	router.POST("/search", NewAPI(Dependencies{Searcher: srv.session, Corpus: srv.session}).SearchHandler)

	w := performRequest(router, http.MethodPost, "/search", map[string]string{"query": strings.Repeat("x", 200)})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorCodeInvalidJSON, decode[APIError](t, w).Code)
}
