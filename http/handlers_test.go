package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"churnapi/ml"
	"churnapi/monitoring"
	"churnapi/predict"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	ready      bool
	result     predict.Result
	err        error
	panicReady bool
	calls      int
}

func (f *fakePredictor) Ready() bool {
	if f.panicReady {
		panic("readiness probe exploded")
	}
	return f.ready
}

func (f *fakePredictor) Predict(ml.CustomerFeatures) (predict.Result, error) {
	f.calls++
	return f.result, f.err
}

type testEnv struct {
	handler http.Handler
	metrics *monitoring.Registry
}

func newTestEnv(t *testing.T, predictor Predictor, metricsEnabled bool, opts ...APIOption) testEnv {
	t.Helper()
	metrics := monitoring.NewRegistry()
	api := NewAPI(APIConfig{
		ModelVersion:   "1.0.0",
		APIVersion:     "v1",
		MetricsEnabled: metricsEnabled,
	}, predictor, metrics, nil, opts...)
	srv := NewServer(DefaultServerConfig(), api)
	return testEnv{handler: srv.Handler(), metrics: metrics}
}

func (e testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestRootHandler(t *testing.T) {
	env := newTestEnv(t, &fakePredictor{ready: true}, true)

	rec := env.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"service": "Customer Churn Prediction API",
		"version": "1.0.0",
		"api_version": "v1",
		"endpoints": {
			"predict": "/api/v1/predict",
			"health": "/health",
			"ready": "/ready",
			"metrics": "/metrics"
		}
	}`, rec.Body.String())
}

func TestHealthHandler(t *testing.T) {
	for _, ready := range []bool{true, false} {
		env := newTestEnv(t, &fakePredictor{ready: ready}, true)

		rec := env.do(http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Greater(t, body["timestamp"], float64(0))
	}
}

func TestReadyHandler(t *testing.T) {
	env := newTestEnv(t, &fakePredictor{ready: false}, true)
	rec := env.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not ready","reason":"Model not loaded"}`, rec.Body.String())

	env = newTestEnv(t, &fakePredictor{ready: true}, true)
	rec = env.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","model_version":"1.0.0"}`, rec.Body.String())
}

func TestReadyFollowsModelLoad(t *testing.T) {
	store := ml.NewStore(nil)
	env := newTestEnv(t, predict.NewService(store, nil), true)

	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/ready", "").Code)
	require.NoError(t, store.Load("../ml/testdata/logistic.json", "1.0.0"))
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ready", "").Code)
}

func TestMetricsHandler(t *testing.T) {
	env := newTestEnv(t, &fakePredictor{ready: true}, true)
	env.metrics.Inc(monitoring.TotalRequests)
	env.metrics.Inc(monitoring.Errors)

	rec := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_requests":1,"successful_predictions":0,"failed_predictions":0,"errors":1}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/metrics/prometheus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "churn_api_requests_total 1")
}

func TestMetricsDisabled(t *testing.T) {
	env := newTestEnv(t, &fakePredictor{ready: true}, false)

	for _, path := range []string{"/metrics", "/metrics/prometheus"} {
		rec := env.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.JSONEq(t, `{"error":"Metrics disabled"}`, rec.Body.String(), path)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, &fakePredictor{ready: true}, true)

	for _, path := range []string{"/nope", "/api/v2/predict", "/health/extra"} {
		rec := env.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"success":false,"error":"Endpoint not found"}`, rec.Body.String(), path)
	}
}

func TestWrongMethod(t *testing.T) {
	env := newTestEnv(t, &fakePredictor{ready: true}, true)

	rec := env.do(http.MethodGet, "/api/v1/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.JSONEq(t, `{"success":false,"error":"Method not allowed"}`, rec.Body.String())
	assert.Zero(t, env.metrics.Snapshot().TotalRequests)

	rec = env.do(http.MethodPost, "/health", "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPanicRecovery(t *testing.T) {
	env := newTestEnv(t, &fakePredictor{panicReady: true}, true)

	rec := env.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, rec.Body.String())
	assert.Equal(t, uint64(1), env.metrics.Snapshot().Errors)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t, &fakePredictor{ready: true}, true)

	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
