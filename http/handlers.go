package http

import (
	"net/http"

	"churnapi/db"
	"churnapi/ml"
	"churnapi/monitoring"
	"churnapi/predict"

	"go.uber.org/zap"
)

// Predictor 预测服务
type Predictor interface {
	Ready() bool
	Predict(features ml.CustomerFeatures) (predict.Result, error)
}

// PredictionRecorder 预测日志，Record不得阻塞
type PredictionRecorder interface {
	Record(p db.Prediction) bool
}

// APIConfig 接口配置
type APIConfig struct {
	ModelVersion   string
	APIVersion     string
	MetricsEnabled bool
}

// API 路由与处理器
type API struct {
	config    APIConfig
	predictor Predictor
	metrics   *monitoring.Registry
	health    *monitoring.HealthReporter
	feed      *monitoring.LiveFeed
	records   PredictionRecorder
	logger    *zap.Logger
}

// APIOption 可选依赖
type APIOption func(*API)

// WithLiveFeed 启用 /metrics/stream
func WithLiveFeed(feed *monitoring.LiveFeed) APIOption {
	return func(a *API) { a.feed = feed }
}

// WithPredictionLog 记录每次成功的预测
func WithPredictionLog(records PredictionRecorder) APIOption {
	return func(a *API) { a.records = records }
}

// NewAPI 创建API
func NewAPI(config APIConfig, predictor Predictor, metrics *monitoring.Registry, logger *zap.Logger, opts ...APIOption) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.APIVersion == "" {
		config.APIVersion = "v1"
	}
	if metrics == nil {
		metrics = monitoring.NewRegistry()
	}
	a := &API{
		config:    config,
		predictor: predictor,
		metrics:   metrics,
		health:    monitoring.NewHealthReporter(predictor, config.ModelVersion),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PredictPath 预测接口路径
func (a *API) PredictPath() string {
	return "/api/" + a.config.APIVersion + "/predict"
}

// Register 注册所有路由
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/{$}", allow(http.MethodGet, a.handleRoot))
	mux.HandleFunc("/health", allow(http.MethodGet, a.handleHealth))
	mux.HandleFunc("/ready", allow(http.MethodGet, a.handleReady))
	mux.HandleFunc("/metrics", allow(http.MethodGet, a.handleMetrics))
	mux.HandleFunc("/metrics/prometheus", allow(http.MethodGet, a.handlePrometheus))
	if a.feed != nil {
		mux.HandleFunc("/metrics/stream", allow(http.MethodGet, a.handleStream))
	}
	mux.HandleFunc(a.PredictPath(), allow(http.MethodPost, a.handlePredict))
	mux.HandleFunc("/", handleNotFound)
}

// allow 限制请求方法，GET同时接受HEAD
func allow(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method && !(method == http.MethodGet && r.Method == http.MethodHead) {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     "Customer Churn Prediction API",
		"version":     a.config.ModelVersion,
		"api_version": a.config.APIVersion,
		"endpoints": map[string]string{
			"predict": a.PredictPath(),
			"health":  "/health",
			"ready":   "/ready",
			"metrics": "/metrics",
		},
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.health.Liveness())
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := a.health.Readiness()
	status := http.StatusOK
	if !ready.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, ready)
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !a.config.MetricsEnabled {
		writeMetricsDisabled(w)
		return
	}
	writeJSON(w, http.StatusOK, a.metrics.Snapshot())
}

func (a *API) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	if !a.config.MetricsEnabled {
		writeMetricsDisabled(w)
		return
	}
	a.metrics.Handler().ServeHTTP(w, r)
}

func (a *API) handleStream(w http.ResponseWriter, r *http.Request) {
	if !a.config.MetricsEnabled {
		writeMetricsDisabled(w)
		return
	}
	a.feed.ServeHTTP(w, r)
}

func writeMetricsDisabled(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "Metrics disabled"})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}
