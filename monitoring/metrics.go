// Package monitoring 提供请求计数、健康检查与实时推送
package monitoring

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter 计数器名称
type Counter string

const (
	TotalRequests         Counter = "total_requests"
	SuccessfulPredictions Counter = "successful_predictions"
	FailedPredictions     Counter = "failed_predictions"
	Errors                Counter = "errors"
)

// Snapshot 计数器快照
type Snapshot struct {
	TotalRequests         uint64 `json:"total_requests"`
	SuccessfulPredictions uint64 `json:"successful_predictions"`
	FailedPredictions     uint64 `json:"failed_predictions"`
	Errors                uint64 `json:"errors"`
}

// Registry 进程内计数器，计数器之间相互独立，不构成划分
type Registry struct {
	totalRequests         atomic.Uint64
	successfulPredictions atomic.Uint64
	failedPredictions     atomic.Uint64
	errors                atomic.Uint64

	startTime  time.Time
	prometheus *prometheus.Registry
}

// NewRegistry 创建计数器注册表
func NewRegistry() *Registry {
	r := &Registry{startTime: time.Now()}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		r.counterFunc("churn_api_requests_total", "Total number of prediction requests", &r.totalRequests),
		r.counterFunc("churn_api_successful_predictions_total", "Predictions served successfully", &r.successfulPredictions),
		r.counterFunc("churn_api_failed_predictions_total", "Predictions rejected by validation or failed during inference", &r.failedPredictions),
		r.counterFunc("churn_api_errors_total", "Requests that ended in an internal or availability error", &r.errors),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "churn_api_uptime_seconds",
			Help: "Seconds since the process started",
		}, func() float64 { return r.Uptime().Seconds() }),
	)
	r.prometheus = reg
	return r
}

func (r *Registry) counterFunc(name, help string, v *atomic.Uint64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, func() float64 {
		return float64(v.Load())
	})
}

// Inc 计数器加一，未知名称忽略
func (r *Registry) Inc(c Counter) {
	switch c {
	case TotalRequests:
		r.totalRequests.Add(1)
	case SuccessfulPredictions:
		r.successfulPredictions.Add(1)
	case FailedPredictions:
		r.failedPredictions.Add(1)
	case Errors:
		r.errors.Add(1)
	}
}

// Snapshot 读取当前计数，各计数器分别读取，不保证同一时刻
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		TotalRequests:         r.totalRequests.Load(),
		SuccessfulPredictions: r.successfulPredictions.Load(),
		FailedPredictions:     r.failedPredictions.Load(),
		Errors:                r.errors.Load(),
	}
}

// Uptime 运行时长
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.startTime)
}

// Handler 返回Prometheus文本格式的指标处理器
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheus, promhttp.HandlerOpts{})
}

// Gatherer 供测试读取Prometheus指标
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.prometheus
}
