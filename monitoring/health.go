package monitoring

import "time"

// ReadinessSource 就绪状态来源（模型存储）
type ReadinessSource interface {
	Ready() bool
}

// HealthReporter 存活与就绪检查，两者相互独立
type HealthReporter struct {
	source       ReadinessSource
	modelVersion string
	now          func() time.Time
}

// Liveness 存活检查结果
type Liveness struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}

// Readiness 就绪检查结果
type Readiness struct {
	Ready        bool   `json:"-"`
	Status       string `json:"status"`
	ModelVersion string `json:"model_version,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// NewHealthReporter 创建健康检查器
func NewHealthReporter(source ReadinessSource, modelVersion string) *HealthReporter {
	return &HealthReporter{
		source:       source,
		modelVersion: modelVersion,
		now:          time.Now,
	}
}

// Liveness 只要进程能响应即为健康
func (h *HealthReporter) Liveness() Liveness {
	now := h.now()
	return Liveness{
		Status:    "healthy",
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
	}
}

// Readiness 模型加载完成即就绪
func (h *HealthReporter) Readiness() Readiness {
	if h.source == nil || !h.source.Ready() {
		return Readiness{Status: "not ready", Reason: "Model not loaded"}
	}
	return Readiness{Ready: true, Status: "ready", ModelVersion: h.modelVersion}
}
