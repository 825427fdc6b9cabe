package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"churnapi/db"
	"churnapi/ml"
	"churnapi/monitoring"
	"churnapi/predict"

	"go.uber.org/zap"
)

// handlePredict 顺序固定：计数 -> 就绪检查 -> 解析 -> 校验 -> 推理。
// 模型未就绪时不读取请求体
func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	a.metrics.Inc(monitoring.TotalRequests)
	requestID := GetRequestID(r.Context())
	logger := a.logger.With(zap.String("request_id", requestID))

	if a.predictor == nil || !a.predictor.Ready() {
		a.metrics.Inc(monitoring.Errors)
		logger.Warn("prediction requested before model is loaded")
		writeError(w, http.StatusServiceUnavailable, "Model not available")
		return
	}

	raw, err := ml.DecodeRequest(r.Body)
	if err != nil {
		a.metrics.Inc(monitoring.Errors)
		logger.Warn("malformed prediction request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	features, err := ml.Validate(raw)
	if err != nil {
		var verr *ml.ValidationError
		if errors.As(err, &verr) {
			a.metrics.Inc(monitoring.FailedPredictions)
			logger.Info("prediction input rejected", zap.Strings("fields", verr.Fields()))
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "Invalid input",
				Details: verr.Violations,
			})
			return
		}
		a.metrics.Inc(monitoring.Errors)
		logger.Warn("malformed prediction request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	result, err := a.predictor.Predict(features)
	switch {
	case errors.Is(err, predict.ErrModelUnavailable):
		a.metrics.Inc(monitoring.Errors)
		writeError(w, http.StatusServiceUnavailable, "Model not available")
		return
	case err != nil:
		a.metrics.Inc(monitoring.FailedPredictions)
		logger.Error("prediction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Prediction failed")
		return
	}

	a.metrics.Inc(monitoring.SuccessfulPredictions)
	logger.Info("prediction served",
		zap.Int("churn_prediction", result.ChurnPrediction),
		zap.Float64("churn_probability", result.ChurnProbability),
		zap.String("risk_level", string(result.RiskLevel)),
	)

	writeJSON(w, http.StatusOK, predictResponse{
		Success:      true,
		ModelVersion: a.config.ModelVersion,
		Result:       result,
	})

	a.publish(requestID, features, result)
}

// publish 推送实时事件并写入预测日志，均不阻塞请求
func (a *API) publish(requestID string, features ml.CustomerFeatures, result predict.Result) {
	if a.feed != nil && a.config.MetricsEnabled {
		a.feed.Publish(monitoring.EventPrediction, map[string]any{
			"request_id":    requestID,
			"model_version": a.config.ModelVersion,
			"result":        result,
		})
	}

	if a.records == nil {
		return
	}
	encoded, err := json.Marshal(features)
	if err != nil {
		a.logger.Warn("failed to encode features for prediction log", zap.Error(err))
		return
	}
	a.records.Record(db.Prediction{
		RequestID:        requestID,
		ModelVersion:     a.config.ModelVersion,
		ChurnPrediction:  result.ChurnPrediction,
		ChurnProbability: result.ChurnProbability,
		RiskLevel:        string(result.RiskLevel),
		Features:         string(encoded),
	})
}
