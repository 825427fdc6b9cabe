package http

import (
	"encoding/json"
	"net/http"

	"churnapi/ml"
	"churnapi/predict"
)

type errorResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Details []ml.Violation `json:"details,omitempty"`
}

type predictResponse struct {
	Success      bool           `json:"success"`
	ModelVersion string         `json:"model_version"`
	Result       predict.Result `json:"result"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
