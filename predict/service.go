package predict

import (
	"errors"
	"fmt"
	"math"

	"churnapi/ml"

	"go.uber.org/zap"
)

// ErrModelUnavailable is returned when no model has been loaded.
var ErrModelUnavailable = errors.New("model not available")

// PredictionFailure wraps any error raised by the classifier during inference.
type PredictionFailure struct {
	Err error
}

func (e *PredictionFailure) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionFailure) Unwrap() error { return e.Err }

// Result is the shaped outcome of one prediction.
type Result struct {
	ChurnPrediction  int       `json:"churn_prediction"`
	ChurnProbability float64   `json:"churn_probability"`
	RiskLevel        RiskLevel `json:"risk_level"`
}

// Model is the part of ml.Store the service depends on.
type Model interface {
	Ready() bool
	Infer(features ml.CustomerFeatures) (float64, error)
}

type Service struct {
	model  Model
	logger *zap.Logger
}

func NewService(model Model, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{model: model, logger: logger}
}

func (s *Service) Ready() bool {
	return s.model != nil && s.model.Ready()
}

// Predict runs inference on features and shapes the result. A panic inside
// the classifier is reported as a PredictionFailure.
func (s *Service) Predict(features ml.CustomerFeatures) (result Result, err error) {
	if !s.Ready() {
		return Result{}, ErrModelUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("classifier panicked", zap.Any("panic", r))
			result, err = Result{}, &PredictionFailure{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	p, err := s.model.Infer(features)
	if err != nil {
		return Result{}, &PredictionFailure{Err: err}
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Result{}, &PredictionFailure{Err: fmt.Errorf("probability %v outside [0, 1]", p)}
	}
	return Shape(p), nil
}

// Shape converts a raw probability into a Result. Label and risk tier are
// derived from the unrounded value.
func Shape(p float64) Result {
	label := 0
	if p > ChurnThreshold {
		label = 1
	}
	return Result{
		ChurnPrediction:  label,
		ChurnProbability: round4(p),
		RiskLevel:        RiskLevelFromProbability(p),
	}
}

func round4(p float64) float64 {
	return math.Round(p*10000) / 10000
}
