package ml

import (
	"errors"
	"fmt"
)

type LogisticRegression struct {
	Intercept    float64
	Coefficients []float64
	Mean         []float64
	Scale        []float64
}

func (m *LogisticRegression) PredictProba(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Coefficients), len(features))
	}
	z := m.Intercept
	for i, x := range features {
		if m.Scale != nil {
			x = (x - m.Mean[i]) / m.Scale[i]
		}
		z += m.Coefficients[i] * x
	}
	return sigmoid(z), nil
}

func (m *LogisticRegression) validate(width int) error {
	if len(m.Coefficients) != width {
		return fmt.Errorf("coefficients: expected %d, got %d", width, len(m.Coefficients))
	}
	if m.Mean == nil && m.Scale == nil {
		return nil
	}
	if len(m.Mean) != width || len(m.Scale) != width {
		return errors.New("scaler: mean and scale must match the feature count")
	}
	for i, s := range m.Scale {
		if s == 0 {
			return fmt.Errorf("scaler: zero scale for column %d", i)
		}
	}
	return nil
}
