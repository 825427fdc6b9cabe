package ml

import "math"

// Classifier turns a feature vector (in the artifact's column order) into the
// probability of the positive class.
type Classifier interface {
	PredictProba(features []float64) (float64, error)
}

const (
	KindLogisticRegression = "logistic_regression"
	KindGradientBoosting   = "gradient_boosting"
)

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// columnOrder adapts a Schema ordered vector to the column order the artifact
// was trained with.
type columnOrder struct {
	columns []int
	next    Classifier
}

func (c *columnOrder) PredictProba(features []float64) (float64, error) {
	reordered := make([]float64, len(c.columns))
	for i, col := range c.columns {
		reordered[i] = features[col]
	}
	return c.next.PredictProba(reordered)
}
