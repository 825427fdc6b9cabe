package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// Artifact is the on-disk form of a trained classifier.
type Artifact struct {
	Kind         string       `json:"kind"`
	Version      string       `json:"version,omitempty"`
	Features     []string     `json:"features"`
	Intercept    float64      `json:"intercept,omitempty"`
	Coefficients []float64    `json:"coefficients,omitempty"`
	Scaler       *Scaler      `json:"scaler,omitempty"`
	BaseScore    float64      `json:"base_score,omitempty"`
	Trees        [][]TreeNode `json:"trees,omitempty"`
}

type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LoadError reports an artifact that could not be read or is not usable.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadModel reads the artifact at path and returns a classifier that accepts
// vectors in Schema order.
func LoadModel(path string) (Classifier, *Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &LoadError{Path: path, Err: err}
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, nil, &LoadError{Path: path, Err: fmt.Errorf("decode artifact: %w", err)}
	}
	model, err := artifact.Build()
	if err != nil {
		return nil, nil, &LoadError{Path: path, Err: err}
	}
	return model, &artifact, nil
}

// Build checks the artifact and assembles its classifier.
func (a *Artifact) Build() (Classifier, error) {
	columns, err := resolveColumns(a.Features)
	if err != nil {
		return nil, err
	}
	width := len(columns)

	var model Classifier
	switch a.Kind {
	case KindLogisticRegression:
		lr := &LogisticRegression{Intercept: a.Intercept, Coefficients: a.Coefficients}
		if a.Scaler != nil {
			lr.Mean, lr.Scale = a.Scaler.Mean, a.Scaler.Scale
		}
		if err := lr.validate(width); err != nil {
			return nil, err
		}
		model = lr
	case KindGradientBoosting:
		gb := &GradientBoosting{BaseScore: a.BaseScore}
		for _, nodes := range a.Trees {
			gb.Trees = append(gb.Trees, RegressionTree{nodes: nodes})
		}
		if err := gb.validate(width); err != nil {
			return nil, err
		}
		model = gb
	default:
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}

	if isIdentity(columns) {
		return model, nil
	}
	return &columnOrder{columns: columns, next: model}, nil
}

// resolveColumns maps each artifact column to its Schema position. The
// artifact must name every schema field exactly once.
func resolveColumns(features []string) ([]int, error) {
	if len(features) != len(Schema) {
		return nil, fmt.Errorf("artifact declares %d features, schema has %d", len(features), len(Schema))
	}
	index := featureIndex()
	seen := make(map[string]bool, len(features))
	columns := make([]int, len(features))
	for i, name := range features {
		pos, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = true
		columns[i] = pos
	}
	return columns, nil
}

func isIdentity(columns []int) bool {
	for i, c := range columns {
		if i != c {
			return false
		}
	}
	return true
}
