package ml

import (
	"errors"
	"fmt"
)

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// RegressionTree is one boosting round; leaves hold additive margins.
type RegressionTree struct {
	nodes []TreeNode
}

func (t RegressionTree) margin(features []float64) (float64, error) {
	if len(t.nodes) == 0 {
		return 0, errors.New("empty tree")
	}
	idx := 0
	for steps := 0; steps <= len(t.nodes); steps++ {
		node := t.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree contains a cycle")
}

func (t RegressionTree) validate(width int) error {
	if len(t.nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, node := range t.nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= width {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(t.nodes) ||
			node.RightChild <= i || node.RightChild >= len(t.nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// GradientBoosting sums tree margins on top of BaseScore and squashes the
// total through the logistic function.
type GradientBoosting struct {
	BaseScore float64
	Trees     []RegressionTree
}

func (m *GradientBoosting) PredictProba(features []float64) (float64, error) {
	z := m.BaseScore
	for i, tree := range m.Trees {
		v, err := tree.margin(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		z += v
	}
	return sigmoid(z), nil
}

func (m *GradientBoosting) validate(width int) error {
	if len(m.Trees) == 0 {
		return errors.New("no trees")
	}
	for i, tree := range m.Trees {
		if err := tree.validate(width); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
