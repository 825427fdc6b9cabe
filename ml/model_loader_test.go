package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModelReorderedColumns(t *testing.T) {
	natural, _, err := LoadModel("testdata/logistic.json")
	require.NoError(t, err)
	reordered, artifact, err := LoadModel("testdata/logistic_reordered.json")
	require.NoError(t, err)
	assert.Equal(t, "age", artifact.Features[len(artifact.Features)-1])

	values := mustFeatures(t, map[string]any{"age": 71, "support_tickets": 5}).Values()
	want, err := natural.PredictProba(values)
	require.NoError(t, err)
	got, err := reordered.PredictProba(values)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestArtifactBuildErrors(t *testing.T) {
	names := FeatureNames()
	coefficients := make([]float64, len(names))

	cases := map[string]Artifact{
		"unknown kind": {Kind: "svm", Features: names},
		"short feature list": {
			Kind: KindLogisticRegression, Features: names[:3], Coefficients: coefficients[:3],
		},
		"duplicate feature": {
			Kind:         KindLogisticRegression,
			Features:     append(append([]string{}, names[:20]...), "age"),
			Coefficients: coefficients,
		},
		"coefficient mismatch": {
			Kind: KindLogisticRegression, Features: names, Coefficients: coefficients[:5],
		},
		"zero scale": {
			Kind:         KindLogisticRegression,
			Features:     names,
			Coefficients: coefficients,
			Scaler:       &Scaler{Mean: make([]float64, 21), Scale: make([]float64, 21)},
		},
		"no trees": {Kind: KindGradientBoosting, Features: names},
		"backward child": {
			Kind:     KindGradientBoosting,
			Features: names,
			Trees: [][]TreeNode{{
				{FeatureIdx: 0, Threshold: 30, LeftChild: 0, RightChild: 1},
				{IsLeaf: true, Value: 1},
			}},
		},
		"feature out of range": {
			Kind:     KindGradientBoosting,
			Features: names,
			Trees: [][]TreeNode{{
				{FeatureIdx: 21, Threshold: 30, LeftChild: 1, RightChild: 2},
				{IsLeaf: true}, {IsLeaf: true},
			}},
		},
	}
	for name, artifact := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := artifact.Build()
			assert.Error(t, err)
		})
	}
}

func TestRegressionTreeWalk(t *testing.T) {
	tree := RegressionTree{nodes: []TreeNode{
		{FeatureIdx: 0, Threshold: 0.5, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, Value: -1},
		{FeatureIdx: 1, Threshold: 10, LeftChild: 3, RightChild: 4},
		{IsLeaf: true, Value: 2},
		{IsLeaf: true, Value: 3},
	}}

	v, err := tree.margin([]float64{0.1, 0})
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)

	v, err = tree.margin([]float64{0.9, 10})
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = tree.margin([]float64{0.9, 11})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = tree.margin([]float64{})
	assert.EqualError(t, err, "feature index out of range")
}

func TestSigmoidIsStable(t *testing.T) {
	assert.Equal(t, 0.5, sigmoid(0))
	assert.InDelta(t, 1.0, sigmoid(800), 1e-12)
	assert.InDelta(t, 0.0, sigmoid(-800), 1e-12)
}
