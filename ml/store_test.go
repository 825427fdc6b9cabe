package ml

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func mustFeatures(t *testing.T, overrides map[string]any) CustomerFeatures {
	t.Helper()
	raw := validPayload()
	for k, v := range overrides {
		raw[k] = v
	}
	features, err := Validate(raw)
	require.NoError(t, err)
	return features
}

func TestStoreNotReadyBeforeLoad(t *testing.T) {
	store := NewStore(nil)

	assert.False(t, store.Ready())
	assert.Empty(t, store.Version())

	_, err := store.Infer(mustFeatures(t, nil))
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestStoreLoadLogistic(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	store := NewStore(zap.New(core))

	require.NoError(t, store.Load("testdata/logistic.json", "1.0.0"))
	assert.True(t, store.Ready())
	assert.Equal(t, "1.0.0", store.Version())
	assert.Equal(t, KindLogisticRegression, store.Info().Kind)
	assert.Equal(t, 1, logs.FilterMessage("model loaded").Len())

	p, err := store.Infer(mustFeatures(t, nil))
	require.NoError(t, err)
	assert.InDelta(t, 0.2102, p, 1e-4)
}

func TestStoreLoadFailureIsPermanent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	store := NewStore(zap.New(core))

	err := store.Load("testdata/missing.json", "1.0.0")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "testdata/missing.json", loadErr.Path)
	assert.False(t, store.Ready())
	assert.Equal(t, 1, logs.FilterMessage("failed to load model").Len())

	// a later, valid load is not attempted
	assert.ErrorIs(t, store.Load("testdata/logistic.json", "1.0.0"), ErrAlreadyLoaded)
	assert.False(t, store.Ready())
}

func TestStoreLoadOnlyOnce(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Load("testdata/logistic.json", "1.0.0"))
	assert.ErrorIs(t, store.Load("testdata/gbm.json", "2.0.0"), ErrAlreadyLoaded)
	assert.Equal(t, "1.0.0", store.Version())
	assert.Equal(t, KindLogisticRegression, store.Info().Kind)
}

func TestStoreRejectsBadArtifacts(t *testing.T) {
	for _, path := range []string{"testdata/bad_features.json", "testdata/corrupt.json"} {
		t.Run(path, func(t *testing.T) {
			store := NewStore(nil)
			var loadErr *LoadError
			require.ErrorAs(t, store.Load(path, "1.0.0"), &loadErr)
			assert.False(t, store.Ready())
		})
	}
}

func TestStoreGradientBoosting(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Load("testdata/gbm.json", "1.0.0"))

	cases := []struct {
		tenure   int
		contract int
		want     float64
	}{
		{tenure: 12, contract: 1, want: sigmoid(0.8 - 0.4)},
		{tenure: 24, contract: 0, want: sigmoid(-0.6 + 0.4)},
		{tenure: 6, contract: 0, want: sigmoid(0.8 + 0.4)},
	}
	for _, tc := range cases {
		p, err := store.Infer(mustFeatures(t, map[string]any{
			"tenure_months":         tc.tenure,
			"contract_type_encoded": tc.contract,
		}))
		require.NoError(t, err)
		assert.InDelta(t, tc.want, p, 1e-12)
	}
}

func TestStoreInferIsDeterministic(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Load("testdata/logistic.json", "1.0.0"))
	features := mustFeatures(t, nil)

	first, err := store.Infer(features)
	require.NoError(t, err)
	second, err := store.Infer(features)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStoreWithCache(t *testing.T) {
	cache, err := NewInferenceCache(8)
	require.NoError(t, err)
	cached := NewStore(nil, WithCache(cache))
	plain := NewStore(nil)
	require.NoError(t, cached.Load("testdata/logistic.json", "1.0.0"))
	require.NoError(t, plain.Load("testdata/logistic.json", "1.0.0"))

	features := mustFeatures(t, map[string]any{"support_tickets": 9})
	want, err := plain.Infer(features)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := cached.Infer(features)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	hits, misses := cache.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, cache.Len())
}

func TestStoreConcurrentInfer(t *testing.T) {
	cache, err := NewInferenceCache(4)
	require.NoError(t, err)
	store := NewStore(nil, WithCache(cache))
	require.NoError(t, store.Load("testdata/gbm.json", "1.0.0"))

	vectors := make([]CustomerFeatures, 32)
	for i := range vectors {
		vectors[i] = mustFeatures(t, map[string]any{"tenure_months": i % 16})
	}

	var wg sync.WaitGroup
	for _, features := range vectors {
		wg.Add(1)
		go func(features CustomerFeatures) {
			defer wg.Done()
			p, err := store.Infer(features)
			assert.NoError(t, err)
			assert.False(t, math.IsNaN(p))
		}(features)
	}
	wg.Wait()
}
