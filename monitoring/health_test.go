package monitoring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readyFlag bool

func (r readyFlag) Ready() bool { return bool(r) }

func TestLivenessIgnoresModelState(t *testing.T) {
	for _, ready := range []bool{true, false} {
		h := NewHealthReporter(readyFlag(ready), "1.0.0")
		h.now = func() time.Time { return time.Unix(1700000000, 500000000) }

		live := h.Liveness()
		assert.Equal(t, "healthy", live.Status)
		assert.InDelta(t, 1700000000.5, live.Timestamp, 1e-3)
	}
}

func TestReadiness(t *testing.T) {
	ready := NewHealthReporter(readyFlag(true), "1.0.0").Readiness()
	assert.True(t, ready.Ready)
	body, err := json.Marshal(ready)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ready","model_version":"1.0.0"}`, string(body))

	notReady := NewHealthReporter(readyFlag(false), "1.0.0").Readiness()
	assert.False(t, notReady.Ready)
	body, err = json.Marshal(notReady)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"not ready","reason":"Model not loaded"}`, string(body))
}

func TestReadinessWithoutSource(t *testing.T) {
	assert.False(t, NewHealthReporter(nil, "1.0.0").Readiness().Ready)
}
