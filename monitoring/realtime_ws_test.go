package monitoring

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFeed(t *testing.T, interval time.Duration) (*LiveFeed, *Registry, string) {
	t.Helper()
	registry := NewRegistry()
	feed := NewLiveFeed(registry, interval, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = feed.Run(ctx) }()

	srv := httptest.NewServer(feed)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return feed, registry, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestLiveFeedPushesMetricsSnapshots(t *testing.T) {
	_, registry, url := startFeed(t, 20*time.Millisecond)
	registry.Inc(TotalRequests)
	registry.Inc(Errors)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	ev := readEvent(t, conn)
	assert.Equal(t, EventMetrics, ev.Type)
	assert.NotEmpty(t, ev.ID)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(ev.Data, &snap))
	assert.Equal(t, uint64(1), snap.TotalRequests)
	assert.Equal(t, uint64(1), snap.Errors)
}

func TestLiveFeedPublishesPredictions(t *testing.T) {
	feed, _, url := startFeed(t, time.Hour)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	feed.Publish(EventPrediction, map[string]any{"risk_level": "High"})

	ev := readEvent(t, conn)
	assert.Equal(t, EventPrediction, ev.Type)
	assert.JSONEq(t, `{"risk_level":"High"}`, string(ev.Data))
}

func TestLiveFeedSubscriptionFilter(t *testing.T) {
	feed, _, url := startFeed(t, time.Hour)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "subscribe", Topic: EventMetrics}))
	// give the read pump a moment to apply the subscription
	time.Sleep(50 * time.Millisecond)

	feed.Publish(EventPrediction, map[string]any{"risk_level": "Low"})
	feed.Publish(EventMetrics, Snapshot{TotalRequests: 7})

	ev := readEvent(t, conn)
	assert.Equal(t, EventMetrics, ev.Type)
}

func TestLiveFeedClosesClientsOnShutdown(t *testing.T) {
	registry := NewRegistry()
	feed := NewLiveFeed(registry, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = feed.Run(ctx)
		close(stopped)
	}()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-stopped
	assert.Zero(t, feed.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
