package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventType 推送消息类型
type EventType string

const (
	EventMetrics    EventType = "metrics"
	EventPrediction EventType = "prediction"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

// Event 推送给客户端的消息
type Event struct {
	Type      EventType       `json:"type"`
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ClientMessage 客户端发来的订阅消息
type ClientMessage struct {
	Type  string    `json:"type"`
	Topic EventType `json:"topic"`
}

type outbound struct {
	topic   EventType
	payload []byte
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	topics map[EventType]bool
}

// wants 未订阅任何主题时接收全部消息
func (c *client) wants(topic EventType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.topics) == 0 || c.topics[topic]
}

// LiveFeed WebSocket实时推送中心：定时推送计数快照，并转发预测事件
type LiveFeed struct {
	logger   *zap.Logger
	registry *Registry
	interval time.Duration
	upgrader websocket.Upgrader

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan outbound
	done       chan struct{}

	mu    sync.RWMutex
	count int
}

// NewLiveFeed 创建实时推送中心
func NewLiveFeed(registry *Registry, interval time.Duration, logger *zap.Logger) *LiveFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &LiveFeed{
		logger:   logger,
		registry: registry,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
	}
}

// Run 运行推送循环，直到ctx取消
func (f *LiveFeed) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	defer close(f.done)

	for {
		select {
		case c := <-f.register:
			f.clients[c] = struct{}{}
			f.setCount(len(f.clients))
			f.logger.Debug("live feed client connected", zap.String("client_id", c.id), zap.Int("clients", len(f.clients)))

		case c := <-f.unregister:
			if _, ok := f.clients[c]; ok {
				delete(f.clients, c)
				close(c.send)
			}
			f.setCount(len(f.clients))
			f.logger.Debug("live feed client disconnected", zap.String("client_id", c.id), zap.Int("clients", len(f.clients)))

		case msg := <-f.broadcast:
			f.fanOut(msg)

		case <-ticker.C:
			if len(f.clients) == 0 || f.registry == nil {
				continue
			}
			if msg, err := encodeEvent(EventMetrics, f.registry.Snapshot()); err == nil {
				f.fanOut(msg)
			}

		case <-ctx.Done():
			for c := range f.clients {
				close(c.send)
				delete(f.clients, c)
			}
			f.setCount(0)
			return nil
		}
	}
}

func (f *LiveFeed) fanOut(msg outbound) {
	for c := range f.clients {
		if !c.wants(msg.topic) {
			continue
		}
		select {
		case c.send <- msg.payload:
		default:
			// 慢客户端直接断开
			close(c.send)
			delete(f.clients, c)
		}
	}
	f.setCount(len(f.clients))
}

func (f *LiveFeed) setCount(n int) {
	f.mu.Lock()
	f.count = n
	f.mu.Unlock()
}

// Clients 当前连接数
func (f *LiveFeed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

// Publish 非阻塞发布事件，队列满时丢弃
func (f *LiveFeed) Publish(topic EventType, data any) {
	msg, err := encodeEvent(topic, data)
	if err != nil {
		f.logger.Warn("failed to encode live feed event", zap.String("type", string(topic)), zap.Error(err))
		return
	}
	select {
	case f.broadcast <- msg:
	default:
		f.logger.Warn("live feed queue is full, dropping event", zap.String("type", string(topic)))
	}
}

func encodeEvent(topic EventType, data any) (outbound, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return outbound{}, err
	}
	payload, err := json.Marshal(Event{
		Type:      topic,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Data:      raw,
	})
	if err != nil {
		return outbound{}, err
	}
	return outbound{topic: topic, payload: payload}, nil
}

// ServeHTTP 升级为WebSocket连接并注册客户端
func (f *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topics: make(map[EventType]bool),
	}

	select {
	case f.register <- c:
	case <-f.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(f)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(f *LiveFeed) {
	defer func() {
		select {
		case f.unregister <- c:
		case <-f.done:
		}
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Debug("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.handleClientMessage(msg)
	}
}

func (c *client) handleClientMessage(msg ClientMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Type {
	case "subscribe":
		c.topics[msg.Topic] = true
	case "unsubscribe":
		delete(c.topics, msg.Topic)
	}
}
