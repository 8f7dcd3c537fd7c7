package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trisense-monitor/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 监护面板部署在独立域名下
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient 单个 WebSocket 连接
// 发送走带缓冲 channel，慢客户端缓冲满时直接断开。
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.DashboardUpdate
}

// Hub WebSocket 连接集线器
// 把每次评估的结构化更新推送给所有已连接的监护面板。
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	logger  *zap.Logger
}

// NewHub 创建集线器
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger,
	}
}

// Broadcast 向所有连接推送一次更新
func (h *Hub) Broadcast(update models.DashboardUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- update:
		default:
			// 慢客户端：丢弃本次更新，由 writePump 检测后断开
			h.logger.Warn("Dropping update for slow websocket client")
		}
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS WebSocket 升级入口
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade websocket connection",
			zap.Error(err),
		)
		return
	}

	c := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan models.DashboardUpdate, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("Websocket client connected",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int("clients", h.ClientCount()),
	)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

// readPump 只负责检测断开和响应 ping/pong
func (c *wsClient) readPump() {
	defer c.hub.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump 序列化并发送更新，周期性 ping 保活
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.remove(c)
	}()

	for {
		select {
		case update, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(update); err != nil {
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
