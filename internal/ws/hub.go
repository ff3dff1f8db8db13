// Package ws 按患者推送实时采样与报警
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"wisefido-vitals/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// 单次写超时
	writeTimeout = 10 * time.Second

	// 等待 pong 的时间，超时视为断开
	pongWait = 60 * time.Second

	// ping 周期，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10

	// 每个客户端的发送缓冲
	sendBufSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 跨域由反向代理处理
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub 管理 WebSocket 连接，按 patient_id 分组广播
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*client]string // client -> patient_id
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]string),
	}
}

// ServeWS 升级连接并订阅某个患者；initial 非空时连接后立即发送。阻塞直到连接关闭。
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, patientID string, initial *models.LiveMessage) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader 已写入错误响应
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}

	// 注册前写入缓冲：此时 send 只属于本连接，不会被 Close 或 Broadcast 关闭
	if initial != nil {
		if data, err := json.Marshal(initial); err == nil {
			c.send <- data
		}
	}

	h.register(c, patientID)
	defer h.unregister(c)

	go c.writePump()
	c.readPump()
}

// Broadcast 推送给订阅该患者的全部客户端，缓冲已满的客户端被断开
func (h *Hub) Broadcast(patientID string, msg *models.LiveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal live message", zap.String("patient_id", patientID), zap.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c, id := range h.clients {
		if id != patientID {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow WebSocket client", zap.String("patient_id", patientID))
		h.unregister(c)
	}
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CountFor 订阅某个患者的连接数
func (h *Hub) CountFor(patientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, id := range h.clients {
		if id == patientID {
			n++
		}
	}
	return n
}

// Close 关闭全部连接
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *client, patientID string) {
	h.mu.Lock()
	h.clients[c] = patientID
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// writePump 把 send 中的消息写到连接，并定期发送 ping
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只处理控制帧并检测断开
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
