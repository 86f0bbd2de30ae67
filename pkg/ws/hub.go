package ws

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType WebSocket 消息类型
const (
	MsgTypeInit         = "init"         // 初始化数据（设备列表+结果+状态）
	MsgTypeEquipments   = "equipments"   // 设备列表变化
	MsgTypeResults      = "results"      // 新的计算结果
	MsgTypeNotification = "notification" // 需要用户确认的提示
	MsgTypeStatus       = "status"       // 提交状态变化
)

// Message WebSocket 消息结构
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// envelope 发往某个会话的消息
type envelope struct {
	sessionID string
	data      []byte
}

// Client WebSocket 客户端
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
}

// Hub WebSocket 连接管理中心，按会话分组
type Hub struct {
	logger     *zap.Logger
	sessions   map[string]map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	mu         sync.RWMutex

	// 初始数据提供者回调
	getInitData func(sessionID string) interface{}
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// SetInitDataProvider 设置初始数据提供者
func (h *Hub) SetInitDataProvider(provider func(sessionID string) interface{}) {
	h.getInitData = provider
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.sessions[client.sessionID] == nil {
				h.sessions[client.sessionID] = make(map[*Client]bool)
			}
			h.sessions[client.sessionID][client] = true
			h.mu.Unlock()
			h.logger.Info("WebSocket client connected",
				zap.String("session_id", client.sessionID),
				zap.Int("total_clients", h.ClientCount()))

			// 发送初始数据
			h.sendInitData(client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.logger.Info("WebSocket client disconnected",
				zap.String("session_id", client.sessionID),
				zap.Int("total_clients", h.ClientCount()))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.sessions[msg.sessionID] {
				select {
				case client.send <- msg.data:
				default:
					// 慢消费者，关闭连接
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.stop)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.send)
	}
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
}

// sendInitData 发送初始数据给新连接的客户端
func (h *Hub) sendInitData(client *Client) {
	if h.getInitData == nil {
		h.logger.Warn("No init data provider set")
		return
	}

	initData := h.getInitData(client.sessionID)
	if initData == nil {
		h.logger.Warn("Init data provider returned nil", zap.String("session_id", client.sessionID))
		return
	}

	data, err := json.Marshal(Message{Type: MsgTypeInit, Data: initData})
	if err != nil {
		h.logger.Error("Failed to marshal init data", zap.Error(err))
		return
	}

	select {
	case client.send <- data:
		h.logger.Debug("Sent init data to client")
	default:
		h.logger.Warn("Failed to send init data, client buffer full")
	}
}

// Publish 发送结构化消息给会话的所有客户端
func (h *Hub) Publish(sessionID, msgType string, data interface{}) {
	jsonData, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Failed to marshal message", zap.String("type", msgType), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- envelope{sessionID: sessionID, data: jsonData}:
	default:
		h.logger.Warn("Broadcast queue full, dropping message", zap.String("type", msgType))
	}
}

// CloseSession 断开会话的所有客户端，会话结束或过期时调用
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.sessions[sessionID] {
		h.removeLocked(client)
	}
}

// ClientCount 获取客户端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.sessions {
		n += len(clients)
	}
	return n
}

// SessionClientCount 获取会话的客户端数量
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// NewClient 创建客户端
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

// Register 注册客户端
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.stop:
	}
}

// Unregister 注销客户端
func (c *Client) Unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.stop:
	}
}

// ReadPump 读取消息（保持连接活跃）
func (c *Client) ReadPump() {
	defer func() {
		c.Unregister()
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		// 浏览器通过 HTTP 接口操作，这里不处理客户端消息
	}
}

// WritePump 发送消息
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	// Hub 关闭了通道
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
