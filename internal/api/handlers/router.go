package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/solarsizer/internal/config"
	"github.com/langchou/solarsizer/internal/service"
	"github.com/langchou/solarsizer/pkg/ws"
)

// FormDefaults 表单默认值
type FormDefaults struct {
	Region       string
	AutonomyDays string
}

// Handler HTTP 处理器
type Handler struct {
	logger   *zap.Logger
	sessions *service.Manager
	regions  []config.Region
	defaults FormDefaults
	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	sessions *service.Manager,
	regions []config.Region,
	defaults FormDefaults,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:   logger,
		sessions: sessions,
		regions:  regions,
		defaults: defaults,
		wsHub:    wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// API 路由
	api := r.Group("/api")
	{
		// 表单选项
		api.GET("/regions", h.ListRegions)
		api.GET("/equipment-types", h.ListEquipmentTypes)

		// 会话
		api.POST("/sessions", h.CreateSession)
		api.DELETE("/sessions/:sid", h.CloseSession)

		// 设备列表
		api.GET("/sessions/:sid/equipments", h.ListEquipments)
		api.POST("/sessions/:sid/equipments", h.AddEquipment)
		api.PATCH("/sessions/:sid/equipments/:id", h.UpdateEquipment)
		api.DELETE("/sessions/:sid/equipments/:id", h.RemoveEquipment)

		// 计算
		api.POST("/sessions/:sid/calculate", h.Calculate)
		api.GET("/sessions/:sid/results", h.GetResults)
		api.GET("/sessions/:sid/status", h.GetStatus)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket WebSocket 处理
// GET /ws?session=<id>
func (h *Handler) HandleWebSocket(c *gin.Context) {
	sessionID := c.Query("session")
	if _, ok := h.sessions.Get(sessionID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn, sessionID)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"sessions":   h.sessions.Count(),
		"ws_clients": h.wsHub.ClientCount(),
	})
}
