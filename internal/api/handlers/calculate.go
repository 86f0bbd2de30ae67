package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/solarsizer/internal/api/sizing"
	"github.com/langchou/solarsizer/internal/service"
)

// calculateRequest 全局参数，autonomy_days 可以是字符串或数字
type calculateRequest struct {
	Region       string          `json:"region"`
	AutonomyDays json.RawMessage `json:"autonomy_days"`
}

// Calculate 提交当前设备列表
// POST /api/sessions/:sid/calculate
func (h *Handler) Calculate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req calculateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	region := strings.TrimSpace(req.Region)
	if region == "" {
		region = h.defaults.Region
	}

	days, err := literal(req.AutonomyDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "autonomy_days must be a number"})
		return
	}
	if days == "" {
		days = h.defaults.AutonomyDays
	}

	view, err := s.Submit(c.Request.Context(), region, days)
	if err != nil {
		h.writeSubmitError(c, s.ID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (h *Handler) writeSubmitError(c *gin.Context, sessionID string, err error) {
	var (
		verr *sizing.ValidationError
		terr *sizing.TransportError
		merr *sizing.MalformedResponseError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Message()})
	case errors.Is(err, service.ErrStaleResponse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &terr):
		c.JSON(http.StatusBadGateway, gin.H{"error": terr.Message()})
	case errors.As(err, &merr):
		c.JSON(http.StatusBadGateway, gin.H{"error": merr.Message()})
	default:
		h.logger.Error("Calculation failed", zap.Error(err), zap.String("session_id", sessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Calculation failed"})
	}
}

// GetResults 当前结果区域
// GET /api/sessions/:sid/results?format=html
func (h *Handler) GetResults(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	view := s.Results()
	if c.Query("format") == "html" {
		html, err := view.HTML()
		if err != nil {
			h.logger.Error("Failed to render results html", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render results"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

// GetStatus 提交状态
func (h *Handler) GetStatus(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.Status()})
}
