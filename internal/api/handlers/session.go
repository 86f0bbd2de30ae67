package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/solarsizer/internal/models"
	"github.com/langchou/solarsizer/internal/service"
)

// ListRegions 地区列表及表单默认值
func (h *Handler) ListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": h.regions,
		"defaults": gin.H{
			"region":        h.defaults.Region,
			"autonomy_days": h.defaults.AutonomyDays,
		},
	})
}

// ListEquipmentTypes 设备类型及显示名称
func (h *Handler) ListEquipmentTypes(c *gin.Context) {
	types := make([]gin.H, 0, len(models.EquipmentTypes))
	for _, t := range models.EquipmentTypes {
		types = append(types, gin.H{
			"type":            t,
			"label":           t.Label(),
			"advanced_fields": models.AdvancedFieldsVisible(t),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": types})
}

// CreateSession 创建会话，预置一条设备
// POST /api/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	s := h.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"id":         s.ID,
			"equipments": s.Equipments(),
			"results":    s.Results(),
			"status":     s.Status(),
		},
	})
}

// CloseSession 结束会话
// DELETE /api/sessions/:sid
func (h *Handler) CloseSession(c *gin.Context) {
	if err := h.sessions.Close(c.Param("sid")); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// session 根据路径参数查找会话，找不到时已写入响应
func (h *Handler) session(c *gin.Context) (*service.Session, bool) {
	s, ok := h.sessions.Get(c.Param("sid"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return s, true
}
