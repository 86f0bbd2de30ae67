package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/langchou/solarsizer/internal/equipment"
)

// 输入控件的最小值，只在接口层检查
var fieldMinimums = map[equipment.Field]decimal.Decimal{
	equipment.FieldPowerW:     decimal.NewFromInt(1),
	equipment.FieldQuantity:   decimal.NewFromInt(1),
	equipment.FieldDailyHours: decimal.RequireFromString("0.5"),
}

var hoursStep = decimal.RequireFromString("0.5")

// updateEquipmentRequest 单字段修改
type updateEquipmentRequest struct {
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value" binding:"required"`
}

// literal 取出原始输入，数字保持原样，字符串去掉引号
func literal(raw json.RawMessage) (string, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return "", nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	if _, err := decimal.NewFromString(text); err != nil {
		return "", fmt.Errorf("not a number: %s", text)
	}
	return text, nil
}

// checkRange 与表单控件一致的范围检查
func checkRange(field equipment.Field, value string) error {
	minimum, ok := fieldMinimums[field]
	if !ok {
		return nil
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("%s must be a number", field)
	}
	if d.LessThan(minimum) {
		return fmt.Errorf("%s must be at least %s", field, minimum.String())
	}

	switch field {
	case equipment.FieldQuantity:
		if !d.Equal(d.Truncate(0)) {
			return fmt.Errorf("%s must be a whole number", field)
		}
	case equipment.FieldDailyHours:
		if !d.Mod(hoursStep).IsZero() {
			return fmt.Errorf("%s must be a multiple of %s", field, hoursStep.String())
		}
	}
	return nil
}

// ListEquipments 获取设备列表
func (h *Handler) ListEquipments(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.Equipments()})
}

// AddEquipment 添加一条默认设备
// POST /api/sessions/:sid/equipments
func (h *Handler) AddEquipment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": s.AddEquipment()})
}

// UpdateEquipment 修改设备的一个字段
// PATCH /api/sessions/:sid/equipments/:id
// 修改类型时返回的 advanced_fields 表示是否显示功率因数和峰值比
func (h *Handler) UpdateEquipment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid equipment ID"})
		return
	}

	var req updateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	value, err := literal(req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	field := equipment.Field(req.Field)
	if err := checkRange(field, value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := s.UpdateEquipment(id, field, value)
	switch {
	case err == nil:
	case errors.Is(err, equipment.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Equipment not found"})
		return
	case errors.Is(err, equipment.ErrUnknownField), errors.Is(err, equipment.ErrInvalidValue):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		h.logger.Error("Failed to update equipment", zap.Error(err), zap.Int64("equipment_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update equipment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

// RemoveEquipment 删除设备，不存在时同样成功
// DELETE /api/sessions/:sid/equipments/:id
func (h *Handler) RemoveEquipment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid equipment ID"})
		return
	}

	s.RemoveEquipment(id)
	c.Status(http.StatusNoContent)
}
