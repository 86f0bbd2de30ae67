package equipment

import (
	"errors"
	"fmt"
	"sync"

	"github.com/langchou/solarsizer/internal/models"
)

// Field 可编辑字段
type Field string

const (
	FieldType               Field = "type"
	FieldPowerW             Field = "power_w"
	FieldQuantity           Field = "quantity"
	FieldDailyHours         Field = "daily_hours"
	FieldPowerFactor        Field = "power_factor"
	FieldPeakToNominalRatio Field = "peak_to_nominal_ratio"
)

// 错误定义
var (
	ErrEntryNotFound = errors.New("equipment entry not found")
	ErrUnknownField  = errors.New("unknown equipment field")
	ErrInvalidValue  = errors.New("invalid field value")
)

// Registry 设备列表，按添加顺序排列
type Registry struct {
	mu      sync.RWMutex
	nextID  int64
	order   []int64
	entries map[int64]*models.EquipmentEntry
}

// NewRegistry 创建空列表
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[int64]*models.EquipmentEntry),
	}
}

// Add 追加一条默认设备
func (r *Registry) Add() models.EquipmentEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry := models.NewEquipmentEntry(r.nextID)
	r.entries[entry.ID] = &entry
	r.order = append(r.order, entry.ID)
	return entry
}

// Remove 删除设备，不存在时忽略
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)

	for i, eid := range r.order {
		if eid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get 获取单个设备
func (r *Registry) Get(id int64) (models.EquipmentEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return models.EquipmentEntry{}, false
	}
	return *entry, true
}

// UpdateField 修改单个字段
// 数值只要求能解析为十进制数，保存原文，范围由前端控件约束，这里不做截断
func (r *Registry) UpdateField(id int64, field Field, value string) (models.EquipmentEntry, error) {
	if field == FieldType {
		if _, err := r.OnTypeChanged(id, models.EquipmentType(value)); err != nil {
			return models.EquipmentEntry{}, err
		}
		entry, _ := r.Get(id)
		return entry, nil
	}

	var num models.Literal
	switch field {
	case FieldPowerW, FieldQuantity, FieldDailyHours, FieldPowerFactor, FieldPeakToNominalRatio:
		lit, err := models.ParseLiteral(value)
		if err != nil {
			return models.EquipmentEntry{}, fmt.Errorf("%w: %s=%q", ErrInvalidValue, field, value)
		}
		num = lit
	default:
		return models.EquipmentEntry{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return models.EquipmentEntry{}, fmt.Errorf("%w: id=%d", ErrEntryNotFound, id)
	}

	switch field {
	case FieldPowerW:
		entry.PowerW = num
	case FieldQuantity:
		entry.Quantity = num
	case FieldDailyHours:
		entry.DailyHours = num
	case FieldPowerFactor:
		entry.PowerFactor = num
	case FieldPeakToNominalRatio:
		entry.PeakToNominalRatio = num
	}

	return *entry, nil
}

// OnTypeChanged 修改类型并返回高级字段是否可见
// 功率因数和峰值比始终保留在设备上，可见性只影响界面
func (r *Registry) OnTypeChanged(id int64, t models.EquipmentType) (bool, error) {
	if !t.Valid() {
		return false, fmt.Errorf("%w: type=%q", ErrInvalidValue, t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return false, fmt.Errorf("%w: id=%d", ErrEntryNotFound, id)
	}
	entry.Type = t

	return models.AdvancedFieldsVisible(t), nil
}

// Snapshot 按添加顺序返回副本
func (r *Registry) Snapshot() []models.EquipmentEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.EquipmentEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.entries[id])
	}
	return out
}

// Len 设备数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
