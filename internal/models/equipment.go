package models

// EquipmentType 负载类型
type EquipmentType string

const (
	TypeRefrigeration   EquipmentType = "refrigeration"
	TypeAirConditioning EquipmentType = "air_conditioning"
	TypeLEDLighting     EquipmentType = "led_lighting"
	TypeTelevision      EquipmentType = "television"
	TypeWaterPump       EquipmentType = "water_pump"
	TypeOther           EquipmentType = "other"
)

// EquipmentTypes 下拉框中的顺序
var EquipmentTypes = []EquipmentType{
	TypeRefrigeration,
	TypeAirConditioning,
	TypeLEDLighting,
	TypeTelevision,
	TypeWaterPump,
	TypeOther,
}

var equipmentLabels = map[EquipmentType]string{
	TypeRefrigeration:   "Refrigerator / Freezer",
	TypeAirConditioning: "Air conditioning",
	TypeLEDLighting:     "LED lighting",
	TypeTelevision:      "Television",
	TypeWaterPump:       "Water pump",
	TypeOther:           "Other (specify)",
}

// Valid 是否为已知类型
func (t EquipmentType) Valid() bool {
	_, ok := equipmentLabels[t]
	return ok
}

// Label 显示名称
func (t EquipmentType) Label() string {
	if label, ok := equipmentLabels[t]; ok {
		return label
	}
	return string(t)
}

// AdvancedFieldsVisible 只有 "other" 需要手动填写功率因数和峰值比
func AdvancedFieldsVisible(t EquipmentType) bool {
	return t == TypeOther
}

// 新设备默认值
const (
	DefaultPowerW             Literal = "150"
	DefaultQuantity           Literal = "1"
	DefaultDailyHours         Literal = "8"
	DefaultPowerFactor        Literal = "0.9"
	DefaultPeakToNominalRatio Literal = "1"
)

// EquipmentEntry 一条用电负载
// 数值字段保留用户输入的原文，不做类型转换
type EquipmentEntry struct {
	ID                 int64         `json:"id"`
	Type               EquipmentType `json:"type"`
	PowerW             Literal       `json:"power_w"`
	Quantity           Literal       `json:"quantity"`
	DailyHours         Literal       `json:"daily_hours"`
	PowerFactor        Literal       `json:"power_factor"`
	PeakToNominalRatio Literal       `json:"peak_to_nominal_ratio"`
}

// NewEquipmentEntry 按默认值创建
func NewEquipmentEntry(id int64) EquipmentEntry {
	return EquipmentEntry{
		ID:                 id,
		Type:               TypeRefrigeration,
		PowerW:             DefaultPowerW,
		Quantity:           DefaultQuantity,
		DailyHours:         DefaultDailyHours,
		PowerFactor:        DefaultPowerFactor,
		PeakToNominalRatio: DefaultPeakToNominalRatio,
	}
}
