package sizing

import (
	"github.com/langchou/solarsizer/internal/models"
)

// Snapshotter 提供设备列表快照
type Snapshotter interface {
	Snapshot() []models.EquipmentEntry
}

// 计算服务使用的类型标识
var wireTypes = map[models.EquipmentType]string{
	models.TypeRefrigeration:   "geladeira",
	models.TypeAirConditioning: "ar_condicionado",
	models.TypeLEDLighting:     "lampada",
	models.TypeTelevision:      "tv",
	models.TypeWaterPump:       "bomba",
	models.TypeOther:           "outro",
}

// WireType 转换为计算服务的类型标识，未知类型按 "outro" 处理
func WireType(t models.EquipmentType) string {
	if w, ok := wireTypes[t]; ok {
		return w
	}
	return wireTypes[models.TypeOther]
}

// Build 根据当前设备列表生成新的请求
// 不做数值转换，功率因数和峰值比对所有类型都发送
func Build(region, autonomyDays string, registry Snapshotter) (*Request, error) {
	entries := registry.Snapshot()
	if len(entries) == 0 {
		return nil, &ValidationError{Reason: "equipment list is empty"}
	}

	req := &Request{
		Region:       region,
		AutonomyDays: autonomyDays,
		Equipments:   make([]Equipment, 0, len(entries)),
	}

	for _, e := range entries {
		req.Equipments = append(req.Equipments, Equipment{
			Type:               WireType(e.Type),
			PowerW:             e.PowerW,
			Quantity:           e.Quantity,
			DailyHours:         e.DailyHours,
			PowerFactor:        e.PowerFactor,
			PeakToNominalRatio: e.PeakToNominalRatio,
		})
	}

	return req, nil
}
