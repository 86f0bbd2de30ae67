package sizing

import (
	"github.com/goccy/go-json"

	"github.com/langchou/solarsizer/internal/models"
)

// Request 提交给计算服务的请求体
// 字段名沿用计算服务的约定
type Request struct {
	Region       string      `json:"regiao"`
	AutonomyDays string      `json:"dias_autonomia"`
	Equipments   []Equipment `json:"equipments"`
}

// Equipment 请求中的单条负载，数值以字符串形式传输
type Equipment struct {
	Type               string         `json:"type"`
	PowerW             models.Literal `json:"potencia"`
	Quantity           models.Literal `json:"quantidade"`
	DailyHours         models.Literal `json:"tempo_uso"`
	PowerFactor        models.Literal `json:"fp"`
	PeakToNominalRatio models.Literal `json:"ipin"`
}

// Response 计算服务返回结果
type Response struct {
	Warnings    []string     `json:"intellectus_warnings"`
	MainResults *MainResults `json:"main_results" validate:"required"`
	Solutions   []Solution   `json:"solutions" validate:"required,dive"`
}

// MainResults 汇总指标，原样展示
type MainResults struct {
	PVPowerKWp         json.Number `json:"potencia_pv_kWp" validate:"required"`
	BatteryCapacityKWh json.Number `json:"capacidade_banco_kwh" validate:"required"`
	PeakLoadVA         json.Number `json:"potencia_pico_carga_va" validate:"required"`
	DailyEnergyKWh     json.Number `json:"energia_diaria_kwh" validate:"required"`
}

// Solution 一组逆变器 + 电池组合
type Solution struct {
	InverterModel    string      `json:"inversor_modelo" validate:"required"`
	InverterRatingVA json.Number `json:"inversor_potencia_va" validate:"required"`
	BatteryQuantity  json.Number `json:"bateria_quantidade" validate:"required"`
	BatteryModel     string      `json:"bateria_modelo" validate:"required"`
}
