package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/langchou/solarsizer/internal/api/sizing"
)

// FallbackNoMatch 没有匹配的逆变器时显示
const FallbackNoMatch = "No equipment combination was found in our catalog for your power requirement. " +
	"Your system may need a custom solution or inverters in parallel."

// Summary 项目摘要，数值原样展示
type Summary struct {
	PVPowerKWp         string `json:"pv_power_kwp"`
	BatteryCapacityKWh string `json:"battery_capacity_kwh"`
	PeakLoadVA         string `json:"peak_load_va"`
	DailyEnergyKWh     string `json:"daily_energy_kwh"`
}

// Option 一个推荐方案
type Option struct {
	Number           int    `json:"number"`
	Heading          string `json:"heading"`
	InverterModel    string `json:"inverter_model"`
	InverterRatingVA string `json:"inverter_rating_va"`
	BatteryQuantity  string `json:"battery_quantity"`
	BatteryModel     string `json:"battery_model"`
}

// View 结果区域
type View struct {
	Visible        bool     `json:"visible"`
	ScrollIntoView bool     `json:"scroll_into_view"`
	Revision       int64    `json:"revision"`
	Warnings       []string `json:"warnings,omitempty"`
	Summary        *Summary `json:"summary,omitempty"`
	Options        []Option `json:"options,omitempty"`
	Fallback       string   `json:"fallback,omitempty"`
}

// Renderer 把计算结果投影到结果区域
type Renderer struct {
	mu   sync.RWMutex
	view View
}

// NewRenderer 创建渲染器，初始结果区域隐藏
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render 先校验再整体替换结果区域，校验失败时不改动已有内容
func (r *Renderer) Render(resp *sizing.Response) error {
	if err := resp.Validate(); err != nil {
		return err
	}

	next := View{
		Visible:        true,
		ScrollIntoView: true,
		Summary: &Summary{
			PVPowerKWp:         resp.MainResults.PVPowerKWp.String(),
			BatteryCapacityKWh: resp.MainResults.BatteryCapacityKWh.String(),
			PeakLoadVA:         resp.MainResults.PeakLoadVA.String(),
			DailyEnergyKWh:     resp.MainResults.DailyEnergyKWh.String(),
		},
	}

	if len(resp.Warnings) > 0 {
		next.Warnings = append([]string(nil), resp.Warnings...)
	}

	if len(resp.Solutions) > 0 {
		next.Options = make([]Option, 0, len(resp.Solutions))
		for i, sol := range resp.Solutions {
			next.Options = append(next.Options, Option{
				Number:           i + 1,
				Heading:          fmt.Sprintf("Option %d", i+1),
				InverterModel:    sol.InverterModel,
				InverterRatingVA: sol.InverterRatingVA.String(),
				BatteryQuantity:  sol.BatteryQuantity.String(),
				BatteryModel:     sol.BatteryModel,
			})
		}
	} else {
		next.Fallback = FallbackNoMatch
	}

	r.mu.Lock()
	next.Revision = r.view.Revision + 1
	r.view = next
	r.mu.Unlock()

	return nil
}

// View 获取结果区域副本
func (r *Renderer) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v := r.view
	v.Warnings = append([]string(nil), r.view.Warnings...)
	v.Options = append([]Option(nil), r.view.Options...)
	if r.view.Summary != nil {
		s := *r.view.Summary
		v.Summary = &s
	}
	return v
}

var viewTemplate = template.Must(template.New("results").Parse(`<section id="results-section"{{if not .Visible}} class="hidden"{{end}}>
{{- if .Warnings}}
<div id="intellectus-analysis">
<h3>Smart analysis:</h3>
<ul>
{{- range .Warnings}}
<li>{{.}}</li>
{{- end}}
</ul>
</div>
{{- end}}
{{- with .Summary}}
<div id="main-results">
<h3>Project summary:</h3>
<p><strong>Recommended PV power:</strong> {{.PVPowerKWp}} kWp</p>
<p><strong>Minimum battery bank capacity:</strong> {{.BatteryCapacityKWh}} kWh</p>
<p><strong>Peak load power:</strong> {{.PeakLoadVA}} VA</p>
<p><strong>Daily consumption:</strong> {{.DailyEnergyKWh}} kWh/day</p>
<hr>
<h3>Equipment options:</h3>
{{- range $.Options}}
<h4>{{.Heading}}</h4>
<ul>
<li><strong>Suggested inverter:</strong> {{.InverterModel}} ({{.InverterRatingVA}} VA)</li>
<li><strong>Batteries:</strong> {{.BatteryQuantity}} units of model {{.BatteryModel}}</li>
</ul>
{{- end}}
{{- if $.Fallback}}
<p>{{$.Fallback}}</p>
{{- end}}
</div>
{{- end}}
</section>
`))

// HTML 结果区域的 HTML 片段，内容已转义
func (v View) HTML() (string, error) {
	var buf bytes.Buffer
	if err := viewTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render results html: %w", err)
	}
	return buf.String(), nil
}
