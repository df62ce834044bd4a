package report

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/kartoza/cplus-engine/internal/model"
)

// ha formats hectares with two decimals; suit formats suitability scores and
// renders the NaN of an empty class as a dash.
var templateFuncs = template.FuncMap{
	"ha": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
	"suit": func(v model.Suitability) string {
		if !v.Defined() {
			return "-"
		}
		return fmt.Sprintf("%.4f", float64(v))
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(templateFuncs).Parse(
	`# Scenario report: {{.ScenarioName}}

{{if .Description}}{{.Description}}

{{end}}- UUID: {{.ScenarioUUID}}
- State: {{.State}}
- Duration: {{.Duration}}
- Result raster: {{.ResultPath}}
- Total classified area: {{ha .TotalAreaHa}} ha

| Activity | Pixels | Area (ha) | Mean suitability |
|---|---:|---:|---:|
{{range .Activities}}| {{.ActivityName}} | {{.PixelCount}} | {{ha .AreaHa}} | {{suit .MeanSuitability}} |
{{end}}`))

var comparisonTemplate = template.Must(template.New("comparison").Funcs(templateFuncs).Parse(
	`# Scenario comparison

Baseline: {{index .Scenarios 0}}

| Activity |{{range .Scenarios}} {{.}} (ha) |{{end}}{{range slice .Scenarios 1}} Δ {{.}} (ha) |{{end}}
|---|{{range .Scenarios}}---:|{{end}}{{range slice .Scenarios 1}}---:|{{end}}
{{range .Rows}}| {{.ActivityName}} |{{range .AreasHa}} {{ha .}} |{{end}}{{range slice .DeltasHa 1}} {{ha .}} |{{end}}
{{end}}`))

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() (string, error) {
	var sb strings.Builder
	if err := reportTemplate.Execute(&sb, r); err != nil {
		return "", fmt.Errorf("report: render markdown: %w", err)
	}
	return sb.String(), nil
}

// Markdown renders the comparison as a markdown document.
func (c *Comparison) Markdown() (string, error) {
	var sb strings.Builder
	if err := comparisonTemplate.Execute(&sb, c); err != nil {
		return "", fmt.Errorf("report: render comparison markdown: %w", err)
	}
	return sb.String(), nil
}
