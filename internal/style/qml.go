// Package style writes QGIS layer style (.qml) sidecars for the output
// rasters: a paletted renderer for the classified scenario result, one color
// per activity, and a pseudocolor ramp for continuous activity rasters.
package style

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"

	"github.com/kartoza/cplus-engine/internal/model"
)

// defaultPalette colors activities whose style carries no color of its own.
// The cycle repeats past its length.
var defaultPalette = []string{
	"#1f78b4", "#33a02c", "#e31a1c", "#ff7f00",
	"#6a3d9a", "#b15928", "#a6cee3", "#b2df8a",
}

type qmlDoc struct {
	XMLName xml.Name    `xml:"qgis"`
	Version string      `xml:"version,attr"`
	Pipe    qmlPipe     `xml:"pipe"`
	Blend   qmlBlending `xml:"blendMode"`
}

type qmlBlending struct {
	Value string `xml:",chardata"`
}

type qmlPipe struct {
	Renderer qmlRenderer `xml:"rasterrenderer"`
}

type qmlRenderer struct {
	Type              string      `xml:"type,attr"`
	Band              int         `xml:"band,attr"`
	ClassificationMin string      `xml:"classificationMin,attr,omitempty"`
	ClassificationMax string      `xml:"classificationMax,attr,omitempty"`
	Palette           *qmlPalette `xml:"colorPalette,omitempty"`
	Shader            *qmlShader  `xml:"rastershader,omitempty"`
}

type qmlPalette struct {
	Entries []qmlPaletteEntry `xml:"paletteEntry"`
}

type qmlPaletteEntry struct {
	Value string `xml:"value,attr"`
	Color string `xml:"color,attr"`
	Label string `xml:"label,attr"`
	Alpha int    `xml:"alpha,attr"`
}

type qmlShader struct {
	Ramp qmlRampShader `xml:"colorrampshader"`
}

type qmlRampShader struct {
	Type  string        `xml:"colorRampType,attr"`
	Items []qmlRampItem `xml:"item"`
}

type qmlRampItem struct {
	Value string `xml:"value,attr"`
	Color string `xml:"color,attr"`
	Label string `xml:"label,attr"`
	Alpha int    `xml:"alpha,attr"`
}

// ActivityColor returns the color an activity renders with: its configured
// style color when set, otherwise a palette color picked by position.
func ActivityColor(activity *model.Activity, position int) string {
	if activity.Style.Color != "" {
		return activity.Style.Color
	}
	return defaultPalette[position%len(defaultPalette)]
}

// WriteScenarioQML writes a paletted style for the classified result raster.
// Class values are 1-based activity positions, matching the classification.
func WriteScenarioQML(path string, scenario *model.Scenario) error {
	palette := &qmlPalette{}
	for i := range scenario.Activities {
		activity := &scenario.Activities[i]
		palette.Entries = append(palette.Entries, qmlPaletteEntry{
			Value: strconv.Itoa(i + 1),
			Color: ActivityColor(activity, i),
			Label: activity.Name,
			Alpha: 255,
		})
	}

	doc := qmlDoc{
		Version: "3.28",
		Pipe: qmlPipe{Renderer: qmlRenderer{
			Type:    "paletted",
			Band:    1,
			Palette: palette,
		}},
		Blend: qmlBlending{Value: "0"},
	}
	return write(path, doc)
}

// WriteActivityQML writes an interpolated pseudocolor style spanning the
// grid's value range.
func WriteActivityQML(path, label string, min, max float64) error {
	if max < min {
		return fmt.Errorf("style: invalid range [%g, %g] for %s", min, max, path)
	}
	mid := (min + max) / 2

	doc := qmlDoc{
		Version: "3.28",
		Pipe: qmlPipe{Renderer: qmlRenderer{
			Type:              "singlebandpseudocolor",
			Band:              1,
			ClassificationMin: formatValue(min),
			ClassificationMax: formatValue(max),
			Shader: &qmlShader{Ramp: qmlRampShader{
				Type: "INTERPOLATED",
				Items: []qmlRampItem{
					{Value: formatValue(min), Color: "#ffffcc", Label: label + " (low)", Alpha: 255},
					{Value: formatValue(mid), Color: "#78c679", Label: label, Alpha: 255},
					{Value: formatValue(max), Color: "#006837", Label: label + " (high)", Alpha: 255},
				},
			}},
		}},
		Blend: qmlBlending{Value: "0"},
	}
	return write(path, doc)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func write(path string, doc qmlDoc) error {
	payload, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("style: encode %s: %w", path, err)
	}
	payload = append([]byte(xml.Header), payload...)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("style: write %s: %w", path, err)
	}
	return nil
}
