package style

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/cplus-engine/internal/model"
)

func TestActivityColor_PrefersConfiguredColor(t *testing.T) {
	withColor := &model.Activity{Name: "a", Style: model.StyleRef{Color: "#123456"}}
	assert.Equal(t, "#123456", ActivityColor(withColor, 0))

	bare := &model.Activity{Name: "b"}
	assert.Equal(t, defaultPalette[1], ActivityColor(bare, 1))
	assert.Equal(t, defaultPalette[1], ActivityColor(bare, 1+len(defaultPalette)))
}

func TestWriteScenarioQML_OneEntryPerActivity(t *testing.T) {
	scenario := model.NewScenario("styled")
	scenario.Activities = []model.Activity{
		{UUID: "22222222-2222-2222-2222-222222222222", Name: "Agroforestry", Style: model.StyleRef{Color: "#d80007"}},
		{UUID: "33333333-3333-3333-3333-333333333333", Name: "Bush Thinning"},
	}

	path := filepath.Join(t.TempDir(), "scenario_result.qml")
	require.NoError(t, WriteScenarioQML(path, scenario))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	qml := string(content)
	assert.Contains(t, qml, `type="paletted"`)
	assert.Contains(t, qml, `value="1" color="#d80007" label="Agroforestry"`)
	assert.Contains(t, qml, `value="2" color="`+defaultPalette[1]+`" label="Bush Thinning"`)
}

func TestWriteActivityQML_SpansValueRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.qml")
	require.NoError(t, WriteActivityQML(path, "Agroforestry", 0, 1.5))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	qml := string(content)
	assert.Contains(t, qml, `type="singlebandpseudocolor"`)
	assert.Contains(t, qml, `classificationMin="0"`)
	assert.Contains(t, qml, `classificationMax="1.5"`)
	assert.Contains(t, qml, `value="0.75"`)
}

func TestWriteActivityQML_RejectsInvertedRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.qml")
	require.Error(t, WriteActivityQML(path, "x", 2, 1))
}
