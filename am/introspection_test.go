package am

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkSettingsFromSource(t *testing.T) {
	t.Run("Nested settings", func(t *testing.T) {
		settings := map[string]interface{}{
			"pipeline": map[string]interface{}{
				"page_size": 500,
				"workers":   2,
			},
			"database": map[string]interface{}{
				"path": "catalogue.db",
			},
		}

		sourceMap := make(map[string]SourceInfo)
		markSettingsFromSource(settings, "", SourceUser, "/home/user/.measure/am.toml", sourceMap)

		assert.Len(t, sourceMap, 3)
		assert.Equal(t, SourceUser, sourceMap["pipeline.page_size"].Source)
		assert.Equal(t, SourceUser, sourceMap["database.path"].Source)
		assert.Equal(t, "/home/user/.measure/am.toml", sourceMap["pipeline.workers"].Path)
	})

	t.Run("Arrays are leaves", func(t *testing.T) {
		settings := map[string]interface{}{
			"grammar": map[string]interface{}{
				"unit_aliases": []interface{}{
					map[string]interface{}{"alias": "zoll", "unit": "in"},
				},
			},
		}

		sourceMap := make(map[string]SourceInfo)
		markSettingsFromSource(settings, "", SourceProject, "/project/am.toml", sourceMap)

		info, exists := sourceMap["grammar.unit_aliases"]
		assert.True(t, exists)
		assert.Equal(t, SourceProject, info.Source)
	})
}

func TestFlattenSettingsWithSources(t *testing.T) {
	settings := map[string]interface{}{
		"pipeline": map[string]interface{}{
			"workers":   1,
			"page_size": 200,
		},
		"log": map[string]interface{}{
			"theme": "gruvbox",
		},
	}
	sourceMap := map[string]SourceInfo{
		"log.theme": {Source: SourceUser, Path: "/home/user/.measure/am.toml"},
	}
	t.Setenv("MEASURE_PIPELINE_WORKERS", "8")

	introspection := &ConfigIntrospection{}
	flattenSettingsWithSources(settings, "", introspection, sourceMap)

	require.Len(t, introspection.Settings, 3)
	byKey := map[string]SettingInfo{}
	var keys []string
	for _, s := range introspection.Settings {
		byKey[s.Key] = s
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{"log.theme", "pipeline.page_size", "pipeline.workers"}, keys, "sorted by key")

	assert.Equal(t, SourceUser, byKey["log.theme"].Source)
	assert.Equal(t, SourceDefault, byKey["pipeline.page_size"].Source)
	assert.Equal(t, "built-in default", byKey["pipeline.page_size"].SourcePath)
	assert.Equal(t, SourceEnvironment, byKey["pipeline.workers"].Source)
	assert.Equal(t, "MEASURE_PIPELINE_WORKERS", byKey["pipeline.workers"].SourcePath)
}

func TestGetConfigIntrospection(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEASURE_PIPELINE_PAGE_SIZE", "25")

	introspection := GetConfigIntrospection()
	var found bool
	for _, s := range introspection.Settings {
		if s.Key == "pipeline.page_size" {
			found = true
			assert.Equal(t, SourceEnvironment, s.Source)
		}
	}
	assert.True(t, found)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Pipeline.PageSize)
}
