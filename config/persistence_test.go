package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	require.NoError(t, Register(&Option{
		Name:           "Persisted String",
		Key:            "persist/string",
		Description:    "a string option",
		OptType:        OptTypeString,
		ExpertiseLevel: ExpertiseLevelUser,
		DefaultValue:   "default",
	}))
	require.NoError(t, Register(&Option{
		Name:           "Persisted Int",
		Key:            "persist/int",
		Description:    "an int option",
		OptType:        OptTypeInt,
		ExpertiseLevel: ExpertiseLevelUser,
		DefaultValue:   10,
	}))

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"persist/string": "loaded", "persist/int": 99, "persist/unknown": true}`,
	), 0o600))

	// unknown keys are logged and skipped, known ones applied
	require.NoError(t, loadConfigFile(path))
	assert.Equal(t, "loaded", GetAsString("persist/string", "")())
	assert.Equal(t, int64(99), GetAsInt("persist/int", 0)())

	// set values round-trip through the export
	exported, err := ExportActive()
	require.NoError(t, err)
	assert.Equal(t, "loaded", gjson.GetBytes(exported, "persist/string").String())
	assert.Equal(t, int64(99), gjson.GetBytes(exported, "persist/int").Int())

	require.NoError(t, ResetConfigOption("persist/string"))
	require.NoError(t, ResetConfigOption("persist/int"))
}

func TestLoadConfigFileErrors(t *testing.T) {
	err := loadConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, loadConfigFile(path))
}
