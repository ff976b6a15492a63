package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerTestOptions(t *testing.T) {
	t.Helper()

	require.NoError(t, Register(&Option{
		Name:            "Test String",
		Key:             "test/string",
		Description:     "a string option",
		OptType:         OptTypeString,
		ExpertiseLevel:  ExpertiseLevelUser,
		DefaultValue:    "default",
		ValidationRegex: "^[a-z]+$",
	}))
	require.NoError(t, Register(&Option{
		Name:           "Test Int",
		Key:            "test/int",
		Description:    "an int option",
		OptType:        OptTypeInt,
		ExpertiseLevel: ExpertiseLevelExpert,
		DefaultValue:   42,
	}))
	require.NoError(t, Register(&Option{
		Name:           "Test Bool",
		Key:            "test/bool",
		Description:    "a bool option",
		OptType:        OptTypeBool,
		ExpertiseLevel: ExpertiseLevelExpert,
		DefaultValue:   false,
	}))
}

func TestRegisterValidation(t *testing.T) {
	assert.Error(t, Register(&Option{Key: "test/unnamed", OptType: OptTypeString}))
	assert.Error(t, Register(&Option{Name: "No Key", OptType: OptTypeString}))
	assert.Error(t, Register(&Option{Name: "No Type", Key: "test/untyped"}))

	// broken validation regex
	assert.Error(t, Register(&Option{
		Name:            "Broken Regex",
		Key:             "test/broken",
		OptType:         OptTypeString,
		DefaultValue:    "x",
		ValidationRegex: "[",
	}))

	// default value must satisfy the regex
	assert.Error(t, Register(&Option{
		Name:            "Bad Default",
		Key:             "test/baddefault",
		OptType:         OptTypeString,
		DefaultValue:    "UPPER",
		ValidationRegex: "^[a-z]+$",
	}))
}

func TestGettersAndSet(t *testing.T) {
	registerTestOptions(t)

	stringValue := GetAsString("test/string", "fallback")
	intValue := GetAsInt("test/int", 0)
	boolValue := GetAsBool("test/bool", true)

	// defaults
	assert.Equal(t, "default", stringValue())
	assert.Equal(t, int64(42), intValue())
	assert.Equal(t, false, boolValue())

	// setting a value invalidates handed-out getters
	require.NoError(t, SetConfigOption("test/string", "changed"))
	require.NoError(t, SetConfigOption("test/int", 7))
	assert.Equal(t, "changed", stringValue())
	assert.Equal(t, int64(7), intValue())

	// invalid values are rejected and leave the active value untouched
	assert.Error(t, SetConfigOption("test/string", "NOT LOWERCASE"))
	assert.Error(t, SetConfigOption("test/string", 23))
	assert.Error(t, SetConfigOption("test/bool", "yes"))
	assert.Equal(t, "changed", stringValue())

	// unknown keys are rejected
	assert.Error(t, SetConfigOption("test/missing", "x"))
	assert.Error(t, ResetConfigOption("test/missing"))

	// reset reverts to the default
	require.NoError(t, ResetConfigOption("test/string"))
	assert.Equal(t, "default", stringValue())
}

func TestGetterFallback(t *testing.T) {
	// unregistered options fall back
	assert.Equal(t, "fb", GetAsString("test/nonexistent", "fb")())
	assert.Equal(t, int64(9), GetAsInt("test/nonexistent", 9)())
	assert.Equal(t, true, GetAsBool("test/nonexistent", true)())
	assert.Equal(t, 1.5, GetAsFloat("test/nonexistent", 1.5)())
}
