package config

import (
	"fmt"
)

// SetConfigOption sets a value for the option with the given key. All
// getter closures handed out for the key are refreshed.
func SetConfigOption(key string, value interface{}) error {
	option, ok := getOption(key)
	if !ok {
		return fmt.Errorf("config: option %s does not exist", key)
	}

	if err := option.validate(value); err != nil {
		return err
	}

	option.Lock()
	option.activeValue = value
	option.Unlock()

	resetValidityFlag()
	return nil
}

// ResetConfigOption removes the set value of an option, reverting it to
// its default.
func ResetConfigOption(key string) error {
	option, ok := getOption(key)
	if !ok {
		return fmt.Errorf("config: option %s does not exist", key)
	}

	option.Lock()
	option.activeValue = nil
	option.Unlock()

	resetValidityFlag()
	return nil
}
