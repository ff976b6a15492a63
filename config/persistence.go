package config

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/quantumrand/entropyd/log"
)

// loadConfigFile reads a flat json file of key/value pairs and applies all
// values to registered options. Keys use the registry's category/key form.
func loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("config: %s does not contain valid json", path)
	}

	applied := 0
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		err := SetConfigOption(key.String(), value.Value())
		if err != nil {
			// unknown or invalid entries are skipped, not fatal
			log.Warningf("config: ignoring %s from %s: %s", key.String(), path, err)
			return true
		}
		applied++
		return true
	})

	log.Infof("config: applied %d options from %s", applied, path)
	return nil
}

// ExportActive returns all set option values as a flat json document,
// suitable to be written back as a config file.
func ExportActive() ([]byte, error) {
	optionsLock.RLock()
	defer optionsLock.RUnlock()

	data := []byte("{}")
	var err error
	for key, option := range options {
		option.Lock()
		value := option.activeValue
		option.Unlock()
		if value == nil {
			continue
		}
		data, err = sjson.SetBytes(data, key, value)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
