// Package config holds the option registry for all entropyd modules.
// Options are registered during prep, validated against a regex and served
// through cached getter closures that refresh when a value changes.
package config

import (
	"flag"
	"os"

	"github.com/quantumrand/entropyd/modules"
)

var configFilePath string

func init() {
	modules.Register("config", prep, start, nil)

	flag.StringVar(&configFilePath, "config", "", "path to the configuration file (json)")
}

func prep() error {
	return nil
}

func start() error {
	if configFilePath == "" {
		return nil
	}

	err := loadConfigFile(configFilePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
