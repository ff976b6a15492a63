package config

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/tevino/abool"
)

var (
	optionsLock sync.RWMutex
	options     = make(map[string]*Option)

	// validityFlag is set on all getter closures handed out and gets
	// replaced whenever a value changes, invalidating cached values.
	validityFlag     = abool.NewBool(true)
	validityFlagLock sync.RWMutex

	// ErrInvalidOption is returned when an option is malformed.
	ErrInvalidOption = errors.New("invalid option")
)

// Register registers a new configuration option. It may only be called
// during a module's prep phase.
func Register(option *Option) error {
	if option.Name == "" {
		return fmt.Errorf("%w: name must be set", ErrInvalidOption)
	}
	if option.Key == "" {
		return fmt.Errorf("%w: key must be set", ErrInvalidOption)
	}
	if option.OptType == 0 {
		return fmt.Errorf("%w: type must be set", ErrInvalidOption)
	}

	if option.ValidationRegex != "" {
		var err error
		option.compiledRegex, err = regexp.Compile(option.ValidationRegex)
		if err != nil {
			return fmt.Errorf("%w: validation regex of %s does not compile: %s", ErrInvalidOption, option.Key, err)
		}
	}

	if err := option.validate(option.DefaultValue); err != nil {
		return fmt.Errorf("%w: invalid default value: %s", ErrInvalidOption, err)
	}

	optionsLock.Lock()
	defer optionsLock.Unlock()
	options[option.Key] = option
	return nil
}

func getValidityFlag() *abool.AtomicBool {
	validityFlagLock.RLock()
	defer validityFlagLock.RUnlock()
	return validityFlag
}

func resetValidityFlag() {
	validityFlagLock.Lock()
	defer validityFlagLock.Unlock()
	validityFlag.UnSet()
	validityFlag = abool.NewBool(true)
}

func getOption(key string) (*Option, bool) {
	optionsLock.RLock()
	defer optionsLock.RUnlock()
	option, ok := options[key]
	return option, ok
}
