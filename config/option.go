package config

import (
	"fmt"
	"regexp"
	"sync"
)

// Option type IDs.
const (
	OptTypeString uint8 = 1
	OptTypeInt    uint8 = 2
	OptTypeBool   uint8 = 3
	OptTypeFloat  uint8 = 4
)

// Expertise levels, for external presentation of options.
const (
	ExpertiseLevelUser      uint8 = 1
	ExpertiseLevelExpert    uint8 = 2
	ExpertiseLevelDeveloper uint8 = 3
)

func getTypeName(t uint8) string {
	switch t {
	case OptTypeString:
		return "string"
	case OptTypeInt:
		return "int"
	case OptTypeBool:
		return "bool"
	case OptTypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Option describes a configuration option.
type Option struct {
	sync.Mutex

	Name            string
	Key             string // category/key
	Description     string
	OptType         uint8
	ExpertiseLevel  uint8
	DefaultValue    interface{}
	ValidationRegex string

	compiledRegex *regexp.Regexp
	activeValue   interface{}
}

func (opt *Option) validate(value interface{}) error {
	switch opt.OptType {
	case OptTypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string value for %s", opt.Key)
		}
		if opt.compiledRegex != nil && !opt.compiledRegex.MatchString(s) {
			return fmt.Errorf("value %q for %s did not match validation regex", s, opt.Key)
		}
	case OptTypeInt:
		switch v := value.(type) {
		case int:
		case int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer value for %s", opt.Key)
			}
		default:
			return fmt.Errorf("expected int value for %s, got %T", opt.Key, value)
		}
		if opt.compiledRegex != nil && !opt.compiledRegex.MatchString(fmt.Sprintf("%v", value)) {
			return fmt.Errorf("value %v for %s did not match validation regex", value, opt.Key)
		}
	case OptTypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected bool value for %s, got %T", opt.Key, value)
		}
	case OptTypeFloat:
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("expected float value for %s, got %T", opt.Key, value)
		}
	default:
		return fmt.Errorf("option %s has invalid type %s", opt.Key, getTypeName(opt.OptType))
	}
	return nil
}
