// Package source implements the entropy providers that can feed the ring
// buffer: the hardware quantum device, the operating system CSPRNG wrapped
// in a Fortuna generator, and the pre-generated emergency reserve.
package source

import (
	"errors"
	"fmt"
)

// Type tags the entropy provider currently bound as buffer producer.
type Type uint8

// Provider types, in fallback order.
const (
	Hardware Type = iota
	SystemRandom
	Emergency
)

func (t Type) String() string {
	switch t {
	case Hardware:
		return "hardware"
	case SystemRandom:
		return "system"
	case Emergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// Errors returned by sources.
var (
	// ErrSourceUnavailable means the source cannot currently produce
	// bytes. Recoverable, triggers selector evaluation.
	ErrSourceUnavailable = errors.New("entropy source unavailable")

	// ErrReserveExhausted means the emergency reserve is empty. Fatal for
	// the emergency path.
	ErrReserveExhausted = fmt.Errorf("%w: emergency reserve exhausted", ErrSourceUnavailable)
)

// Source produces raw entropy.
type Source interface {
	// Type returns the provider type tag.
	Type() Type

	// Harvest returns up to max bytes of raw entropy, or fails with an
	// error wrapping ErrSourceUnavailable.
	Harvest(max int) ([]byte, error)
}

// DeviceInfo describes the hardware device.
type DeviceInfo struct {
	Product string `json:"product"`
	Serial  string `json:"serial"`
	Version string `json:"version"`
}

// EnvironmentSignals are the auxiliary tamper/environmental readings of
// the hardware device. They are merged into the health verdict alongside
// the statistical tests, not instead of them.
type EnvironmentSignals struct {
	VoltageMillivolts int64
	TemperatureMilliC int64
	TamperDetected    bool
}
