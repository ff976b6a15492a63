package feeder

import (
	"github.com/quantumrand/entropyd/entropy"
	"github.com/quantumrand/entropyd/metrics"
	"github.com/quantumrand/entropyd/quality"
	"github.com/quantumrand/entropyd/source"
)

// Claim atomically reserves up to max corrected bytes from the ring
// buffer. This is the only way entropy leaves the pipeline, so every
// consumer inherits the quality gate.
func Claim(max int) ([]byte, error) {
	data, err := buffer.Claim(max)
	if err != nil {
		return nil, err
	}
	metrics.ServedBytes.Add(len(data))
	return data, nil
}

// BufferStats returns the available and total capacity of the ring buffer
// in bytes.
func BufferStats() (available, capacity int) {
	return buffer.Available(), buffer.Capacity()
}

// ActiveSource returns the provider type currently bound as producer.
func ActiveSource() source.Type {
	return sel.activeType()
}

// Verdict returns the current health verdict.
func Verdict() quality.Verdict {
	return monitor.Verdict()
}

// FailureCount returns the monotonic count of failed quality tests.
func FailureCount() uint64 {
	return monitor.FailureCount()
}

// ActiveCorrection returns the bias correction algorithm applied on the
// producer path.
func ActiveCorrection() entropy.Correction {
	return correction
}

// DeviceInfo returns the hardware device identity. It is only meaningful
// while the hardware source is active; otherwise an error reports the
// absence.
func DeviceInfo() (source.DeviceInfo, error) {
	if sel.activeType() != source.Hardware {
		return source.DeviceInfo{}, source.ErrSourceUnavailable
	}
	return hardware.Info()
}

// ReserveRemaining returns the remaining emergency reserve bytes, or -1 if
// no reserve is configured.
func ReserveRemaining() int {
	if emergency == nil {
		return -1
	}
	return emergency.Remaining()
}

// RefillReserve replaces the emergency reserve pool. Administrative action.
func RefillReserve(pool []byte) bool {
	if emergency == nil {
		return false
	}
	emergency.Refill(pool)
	return true
}
