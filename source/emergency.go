package source

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/tevino/abool"

	"github.com/quantumrand/entropyd/alerts"
	"github.com/quantumrand/entropyd/log"
)

// Alert IDs raised by the emergency reserve.
const (
	AlertReserveLowWater  = "source:reserve-low-water"
	AlertReserveExhausted = "source:reserve-exhausted"
)

// reserveFile is the on-disk format of the emergency reserve. The file is
// written by an out-of-band provisioning step and read-only at startup.
type reserveFile struct {
	Created       time.Time `cbor:"1,keyasint"`
	LowWaterBytes int       `cbor:"2,keyasint"`
	Pool          []byte    `cbor:"3,keyasint"`
}

// EmergencySource serves from a finite pre-generated byte pool. It is the
// last resort when both the hardware and the os paths are unusable, and
// its depletion is itself a signal of sustained failure: crossing the
// low-water mark raises an operator alert exactly once, and the pool is
// never replenished without an explicit refill.
type EmergencySource struct {
	mu       sync.Mutex
	pool     []byte
	offset   int
	lowWater int

	lowWaterRaised *abool.AtomicBool
}

// NewEmergencySource returns an emergency source over the given pool.
func NewEmergencySource(pool []byte, lowWaterBytes int) *EmergencySource {
	return &EmergencySource{
		pool:           pool,
		lowWater:       lowWaterBytes,
		lowWaterRaised: abool.NewBool(false),
	}
}

// LoadEmergencyReserve reads a cbor reserve file from disk. A low-water
// mark in the file takes precedence over the configured fallback.
func LoadEmergencyReserve(path string, fallbackLowWater int) (*EmergencySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read emergency reserve %s: %w", path, err)
	}

	var file reserveFile
	if err := cbor.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cannot decode emergency reserve %s: %w", path, err)
	}

	lowWater := file.LowWaterBytes
	if lowWater <= 0 {
		lowWater = fallbackLowWater
	}

	log.Infof("source: loaded emergency reserve of %d bytes (created %s)", len(file.Pool), file.Created.Format(time.RFC3339))
	return NewEmergencySource(file.Pool, lowWater), nil
}

// Type implements Source.
func (s *EmergencySource) Type() Type {
	return Emergency
}

// Harvest consumes up to max bytes from the reserve pool.
func (s *EmergencySource) Harvest(max int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := len(s.pool) - s.offset
	if remaining == 0 {
		if !alerts.IsActive(AlertReserveExhausted) {
			alerts.Raise(AlertReserveExhausted, "Emergency Reserve Exhausted",
				"the emergency entropy reserve is empty, no entropy can be served")
		}
		return nil, ErrReserveExhausted
	}

	take := max
	if take > remaining {
		take = remaining
	}

	out := make([]byte, take)
	copy(out, s.pool[s.offset:s.offset+take])
	s.offset += take

	if len(s.pool)-s.offset < s.lowWater && s.lowWaterRaised.SetToIf(false, true) {
		alerts.Raise(AlertReserveLowWater, "Emergency Reserve Low",
			fmt.Sprintf("emergency entropy reserve below low-water mark: %d bytes remaining", len(s.pool)-s.offset))
	}

	return out, nil
}

// Remaining returns the unconsumed reserve size in bytes.
func (s *EmergencySource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pool) - s.offset
}

// Refill replaces the reserve pool. This is an explicit administrative
// action; it re-arms the low-water latch and resolves the reserve alerts.
func (s *EmergencySource) Refill(pool []byte) {
	s.mu.Lock()
	s.pool = pool
	s.offset = 0
	s.mu.Unlock()

	s.lowWaterRaised.UnSet()
	alerts.Resolve(AlertReserveLowWater)
	alerts.Resolve(AlertReserveExhausted)
	log.Infof("source: emergency reserve refilled with %d bytes", len(pool))
}
