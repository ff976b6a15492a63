package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumrand/entropyd/alerts"
)

func clearReserveAlerts() {
	alerts.Resolve(AlertReserveLowWater)
	alerts.Resolve(AlertReserveExhausted)
}

func TestEmergencyHarvest(t *testing.T) {
	clearReserveAlerts()
	defer clearReserveAlerts()

	pool := make([]byte, 64)
	for i := range pool {
		pool[i] = byte(i)
	}
	s := NewEmergencySource(pool, 16)

	assert.Equal(t, Emergency, s.Type())
	assert.Equal(t, 64, s.Remaining())

	chunk, err := s.Harvest(32)
	assert.NoError(t, err)
	assert.Equal(t, pool[:32], chunk)
	assert.Equal(t, 32, s.Remaining())
	assert.False(t, alerts.IsActive(AlertReserveLowWater))

	// an oversized harvest drains the rest
	chunk, err = s.Harvest(100)
	assert.NoError(t, err)
	assert.Equal(t, pool[32:], chunk)
	assert.Equal(t, 0, s.Remaining())
	assert.True(t, alerts.IsActive(AlertReserveLowWater))

	_, err = s.Harvest(1)
	assert.ErrorIs(t, err, ErrReserveExhausted)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.True(t, alerts.IsActive(AlertReserveExhausted))
}

func TestEmergencyLowWaterLatch(t *testing.T) {
	clearReserveAlerts()
	defer clearReserveAlerts()

	s := NewEmergencySource(make([]byte, 32), 24)

	// crossing the mark raises the alert once
	_, err := s.Harvest(16)
	assert.NoError(t, err)
	assert.True(t, alerts.IsActive(AlertReserveLowWater))
	raised := alerts.List()
	require.Len(t, raised, 1)
	assert.Equal(t, uint64(1), raised[0].Count)

	// further harvests below the mark do not re-raise
	_, err = s.Harvest(8)
	assert.NoError(t, err)
	raised = alerts.List()
	require.Len(t, raised, 1)
	assert.Equal(t, uint64(1), raised[0].Count)

	// a refill resolves the alerts and re-arms the latch
	s.Refill(make([]byte, 32))
	assert.False(t, alerts.IsActive(AlertReserveLowWater))
	assert.Equal(t, 32, s.Remaining())

	_, err = s.Harvest(16)
	assert.NoError(t, err)
	assert.True(t, alerts.IsActive(AlertReserveLowWater))
}

func TestLoadEmergencyReserve(t *testing.T) {
	clearReserveAlerts()
	defer clearReserveAlerts()

	pool := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	data, err := cbor.Marshal(reserveFile{
		Created:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		LowWaterBytes: 2,
		Pool:          pool,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reserve.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	s, err := LoadEmergencyReserve(path, 1024)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Remaining())
	// the file's low-water mark wins over the fallback
	assert.Equal(t, 2, s.lowWater)

	chunk, err := s.Harvest(4)
	assert.NoError(t, err)
	assert.Equal(t, pool, chunk)
}

func TestLoadEmergencyReserveErrors(t *testing.T) {
	_, err := LoadEmergencyReserve(filepath.Join(t.TempDir(), "missing.bin"), 16)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.bin")
	require.NoError(t, os.WriteFile(path, []byte("not cbor at all"), 0o600))
	_, err = LoadEmergencyReserve(path, 16)
	assert.Error(t, err)

	// a file without its own mark falls back to the configured one
	data, err := cbor.Marshal(reserveFile{Pool: make([]byte, 8)})
	require.NoError(t, err)
	path = filepath.Join(t.TempDir(), "nomark.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	s, err := LoadEmergencyReserve(path, 16)
	require.NoError(t, err)
	assert.Equal(t, 16, s.lowWater)
}

func TestErrReserveExhaustedWrapping(t *testing.T) {
	assert.True(t, errors.Is(ErrReserveExhausted, ErrSourceUnavailable))
}
