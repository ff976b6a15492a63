package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/quantumrand/entropyd/feeder"
	"github.com/quantumrand/entropyd/randomness"
	"github.com/quantumrand/entropyd/source"
)

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFromError(randomness.ErrInvalidRange))
	assert.Equal(t, http.StatusBadRequest, statusFromError(randomness.ErrInvalidParameter))
	assert.Equal(t, http.StatusBadRequest,
		statusFromError(fmt.Errorf("wrapped: %w", randomness.ErrInvalidParameter)))
	assert.Equal(t, http.StatusServiceUnavailable, statusFromError(randomness.ErrEntropyUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusFromError(errors.New("boom")))
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?count=42&flag=true&broken=4x2", nil)

	value, err := intQuery(r, "count", 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), value)

	// missing keys fall back
	value, err = intQuery(r, "missing", 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), value)

	_, err = intQuery(r, "broken", 7)
	assert.Error(t, err)

	assert.True(t, boolQuery(r, "flag", false))
	assert.False(t, boolQuery(r, "missing", false))
	assert.True(t, boolQuery(r, "missing", true))
	// unparseable values fall back instead of erroring
	assert.False(t, boolQuery(r, "broken", false))
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusTeapot, map[string]interface{}{"hello": "world"})

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, w.Body.String())
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusBadRequest, errors.New("bad count"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"bad count"}`, w.Body.String())
}

// TestDeviceInfoHandlerFailover checks that the cached device identity is
// never served while a fallback source is active: the response reports
// absence and the cache entry is dropped, not merely bypassed.
func TestDeviceInfoHandlerFailover(t *testing.T) {
	active := source.Hardware
	currentSource = func() source.Type { return active }
	readDeviceInfo = func() (source.DeviceInfo, error) {
		if active != source.Hardware {
			return source.DeviceInfo{}, source.ErrSourceUnavailable
		}
		return source.DeviceInfo{Product: "Quantis QRNG", Serial: "QX-1", Version: "2.0"}, nil
	}
	bufferStats = func() (int, int) { return 0, 64 }
	defer func() {
		currentSource = feeder.ActiveSource
		readDeviceInfo = feeder.DeviceInfo
		bufferStats = feeder.BufferStats
		deviceInfoCache.Purge()
	}()
	deviceInfoCache.Purge()

	request := func() string {
		w := httptest.NewRecorder()
		deviceInfoHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/device/info", nil))
		require.Equal(t, http.StatusOK, w.Code)
		return w.Body.String()
	}

	// hardware active: identity is served and cached
	body := request()
	assert.Equal(t, "Quantis QRNG", gjson.Get(body, "device.product").String())
	_, err := deviceInfoCache.Get("info")
	require.NoError(t, err)

	// failover: absence is reported even though the cache is still warm
	active = source.SystemRandom
	body = request()
	assert.Equal(t, gjson.Null, gjson.Get(body, "device").Type)
	assert.Equal(t, "system", gjson.Get(body, "activeSource").String())

	// and the stale entry is gone
	_, err = deviceInfoCache.Get("info")
	assert.Error(t, err)

	// recovery: identity is re-read fresh
	active = source.Hardware
	body = request()
	assert.Equal(t, "QX-1", gjson.Get(body, "device.serial").String())
}

func TestHealthHandlerBeforeStartCompletion(t *testing.T) {
	// the test binary never runs the module start sequence, so the
	// handler must answer with a starting status instead of touching
	// uninitialized pipeline state
	w := httptest.NewRecorder()
	healthHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "starting", gjson.Get(w.Body.String(), "status").String())
}
