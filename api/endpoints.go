package api

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bluele/gcache"

	"github.com/quantumrand/entropyd/alerts"
	"github.com/quantumrand/entropyd/feeder"
	"github.com/quantumrand/entropyd/info"
	"github.com/quantumrand/entropyd/modules"
	"github.com/quantumrand/entropyd/quality"
	"github.com/quantumrand/entropyd/randomness"
	"github.com/quantumrand/entropyd/source"
)

// deviceInfoCache avoids re-reading the device descriptor files on every
// request. Entropy itself is never cached.
var deviceInfoCache = gcache.New(1).LRU().Expiration(time.Minute).Build()

// Seams over the feeder facade, swapped in handler tests.
var (
	currentSource  = feeder.ActiveSource
	readDeviceInfo = feeder.DeviceInfo
	bufferStats    = feeder.BufferStats
)

func rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": info.Name(),
		"version": info.Version(),
		"endpoints": []string{
			apiV1Path + "/health",
			apiV1Path + "/random/bytes",
			apiV1Path + "/random/int",
			apiV1Path + "/random/uuid",
			apiV1Path + "/random/password",
			apiV1Path + "/random/key",
			apiV1Path + "/device/info",
		},
	})
}

// statusFromError maps facade errors to http status codes: invalid input
// is the caller's fault, missing entropy is a retryable service error.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, randomness.ErrInvalidRange),
		errors.Is(err, randomness.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, randomness.ErrEntropyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(r *http.Request, key string, fallback int64) (int64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseInt(value, 10, 64)
}

func boolQuery(r *http.Request, key string, fallback bool) bool {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func bytesHandler(w http.ResponseWriter, r *http.Request) {
	count, err := intQuery(r, "count", 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "hex"
	}

	data, err := randomness.Bytes(int(count))
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	var encoded string
	switch format {
	case "hex":
		encoded = hex.EncodeToString(data)
	case "base64":
		encoded = base64.StdEncoding.EncodeToString(data)
	case "raw":
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("X-Entropy-Source", feeder.ActiveSource().String())
		w.Header().Set("X-Entropy-Correction", feeder.ActiveCorrection().String())
		_, _ = w.Write(data)
		return
	default:
		writeError(w, http.StatusBadRequest, errors.New("invalid format, must be hex, base64 or raw"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bytes":      encoded,
		"count":      len(data),
		"format":     format,
		"correction": feeder.ActiveCorrection().String(),
		"source":     feeder.ActiveSource().String(),
	})
}

func integersHandler(w http.ResponseWriter, r *http.Request) {
	min, err := intQuery(r, "min", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	max, err := intQuery(r, "max", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	count, err := intQuery(r, "count", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	integers, err := randomness.Integers(min, max, int(count))
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"integers": integers,
		"min":      min,
		"max":      max,
		"count":    len(integers),
		"source":   feeder.ActiveSource().String(),
	})
}

func uuidHandler(w http.ResponseWriter, r *http.Request) {
	id, err := randomness.UUID()
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uuid":   id,
		"source": feeder.ActiveSource().String(),
	})
}

func passwordHandler(w http.ResponseWriter, r *http.Request) {
	length, err := intQuery(r, "length", 16)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	password, err := randomness.Password(int(length), randomness.PasswordOptions{
		Uppercase: boolQuery(r, "uppercase", true),
		Lowercase: boolQuery(r, "lowercase", true),
		Digits:    boolQuery(r, "digits", true),
		Symbols:   boolQuery(r, "symbols", false),
	})
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"password": password,
		"length":   len(password),
		"source":   feeder.ActiveSource().String(),
	})
}

func keyHandler(w http.ResponseWriter, r *http.Request) {
	bits, err := intQuery(r, "bits", 256)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key, err := randomness.Key(int(bits))
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":    hex.EncodeToString(key),
		"bits":   bits,
		"source": feeder.ActiveSource().String(),
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if !modules.StartCompleted() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "starting",
		})
		return
	}

	verdict := feeder.Verdict()
	available, capacity := feeder.BufferStats()

	activeAlerts := alerts.List()
	alertList := make([]map[string]interface{}, 0, len(activeAlerts))
	for _, alert := range activeAlerts {
		alertList = append(alertList, map[string]interface{}{
			"id":      alert.ID,
			"title":   alert.Title,
			"message": alert.Message,
			"since":   alert.Created,
		})
	}

	status := http.StatusOK
	if verdict == quality.Failed {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"status":               verdict.String(),
		"activeSource":         feeder.ActiveSource().String(),
		"bufferAvailableBytes": available,
		"bufferCapacityBytes":  capacity,
		"failureCount":         feeder.FailureCount(),
		"alerts":               alertList,
	})
}

func deviceInfoHandler(w http.ResponseWriter, r *http.Request) {
	// The identity is only meaningful while the hardware source feeds.
	// Checked before the cache: a cached identity must not outlive a
	// failover, so it is dropped here instead of aging out.
	if currentSource() != source.Hardware {
		deviceInfoCache.Remove("info")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"device":       nil,
			"activeSource": currentSource().String(),
		})
		return
	}

	var deviceInfo source.DeviceInfo
	if cached, err := deviceInfoCache.Get("info"); err == nil {
		deviceInfo = cached.(source.DeviceInfo)
	} else {
		deviceInfo, err = readDeviceInfo()
		if err != nil {
			if errors.Is(err, source.ErrSourceUnavailable) {
				writeJSON(w, http.StatusOK, map[string]interface{}{
					"device":       nil,
					"activeSource": currentSource().String(),
				})
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		_ = deviceInfoCache.Set("info", deviceInfo)
	}

	available, capacity := bufferStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device":               deviceInfo,
		"bufferAvailableBytes": available,
		"bufferCapacityBytes":  capacity,
	})
}
