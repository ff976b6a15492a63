package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quantumrand/entropyd/log"
	"github.com/quantumrand/entropyd/metrics"
)

const apiV1Path = "/api/v1"

// enrichedResponseWriter remembers the status code for request logging.
type enrichedResponseWriter struct {
	http.ResponseWriter
	status int
}

func (ew *enrichedResponseWriter) WriteHeader(code int) {
	ew.status = code
	ew.ResponseWriter.WriteHeader(code)
}

// requestLogger is a logging middleware.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ew := &enrichedResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ew, r)
		log.Infof("api request: %s %d %s", r.RemoteAddr, ew.status, r.RequestURI)
	})
}

func buildRouter() http.Handler {
	router := mux.NewRouter()
	v1 := router.PathPrefix(apiV1Path).Subrouter()

	v1.HandleFunc("/", rootHandler).Methods(http.MethodGet)
	v1.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	v1.HandleFunc("/random/bytes", bytesHandler).Methods(http.MethodGet)
	v1.HandleFunc("/random/int", integersHandler).Methods(http.MethodGet)
	v1.HandleFunc("/random/uuid", uuidHandler).Methods(http.MethodGet)
	v1.HandleFunc("/random/password", passwordHandler).Methods(http.MethodGet)
	v1.HandleFunc("/random/key", keyHandler).Methods(http.MethodGet)
	v1.HandleFunc("/device/info", deviceInfoHandler).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	router.Use(requestLogger)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warningf("api: failed to write response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}
