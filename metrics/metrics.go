// Package metrics exposes the service's operational metrics in Prometheus
// text format, backed by VictoriaMetrics' default set.
package metrics

import (
	"io"

	vm "github.com/VictoriaMetrics/metrics"
)

// Counters updated by the entropy pipeline.
var (
	// HarvestedBytes counts corrected bytes written into the ring buffer.
	HarvestedBytes = vm.NewCounter("entropyd_harvested_bytes_total")

	// ServedBytes counts bytes claimed by consumers.
	ServedBytes = vm.NewCounter("entropyd_served_bytes_total")

	// SourceSwitches counts entropy source transitions.
	SourceSwitches = vm.NewCounter("entropyd_source_switches_total")

	// QualityFailures counts failed statistical quality tests.
	QualityFailures = vm.NewCounter("entropyd_quality_failures_total")

	// RequestsServed counts satisfied randomness requests.
	RequestsServed = vm.NewCounter("entropyd_requests_served_total")

	// RequestsFailed counts randomness requests that failed with
	// EntropyUnavailable.
	RequestsFailed = vm.NewCounter("entropyd_requests_failed_total")
)

// RegisterBufferGauges registers gauges for the ring buffer fill state.
func RegisterBufferGauges(available, capacity func() float64) {
	vm.NewGauge("entropyd_buffer_available_bytes", available)
	vm.NewGauge("entropyd_buffer_capacity_bytes", capacity)
}

// RegisterVerdictGauge registers a gauge with the numeric health verdict
// (0 healthy, 1 degraded, 2 failed).
func RegisterVerdictGauge(verdict func() float64) {
	vm.NewGauge("entropyd_health_verdict", verdict)
}

// RegisterReserveGauge registers a gauge with the remaining emergency
// reserve bytes.
func RegisterReserveGauge(remaining func() float64) {
	vm.NewGauge("entropyd_reserve_remaining_bytes", remaining)
}

// WritePrometheus writes all metrics, including process metrics, in
// Prometheus text format.
func WritePrometheus(w io.Writer) {
	vm.WritePrometheus(w, true)
}
