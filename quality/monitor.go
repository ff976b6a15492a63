package quality

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the monitor's test parameters.
type Config struct {
	// SampleBytes is the window size for statistical tests.
	SampleBytes int

	// ChiSquareThreshold fails a window when exceeded. With 255 degrees
	// of freedom, 330 corresponds to roughly p = 0.001.
	ChiSquareThreshold float64

	// AutocorrelationLimit fails a window when the absolute lag-1
	// autocorrelation exceeds it.
	AutocorrelationLimit float64

	// FailedWindows is the number of consecutive failed windows after
	// which Degraded escalates to Failed.
	FailedWindows int
}

// Result is the outcome of evaluating one quality window.
type Result struct {
	ChiSquare       float64
	Autocorrelation float64
	Verdict         Verdict
	Timestamp       time.Time

	// Err names the failed test, nil for a passing window.
	Err error

	// Skipped is set when not enough fresh bytes were available to
	// evaluate a window.
	Skipped bool
}

// Monitor maintains a rolling sample window of produced bytes and the
// health verdict derived from it. The producer feeds it via Observe; the
// verdict is evaluated on a fixed cadence by the caller. Only the monitor
// mutates the verdict.
type Monitor struct {
	cfg Config

	verdict  atomic.Uint32
	failures atomic.Uint64 // monotonic failure counter

	mu         sync.Mutex
	window     []byte
	freshBytes int
	failRun    int // consecutive failed windows
}

// NewMonitor returns a monitor with the given test parameters.
func NewMonitor(cfg Config) *Monitor {
	return &Monitor{
		cfg:    cfg,
		window: make([]byte, 0, cfg.SampleBytes),
	}
}

// Observe feeds produced bytes into the rolling sample window. It copies
// the chunk, the caller keeps ownership. Observe never removes bytes from
// consumer availability: the monitor taps the producer path instead of
// draining the buffer.
func (m *Monitor) Observe(chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.window = append(m.window, chunk...)
	if overflow := len(m.window) - m.cfg.SampleBytes; overflow > 0 {
		m.window = m.window[overflow:]
	}
	m.freshBytes += len(chunk)
}

// Verdict returns the current health verdict.
func (m *Monitor) Verdict() Verdict {
	return Verdict(m.verdict.Load())
}

// FailureCount returns the monotonic count of failed quality tests.
func (m *Monitor) FailureCount() uint64 {
	return m.failures.Load()
}

// Evaluate runs the statistical tests over the current window and applies
// the verdict transition policy. Windows without enough fresh bytes since
// the last evaluation are skipped so that a stalled producer does not
// repeatedly re-judge the same bytes.
func (m *Monitor) Evaluate() Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.window) < m.cfg.SampleBytes || m.freshBytes == 0 {
		return Result{Verdict: m.Verdict(), Timestamp: time.Now(), Skipped: true}
	}

	sample := make([]byte, len(m.window))
	copy(sample, m.window)
	m.freshBytes = 0

	result := Result{
		ChiSquare:       ChiSquare(sample),
		Autocorrelation: Autocorrelation(sample, 1),
		Timestamp:       time.Now(),
	}

	switch {
	case result.ChiSquare > m.cfg.ChiSquareThreshold:
		result.Err = fmt.Errorf("%w: chi-square %.2f exceeds threshold %.2f", ErrQuality, result.ChiSquare, m.cfg.ChiSquareThreshold)
	case abs(result.Autocorrelation) > m.cfg.AutocorrelationLimit:
		result.Err = fmt.Errorf("%w: autocorrelation %.4f exceeds limit %.4f", ErrCorrelation, result.Autocorrelation, m.cfg.AutocorrelationLimit)
	}

	m.applyWindow(result.Err != nil)
	result.Verdict = m.Verdict()
	return result
}

// TestSample runs the statistical tests over a standalone sample without
// touching monitor state. Used to confirm quality of a fresh sample before
// committing a source switch.
func (m *Monitor) TestSample(sample []byte) error {
	if len(sample) < m.cfg.SampleBytes {
		return fmt.Errorf("%w: sample of %d bytes is too small for a verdict", ErrQuality, len(sample))
	}
	if chi := ChiSquare(sample); chi > m.cfg.ChiSquareThreshold {
		return fmt.Errorf("%w: chi-square %.2f exceeds threshold %.2f", ErrQuality, chi, m.cfg.ChiSquareThreshold)
	}
	if coefficient := Autocorrelation(sample, 1); abs(coefficient) > m.cfg.AutocorrelationLimit {
		return fmt.Errorf("%w: autocorrelation %.4f exceeds limit %.4f", ErrCorrelation, coefficient, m.cfg.AutocorrelationLimit)
	}
	return nil
}

// ForceFailed sets the verdict to Failed regardless of statistics. Used
// for non-statistical faults such as tamper or environmental signals.
func (m *Monitor) ForceFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures.Add(1)
	m.failRun = m.cfg.FailedWindows
	m.verdict.Store(uint32(Failed))
}

// AcknowledgeSwitch clears a sticky Failed verdict after a source switch
// and resets the window so the new source is judged on its own bytes.
func (m *Monitor) AcknowledgeSwitch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.window = m.window[:0]
	m.freshBytes = 0
	m.failRun = 0
	m.verdict.Store(uint32(Healthy))
}

// applyWindow applies the transition policy for one evaluated window.
// Caller must hold m.mu.
func (m *Monitor) applyWindow(failed bool) {
	current := m.Verdict()

	if !failed {
		m.failRun = 0
		// a fully passing window restores Healthy from Degraded, but a
		// Failed verdict requires a switch acknowledgment
		if current == Degraded {
			m.verdict.Store(uint32(Healthy))
		}
		return
	}

	m.failures.Add(1)
	m.failRun++

	switch current {
	case Healthy:
		m.verdict.Store(uint32(Degraded))
	case Degraded:
		if m.failRun >= m.cfg.FailedWindows {
			m.verdict.Store(uint32(Failed))
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
