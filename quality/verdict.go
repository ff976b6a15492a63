package quality

// Verdict is the current health gate for served entropy.
type Verdict uint8

// Verdicts, in order of degradation.
const (
	// Healthy means all recent quality windows passed.
	Healthy Verdict = iota
	// Degraded means at least one recent quality window failed.
	Degraded
	// Failed means the failure run length exceeded the limit or a
	// hardware signal forced a failure. Failed is sticky: it is only
	// cleared by a source-switch acknowledgment, not by a single passing
	// window, to avoid flapping.
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
