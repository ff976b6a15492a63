package feeder

import (
	"sync"
	"sync/atomic"

	"github.com/quantumrand/entropyd/alerts"
	"github.com/quantumrand/entropyd/log"
	"github.com/quantumrand/entropyd/metrics"
	"github.com/quantumrand/entropyd/quality"
	"github.com/quantumrand/entropyd/source"
)

// AlertFallbackActive is raised while a non-hardware source feeds the buffer.
const AlertFallbackActive = "feeder:fallback-active"

// selector binds one of the registered providers as buffer producer. The
// harvester reads the active provider once per cycle, so a transition
// takes effect between harvest cycles and never mid-write.
type selector struct {
	mu      sync.Mutex
	active  atomic.Uint32 // source.Type
	sources map[source.Type]source.Source
	monitor *quality.Monitor

	// harvestFails counts consecutive hardware harvest failures against
	// the retry budget. Bumped by the harvester, reset by any committed
	// transition, which may come from another worker.
	harvestFails atomic.Int64
}

func newSelector(monitor *quality.Monitor, sources ...source.Source) *selector {
	s := &selector{
		sources: make(map[source.Type]source.Source, len(sources)),
		monitor: monitor,
	}
	for _, src := range sources {
		s.sources[src.Type()] = src
	}
	s.active.Store(uint32(source.Hardware))
	return s
}

// activeSource returns the provider currently bound as producer.
func (s *selector) activeSource() source.Source {
	return s.sources[s.activeType()]
}

func (s *selector) activeType() source.Type {
	return source.Type(s.active.Load())
}

func (s *selector) get(t source.Type) (source.Source, bool) {
	src, ok := s.sources[t]
	return src, ok
}

// transition switches the active provider. Every transition is logged with
// its reason and acknowledged to the quality monitor, so a sticky Failed
// verdict never outlives the source that caused it.
func (s *selector) transition(to source.Type, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.activeType()
	if from == to {
		return false
	}
	if _, ok := s.sources[to]; !ok {
		log.Criticalf("feeder: cannot switch to %s: no such provider configured (%s)", to, reason)
		return false
	}

	s.active.Store(uint32(to))
	s.harvestFails.Store(0)
	s.monitor.AcknowledgeSwitch()
	metrics.SourceSwitches.Inc()
	log.Warningf("feeder: switched entropy source %s -> %s: %s", from, to, reason)

	if to == source.Hardware {
		alerts.Resolve(AlertFallbackActive)
	} else {
		alerts.Raise(AlertFallbackActive, "Fallback Entropy Source Active",
			"serving from "+to.String()+" source: "+reason)
	}
	return true
}
