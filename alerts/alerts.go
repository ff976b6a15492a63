// Package alerts keeps an in-memory registry of operator-visible alert
// conditions. Alerts are raised by components that detect a sustained
// problem (reserve depletion, source failover) and are exposed through the
// health endpoint until resolved.
package alerts

import (
	"sort"
	"sync"
	"time"

	"github.com/quantumrand/entropyd/log"
)

// Alert is a single operator-visible condition.
type Alert struct {
	ID      string
	Title   string
	Message string
	Created time.Time
	Count   uint64
}

var (
	registryLock sync.Mutex
	registry     = make(map[string]*Alert)
)

// Raise raises the alert with the given ID, or bumps its counter if it is
// already active. Only the first raise of an active alert is logged.
func Raise(id, title, message string) {
	registryLock.Lock()
	defer registryLock.Unlock()

	if active, ok := registry[id]; ok {
		active.Count++
		active.Message = message
		return
	}

	registry[id] = &Alert{
		ID:      id,
		Title:   title,
		Message: message,
		Created: time.Now(),
		Count:   1,
	}
	log.Warningf("alerts: %s: %s", title, message)
}

// Resolve removes an active alert. Resolving an unknown ID is a no-op.
func Resolve(id string) {
	registryLock.Lock()
	defer registryLock.Unlock()

	if _, ok := registry[id]; ok {
		delete(registry, id)
		log.Infof("alerts: resolved %s", id)
	}
}

// IsActive returns whether the alert with the given ID is active.
func IsActive(id string) bool {
	registryLock.Lock()
	defer registryLock.Unlock()

	_, ok := registry[id]
	return ok
}

// List returns all active alerts, oldest first.
func List() []Alert {
	registryLock.Lock()
	defer registryLock.Unlock()

	list := make([]Alert, 0, len(registry))
	for _, active := range registry {
		list = append(list, *active)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Created.Before(list[j].Created)
	})
	return list
}
