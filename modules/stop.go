package modules

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/tevino/abool"

	"github.com/quantumrand/entropyd/log"
)

var shutdownFlag = abool.NewBool(false)

// IsShuttingDown returns whether the global shutdown is in progress.
func IsShuttingDown() bool {
	return shutdownFlag.IsSet()
}

// Shutdown stops all modules in reverse dependency order.
func Shutdown() error {
	if !shutdownFlag.SetToIf(false, true) {
		return nil
	}

	modulesLock.RLock()
	defer modulesLock.RUnlock()

	log.Warning("modules: shutting down...")

	var stopErrs *multierror.Error
	stopped := 0
	total := 0
	for _, m := range modules {
		if m.Started.IsSet() {
			total++
		}
	}

	for stopped < total {
		progressed := false
		for _, m := range modules {
			if m.readyToStop() {
				log.Infof("modules: stopping %s", m.Name)
				err := m.shutdown()
				if err != nil {
					stopErrs = multierror.Append(stopErrs, fmt.Errorf("failed to stop module %s: %w", m.Name, err))
				}
				m.Stopped.Set()
				stopped++
				progressed = true
			}
		}
		if !progressed {
			stopErrs = multierror.Append(stopErrs, fmt.Errorf("modules: dependency cycle detected while stopping"))
			break
		}
	}

	log.Info("modules: shutdown complete")
	log.Shutdown()
	return stopErrs.ErrorOrNil()
}
