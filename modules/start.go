package modules

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/tevino/abool"

	"github.com/quantumrand/entropyd/log"
)

var (
	flagsParsed = abool.NewBool(false)

	startComplete       = abool.NewBool(false)
	startCompleteSignal = make(chan struct{})
)

// StartCompleted returns whether starting has completed.
func StartCompleted() bool {
	return startComplete.IsSet()
}

// WaitForStartCompletion returns as soon as starting has completed.
func WaitForStartCompletion() <-chan struct{} {
	return startCompleteSignal
}

// Start starts all modules in dependency order. In case of an error, it
// will automatically shut down again.
func Start() error {
	modulesLock.RLock()
	defer modulesLock.RUnlock()

	if flagsParsed.SetToIf(false, true) && !flag.Parsed() {
		flag.Parse()
	}

	err := initDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: failed to initialize modules: %s\n", err)
		return err
	}

	err = prepareModules()
	if err != nil {
		if !errors.Is(err, ErrCleanExit) {
			fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %s\n", err)
		}
		return err
	}

	err = log.Start()
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: failed to start logging: %s\n", err)
		return err
	}

	log.Info("modules: initiating...")
	err = startModules()
	if err != nil {
		log.Critical(err.Error())
		return err
	}

	log.Infof("modules: started %d modules", len(modules))
	if startComplete.SetToIf(false, true) {
		close(startCompleteSignal)
	}
	return nil
}

func prepareModules() error {
	var prepErrs *multierror.Error
	reports := 0

	for reports < len(modules) {
		progressed := false
		for _, m := range modules {
			if m.readyToPrep() {
				err := m.prep()
				if err != nil {
					prepErrs = multierror.Append(prepErrs, fmt.Errorf("failed to prep module %s: %w", m.Name, err))
				}
				m.Prepped.Set()
				reports++
				progressed = true
			}
		}
		if !progressed {
			return fmt.Errorf("modules: dependency cycle detected while prepping")
		}
	}

	return prepErrs.ErrorOrNil()
}

func startModules() error {
	started := 0

	for started < len(modules) {
		progressed := false
		for _, m := range modules {
			if m.readyToStart() {
				log.Infof("modules: starting %s", m.Name)
				err := m.start()
				if err != nil {
					return fmt.Errorf("modules: could not start module %s: %w", m.Name, err)
				}
				m.Started.Set()
				started++
				progressed = true
			}
		}
		if !progressed {
			return fmt.Errorf("modules: dependency cycle detected while starting")
		}
	}

	return nil
}
