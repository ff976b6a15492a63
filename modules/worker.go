package modules

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/quantumrand/entropyd/log"
)

// DefaultBackoffDuration is the default restart backoff for service workers.
const DefaultBackoffDuration = 2 * time.Second

var (
	// ErrRestartNow may be returned (wrapped) by service workers to
	// request an immediate restart.
	ErrRestartNow = errors.New("requested restart")

	errNoModule = errors.New("missing module (is nil!)")
)

// StartWorker directly starts a generic worker that is not automatically
// restarted. A call to StartWorker starts a new goroutine and returns
// immediately.
func (m *Module) StartWorker(name string, fn func(context.Context) error) {
	go func() {
		err := m.RunWorker(name, fn)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			log.Debugf("%s: worker %s was canceled", m.Name, name)
		default:
			log.Errorf("%s: worker %s failed: %s", m.Name, name, err)
		}
	}()
}

// RunWorker directly runs a generic worker and blocks until it is finished.
func (m *Module) RunWorker(name string, fn func(context.Context) error) error {
	if m == nil {
		log.Errorf("modules: cannot start worker %s with nil module", name)
		return errNoModule
	}

	addWorker(m)
	defer finishWorker(m)

	return m.runWorker(name, fn)
}

// StartServiceWorker starts a worker that is automatically restarted in
// case of an error, with a backoff multiplied by the number of failed
// attempts. Pass 0 for the default backoff duration. Returning nil or
// context.Canceled stops the service worker.
func (m *Module) StartServiceWorker(name string, backoffDuration time.Duration, fn func(context.Context) error) {
	if m == nil {
		log.Errorf("modules: cannot start service worker %s with nil module", name)
		return
	}

	go m.runServiceWorker(name, backoffDuration, fn)
}

func (m *Module) runServiceWorker(name string, backoffDuration time.Duration, fn func(context.Context) error) {
	addWorker(m)
	defer finishWorker(m)

	if backoffDuration == 0 {
		backoffDuration = DefaultBackoffDuration
	}
	failCnt := 0
	lastFail := time.Now()

	for {
		if m.IsStopping() {
			return
		}

		err := m.runWorker(name, fn)
		switch {
		case err == nil:
			return
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, ErrRestartNow):
			// restart immediately
		default:
			// reset fail counter if running without error for some time
			if time.Now().Add(-5 * time.Minute).After(lastFail) {
				failCnt = 0
			}
			failCnt++
			lastFail = time.Now()

			sleepFor := time.Duration(failCnt) * backoffDuration
			log.Errorf("%s: service-worker %s failed (%d): %s - restarting in %s", m.Name, name, failCnt, err, sleepFor)
			select {
			case <-time.After(sleepFor):
			case <-m.Ctx.Done():
				return
			}
		}
	}
}

func (m *Module) runWorker(name string, fn func(context.Context) error) (err error) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			err = fmt.Errorf("panic in %s worker %s: %v", m.Name, name, panicVal)
			log.Errorf("%s\n%s", err, debug.Stack())
		}
	}()

	err = fn(m.Ctx)
	return
}
