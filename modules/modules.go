// Package modules provides a small module management ecosystem to cleanly
// put all moving parts of the service together.
//
// Modules are started in a multi-stage process and may depend on other
// modules:
//   - Go's init(): register flags
//   - prep: check flags, register config variables
//   - start: start actual work, access config
//   - stop: gracefully shut down
//
// Workers are functions run by a module while catching panics and
// reporting them. Service workers are automatically restarted with
// backoff if they return an error.
package modules

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tevino/abool"
)

var (
	modulesLock sync.RWMutex
	modules     = make(map[string]*Module)

	// ErrCleanExit is returned by Start() when the program is interrupted
	// before starting.
	ErrCleanExit = errors.New("clean exit requested")
)

// Module represents a module.
type Module struct {
	Name string

	// lifecycle mgmt
	Prepped *abool.AtomicBool
	Started *abool.AtomicBool
	Stopped *abool.AtomicBool

	// lifecycle callback functions
	prep  func() error
	start func() error
	stop  func() error

	// shutdown mgmt
	Ctx         context.Context
	cancelCtx   func()
	stopFlag    *abool.AtomicBool
	workerGroup sync.WaitGroup
	workerCnt   *int32

	// dependency mgmt
	depNames   []string
	depModules []*Module
	depReverse []*Module
}

func dummyAction() error {
	return nil
}

// Register registers a new module. The control functions prep, start and
// stop are optional. stop is called after all module workers finished.
func Register(name string, prep, start, stop func() error, dependencies ...string) *Module {
	ctx, cancelCtx := context.WithCancel(context.Background())
	var workerCnt int32

	newModule := &Module{
		Name:      name,
		Prepped:   abool.NewBool(false),
		Started:   abool.NewBool(false),
		Stopped:   abool.NewBool(false),
		Ctx:       ctx,
		cancelCtx: cancelCtx,
		stopFlag:  abool.NewBool(false),
		workerCnt: &workerCnt,
		prep:      prep,
		start:     start,
		stop:      stop,
		depNames:  dependencies,
	}

	if newModule.prep == nil {
		newModule.prep = dummyAction
	}
	if newModule.start == nil {
		newModule.start = dummyAction
	}
	if newModule.stop == nil {
		newModule.stop = dummyAction
	}

	modulesLock.Lock()
	defer modulesLock.Unlock()
	modules[name] = newModule
	return newModule
}

// IsStopping returns whether the module has started shutting down.
func (m *Module) IsStopping() bool {
	return m.stopFlag.IsSet()
}

// ShuttingDown lets you listen for the shutdown signal.
func (m *Module) ShuttingDown() <-chan struct{} {
	return m.Ctx.Done()
}

func (m *Module) shutdown() error {
	m.stopFlag.Set()
	m.cancelCtx()

	// wait for workers
	done := make(chan struct{})
	go func() {
		m.workerGroup.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		return fmt.Errorf("%s: timed out while waiting for module workers to finish", m.Name)
	}

	return m.stop()
}

func initDependencies() error {
	for _, m := range modules {
		for _, depName := range m.depNames {
			depModule, ok := modules[depName]
			if !ok {
				return fmt.Errorf("module %s declares dependency %q, but this module has not been registered", m.Name, depName)
			}

			m.depModules = append(m.depModules, depModule)
			depModule.depReverse = append(depModule.depReverse, m)
		}
	}
	return nil
}

// readyToPrep returns whether all dependencies are ready for this module to prep.
func (m *Module) readyToPrep() bool {
	if m.Prepped.IsSet() {
		return false
	}
	for _, dep := range m.depModules {
		if !dep.Prepped.IsSet() {
			return false
		}
	}
	return true
}

// readyToStart returns whether all dependencies are ready for this module to start.
func (m *Module) readyToStart() bool {
	if m.Started.IsSet() {
		return false
	}
	for _, dep := range m.depModules {
		if !dep.Started.IsSet() {
			return false
		}
	}
	return true
}

// readyToStop returns whether all reverse dependencies have stopped.
func (m *Module) readyToStop() bool {
	if !m.Started.IsSet() || m.Stopped.IsSet() {
		return false
	}
	for _, revDep := range m.depReverse {
		if revDep.Started.IsSet() && !revDep.Stopped.IsSet() {
			return false
		}
	}
	return true
}

func addWorker(m *Module) {
	atomic.AddInt32(m.workerCnt, 1)
	m.workerGroup.Add(1)
}

func finishWorker(m *Module) {
	atomic.AddInt32(m.workerCnt, -1)
	m.workerGroup.Done()
}
