// Package run provides a standard program lifecycle based on modules:
// start everything, wait for an interrupt, shut everything down again.
package run

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/quantumrand/entropyd/info"
	"github.com/quantumrand/entropyd/log"
	"github.com/quantumrand/entropyd/modules"
)

var printStackOnExit bool

func init() {
	flag.BoolVar(&printStackOnExit, "print-stack-on-exit", false, "prints the stack before shutting down")
}

// Run executes a full program lifecycle (including signal handling) based
// on modules. Just empty-import required packages and do os.Exit(run.Run()).
func Run() int {
	err := modules.Start()
	if err != nil {
		if err == modules.ErrCleanExit {
			return 0
		}
		_ = modules.Shutdown()
		return 1
	}
	log.Infof("main: %s ready", info.FullVersion())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(
		signalCh,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	select {
	case <-signalCh:
		fmt.Println(" <INTERRUPT>")
		log.Warning("main: program was interrupted, shutting down")

		if printStackOnExit {
			fmt.Println("=== PRINTING STACK ===")
			_ = pprof.Lookup("goroutine").WriteTo(os.Stdout, 1)
			fmt.Println("=== END STACK ===")
		}

		// catch a second interrupt to force exit
		go func() {
			<-signalCh
			fmt.Println(" <INTERRUPT> again, forcing exit")
			os.Exit(1)
		}()

		// force exit if shutdown hangs
		go func() {
			time.Sleep(30 * time.Second)
			fmt.Println("shutdown timed out, forcing exit")
			os.Exit(1)
		}()

		err = modules.Shutdown()
		if err != nil {
			return 1
		}
	}

	return 0
}
