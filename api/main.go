// Package api serves the JSON interface of the randomness service. It is
// a thin value-mapping layer: all entropy flows through the randomness
// facade and inherits its quality gate.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/quantumrand/entropyd/config"
	"github.com/quantumrand/entropyd/modules"
)

var (
	module *modules.Module
	server *http.Server

	listenAddress config.StringOption
)

func init() {
	module = modules.Register("api", prep, start, stop, "config", "feeder", "randomness")
}

func prep() error {
	err := config.Register(&config.Option{
		Name:           "API Listen Address",
		Key:            "api/listenAddress",
		Description:    "Address the http api listens on.",
		OptType:        config.OptTypeString,
		ExpertiseLevel: config.ExpertiseLevelUser,
		DefaultValue:   "127.0.0.1:8080",
	})
	if err != nil {
		return err
	}
	listenAddress = config.GetAsString("api/listenAddress", "127.0.0.1:8080")
	return nil
}

func start() error {
	module.StartWorker("api server", serve)
	return nil
}

func stop() error {
	if server != nil {
		return server.Shutdown(context.Background())
	}
	return nil
}

func serve(ctx context.Context) error {
	// only accept requests once every module has started
	select {
	case <-modules.WaitForStartCompletion():
	case <-ctx.Done():
		return nil
	}

	server = &http.Server{
		Addr:    listenAddress(),
		Handler: buildRouter(),
	}

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
