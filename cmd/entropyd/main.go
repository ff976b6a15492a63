package main

import (
	"os"

	_ "github.com/quantumrand/entropyd/api"
	"github.com/quantumrand/entropyd/info"
	"github.com/quantumrand/entropyd/run"
)

func main() {
	info.Set("entropyd", "1.0.0")
	os.Exit(run.Run())
}
