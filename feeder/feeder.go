// Package feeder owns the producer side of the entropy pipeline: it
// harvests raw noise from the active source, applies bias correction,
// writes corrected bytes into the ring buffer and runs the quality monitor
// and source selector on their own cadences.
package feeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quantumrand/entropyd/entropy"
	"github.com/quantumrand/entropyd/log"
	"github.com/quantumrand/entropyd/metrics"
	"github.com/quantumrand/entropyd/modules"
	"github.com/quantumrand/entropyd/quality"
	"github.com/quantumrand/entropyd/source"
)

// Pacing and plausibility limits of the harvest pipeline.
const (
	// fillTarget pauses harvesting above this buffer fill fraction.
	fillTarget = 0.8

	// idleDelay is the pause when the buffer is sufficiently full.
	idleDelay = 10 * time.Millisecond

	// failureBackoff is the pause after a failed harvest.
	failureBackoff = 100 * time.Millisecond

	// Plausible operating ranges of the device. Readings outside force a
	// Failed verdict independent of the statistical tests.
	minVoltageMillivolts = 4500
	maxVoltageMillivolts = 5500
	minTemperatureMilliC = 0
	maxTemperatureMilliC = 70000
)

var (
	module *modules.Module

	buffer     *entropy.Buffer
	monitor    *quality.Monitor
	sel        *selector
	correction entropy.Correction

	hardware  *source.HardwareSource
	emergency *source.EmergencySource

	probeGroup singleflight.Group
)

func init() {
	module = modules.Register("feeder", prep, start, stop, "config")
}

func prep() error {
	return registerConfig()
}

func start() error {
	var err error
	correction, err = entropy.CorrectionFromName(correctionName())
	if err != nil {
		return err
	}

	buffer = entropy.NewBuffer(int(bufferCapacity()))
	monitor = quality.NewMonitor(quality.Config{
		SampleBytes:          int(sampleBytes()),
		ChiSquareThreshold:   chiSquareLimit(),
		AutocorrelationLimit: autocorrLimit(),
		FailedWindows:        int(failedWindows()),
	})

	hardware = source.NewHardwareSource(source.HardwareConfig{
		DevicePath:  devicePath(),
		InfoPath:    deviceInfoPath(),
		StatusPath:  statusPath(),
		MinFirmware: minFirmware(),
	})

	system, err := source.NewSystemSource(source.SystemConfig{
		Cipher:           systemCipher,
		ReseedAfter:      time.Duration(reseedAfterSeconds()) * time.Second,
		ReseedAfterBytes: reseedAfterBytes(),
	})
	if err != nil {
		return fmt.Errorf("feeder: cannot initialize system source: %w", err)
	}

	sources := []source.Source{hardware, system}
	if path := reservePath(); path != "" {
		emergency, err = source.LoadEmergencyReserve(path, int(reserveLowWater()))
		if err != nil {
			return fmt.Errorf("feeder: cannot load emergency reserve: %w", err)
		}
		sources = append(sources, emergency)
		metrics.RegisterReserveGauge(func() float64 {
			return float64(emergency.Remaining())
		})
	}

	sel = newSelector(monitor, sources...)

	metrics.RegisterBufferGauges(
		func() float64 { return float64(buffer.Available()) },
		func() float64 { return float64(buffer.Capacity()) },
	)
	metrics.RegisterVerdictGauge(func() float64 {
		return float64(monitor.Verdict())
	})

	module.StartServiceWorker("harvester", 0, harvester)
	module.StartServiceWorker("quality monitor", 0, qualityWorker)
	module.StartServiceWorker("recovery probe", 0, recoveryWorker)
	return nil
}

func stop() error {
	if hardware != nil {
		return hardware.Close()
	}
	return nil
}

// harvester is the single producer: harvest, correct, observe, write.
func harvester(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		capacity := buffer.Capacity()
		if float64(buffer.Available()) >= fillTarget*float64(capacity) {
			if !sleepCtx(ctx, idleDelay) {
				return nil
			}
			continue
		}

		// harvest half of the free space per cycle, bounded
		max := buffer.Free() / 2
		if limit := int(harvestMaxBytes()); max > limit {
			max = limit
		}
		if max == 0 {
			if !sleepCtx(ctx, idleDelay) {
				return nil
			}
			continue
		}

		src := sel.activeSource()
		raw, err := src.Harvest(max)
		if err != nil {
			handleHarvestError(src, err)
			if !sleepCtx(ctx, failureBackoff) {
				return nil
			}
			continue
		}

		corrected := entropy.Correct(raw, correction)
		if len(corrected) == 0 {
			continue
		}
		monitor.Observe(corrected)

		// A Failed verdict gates what the producer forwards: stop feeding
		// from a suspect hardware source before the selector reacts.
		if monitor.Verdict() == quality.Failed && src.Type() == source.Hardware {
			sel.transition(source.SystemRandom, "quality gate reports failed")
			continue
		}

		if err := buffer.Write(corrected); err != nil {
			if errors.Is(err, entropy.ErrBufferFull) {
				// concurrent claims shrank free space mid-cycle, retry once
				if !sleepCtx(ctx, idleDelay) {
					return nil
				}
				if err := buffer.Write(corrected); err != nil {
					log.Warningf("feeder: buffer full, discarded %d corrected bytes", len(corrected))
				}
			}
			continue
		}
		metrics.HarvestedBytes.Add(len(corrected))
	}
}

// handleHarvestError applies the fallback policy. Harvest failures are
// never retried blindly: repeated failures provably lead to a source
// switch instead of indefinite retries against a broken source.
func handleHarvestError(src source.Source, err error) {
	switch src.Type() {
	case source.Hardware:
		fails := sel.harvestFails.Add(1)
		log.Debugf("feeder: hardware harvest failed (%d/%d): %s", fails, retryBudget(), err)
		if fails > retryBudget() {
			sel.transition(source.SystemRandom, "harvest retry budget exceeded")
		}
	case source.SystemRandom:
		// the os csprng failing is catastrophic, go to the last resort
		log.Errorf("feeder: system source failed: %s", err)
		sel.transition(source.Emergency, "system csprng unavailable")
	case source.Emergency:
		if errors.Is(err, source.ErrReserveExhausted) {
			log.Critical("feeder: emergency reserve exhausted, no entropy can be produced")
		} else {
			log.Errorf("feeder: emergency source failed: %s", err)
		}
	}
}

// qualityWorker evaluates the monitor window on a fixed cadence and polls
// the device's environmental signals while hardware is active.
func qualityWorker(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(qualityInterval()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if sel.activeType() == source.Hardware && environmentChecks() {
			checkEnvironment()
		}

		result := monitor.Evaluate()
		if result.Skipped {
			continue
		}
		if result.Err != nil {
			metrics.QualityFailures.Inc()
			log.Warningf("feeder: quality window failed (verdict %s): %s", result.Verdict, result.Err)
		} else {
			log.Tracef("feeder: quality window passed: chi-square %.2f, autocorrelation %.4f", result.ChiSquare, result.Autocorrelation)
		}

		if result.Verdict == quality.Failed && sel.activeType() == source.Hardware {
			sel.transition(source.SystemRandom, "statistical quality failure")
		}
	}
}

// checkEnvironment merges the hardware's tamper and environmental signals
// into the verdict. A non-statistical fault forces Failed even when the
// byte statistics look uniform.
func checkEnvironment() {
	signals, err := hardware.Environment()
	if err != nil {
		log.Debugf("feeder: cannot read device environment: %s", err)
		return
	}

	var reason string
	switch {
	case signals.TamperDetected:
		reason = "optical tamper flag set"
	case signals.VoltageMillivolts < minVoltageMillivolts || signals.VoltageMillivolts > maxVoltageMillivolts:
		reason = fmt.Sprintf("supply voltage %dmV out of range", signals.VoltageMillivolts)
	case signals.TemperatureMilliC < minTemperatureMilliC || signals.TemperatureMilliC > maxTemperatureMilliC:
		reason = fmt.Sprintf("temperature %dm°C out of range", signals.TemperatureMilliC)
	default:
		return
	}

	log.Errorf("feeder: environmental fault: %s", reason)
	monitor.ForceFailed()
	sel.transition(source.SystemRandom, "environmental fault: "+reason)
}

// recoveryWorker periodically re-probes the hardware device while a
// fallback source is active. The switch back is only committed after the
// probe succeeds and a fresh sample drawn from the device passes the
// statistical tests, never on device presence alone.
func recoveryWorker(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(recoveryInterval()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if sel.activeType() == source.Hardware {
			continue
		}

		_, err, _ := probeGroup.Do("hardware-recovery", func() (interface{}, error) {
			return nil, tryRecoverHardware()
		})
		if err != nil {
			log.Debugf("feeder: hardware recovery probe failed: %s", err)
		}
	}
}

func tryRecoverHardware() error {
	if err := hardware.Probe(); err != nil {
		return err
	}

	// draw a fresh sample and confirm quality before committing
	sample := make([]byte, 0, int(sampleBytes()))
	for len(sample) < int(sampleBytes()) {
		raw, err := hardware.Harvest(int(harvestMaxBytes()))
		if err != nil {
			return err
		}
		sample = append(sample, entropy.Correct(raw, correction)...)
	}
	if err := monitor.TestSample(sample[:int(sampleBytes())]); err != nil {
		return fmt.Errorf("device present but sample quality insufficient: %w", err)
	}

	sel.transition(source.Hardware, "device recovered, fresh sample quality confirmed")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
