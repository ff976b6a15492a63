// Package randomness is the service facade: it serves byte spans, uniform
// integers and derived artifacts by draining the ring buffer. All
// operations consume entropy only through the buffer's claim contract so
// they inherit its quality guarantees.
package randomness

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/quantumrand/entropyd/config"
	"github.com/quantumrand/entropyd/entropy"
	"github.com/quantumrand/entropyd/feeder"
	"github.com/quantumrand/entropyd/metrics"
	"github.com/quantumrand/entropyd/modules"
)

// Request limits.
const (
	MaxBytesPerRequest    = 65536
	MaxIntegersPerRequest = 100
	MinPasswordLength     = 8
	MaxPasswordLength     = 128
)

// drainRetryDelay is the pause between claim attempts on an empty buffer.
const drainRetryDelay = 10 * time.Millisecond

// User-visible errors.
var (
	// ErrEntropyUnavailable means no provider could satisfy the request
	// within the retry budget. Callers may try again later.
	ErrEntropyUnavailable = errors.New("entropy unavailable")

	// ErrInvalidRange means min exceeds max.
	ErrInvalidRange = errors.New("invalid range: min must not exceed max")

	// ErrInvalidParameter means a request parameter is out of bounds.
	ErrInvalidParameter = errors.New("invalid parameter")
)

var (
	module       *modules.Module
	claimTimeout config.IntOption

	claimEntropy = feeder.Claim
)

func init() {
	module = modules.Register("randomness", prep, nil, nil, "feeder")
}

func prep() error {
	err := config.Register(&config.Option{
		Name:            "Claim Timeout Seconds",
		Key:             "core/claimTimeoutSeconds",
		Description:     "Time budget for a request waiting on an empty buffer before it fails.",
		OptType:         config.OptTypeInt,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		DefaultValue:    5,
		ValidationRegex: "^[1-9][0-9]{0,2}$",
	})
	if err != nil {
		return err
	}
	claimTimeout = config.GetAsInt("core/claimTimeoutSeconds", 5)
	return nil
}

// Bytes returns count bytes of gated entropy.
func Bytes(count int) ([]byte, error) {
	if count < 1 || count > MaxBytesPerRequest {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidParameter, MaxBytesPerRequest)
	}
	return drawBytes(count)
}

// drawBytes drains the buffer via claim/retry until count bytes are
// gathered or the timeout budget is exhausted. A claim either fully
// succeeds and hands back owned bytes, or fails cleanly, so abandoning a
// request never corrupts buffer state.
func drawBytes(count int) ([]byte, error) {
	deadline := time.Now().Add(time.Duration(claimTimeout()) * time.Second)
	out := make([]byte, 0, count)

	for len(out) < count {
		chunk, err := claimEntropy(count - len(out))
		if err == nil {
			out = append(out, chunk...)
			continue
		}
		if !errors.Is(err, entropy.ErrBufferEmpty) {
			metrics.RequestsFailed.Inc()
			return nil, err
		}
		if time.Now().After(deadline) {
			metrics.RequestsFailed.Inc()
			return nil, fmt.Errorf("%w: buffer stayed empty for %ds", ErrEntropyUnavailable, claimTimeout())
		}

		select {
		case <-module.Ctx.Done():
			metrics.RequestsFailed.Inc()
			return nil, context.Canceled
		case <-time.After(drainRetryDelay):
		}
	}

	metrics.RequestsServed.Inc()
	return out, nil
}

// drawUint64 draws one full-width unsigned random word from the buffer.
func drawUint64() (uint64, error) {
	b, err := drawBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Integers returns count uniformly distributed integers in [min, max]
// using rejection sampling, which avoids the modulo bias of naive
// reduction: every integer in the range has exactly equal probability.
func Integers(min, max int64, count int) ([]int64, error) {
	if min > max {
		return nil, ErrInvalidRange
	}
	if count < 1 || count > MaxIntegersPerRequest {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidParameter, MaxIntegersPerRequest)
	}

	rangeSize := uint64(max-min) + 1
	fullRange := rangeSize == 0 // [MinInt64, MaxInt64], every draw is valid

	var maxValid uint64
	if !fullRange {
		// the largest multiple of rangeSize representable in a uint64;
		// draws at or above it are discarded and redrawn
		maxValid = ^uint64(0) - (^uint64(0) % rangeSize)
	}

	integers := make([]int64, 0, count)
	for len(integers) < count {
		value, err := drawUint64()
		if err != nil {
			return nil, err
		}
		if fullRange {
			integers = append(integers, int64(value))
			continue
		}
		if value >= maxValid {
			continue
		}
		integers = append(integers, min+int64(value%rangeSize))
	}
	return integers, nil
}
