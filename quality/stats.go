// Package quality runs statistical tests over recently produced entropy
// and maintains the health verdict that gates what may be served.
package quality

import (
	"errors"
	"math"
)

// Statistical test failures. They drive the health verdict and are
// reflected in the health endpoint, never surfaced per-request.
var (
	// ErrQuality means the chi-square statistic exceeded its threshold.
	ErrQuality = errors.New("entropy quality test failed")

	// ErrCorrelation means the lag-1 autocorrelation exceeded its limit.
	ErrCorrelation = errors.New("entropy correlation test failed")
)

// ChiSquare computes the chi-square statistic of the sample's byte-value
// frequencies against the uniform distribution. For uniform random input
// the statistic follows a chi-square distribution with 255 degrees of
// freedom, so values around 255 are expected.
func ChiSquare(sample []byte) float64 {
	if len(sample) == 0 {
		return 0
	}

	var counts [256]int
	for _, b := range sample {
		counts[b]++
	}

	expected := float64(len(sample)) / 256.0
	var chi float64
	for _, observed := range counts {
		diff := float64(observed) - expected
		chi += diff * diff / expected
	}
	return chi
}

// Autocorrelation computes the autocorrelation coefficient of the sample's
// byte values at the given lag. Uniform random input yields values close
// to zero.
func Autocorrelation(sample []byte, lag int) float64 {
	if lag <= 0 || len(sample) <= lag {
		return 0
	}

	n := len(sample)
	var mean float64
	for _, b := range sample {
		mean += float64(b)
	}
	mean /= float64(n)

	var variance, covariance float64
	for i, b := range sample {
		d := float64(b) - mean
		variance += d * d
		if i+lag < n {
			covariance += d * (float64(sample[i+lag]) - mean)
		}
	}

	if variance == 0 {
		// constant sample, report full correlation
		return 1
	}
	coefficient := covariance / variance
	if math.IsNaN(coefficient) {
		return 0
	}
	return coefficient
}
