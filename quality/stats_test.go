package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// uniformSample returns n bytes cycling through all 256 values, the ideal
// uniform distribution for the frequency test.
func uniformSample(n int) []byte {
	sample := make([]byte, n)
	for i := range sample {
		sample[i] = byte(i)
	}
	return sample
}

func TestChiSquare(t *testing.T) {
	// perfectly uniform frequencies score zero
	assert.Equal(t, 0.0, ChiSquare(uniformSample(4096)))
	assert.Equal(t, 0.0, ChiSquare(nil))

	// a constant sample concentrates all mass in one bucket
	constant := make([]byte, 4096)
	assert.Greater(t, ChiSquare(constant), 100000.0)

	// a mildly skewed sample lands in between
	skewed := uniformSample(4096)
	for i := 0; i < 64; i++ {
		skewed[i] = 0x42
	}
	chi := ChiSquare(skewed)
	assert.Greater(t, chi, 0.0)
	assert.Less(t, chi, ChiSquare(constant))
}

func TestAutocorrelation(t *testing.T) {
	// constant sample has no variance, reported as full correlation
	assert.Equal(t, 1.0, Autocorrelation(make([]byte, 1024), 1))

	// strictly alternating values are maximally anti-correlated at lag 1
	alternating := make([]byte, 1024)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = 0xFF
		}
	}
	assert.InDelta(t, -1.0, Autocorrelation(alternating, 1), 0.01)

	// and maximally correlated at lag 2
	assert.InDelta(t, 1.0, Autocorrelation(alternating, 2), 0.01)

	// degenerate parameters
	assert.Equal(t, 0.0, Autocorrelation([]byte{1, 2, 3}, 0))
	assert.Equal(t, 0.0, Autocorrelation([]byte{1, 2}, 5))
	assert.Equal(t, 0.0, Autocorrelation(nil, 1))
}
