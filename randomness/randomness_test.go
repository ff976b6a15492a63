package randomness

import (
	"crypto/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantumrand/entropyd/config"
	"github.com/quantumrand/entropyd/entropy"
)

func TestMain(m *testing.M) {
	if err := prep(); err != nil {
		panic(err)
	}
	// back claims with the OS generator so tests never wait on a feeder
	claimEntropy = testClaim
	os.Exit(m.Run())
}

func testClaim(max int) ([]byte, error) {
	if max > 4096 {
		max = 4096
	}
	chunk := make([]byte, max)
	if _, err := rand.Read(chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

func TestBytes(t *testing.T) {
	for _, count := range []int{1, 32, 4097, MaxBytesPerRequest} {
		data, err := Bytes(count)
		assert.NoError(t, err)
		assert.Len(t, data, count)
	}

	for _, count := range []int{0, -1, MaxBytesPerRequest + 1} {
		_, err := Bytes(count)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}
}

func TestBytesUnavailable(t *testing.T) {
	claimEntropy = func(max int) ([]byte, error) {
		return nil, entropy.ErrBufferEmpty
	}
	defer func() { claimEntropy = testClaim }()

	assert.NoError(t, config.SetConfigOption("core/claimTimeoutSeconds", 1))
	defer func() {
		assert.NoError(t, config.ResetConfigOption("core/claimTimeoutSeconds"))
	}()

	_, err := Bytes(8)
	assert.ErrorIs(t, err, ErrEntropyUnavailable)
}

func TestIntegersBounds(t *testing.T) {
	_, err := Integers(10, 5, 1)
	assert.ErrorIs(t, err, ErrInvalidRange)

	for _, count := range []int{0, MaxIntegersPerRequest + 1} {
		_, err := Integers(0, 10, count)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}

	integers, err := Integers(-5, 5, MaxIntegersPerRequest)
	assert.NoError(t, err)
	assert.Len(t, integers, MaxIntegersPerRequest)
	for _, v := range integers {
		assert.GreaterOrEqual(t, v, int64(-5))
		assert.LessOrEqual(t, v, int64(5))
	}

	// single-value range
	integers, err = Integers(7, 7, 10)
	assert.NoError(t, err)
	for _, v := range integers {
		assert.Equal(t, int64(7), v)
	}

	// the full int64 range must not trip the modulus computation
	integers, err = Integers(-9223372036854775808, 9223372036854775807, 3)
	assert.NoError(t, err)
	assert.Len(t, integers, 3)
}

func TestIntegersUniform(t *testing.T) {
	const (
		draws   = 3000
		buckets = 3
	)

	var counts [buckets]int
	for drawn := 0; drawn < draws; drawn += MaxIntegersPerRequest {
		integers, err := Integers(1, buckets, MaxIntegersPerRequest)
		assert.NoError(t, err)
		for _, v := range integers {
			counts[v-1]++
		}
	}

	// chi-square with 2 degrees of freedom; 20 is far beyond p = 0.001,
	// so a correct sampler fails this less than once in tens of thousands
	// of runs while modulo-biased reduction fails it reliably
	expected := float64(draws) / buckets
	var chi float64
	for _, observed := range counts {
		diff := float64(observed) - expected
		chi += diff * diff / expected
	}
	assert.Less(t, chi, 20.0)
}

func TestUUID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		id, err := UUID()
		assert.NoError(t, err)
		assert.Len(t, id, 36)
		assert.Equal(t, byte('4'), id[14], "uuid version must be 4")
		assert.Contains(t, "89ab", string(id[19]), "uuid variant must be RFC 4122")
		assert.False(t, seen[id], "uuid %s returned twice", id)
		seen[id] = true
	}
}

func TestKey(t *testing.T) {
	for _, bits := range []int{128, 192, 256, 512} {
		key, err := Key(bits)
		assert.NoError(t, err)
		assert.Len(t, key, bits/8)
	}

	for _, bits := range []int{0, 100, 1024} {
		_, err := Key(bits)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}
}

func TestPassword(t *testing.T) {
	password, err := Password(16, PasswordOptions{Uppercase: true, Lowercase: true, Digits: true})
	assert.NoError(t, err)
	assert.Len(t, password, 16)

	// single charset: every character must come from it
	password, err = Password(32, PasswordOptions{Digits: true})
	assert.NoError(t, err)
	for _, c := range password {
		assert.Contains(t, digitChars, string(c))
	}

	_, err = Password(MinPasswordLength-1, PasswordOptions{Lowercase: true})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = Password(MaxPasswordLength+1, PasswordOptions{Lowercase: true})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = Password(16, PasswordOptions{})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

// TestPasswordCharsetUniform draws many digit-only passwords and checks
// that no digit is systematically preferred, which would indicate modulo
// bias in the per-character sampling.
func TestPasswordCharsetUniform(t *testing.T) {
	counts := make(map[rune]int)
	for i := 0; i < 40; i++ {
		password, err := Password(MaxPasswordLength, PasswordOptions{Digits: true})
		assert.NoError(t, err)
		for _, c := range password {
			counts[c]++
		}
	}

	total := 40 * MaxPasswordLength
	expected := float64(total) / 10
	var chi float64
	for _, observed := range counts {
		diff := float64(observed) - expected
		chi += diff * diff / expected
	}
	// 9 degrees of freedom, p = 0.001 is at about 27.9
	assert.Less(t, chi, 35.0)
}
