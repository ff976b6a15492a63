package entropy

import (
	"fmt"
)

// Correction selects a bias correction algorithm. Whichever algorithm is
// active, correction is deterministic and never expands its input.
type Correction uint8

// Available correction algorithms.
const (
	// CorrectionNone passes raw bytes through unchanged.
	CorrectionNone Correction = iota
	// CorrectionVonNeumann consumes bit pairs and keeps one bit per
	// discordant pair. Unbiased output, but the yield is variable and low
	// (about 1/4 of the input for a fair source).
	CorrectionVonNeumann
	// CorrectionMatrix applies a fixed XOR-fold over 2-byte blocks for
	// exactly half yield. Weaker than Von Neumann, but with predictable
	// throughput.
	CorrectionMatrix
)

func (c Correction) String() string {
	switch c {
	case CorrectionNone:
		return "none"
	case CorrectionVonNeumann:
		return "vonneumann"
	case CorrectionMatrix:
		return "matrix"
	default:
		return "unknown"
	}
}

// CorrectionFromName returns the correction algorithm with the given name.
func CorrectionFromName(name string) (Correction, error) {
	switch name {
	case "none":
		return CorrectionNone, nil
	case "vonneumann":
		return CorrectionVonNeumann, nil
	case "matrix":
		return CorrectionMatrix, nil
	default:
		return CorrectionNone, fmt.Errorf("unknown correction algorithm: %q", name)
	}
}

// Correct applies the given correction algorithm to raw and returns the
// corrected bytes. The output is never longer than the input.
func Correct(raw []byte, algorithm Correction) []byte {
	switch algorithm {
	case CorrectionVonNeumann:
		return vonNeumann(raw)
	case CorrectionMatrix:
		return xorFold(raw)
	default:
		return raw
	}
}

// vonNeumann interprets the input as a stream of bit pairs, LSB first
// within each byte. Pair (0,1) emits 0, pair (1,0) emits 1, concordant
// pairs are discarded. Incomplete trailing output bits are dropped.
func vonNeumann(input []byte) []byte {
	output := make([]byte, 0, len(input)/4)
	var outByte byte
	var outBits uint

	for _, b := range input {
		for i := uint(0); i < 8; i += 2 {
			first := (b >> i) & 1
			second := (b >> (i + 1)) & 1

			switch {
			case first == 0 && second == 1:
				outBits++
			case first == 1 && second == 0:
				outByte |= 1 << outBits
				outBits++
			}

			if outBits == 8 {
				output = append(output, outByte)
				outByte = 0
				outBits = 0
			}
		}
	}

	return output
}

// xorFold folds every 2-byte block into one byte. A trailing odd byte is
// dropped rather than passed through uncorrected.
func xorFold(input []byte) []byte {
	output := make([]byte, len(input)/2)
	for i := range output {
		output[i] = input[2*i] ^ input[2*i+1]
	}
	return output
}
