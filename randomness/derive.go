package randomness

import (
	"fmt"

	"github.com/gofrs/uuid"
)

// Password character sets.
const (
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars     = "0123456789"
	symbolChars    = "!@#$%^&*()-_=+[]{}<>?"
)

// Accepted key sizes in bits.
var validKeyBits = map[int]bool{128: true, 192: true, 256: true, 512: true}

// PasswordOptions selects the character sets a password is drawn from.
type PasswordOptions struct {
	Uppercase bool
	Lowercase bool
	Digits    bool
	Symbols   bool
}

// UUID returns an RFC 4122 version 4 UUID derived from buffer-drawn bytes.
func UUID() (string, error) {
	raw, err := drawBytes(16)
	if err != nil {
		return "", err
	}

	id, err := uuid.FromBytes(raw)
	if err != nil {
		return "", err
	}
	id.SetVersion(uuid.V4)
	id.SetVariant(uuid.VariantRFC4122)
	return id.String(), nil
}

// Key returns a key of the given size. Accepted sizes are 128, 192, 256
// and 512 bits.
func Key(bits int) ([]byte, error) {
	if !validKeyBits[bits] {
		return nil, fmt.Errorf("%w: key size must be one of 128, 192, 256, 512 bits", ErrInvalidParameter)
	}
	return drawBytes(bits / 8)
}

// Password returns a password of the given length drawn from the selected
// character sets. Each character is chosen with rejection sampling so all
// characters of the combined set are equally likely.
func Password(length int, opts PasswordOptions) (string, error) {
	if length < MinPasswordLength || length > MaxPasswordLength {
		return "", fmt.Errorf("%w: password length must be between %d and %d", ErrInvalidParameter, MinPasswordLength, MaxPasswordLength)
	}

	var charset string
	if opts.Uppercase {
		charset += uppercaseChars
	}
	if opts.Lowercase {
		charset += lowercaseChars
	}
	if opts.Digits {
		charset += digitChars
	}
	if opts.Symbols {
		charset += symbolChars
	}
	if charset == "" {
		return "", fmt.Errorf("%w: at least one character set must be enabled", ErrInvalidParameter)
	}

	// largest multiple of the charset size that fits in a byte
	limit := 256 - (256 % len(charset))

	password := make([]byte, 0, length)
	for len(password) < length {
		raw, err := drawBytes(1)
		if err != nil {
			return "", err
		}
		if int(raw[0]) >= limit {
			continue
		}
		password = append(password, charset[int(raw[0])%len(charset)])
	}
	return string(password), nil
}
