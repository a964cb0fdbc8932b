package otp

import (
	"crypto/rand"
	"errors"
)

// DefaultSecretLength is the length, in Base32 characters, of generated
// secrets (80 bits).
const DefaultSecretLength = 16

// RandomSecret returns length characters drawn uniformly from the Base32
// alphabet using the system CSPRNG.
func RandomSecret(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("secret length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// 256 is a multiple of 32, so masking keeps the distribution uniform.
	for i, b := range buf {
		buf[i] = alphabet[b&31]
	}
	return string(buf), nil
}
