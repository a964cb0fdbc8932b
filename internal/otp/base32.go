package otp

import (
	"encoding/base32"
	"errors"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// ErrInvalidBase32 is returned for input containing a character outside the
// Base32 alphabet.
var ErrInvalidBase32 = errors.New("invalid base32 character")

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

var decodeMap = func() [256]int8 {
	var m [256]int8
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		m[c] = int8(i)
		if c >= 'A' && c <= 'Z' {
			m[c+('a'-'A')] = int8(i)
		}
	}
	return m
}()

// DecodeBase32 decodes s, ignoring case, '=' padding and spaces. Trailing
// bits that do not fill a whole byte are dropped.
func DecodeBase32(s string) ([]byte, error) {
	out := make([]byte, 0, len(s)*5/8)

	var buffer uint32
	var bits uint

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '=' || c == ' ' {
			continue
		}
		v := decodeMap[c]
		if v < 0 {
			return nil, ErrInvalidBase32
		}
		buffer = buffer<<5 | uint32(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buffer>>bits))
			buffer &= 1<<bits - 1
		}
	}

	return out, nil
}

// EncodeBase32 encodes b as unpadded upper-case Base32.
func EncodeBase32(b []byte) string {
	return encoding.EncodeToString(b)
}

// NormalizeSecret trims surrounding whitespace and upper-cases s.
func NormalizeSecret(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
