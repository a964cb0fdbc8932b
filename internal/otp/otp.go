package otp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultDigits = 6
	DefaultPeriod = 30
	MaxDigits     = 9
)

var (
	ErrInvalidDigits = errors.New("digits must be between 1 and 9")
	ErrInvalidPeriod = errors.New("period must be positive")
)

var powers = [...]uint32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000}

// HOTP computes the RFC 4226 one-time password for key and counter,
// left-padded with zeros to digits characters.
func HOTP(key []byte, counter uint64, digits int) (string, error) {
	if digits < 1 || digits > MaxDigits {
		return "", ErrInvalidDigits
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	truncated := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", digits, truncated%powers[digits]), nil
}

// Counter returns the TOTP time step containing now. Instants before the
// Unix epoch map to step zero.
func Counter(period int, now time.Time) uint64 {
	sec := now.Unix()
	if sec < 0 || period <= 0 {
		return 0
	}
	return uint64(sec) / uint64(period)
}

// TOTP computes the RFC 6238 code for key at instant now.
func TOTP(key []byte, period, digits int, now time.Time) (string, error) {
	if period <= 0 {
		return "", ErrInvalidPeriod
	}
	return HOTP(key, Counter(period, now), digits)
}

// Progress is the fraction of the current step still remaining, in (0, 1].
// It is exactly 1 on a step boundary and falls toward 0 as the step ends.
func Progress(period int, now time.Time) float64 {
	if period <= 0 {
		return 0
	}
	step := int64(period) * int64(time.Second)
	elapsed := now.UnixNano() % step
	if elapsed < 0 {
		elapsed += step
	}
	return float64(step-elapsed) / float64(step)
}

// FallbackCode is the placeholder shown when a code cannot be produced.
func FallbackCode(digits int) string {
	if digits < 1 || digits > MaxDigits {
		digits = DefaultDigits
	}
	return strings.Repeat("0", digits)
}
