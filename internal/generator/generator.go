// Package generator creates random passwords.
package generator

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numbers   = "0123456789"
	symbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

const (
	MinLength     = 6
	MaxLength     = 32
	DefaultLength = 16
)

var ErrInvalidLength = fmt.Errorf("password length must be between %d and %d", MinLength, MaxLength)

// Options selects the character classes on top of lower-case letters, which
// are always included.
type Options struct {
	Length    int
	Uppercase bool
	Numbers   bool
	Symbols   bool
}

func DefaultOptions() Options {
	return Options{Length: DefaultLength, Uppercase: true, Numbers: true, Symbols: true}
}

// Charset returns the characters a password generated with o is drawn from.
func (o Options) Charset() string {
	charset := lowercase
	if o.Uppercase {
		charset += uppercase
	}
	if o.Numbers {
		charset += numbers
	}
	if o.Symbols {
		charset += symbols
	}
	return charset
}

// Password draws o.Length characters uniformly from o.Charset using
// crypto/rand.
func Password(o Options) (string, error) {
	if o.Length < MinLength || o.Length > MaxLength {
		return "", ErrInvalidLength
	}

	charset := o.Charset()
	out := make([]byte, o.Length)
	for i := range out {
		idx, err := randomInt(len(charset))
		if err != nil {
			return "", err
		}
		out[i] = charset[idx]
	}
	return string(out), nil
}

func randomInt(max int) (int, error) {
	if max <= 0 {
		return 0, errors.New("max must be positive")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
