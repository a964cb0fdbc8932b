package models

import (
	"strings"

	"github.com/dmitrijs2005/keybox/internal/otp"
)

// Secret is one TOTP token.
type Secret struct {
	ID          string `json:"id"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"accountName"`
	Secret      string `json:"secret"`
	Period      int    `json:"period"`
	Digits      int    `json:"digits"`
	Color       string `json:"colorHex,omitempty"`
}

func (s Secret) RecordID() string { return s.ID }

// NewSecret builds a token with default period and digits and a fresh ID.
// The secret is trimmed and upper-cased.
func NewSecret(issuer, account, secret string) Secret {
	return Secret{
		ID:          NewID(),
		Issuer:      strings.TrimSpace(issuer),
		AccountName: strings.TrimSpace(account),
		Secret:      otp.NormalizeSecret(secret),
		Period:      otp.DefaultPeriod,
		Digits:      otp.DefaultDigits,
	}
}

// SecretFromKey converts a parsed provisioning URI into a token.
func SecretFromKey(k otp.Key) Secret {
	s := NewSecret(k.Issuer, k.AccountName, k.Secret)
	s.Period = k.Period
	s.Digits = k.Digits
	return s
}

// Key converts the token back into provisioning parameters.
func (s Secret) Key() otp.Key {
	return otp.Key{
		Issuer:      s.Issuer,
		AccountName: s.AccountName,
		Secret:      s.Secret,
		Period:      s.Period,
		Digits:      s.Digits,
	}
}

// Matches reports whether query occurs, case-insensitively, in the issuer
// or account name. An empty query matches everything.
func (s Secret) Matches(query string) bool {
	return containsFold(query, s.Issuer, s.AccountName)
}

func containsFold(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
