package otp

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultIssuer names tokens whose URI carries no issuer.
const DefaultIssuer = "Unknown"

var (
	ErrInvalidURI         = errors.New("invalid otpauth uri")
	ErrUnsupportedOTPType = errors.New("unsupported otp type")
	ErrMissingSecret      = errors.New("missing secret")
)

// Key is the content of an otpauth://totp/ URI.
type Key struct {
	Issuer      string
	AccountName string
	Secret      string
	Period      int
	Digits      int
}

// ParseURI parses an otpauth://totp/ provisioning URI. The label is split on
// the first ':' into issuer and account; the issuer query parameter takes
// precedence over the label prefix. Unknown or invalid period and digits
// parameters fall back to the defaults.
func ParseURI(raw string) (Key, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme != "otpauth" {
		return Key{}, ErrInvalidURI
	}
	if !strings.EqualFold(u.Host, "totp") {
		if u.Host == "" {
			return Key{}, ErrInvalidURI
		}
		return Key{}, ErrUnsupportedOTPType
	}

	q := u.Query()
	secret := NormalizeSecret(q.Get("secret"))
	if secret == "" {
		return Key{}, ErrMissingSecret
	}

	k := Key{
		Secret: secret,
		Period: DefaultPeriod,
		Digits: DefaultDigits,
	}

	label := strings.Trim(u.Path, "/")
	labelIssuer := ""
	if i := strings.Index(label, ":"); i >= 0 {
		labelIssuer = strings.TrimSpace(label[:i])
		label = label[i+1:]
	}
	k.AccountName = strings.TrimSpace(label)

	switch {
	case q.Get("issuer") != "":
		k.Issuer = q.Get("issuer")
	case labelIssuer != "":
		k.Issuer = labelIssuer
	default:
		k.Issuer = DefaultIssuer
	}

	if v, err := strconv.Atoi(q.Get("digits")); err == nil && v >= 1 && v <= MaxDigits {
		k.Digits = v
	}
	if v, err := strconv.Atoi(q.Get("period")); err == nil && v > 0 {
		k.Period = v
	}

	return k, nil
}

// BuildURI renders k as an otpauth://totp/ URI. Period and digits are only
// emitted when they differ from the defaults.
func BuildURI(k Key) string {
	label := url.PathEscape(k.AccountName)
	if k.Issuer != "" {
		label = url.PathEscape(k.Issuer) + ":" + label
	}

	q := url.Values{}
	q.Set("secret", k.Secret)
	if k.Issuer != "" {
		q.Set("issuer", k.Issuer)
	}
	if k.Digits != 0 && k.Digits != DefaultDigits {
		q.Set("digits", strconv.Itoa(k.Digits))
	}
	if k.Period != 0 && k.Period != DefaultPeriod {
		q.Set("period", strconv.Itoa(k.Period))
	}

	return "otpauth://totp/" + label + "?" + q.Encode()
}
