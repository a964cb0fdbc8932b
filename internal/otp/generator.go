package otp

import (
	"time"

	"github.com/dmitrijs2005/keybox/internal/timex"
)

// Generator produces TOTP codes for stored Base32 secrets against a clock.
type Generator struct {
	clock timex.Clock
}

func NewGenerator(clock timex.Clock) *Generator {
	if clock == nil {
		clock = timex.SystemClock()
	}
	return &Generator{clock: clock}
}

// Now reports the generator's current instant.
func (g *Generator) Now() time.Time {
	return g.clock.Now()
}

// Code decodes secret and returns the current code. Zero period or digits
// select the defaults, so records written without them still work.
func (g *Generator) Code(secret string, period, digits int) (string, error) {
	period, digits = withDefaults(period, digits)

	key, err := DecodeBase32(secret)
	if err != nil {
		return "", err
	}
	return TOTP(key, period, digits, g.clock.Now())
}

// CodeOrFallback never fails: malformed secrets yield a string of zeros.
func (g *Generator) CodeOrFallback(secret string, period, digits int) string {
	code, err := g.Code(secret, period, digits)
	if err != nil {
		_, d := withDefaults(period, digits)
		return FallbackCode(d)
	}
	return code
}

// Remaining reports Progress for period at the generator's instant.
func (g *Generator) Remaining(period int) float64 {
	period, _ = withDefaults(period, DefaultDigits)
	return Progress(period, g.clock.Now())
}

// SecondsLeft is the whole number of seconds until the code rotates.
func (g *Generator) SecondsLeft(period int) int {
	period, _ = withDefaults(period, DefaultDigits)
	sec := g.clock.Now().Unix()
	if sec < 0 {
		return period
	}
	return period - int(sec%int64(period))
}

func withDefaults(period, digits int) (int, int) {
	if period <= 0 {
		period = DefaultPeriod
	}
	if digits == 0 {
		digits = DefaultDigits
	}
	return period, digits
}
