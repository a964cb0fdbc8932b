package otp

import (
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/keybox/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rfcKey = []byte("12345678901234567890")

func TestHOTP_RFC4226Vectors(t *testing.T) {
	want := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}
	for counter, code := range want {
		got, err := HOTP(rfcKey, uint64(counter), 6)
		require.NoError(t, err)
		assert.Equal(t, code, got, "counter %d", counter)
	}
}

func TestHOTP_KnownSecret(t *testing.T) {
	key, err := DecodeBase32("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	for counter, code := range []string{"282760", "996554", "602287"} {
		got, err := HOTP(key, uint64(counter), 6)
		require.NoError(t, err)
		assert.Equal(t, code, got)
	}

	got, err := HOTP(key, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, "63282760", got)
}

func TestHOTP_Digits(t *testing.T) {
	for _, d := range []int{0, -1, 10} {
		_, err := HOTP(rfcKey, 0, d)
		require.ErrorIs(t, err, ErrInvalidDigits)
	}
	for d := 1; d <= MaxDigits; d++ {
		got, err := HOTP(rfcKey, 0, d)
		require.NoError(t, err)
		assert.Len(t, got, d)
	}
}

func TestTOTP_RFC6238Vectors(t *testing.T) {
	tests := []struct {
		unix int64
		want string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
	}
	for _, tt := range tests {
		got, err := TOTP(rfcKey, 30, 8, time.Unix(tt.unix, 0))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "T=%d", tt.unix)
	}
}

func TestTOTP_StableWithinStep(t *testing.T) {
	a, err := TOTP(rfcKey, 30, 6, time.Unix(30, 0))
	require.NoError(t, err)
	b, err := TOTP(rfcKey, 30, 6, time.Unix(59, 999))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = TOTP(rfcKey, 0, 6, time.Unix(0, 0))
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestCounter_BeforeEpoch(t *testing.T) {
	assert.Equal(t, uint64(0), Counter(30, time.Unix(-100, 0)))
	assert.Equal(t, uint64(1), Counter(30, time.Unix(59, 0)))
}

func TestProgress(t *testing.T) {
	assert.InDelta(t, 1.0, Progress(30, time.Unix(60, 0)), 1e-9)
	assert.InDelta(t, 0.5, Progress(30, time.Unix(75, 0)), 1e-9)
	assert.InDelta(t, 1.0/30, Progress(30, time.Unix(89, 0)), 1e-9)

	p := Progress(30, time.Unix(89, 999_999_999))
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 0.001)

	assert.Equal(t, 0.0, Progress(0, time.Unix(1, 0)))
}

func TestFallbackCode(t *testing.T) {
	assert.Equal(t, "000000", FallbackCode(6))
	assert.Equal(t, "00000000", FallbackCode(8))
	assert.Equal(t, "000000", FallbackCode(42))
}

func TestGenerator(t *testing.T) {
	g := NewGenerator(timex.FixedClock(time.Unix(59, 0)))

	secret := EncodeBase32(rfcKey)
	code, err := g.Code(secret, 30, 8)
	require.NoError(t, err)
	assert.Equal(t, "94287082", code)

	code, err = g.Code(secret, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "287082", code)

	_, err = g.Code("not base32!", 30, 6)
	require.ErrorIs(t, err, ErrInvalidBase32)
	assert.Equal(t, "000000", g.CodeOrFallback("not base32!", 30, 6))
	assert.Equal(t, "00000000", g.CodeOrFallback("not base32!", 30, 8))

	assert.InDelta(t, 1.0/30, g.Remaining(30), 1e-9)
	assert.Equal(t, 1, g.SecondsLeft(30))
}

func TestRandomSecret(t *testing.T) {
	s, err := RandomSecret(DefaultSecretLength)
	require.NoError(t, err)
	require.Len(t, s, DefaultSecretLength)
	for _, c := range s {
		assert.True(t, strings.ContainsRune(alphabet, c), "unexpected %q", c)
	}

	_, err = DecodeBase32(s)
	require.NoError(t, err)

	other, err := RandomSecret(DefaultSecretLength)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)

	_, err = RandomSecret(0)
	require.Error(t, err)
}
