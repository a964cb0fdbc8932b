package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase32(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr error
	}{
		{name: "hello", in: "JBSWY3DPEHPK3PXP", want: []byte("Hello!\xde\xad\xbe\xef")},
		{name: "lower case", in: "jbswy3dpehpk3pxp", want: []byte("Hello!\xde\xad\xbe\xef")},
		{name: "padding and spaces", in: "MZXW 6===", want: []byte("foo")},
		{name: "rfc key", in: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", want: []byte("12345678901234567890")},
		{name: "trailing bits dropped", in: "MZXW6Y", want: []byte("foo")},
		{name: "empty", in: "", want: []byte{}},
		{name: "invalid char", in: "ABC1", wantErr: ErrInvalidBase32},
		{name: "invalid symbol", in: "AB-C", wantErr: ErrInvalidBase32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase32(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeBase32_RoundTrip(t *testing.T) {
	for _, s := range []string{"JBSWY3DPEHPK3PXP", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", "MZXW6YTBOI"} {
		b, err := DecodeBase32(s)
		require.NoError(t, err)
		assert.Equal(t, s, EncodeBase32(b))
	}
}

func TestNormalizeSecret(t *testing.T) {
	assert.Equal(t, "JBSWY3DP", NormalizeSecret("  jbswy3dp \n"))
}
