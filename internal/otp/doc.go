// Package otp implements the one-time password primitives used by the vault:
//
//   - a lenient RFC 4648 Base32 codec for shared secrets,
//   - HOTP (RFC 4226) and TOTP (RFC 6238) over HMAC-SHA1,
//   - otpauth:// URI parsing and building,
//   - random secret generation.
//
// All functions are pure except Generator, which reads the current instant
// from an injected timex.Clock.
package otp
