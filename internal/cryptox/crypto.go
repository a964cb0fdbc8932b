// Package cryptox wraps the symmetric primitives used to protect vault
// collections at rest and in the cloud.
//
// Blobs produced by Service are the combined AES-256-GCM form
// nonce(12) || ciphertext || tag(16).
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// StaticPassphrase seeds the built-in key. Every installation using the
// static key source shares it, so it only protects against casual reads.
const StaticPassphrase = "KeyboxAppSecretKey2024SecureStorage"

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Service encrypts and decrypts self-contained blobs under one key.
type Service struct {
	aead cipher.AEAD
}

// NewService builds a Service for a 32-byte key.
func NewService(key []byte) (*Service, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

// StaticKey returns SHA-256(StaticPassphrase).
func StaticKey() []byte {
	sum := sha256.Sum256([]byte(StaticPassphrase))
	return sum[:]
}

// NewStaticService builds a Service over StaticKey.
func NewStaticService() *Service {
	s, err := NewService(StaticKey())
	if err != nil {
		// a 32-byte key cannot be rejected by aes.NewCipher
		panic(err)
	}
	return s
}

// Encrypt seals plaintext under a fresh random nonce.
func (s *Service) Encrypt(plaintext []byte) ([]byte, error) {
	nonce, err := RandomBytes(s.aead.NonceSize())
	if err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. It reports false for blobs that
// are too short, were sealed under another key, or were tampered with.
func (s *Service) Decrypt(blob []byte) ([]byte, bool) {
	ns := s.aead.NonceSize()
	if len(blob) < ns+s.aead.Overhead() {
		return nil, false
	}
	plaintext, err := s.aead.Open(nil, blob[:ns], blob[ns:], nil)
	if err != nil {
		return nil, false
	}
	return plaintext, true
}

// MakeVerifier derives a value that can be stored to check a key later
// without storing the key itself.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey stretches a passphrase with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Wipe zeroes b in place.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
