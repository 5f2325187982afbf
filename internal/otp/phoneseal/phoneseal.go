// Package phoneseal encrypts phone numbers before they are written to evidence.
// Only the last four digits are ever stored in clear.
package phoneseal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	info      = "phasegate/phone-seal/v1"
)

var ErrMalformed = errors.New("phoneseal: malformed sealed value")

// Sealer seals and opens phone numbers with a key derived from a secret.
type Sealer struct {
	key [keySize]byte
}

// New derives the sealing key from secret with HKDF-SHA256.
func New(secret string) (*Sealer, error) {
	if len(secret) < keySize {
		return nil, fmt.Errorf("phoneseal: secret must be at least %d bytes", keySize)
	}
	s := &Sealer{}
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), s.key[:]); err != nil {
		return nil, fmt.Errorf("phoneseal: derive key: %w", err)
	}
	return s, nil
}

// Seal returns base64url(nonce || box). Each call uses a fresh nonce, so the
// same phone seals to different values.
func (s *Sealer) Seal(phone string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("phoneseal: nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(phone), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrMalformed
	}
	return string(plain), nil
}

// Last4 returns the last four characters of phone, or all of it when shorter.
func Last4(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
