package redisrepo

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
	nonceSize = 24
	keySize   = 32
	sealInfo  = "sponsor-gate creator access token v1"
)

// Sealer encrypts creator access tokens at rest with a key derived from the
// service secret.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives a secretbox key from secret using HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("[NewSealer] secret is required")
	}
	s := &Sealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("[NewSealer] deriving key: %w", err)
	}
	return s, nil
}

// Seal returns base64(nonce || box).
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("[Sealer Seal] generating nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.RawStdEncoding.EncodeToString(box), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("[Sealer Open] decoding: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", errors.New("[Sealer Open] sealed value too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errors.New("[Sealer Open] authentication failed")
	}
	return string(plain), nil
}
