package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealerInfo = "entrepreneursim session credential v1"

// ErrUnsealable is returned when a sealed credential fails authentication
var ErrUnsealable = errors.New("credential cannot be unsealed")

// Sealer encrypts credentials before they reach durable storage.
// The session id is bound as additional data, so a sealed token copied to
// another session id does not open.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an XChaCha20-Poly1305 key from secret
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(sealerInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// NewRandomSealer uses a throwaway key. Sealed values do not survive a restart.
func NewRandomSealer() (*Sealer, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return NewSealer(secret)
}

// Seal encrypts token for sessionID. Output is nonce || ciphertext.
func (s *Sealer) Seal(sessionID, token string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(token)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, []byte(token), []byte(sessionID)), nil
}

// Open decrypts a value produced by Seal for the same sessionID
func (s *Sealer) Open(sessionID string, sealed []byte) (string, error) {
	if len(sealed) < s.aead.NonceSize() {
		return "", ErrUnsealable
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(sessionID))
	if err != nil {
		return "", ErrUnsealable
	}
	return string(plain), nil
}
