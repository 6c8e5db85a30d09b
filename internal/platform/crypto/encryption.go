// Package crypto seals small secrets, such as TOTP seeds, at rest with
// AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize    = 32
	minKeySize = 16
	keyInfo    = "staffeval secret box v1"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

type Box struct {
	aead cipher.AEAD
}

// NewBox derives the AES key from the configured key material. An empty key
// yields a box that passes values through unchanged.
func NewBox(material string) (*Box, error) {
	if material == "" {
		return &Box{}, nil
	}
	raw := decodeKey(material)
	if len(raw) < minKeySize {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must carry at least %d bytes", minKeySize)
	}
	key := raw
	if len(raw) != keySize {
		key = make([]byte, keySize)
		if _, err := io.ReadFull(hkdf.New(sha256.New, raw, nil, []byte(keyInfo)), key); err != nil {
			return nil, fmt.Errorf("derive key: %w", err)
		}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

func (b *Box) Configured() bool {
	return b != nil && b.aead != nil
}

// Seal returns nonce||ciphertext.
func (b *Box) Seal(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !b.Configured() {
		return plain, nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return b.aead.Seal(nonce, nonce, plain, nil), nil
}

func (b *Box) Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if !b.Configured() {
		return sealed, nil
	}
	size := b.aead.NonceSize()
	if len(sealed) < size {
		return nil, ErrCiphertextTooShort
	}
	return b.aead.Open(nil, sealed[:size], sealed[size:], nil)
}

func (b *Box) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return b.Seal([]byte(value))
}

func (b *Box) DecryptString(value []byte) (string, error) {
	plain, err := b.Open(value)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func decodeKey(raw string) []byte {
	if len(raw) == 2*keySize {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	return []byte(raw)
}
