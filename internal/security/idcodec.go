package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ivankudzin/oneclick/internal/domain/errs"
)

var ErrInvalidCodecKey = errors.New("invalid id codec key")

// IDCodec turns record identifiers into opaque tokens that are safe to embed
// in externally visible callback URLs.
type IDCodec struct {
	aead cipher.AEAD
}

func NewIDCodec(rawKey string) (*IDCodec, error) {
	key, err := decodeKey(rawKey)
	if err != nil {
		return nil, err
	}
	return newIDCodec(key)
}

// NewRandomIDCodec uses an ephemeral key; tokens do not survive a restart.
func NewRandomIDCodec() (*IDCodec, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate codec key: %w", err)
	}
	return newIDCodec(key)
}

func newIDCodec(key []byte) (*IDCodec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &IDCodec{aead: aead}, nil
}

func (c *IDCodec) Encrypt(plain string) (string, error) {
	if c == nil || c.aead == nil {
		return "", ErrInvalidCodecKey
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	payload := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// Decrypt fails with a decode error for malformed, truncated or tampered tokens.
func (c *IDCodec) Decrypt(token string) (string, error) {
	if c == nil || c.aead == nil {
		return "", errs.Decode(ErrInvalidCodecKey)
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", errs.Decode(fmt.Errorf("decode token: %w", err))
	}
	nonceSize := c.aead.NonceSize()
	if len(payload) < nonceSize+c.aead.Overhead() {
		return "", errs.Decode(errors.New("token is truncated"))
	}
	plain, err := c.aead.Open(nil, payload[:nonceSize], payload[nonceSize:], nil)
	if err != nil {
		return "", errs.Decode(fmt.Errorf("open token: %w", err))
	}
	return string(plain), nil
}

func decodeKey(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrInvalidCodecKey
	}

	if decoded, err := hex.DecodeString(trimmed); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(trimmed); err == nil && len(decoded) == 32 {
		return decoded, nil
	}

	if len(trimmed) == 32 {
		return []byte(trimmed), nil
	}
	return nil, ErrInvalidCodecKey
}
