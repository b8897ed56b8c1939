package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const nonceSize = 12

// Encrypt seals plaintext with AES-256-GCM. The payload layout is
// nonce || auth tag || ciphertext, base64-encoded, and the key is a
// base64-encoded 32-byte secret.
func Encrypt(plaintext, base64Key string) (string, error) {
	gcm, err := newGCM(base64Key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext||tag; reorder to nonce||tag||ciphertext to
	// stay compatible with tokens written by the web tier.
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()
	payload := append(nonce, sealed[tagStart:]...)
	payload = append(payload, sealed[:tagStart]...)

	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt reverses Encrypt.
func Decrypt(payload, base64Key string) (string, error) {
	gcm, err := newGCM(base64Key)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid token payload: %w", err)
	}
	if len(data) < nonceSize+gcm.Overhead() {
		return "", fmt.Errorf("token payload too short")
	}

	nonce := data[:nonceSize]
	tag := data[nonceSize : nonceSize+gcm.Overhead()]
	ciphertext := data[nonceSize+gcm.Overhead():]

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(base64Key string) (cipher.AEAD, error) {
	if base64Key == "" {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY is not set")
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be 32 bytes (base64-encoded)")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
