package service

import (
	cryptoDomain "github.com/auditbridge/pseudonym/internal/crypto/domain"
)

// aeadStringCipher implements StringCipher on top of an AEAD cipher.
type aeadStringCipher struct {
	aead AEAD
}

// NewStringCipher creates a StringCipher using the given key and algorithm.
// The key must be exactly 32 bytes.
func NewStringCipher(key []byte, alg cryptoDomain.Algorithm) (StringCipher, error) {
	manager := NewAEADManager()
	aead, err := manager.CreateCipher(key, alg)
	if err != nil {
		return nil, err
	}
	return &aeadStringCipher{aead: aead}, nil
}

// Encrypt encrypts a plaintext value and returns ciphertext and nonce.
func (s *aeadStringCipher) Encrypt(plaintext string) (ciphertext, nonce []byte, err error) {
	return s.aead.Encrypt([]byte(plaintext), nil)
}

// Decrypt decrypts a ciphertext/nonce pair back to the plaintext value.
// Returns ErrDecryptionFailed on authentication failure so callers can isolate
// corrupted rows without learning why the decrypt failed.
func (s *aeadStringCipher) Decrypt(ciphertext, nonce []byte) (string, error) {
	plaintext, err := s.aead.Decrypt(ciphertext, nonce, nil)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}
	return string(plaintext), nil
}
