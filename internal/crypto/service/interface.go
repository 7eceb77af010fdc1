// Package service provides cryptographic services for protecting mapping values at rest.
// Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305) and the string encryption
// adapter used by the mapping store.
package service

import (
	cryptoDomain "github.com/auditbridge/pseudonym/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// StringCipher encrypts and decrypts single string values. It is the boundary the
// mapping store depends on: originals are only ever persisted as the ciphertext
// and nonce this interface produces, and Decrypt fails on tampered or corrupted
// ciphertext rather than returning garbage.
type StringCipher interface {
	// Encrypt encrypts a plaintext value and returns ciphertext and nonce.
	Encrypt(plaintext string) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts a ciphertext/nonce pair back to the plaintext value.
	// Returns domain.ErrDecryptionFailed on authentication failure.
	Decrypt(ciphertext, nonce []byte) (string, error)
}
