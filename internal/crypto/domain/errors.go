package domain

import (
	"github.com/auditbridge/pseudonym/internal/errors"
)

var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	// All keys must be exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to a wrong key, tampered ciphertext (authentication
	// failure), an invalid nonce, or corrupted data. For security reasons, the
	// specific cause is not disclosed to prevent information leakage.
	ErrDecryptionFailed = errors.New("decryption failed")
)
