package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/auditbridge/pseudonym/internal/crypto/domain"

	// Register KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KeyLoaderConfig selects the data key source. When KMSKeyURI is set, the
// wrapped data key is unwrapped through the configured KMS provider; otherwise
// DataKey is used directly as a base64-encoded 32-byte key.
type KeyLoaderConfig struct {
	// DataKey is a base64-encoded 32-byte key (development / single-node setups).
	DataKey string
	// KMSKeyURI is the KMS key URI used to unwrap WrappedDataKey.
	// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
	KMSKeyURI string
	// WrappedDataKey is the base64-encoded data key ciphertext.
	WrappedDataKey string
}

// LoadDataKey resolves the 32-byte AEAD data key from configuration.
// Callers own the returned key and must zero it when no longer needed.
func LoadDataKey(ctx context.Context, cfg KeyLoaderConfig) ([]byte, error) {
	if cfg.KMSKeyURI != "" {
		return unwrapDataKey(ctx, cfg.KMSKeyURI, cfg.WrappedDataKey)
	}

	if cfg.DataKey == "" {
		return nil, fmt.Errorf("no data key configured: set DATA_KEY or KMS_KEY_URI")
	}

	key, err := base64.StdEncoding.DecodeString(cfg.DataKey)
	if err != nil {
		return nil, fmt.Errorf("data key must be valid base64: %w", err)
	}
	if len(key) != 32 {
		cryptoDomain.Zero(key)
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	return key, nil
}

// unwrapDataKey decrypts the wrapped data key through a gocloud.dev secrets keeper.
func unwrapDataKey(ctx context.Context, keyURI, wrapped string) ([]byte, error) {
	if wrapped == "" {
		return nil, fmt.Errorf("KMS_KEY_URI is set but WRAPPED_DATA_KEY is empty")
	}

	wrappedBytes, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("wrapped data key must be valid base64: %w", err)
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer keeper.Close()

	key, err := keeper.Decrypt(ctx, wrappedBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap data key: %w", err)
	}
	if len(key) != 32 {
		cryptoDomain.Zero(key)
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	return key, nil
}
