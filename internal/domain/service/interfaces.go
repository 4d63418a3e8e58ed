// Package service defines the domain-facing interfaces implemented by the
// infrastructure layer. Application code depends on these, never on concrete
// backends.
package service

import (
	"context"
	"time"

	"github.com/envseal/envseal/internal/domain/models"
)

// KeyManagementService is the external key management collaborator. Both
// operations are remote round trips; implementations must honor context
// cancellation and surface their transport errors unwrapped enough for the
// caller to classify them.
type KeyManagementService interface {
	// GenerateDataKey mints a fresh data key under the given master key and
	// returns it in both plaintext and ciphertext form.
	GenerateDataKey(ctx context.Context, masterKeyID string, spec models.KeySpec) (*models.DataKey, error)

	// Decrypt recovers the plaintext of a data-key ciphertext blob.
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// KeyCache stores plaintext data keys under derived cache keys with an
// absolute expiry. Implementations must copy values on both read and write:
// callers wipe plaintext buffers they own, and a shared backing array would
// corrupt the cached entry.
type KeyCache interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) (value []byte, hit bool, err error)

	// Set stores value until the absolute time expiresAt. Entries whose
	// expiry is already in the past are not stored.
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
}

// TokenService is the public token lifecycle surface.
type TokenService interface {
	// Issue builds, signs, and serializes a new envelope token.
	Issue(ctx context.Context, req models.IssueRequest) (string, error)

	// ParseAndVerify parses a serialized token, resolves its data key, and
	// verifies the signature under the named signing key.
	ParseAndVerify(ctx context.Context, serialized, signingKeyID string) (*models.Token, error)
}

// AuditService publishes token lifecycle events. Publishing is best effort;
// it must never fail or block the token path.
type AuditService interface {
	LogEvent(ctx context.Context, event models.AuditEvent) error
	Close() error
}
