// Package constants defines protocol-level constants shared by the issuance
// and verification paths. Header names, the cache-key prefix, and the data-key
// spec are wire contracts; changing any of them breaks interoperability with
// tokens already in circulation.
package constants

// Protected header names carried by every envelope token.
const (
	// HeaderAppID is the client application identifier header.
	HeaderAppID = "aid"

	// HeaderKeyID is the per-issuance unique identifier header (UUID v4).
	// It is a cache-bucket discriminator only and has no cryptographic role.
	HeaderKeyID = "kid"

	// HeaderEncryptedKey is the base64-encoded ciphertext of the per-token
	// data key, as returned by the key management service.
	HeaderEncryptedKey = "kct"
)

// Standard claim names used by the issuance path.
const (
	ClaimAudience  = "aud"
	ClaimSubject   = "sub"
	ClaimIssuedAt  = "iat"
	ClaimExpiresAt = "exp"
)

// KeyCachePrefix namespaces cached plaintext data keys. The full cache key is
// KeyCachePrefix + aid + "-" + kid.
const KeyCachePrefix = "Jwt-Kms-"

// DefaultSigningKeyID selects the signing method used when a caller does not
// name one explicitly.
const DefaultSigningKeyID = "HS256"

// TokenTypeBearer is the token_type value returned by the HTTP interface.
const TokenTypeBearer = "Bearer"

// AuditEventType identifies the kind of audit event emitted by the service.
type AuditEventType string

const (
	// AuditEventTokenIssued records a successful token issuance.
	AuditEventTokenIssued AuditEventType = "token.issued"

	// AuditEventTokenRejected records a failed verification attempt.
	AuditEventTokenRejected AuditEventType = "token.rejected"
)

// ContextKey is the type used for request-scoped context values.
type ContextKey string

const (
	// ContextKeyRequestID carries the request correlation id.
	ContextKeyRequestID ContextKey = "request_id"
)
