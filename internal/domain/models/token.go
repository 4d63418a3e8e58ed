package models

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/envseal/envseal/pkg/constants"
	"github.com/envseal/envseal/pkg/errors"
)

// EnvelopeHeaders are the three protected headers attached to every envelope
// token. They are present together or not at all.
type EnvelopeHeaders struct {
	// AppID is the caller-supplied client application identifier (aid).
	AppID string
	// KeyID is the per-issuance unique identifier (kid), UUID v4. It only
	// discriminates cache buckets and has no cryptographic role.
	KeyID string
	// EncryptedKey is the base64-encoded data-key ciphertext (kct).
	EncryptedKey string
}

// NewEnvelopeHeaders mints headers for a fresh issuance: a new UUID v4 kid
// and the standard-base64 encoding of the data-key ciphertext.
func NewEnvelopeHeaders(appID string, ciphertext []byte) EnvelopeHeaders {
	return EnvelopeHeaders{
		AppID:        appID,
		KeyID:        uuid.NewString(),
		EncryptedKey: base64.StdEncoding.EncodeToString(ciphertext),
	}
}

// ParseEnvelopeHeaders extracts envelope headers from a parsed token header
// map. A missing or non-string value for any of aid, kid, kct is a malformed
// envelope.
func ParseEnvelopeHeaders(header map[string]any) (EnvelopeHeaders, error) {
	var env EnvelopeHeaders
	for _, h := range []struct {
		name string
		dst  *string
	}{
		{constants.HeaderAppID, &env.AppID},
		{constants.HeaderKeyID, &env.KeyID},
		{constants.HeaderEncryptedKey, &env.EncryptedKey},
	} {
		v, ok := header[h.name].(string)
		if !ok || v == "" {
			return EnvelopeHeaders{}, errors.MalformedEnvelope("missing envelope header").
				WithMetadata("header", h.name)
		}
		*h.dst = v
	}
	return env, nil
}

// CacheKey derives the cache key for this envelope's plaintext data key.
func (h EnvelopeHeaders) CacheKey() string {
	return constants.KeyCachePrefix + h.AppID + "-" + h.KeyID
}

// DecodeEncryptedKey decodes the kct header back into the raw ciphertext.
func (h EnvelopeHeaders) DecodeEncryptedKey() ([]byte, error) {
	ct, err := base64.StdEncoding.DecodeString(h.EncryptedKey)
	if err != nil {
		return nil, errors.MalformedEnvelope("encrypted key is not valid base64").WithCause(err)
	}
	return ct, nil
}

// Map returns the headers as they appear on the wire.
func (h EnvelopeHeaders) Map() map[string]string {
	return map[string]string{
		constants.HeaderAppID:        h.AppID,
		constants.HeaderKeyID:        h.KeyID,
		constants.HeaderEncryptedKey: h.EncryptedKey,
	}
}

// Token is a parsed, signature-verified token. Headers and claims are
// immutable once the instance is handed to a caller.
type Token struct {
	// Raw is the serialized compact form the token was parsed from.
	Raw     string
	Headers map[string]any
	Claims  jwt.MapClaims
}

// Envelope returns the token's envelope headers.
func (t *Token) Envelope() (EnvelopeHeaders, error) {
	return ParseEnvelopeHeaders(t.Headers)
}

// Subject returns the sub claim.
func (t *Token) Subject() string {
	sub, _ := t.Claims.GetSubject()
	return sub
}

// Audience returns the aud claim.
func (t *Token) Audience() []string {
	aud, _ := t.Claims.GetAudience()
	return aud
}

// IssuedAt returns the iat claim, or the zero time when absent.
func (t *Token) IssuedAt() time.Time {
	iat, err := t.Claims.GetIssuedAt()
	if err != nil || iat == nil {
		return time.Time{}
	}
	return iat.Time
}

// ExpiresAt returns the exp claim, or the zero time when absent.
func (t *Token) ExpiresAt() time.Time {
	exp, err := t.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Claim returns a claim by name.
func (t *Token) Claim(name string) (any, bool) {
	v, ok := t.Claims[name]
	return v, ok
}

// IssueRequest carries the caller-supplied inputs of one token issuance.
type IssueRequest struct {
	MasterKeyID  string
	ClientAppID  string
	Subject      string
	Audience     []string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	CustomClaims map[string]any
	SigningKeyID string
}
