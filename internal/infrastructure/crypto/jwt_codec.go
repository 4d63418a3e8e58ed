// Package crypto implements the compact JWS codec for envelope tokens on top
// of golang-jwt. The codec is envelope-agnostic: it signs and verifies with
// whatever symmetric secret the caller resolves, so non-envelope token
// variants can reuse it.
package crypto

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/envseal/envseal/internal/domain/models"
	"github.com/envseal/envseal/pkg/constants"
	"github.com/envseal/envseal/pkg/errors"
	"github.com/envseal/envseal/pkg/logger"
)

// SecretResolver recovers the symmetric signing secret for a parsed token
// from its protected headers and claims. The codec wipes the returned buffer
// once verification completes, so implementations must hand out a private
// copy.
type SecretResolver func(ctx context.Context, header map[string]any, claims jwt.MapClaims) ([]byte, error)

// TokenCodec signs and verifies compact-serialized tokens. A signing key id
// names an entry in the HMAC method registry; issuance and verification must
// use the same id.
type TokenCodec struct {
	methods map[string]jwt.SigningMethod
	now     func() time.Time
	log     logger.Logger
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithTimeFunc overrides the clock used for claim validation.
func WithTimeFunc(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec creates a codec with the standard HMAC method registry.
func NewTokenCodec(log logger.Logger, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		methods: map[string]jwt.SigningMethod{
			"HS256": jwt.SigningMethodHS256,
			"HS384": jwt.SigningMethodHS384,
			"HS512": jwt.SigningMethodHS512,
		},
		now: time.Now,
		log: log.WithComponent("TokenCodec"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TokenCodec) method(signingKeyID string) (jwt.SigningMethod, error) {
	if signingKeyID == "" {
		signingKeyID = constants.DefaultSigningKeyID
	}
	m, ok := c.methods[signingKeyID]
	if !ok {
		return nil, errors.InvalidRequest("unknown signing key id").
			WithMetadata("signing_key_id", signingKeyID)
	}
	return m, nil
}

// Sign assembles a token from protected headers and claims and signs it with
// the given symmetric secret. The secret is not retained.
func (c *TokenCodec) Sign(header map[string]string, claims jwt.MapClaims, secret []byte, signingKeyID string) (string, error) {
	m, err := c.method(signingKeyID)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(m, claims)
	for k, v := range header {
		token.Header[k] = v
	}

	serialized, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Internal("failed to sign token").WithCause(err)
	}
	return serialized, nil
}

// ParseAndVerify parses a compact-serialized token, resolves its signing
// secret via resolve, and verifies the signature and standard claims.
//
// Failures stay distinguishable: a resolver failure is returned as-is, a
// signature mismatch maps to invalid_signature, an exp/nbf violation to
// expired_token, and anything structurally unparseable to malformed_token.
func (c *TokenCodec) ParseAndVerify(ctx context.Context, serialized, signingKeyID string, resolve SecretResolver) (*models.Token, error) {
	m, err := c.method(signingKeyID)
	if err != nil {
		return nil, err
	}

	var resolveErr error
	var secret []byte

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.Alg()}),
		jwt.WithTimeFunc(c.now),
	)

	parsed, err := parser.Parse(serialized, func(t *jwt.Token) (any, error) {
		claims, ok := t.Claims.(jwt.MapClaims)
		if !ok {
			return nil, errors.MalformedToken("unexpected claims type")
		}
		key, kerr := resolve(ctx, t.Header, claims)
		if kerr != nil {
			resolveErr = kerr
			return nil, kerr
		}
		secret = key
		return key, nil
	})
	defer func() { wipe(secret) }()

	if err != nil {
		switch {
		case resolveErr != nil:
			return nil, resolveErr
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.InvalidSignature().WithCause(err)
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, errors.ExpiredToken().WithCause(err)
		default:
			return nil, errors.MalformedToken("token failed to parse").WithCause(err)
		}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.MalformedToken("unexpected claims type")
	}

	return &models.Token{
		Raw:     serialized,
		Headers: parsed.Header,
		Claims:  claims,
	}, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
