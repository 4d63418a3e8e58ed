package application

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"

	"github.com/envseal/envseal/internal/domain/models"
	"github.com/envseal/envseal/internal/domain/service"
	"github.com/envseal/envseal/internal/infrastructure/monitoring"
	"github.com/envseal/envseal/pkg/errors"
	"github.com/envseal/envseal/pkg/logger"
)

var tracer = otel.Tracer("envseal/application")

// EnvelopeKeyManager produces envelope data keys for signing and recovers
// their plaintext during verification. The cache is optional: when none is
// configured every resolution goes straight to the key management service.
type EnvelopeKeyManager struct {
	kms     service.KeyManagementService
	cache   service.KeyCache
	log     logger.Logger
	metrics *monitoring.Metrics
}

// ManagerOption customizes an EnvelopeKeyManager.
type ManagerOption func(*EnvelopeKeyManager)

// WithKeyCache enables plaintext key caching across verifications.
func WithKeyCache(cache service.KeyCache) ManagerOption {
	return func(m *EnvelopeKeyManager) { m.cache = cache }
}

// WithLogger sets the manager logger.
func WithLogger(log logger.Logger) ManagerOption {
	return func(m *EnvelopeKeyManager) { m.log = log }
}

// WithMetrics enables manager instrumentation.
func WithMetrics(metrics *monitoring.Metrics) ManagerOption {
	return func(m *EnvelopeKeyManager) { m.metrics = metrics }
}

// NewEnvelopeKeyManager builds a manager on top of a key management service.
func NewEnvelopeKeyManager(kms service.KeyManagementService, opts ...ManagerOption) *EnvelopeKeyManager {
	m := &EnvelopeKeyManager{
		kms: kms,
		log: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithComponent("envelope_key_manager")
	return m
}

// GenerateEnvelopeKey requests a fresh data key under the given master key.
// The caller owns the returned plaintext and must wipe it after signing.
func (m *EnvelopeKeyManager) GenerateEnvelopeKey(ctx context.Context, masterKeyID string) (*models.DataKey, error) {
	ctx, span := tracer.Start(ctx, "envelope.generate_data_key")
	defer span.End()

	dk, err := m.kms.GenerateDataKey(ctx, masterKeyID, models.KeySpecAES128)
	if err != nil {
		m.recordKMSCall("generate_data_key", "error")
		return nil, errors.KeyGenerationFailed("key management service could not generate a data key").
			WithCause(err).
			WithMetadata("master_key_id", masterKeyID)
	}
	m.recordKMSCall("generate_data_key", "success")
	return dk, nil
}

// ResolvePlaintextKey recovers the plaintext signing key for a presented
// token from its protected header and claims. It satisfies
// crypto.SecretResolver; the codec owns the returned buffer and wipes it
// once verification completes.
func (m *EnvelopeKeyManager) ResolvePlaintextKey(ctx context.Context, header map[string]any, claims jwt.MapClaims) ([]byte, error) {
	env, err := models.ParseEnvelopeHeaders(header)
	if err != nil {
		return nil, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.MalformedEnvelope("token is missing a usable exp claim").WithCause(err)
	}
	ciphertext, err := env.DecodeEncryptedKey()
	if err != nil {
		return nil, err
	}

	if m.cache == nil {
		return m.resolveDirect(ctx, ciphertext)
	}
	return m.resolveCached(ctx, env, ciphertext, exp.Time)
}

// resolveDirect unwraps the data key through the key management service.
func (m *EnvelopeKeyManager) resolveDirect(ctx context.Context, ciphertext []byte) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "envelope.decrypt_data_key")
	defer span.End()

	plaintext, err := m.kms.Decrypt(ctx, ciphertext)
	if err != nil {
		m.recordKMSCall("decrypt", "error")
		return nil, errors.KeyDecryptionFailed("key management service could not decrypt the data key").WithCause(err)
	}
	m.recordKMSCall("decrypt", "success")
	return plaintext, nil
}

// resolveCached consults the cache before falling back to the key management
// service, then stores the unwrapped key until the token's own expiry.
// Cache failures degrade to a direct resolution; only context cancellation
// aborts the lookup.
func (m *EnvelopeKeyManager) resolveCached(ctx context.Context, env models.EnvelopeHeaders, ciphertext []byte, expiresAt time.Time) ([]byte, error) {
	key := env.CacheKey()

	value, hit, err := m.cache.Get(ctx, key)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return nil, err
		}
		m.recordCacheLookup("error")
		m.log.Warn(ctx, "key cache read failed, resolving through kms",
			logger.String("cache_key", key),
			logger.Any("error", err))
	case hit:
		m.recordCacheLookup("hit")
		return value, nil
	default:
		m.recordCacheLookup("miss")
	}

	plaintext, err := m.resolveDirect(ctx, ciphertext)
	if err != nil {
		return nil, err
	}
	if setErr := m.cache.Set(ctx, key, plaintext, expiresAt); setErr != nil {
		if ctx.Err() != nil {
			return nil, setErr
		}
		m.log.Warn(ctx, "key cache write failed, continuing without cache entry",
			logger.String("cache_key", key),
			logger.Any("error", setErr))
	}
	return plaintext, nil
}

func (m *EnvelopeKeyManager) recordKMSCall(operation, result string) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordKMSCall(operation, result)
}

func (m *EnvelopeKeyManager) recordCacheLookup(outcome string) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordCacheLookup(outcome)
}
