// Package service wires the envelope key manager and the token codec into
// the token lifecycle operations exposed to transports.
package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/envseal/envseal/internal/application"
	"github.com/envseal/envseal/internal/domain/models"
	domainservice "github.com/envseal/envseal/internal/domain/service"
	"github.com/envseal/envseal/internal/infrastructure/crypto"
	"github.com/envseal/envseal/internal/infrastructure/monitoring"
	"github.com/envseal/envseal/pkg/constants"
	"github.com/envseal/envseal/pkg/errors"
	"github.com/envseal/envseal/pkg/logger"
)

var tracer = otel.Tracer("envseal/application/service")

// reservedClaims are always service-populated; callers may not override them
// through custom claims.
var reservedClaims = []string{
	constants.ClaimAudience,
	constants.ClaimSubject,
	constants.ClaimIssuedAt,
	constants.ClaimExpiresAt,
}

// TokenAppService implements the token lifecycle on top of the envelope key
// manager and the JWT codec.
type TokenAppService struct {
	keys    *application.EnvelopeKeyManager
	codec   *crypto.TokenCodec
	audit   domainservice.AuditService
	metrics *monitoring.Metrics
	log     logger.Logger
	now     func() time.Time
}

var _ domainservice.TokenService = (*TokenAppService)(nil)

// TokenOption customizes a TokenAppService.
type TokenOption func(*TokenAppService)

// WithAudit enables audit event publication.
func WithAudit(audit domainservice.AuditService) TokenOption {
	return func(s *TokenAppService) { s.audit = audit }
}

// WithMetrics enables token path instrumentation.
func WithMetrics(metrics *monitoring.Metrics) TokenOption {
	return func(s *TokenAppService) { s.metrics = metrics }
}

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) TokenOption {
	return func(s *TokenAppService) { s.log = log }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenAppService) { s.now = now }
}

// NewTokenAppService builds the token service.
func NewTokenAppService(keys *application.EnvelopeKeyManager, codec *crypto.TokenCodec, opts ...TokenOption) *TokenAppService {
	s := &TokenAppService{
		keys:  keys,
		codec: codec,
		log:   logger.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("token_service")
	return s
}

// Issue generates a data key under the request's master key, mints envelope
// headers, and signs the claims with the plaintext key. The plaintext is
// wiped before returning; only the wrapped ciphertext leaves in the token.
func (s *TokenAppService) Issue(ctx context.Context, req models.IssueRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "token.issue")
	defer span.End()
	start := s.now()

	if err := validateIssueRequest(req); err != nil {
		s.recordIssue(req.ClientAppID, "invalid_request", start)
		return "", err
	}

	dk, err := s.keys.GenerateEnvelopeKey(ctx, req.MasterKeyID)
	if err != nil {
		s.recordIssue(req.ClientAppID, "key_generation_error", start)
		return "", err
	}
	defer dk.Wipe()

	env := models.NewEnvelopeHeaders(req.ClientAppID, dk.Ciphertext)

	claims := make(jwt.MapClaims, len(req.CustomClaims)+4)
	for name, value := range req.CustomClaims {
		claims[name] = value
	}
	claims[constants.ClaimAudience] = req.Audience
	claims[constants.ClaimSubject] = req.Subject
	claims[constants.ClaimIssuedAt] = req.IssuedAt.Unix()
	claims[constants.ClaimExpiresAt] = req.ExpiresAt.Unix()

	serialized, err := s.codec.Sign(env.Map(), claims, dk.Plaintext, req.SigningKeyID)
	if err != nil {
		s.recordIssue(req.ClientAppID, "signing_error", start)
		return "", err
	}

	s.publishAudit(ctx, models.AuditEvent{
		ID:        uuid.NewString(),
		Type:      constants.AuditEventTokenIssued,
		AppID:     env.AppID,
		KeyID:     env.KeyID,
		Subject:   req.Subject,
		Timestamp: s.now().UTC(),
	})
	s.recordIssue(req.ClientAppID, "success", start)
	s.log.Info(ctx, "token issued",
		logger.String("app_id", env.AppID),
		logger.String("key_id", env.KeyID))
	return serialized, nil
}

// ParseAndVerify parses a serialized token, recovers its data key through
// the envelope key manager, and verifies the signature under signingKeyID.
func (s *TokenAppService) ParseAndVerify(ctx context.Context, serialized, signingKeyID string) (*models.Token, error) {
	ctx, span := tracer.Start(ctx, "token.verify")
	defer span.End()
	start := s.now()

	token, err := s.codec.ParseAndVerify(ctx, serialized, signingKeyID, s.keys.ResolvePlaintextKey)
	if err != nil {
		reason := string(errors.CodeOf(err))
		s.publishAudit(ctx, models.AuditEvent{
			ID:        uuid.NewString(),
			Type:      constants.AuditEventTokenRejected,
			Reason:    reason,
			Timestamp: s.now().UTC(),
		})
		s.recordVerify(reason, start)
		return nil, err
	}

	s.recordVerify("success", start)
	return token, nil
}

func validateIssueRequest(req models.IssueRequest) error {
	switch {
	case req.ClientAppID == "":
		return errors.InvalidRequest("client application id is required")
	case req.MasterKeyID == "":
		return errors.InvalidRequest("master key id is required")
	case len(req.Audience) == 0:
		return errors.InvalidRequest("audience is required")
	case req.IssuedAt.IsZero() || req.ExpiresAt.IsZero():
		return errors.InvalidRequest("issuance and expiry times are required")
	case !req.ExpiresAt.After(req.IssuedAt):
		return errors.InvalidRequest("expiry must be after issuance")
	}
	for _, name := range reservedClaims {
		if _, ok := req.CustomClaims[name]; ok {
			return errors.ClaimConflict(name)
		}
	}
	return nil
}

// publishAudit is best effort: failures are logged and never surfaced.
func (s *TokenAppService) publishAudit(ctx context.Context, event models.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.log.Warn(ctx, "audit event dropped",
			logger.String("event_type", string(event.Type)),
			logger.Any("error", err))
	}
}

func (s *TokenAppService) recordIssue(appID, result string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordIssue(appID, result, s.now().Sub(start))
}

func (s *TokenAppService) recordVerify(result string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordVerify(result, s.now().Sub(start))
}
