// Package handlers exposes the token lifecycle over HTTP.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/internal/domain/models"
	"github.com/envseal/envseal/internal/domain/service"
	"github.com/envseal/envseal/pkg/constants"
	"github.com/envseal/envseal/pkg/errors"
	"github.com/envseal/envseal/pkg/logger"
)

// TokenHandler serves the issuance and verification endpoints.
type TokenHandler struct {
	tokens service.TokenService
	cfg    config.TokenConfig
	log    logger.Logger
	now    func() time.Time
}

// NewTokenHandler builds a handler with the issuance defaults from cfg.
func NewTokenHandler(tokens service.TokenService, cfg config.TokenConfig, log logger.Logger) *TokenHandler {
	return &TokenHandler{
		tokens: tokens,
		cfg:    cfg,
		log:    log.WithComponent("token_handler"),
		now:    time.Now,
	}
}

// IssueTokenRequest is the POST /v1/tokens body.
type IssueTokenRequest struct {
	AppID        string         `json:"app_id" binding:"required"`
	Subject      string         `json:"subject"`
	Audience     []string       `json:"audience" binding:"required"`
	TTLSeconds   int64          `json:"ttl_seconds"`
	CustomClaims map[string]any `json:"custom_claims"`
	SigningKeyID string         `json:"signing_key_id"`
}

// IssueTokenResponse is the POST /v1/tokens response.
type IssueTokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"`
}

// VerifyTokenRequest is the POST /v1/tokens/verify body.
type VerifyTokenRequest struct {
	Token        string `json:"token" binding:"required"`
	SigningKeyID string `json:"signing_key_id"`
}

// VerifyTokenResponse is the POST /v1/tokens/verify response.
type VerifyTokenResponse struct {
	Valid     bool           `json:"valid"`
	AppID     string         `json:"app_id"`
	KeyID     string         `json:"key_id"`
	Subject   string         `json:"subject,omitempty"`
	Audience  []string       `json:"audience"`
	IssuedAt  int64          `json:"issued_at"`
	ExpiresAt int64          `json:"expires_at"`
	Claims    map[string]any `json:"claims,omitempty"`
}

// Issue handles POST /v1/tokens.
func (h *TokenHandler) Issue(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errors.InvalidRequest("invalid request body").WithCause(err))
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = h.cfg.DefaultTTL
	}
	if h.cfg.MaxTTL > 0 && ttl > h.cfg.MaxTTL {
		h.writeError(c, errors.InvalidRequest("requested ttl exceeds the maximum").
			WithMetadata("max_ttl_seconds", int64(h.cfg.MaxTTL.Seconds())))
		return
	}

	signingKeyID := req.SigningKeyID
	if signingKeyID == "" {
		signingKeyID = h.cfg.SigningKeyID
	}

	issuedAt := h.now()
	expiresAt := issuedAt.Add(ttl)

	serialized, err := h.tokens.Issue(c.Request.Context(), models.IssueRequest{
		MasterKeyID:  h.cfg.MasterKeyID,
		ClientAppID:  req.AppID,
		Subject:      req.Subject,
		Audience:     req.Audience,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		CustomClaims: req.CustomClaims,
		SigningKeyID: signingKeyID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, IssueTokenResponse{
		Token:     serialized,
		TokenType: constants.TokenTypeBearer,
		ExpiresAt: expiresAt.Unix(),
	})
}

// Verify handles POST /v1/tokens/verify.
func (h *TokenHandler) Verify(c *gin.Context) {
	var req VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errors.InvalidRequest("invalid request body").WithCause(err))
		return
	}

	signingKeyID := req.SigningKeyID
	if signingKeyID == "" {
		signingKeyID = h.cfg.SigningKeyID
	}

	token, err := h.tokens.ParseAndVerify(c.Request.Context(), req.Token, signingKeyID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	env, err := token.Envelope()
	if err != nil {
		h.writeError(c, err)
		return
	}

	claims := make(map[string]any)
	for name, value := range token.Claims {
		switch name {
		case constants.ClaimAudience, constants.ClaimSubject,
			constants.ClaimIssuedAt, constants.ClaimExpiresAt:
		default:
			claims[name] = value
		}
	}

	c.JSON(http.StatusOK, VerifyTokenResponse{
		Valid:     true,
		AppID:     env.AppID,
		KeyID:     env.KeyID,
		Subject:   token.Subject(),
		Audience:  token.Audience(),
		IssuedAt:  token.IssuedAt().Unix(),
		ExpiresAt: token.ExpiresAt().Unix(),
		Claims:    claims,
	})
}

func (h *TokenHandler) writeError(c *gin.Context, err error) {
	status := errors.HTTPStatusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", err)
	}
	c.AbortWithStatusJSON(status, errors.ToErrorResponse(err))
}
