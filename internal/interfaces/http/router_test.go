package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/internal/domain/models"
	"github.com/envseal/envseal/internal/interfaces/http/handlers"
	"github.com/envseal/envseal/internal/interfaces/http/middleware"
	"github.com/envseal/envseal/pkg/errors"
	"github.com/envseal/envseal/pkg/logger"
)

// stubTokenService returns canned results.
type stubTokenService struct {
	issued    string
	issueErr  error
	verified  *models.Token
	verifyErr error

	lastIssue models.IssueRequest
}

func (s *stubTokenService) Issue(_ context.Context, req models.IssueRequest) (string, error) {
	s.lastIssue = req
	if s.issueErr != nil {
		return "", s.issueErr
	}
	return s.issued, nil
}

func (s *stubTokenService) ParseAndVerify(context.Context, string, string) (*models.Token, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return s.verified, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Token: config.TokenConfig{
			MasterKeyID:  "master-1",
			SigningKeyID: "HS256",
			DefaultTTL:   time.Hour,
			MaxTTL:       24 * time.Hour,
		},
	}
}

func doJSON(t *testing.T, engine http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestIssueEndpoint(t *testing.T) {
	svc := &stubTokenService{issued: "a.b.c"}
	engine := NewRouter(testConfig(), svc, logger.NewNop(), nil)

	rec := doJSON(t, engine, http.MethodPost, "/v1/tokens", handlers.IssueTokenRequest{
		AppID:    "app-42",
		Subject:  "user-7",
		Audience: []string{"svc-a"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp handlers.IssueTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "a.b.c", resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)

	// Defaults flow into the issuance request.
	assert.Equal(t, "master-1", svc.lastIssue.MasterKeyID)
	assert.Equal(t, "HS256", svc.lastIssue.SigningKeyID)
	assert.Equal(t, time.Hour, svc.lastIssue.ExpiresAt.Sub(svc.lastIssue.IssuedAt))
}

func TestIssueEndpointRejectsExcessiveTTL(t *testing.T) {
	svc := &stubTokenService{issued: "a.b.c"}
	engine := NewRouter(testConfig(), svc, logger.NewNop(), nil)

	rec := doJSON(t, engine, http.MethodPost, "/v1/tokens", handlers.IssueTokenRequest{
		AppID:      "app-42",
		Audience:   []string{"svc-a"},
		TTLSeconds: int64((48 * time.Hour).Seconds()),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.CodeInvalidRequest), resp.Error)
}

func TestIssueEndpointMissingBodyFields(t *testing.T) {
	engine := NewRouter(testConfig(), &stubTokenService{}, logger.NewNop(), nil)

	rec := doJSON(t, engine, http.MethodPost, "/v1/tokens", map[string]any{"subject": "user-7"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueEndpointServiceError(t *testing.T) {
	svc := &stubTokenService{issueErr: errors.KeyGenerationFailed("kms unreachable")}
	engine := NewRouter(testConfig(), svc, logger.NewNop(), nil)

	rec := doJSON(t, engine, http.MethodPost, "/v1/tokens", handlers.IssueTokenRequest{
		AppID:    "app-42",
		Audience: []string{"svc-a"},
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.CodeKeyGenerationFailed), resp.Error)
}

func TestVerifyEndpoint(t *testing.T) {
	env := models.NewEnvelopeHeaders("app-42", []byte{0xff, 0xee})
	header := map[string]any{}
	for k, v := range env.Map() {
		header[k] = v
	}
	svc := &stubTokenService{verified: &models.Token{
		Raw:     "a.b.c",
		Headers: header,
		Claims: map[string]any{
			"aud":  []string{"svc-a"},
			"sub":  "user-7",
			"iat":  float64(1000),
			"exp":  float64(2000),
			"role": "admin",
		},
	}}
	engine := NewRouter(testConfig(), svc, logger.NewNop(), nil)

	rec := doJSON(t, engine, http.MethodPost, "/v1/tokens/verify", handlers.VerifyTokenRequest{Token: "a.b.c"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.VerifyTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Equal(t, "app-42", resp.AppID)
	assert.Equal(t, env.KeyID, resp.KeyID)
	assert.Equal(t, "user-7", resp.Subject)
	assert.Equal(t, []string{"svc-a"}, resp.Audience)
	assert.Equal(t, int64(1000), resp.IssuedAt)
	assert.Equal(t, int64(2000), resp.ExpiresAt)
	assert.Equal(t, map[string]any{"role": "admin"}, resp.Claims)
}

func TestVerifyEndpointErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   errors.Code
	}{
		{"invalid signature", errors.InvalidSignature(), http.StatusUnauthorized, errors.CodeInvalidSignature},
		{"expired", errors.ExpiredToken(), http.StatusUnauthorized, errors.CodeExpiredToken},
		{"malformed envelope", errors.MalformedEnvelope("missing header"), http.StatusBadRequest, errors.CodeMalformedEnvelope},
		{"decryption failure", errors.KeyDecryptionFailed("kms said no"), http.StatusBadGateway, errors.CodeKeyDecryptionFailed},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError, errors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubTokenService{verifyErr: tt.err}
			engine := NewRouter(testConfig(), svc, logger.NewNop(), nil)

			rec := doJSON(t, engine, http.MethodPost, "/v1/tokens/verify", handlers.VerifyTokenRequest{Token: "a.b.c"})
			require.Equal(t, tt.wantStatus, rec.Code)

			var resp errors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.wantCode), resp.Error)
		})
	}
}

func TestRequestIDEchoed(t *testing.T) {
	engine := NewRouter(testConfig(), &stubTokenService{}, logger.NewNop(), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(middleware.HeaderRequestID))
}

func TestReadyEndpoint(t *testing.T) {
	checks := map[string]func() error{
		"redis": func() error { return nil },
		"kms":   func() error { return fmt.Errorf("connection refused") },
	}
	engine := NewRouter(testConfig(), &stubTokenService{}, logger.NewNop(), checks)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
