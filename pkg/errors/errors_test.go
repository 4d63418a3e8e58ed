package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCauseChain(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := KeyDecryptionFailed("kms decrypt failed").WithCause(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")

	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, CodeKeyDecryptionFailed, e.Code())
	assert.Equal(t, http.StatusBadGateway, e.HTTPStatus())
}

func TestPredicatesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("verify token: %w", InvalidSignature())

	assert.True(t, IsInvalidSignature(wrapped))
	assert.False(t, IsKeyDecryptionFailed(wrapped))
	assert.Equal(t, CodeInvalidSignature, CodeOf(wrapped))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatusOf(wrapped))
}

func TestTaxonomyIsDisjoint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"key generation", KeyGenerationFailed("boom"), CodeKeyGenerationFailed},
		{"key decryption", KeyDecryptionFailed("boom"), CodeKeyDecryptionFailed},
		{"malformed envelope", MalformedEnvelope("missing aid"), CodeMalformedEnvelope},
		{"malformed token", MalformedToken("not a jwt"), CodeMalformedToken},
		{"invalid signature", InvalidSignature(), CodeInvalidSignature},
		{"expired token", ExpiredToken(), CodeExpiredToken},
		{"claim conflict", ClaimConflict("exp"), CodeClaimConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
			for _, other := range tests {
				if other.want != tt.want {
					assert.False(t, HasCode(tt.err, other.want))
				}
			}
		})
	}
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ClaimConflict("iat"))
	assert.Equal(t, "claim_conflict", resp.Error)
	assert.Equal(t, "iat", resp.Metadata["claim"])

	generic := ToErrorResponse(stderrors.New("pg: connection lost"))
	assert.Equal(t, string(CodeInternal), generic.Error)
	assert.NotContains(t, generic.ErrorDescription, "pg:")
}
