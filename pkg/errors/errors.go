// Package errors defines the structured error taxonomy for the envelope token
// service. Every failure surfaced to a caller carries a stable machine code,
// an HTTP status for the transport layer, and the underlying cause chain.
//
// The taxonomy deliberately separates infrastructure failures (key generation,
// key decryption) from security events (invalid signature) and from client
// bugs (malformed token, malformed envelope): conflating them would either
// leak which layer failed or mask tampering as an infrastructure error.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	// CodeKeyGenerationFailed means the key management service refused or
	// failed to produce a data key at issuance.
	CodeKeyGenerationFailed Code = "key_generation_failed"

	// CodeKeyDecryptionFailed means the key management service refused or
	// failed to decrypt a ciphertext blob at verification.
	CodeKeyDecryptionFailed Code = "key_decryption_failed"

	// CodeMalformedEnvelope means required envelope headers or the exp claim
	// are missing or invalid.
	CodeMalformedEnvelope Code = "malformed_envelope"

	// CodeMalformedToken means the token failed to parse at all.
	CodeMalformedToken Code = "malformed_token"

	// CodeInvalidSignature means signature verification failed with a
	// successfully resolved key.
	CodeInvalidSignature Code = "invalid_signature"

	// CodeExpiredToken means the token parsed and verified but is past its
	// exp claim.
	CodeExpiredToken Code = "expired_token"

	// CodeClaimConflict means a custom claim collides with a standard claim.
	CodeClaimConflict Code = "claim_conflict"

	// CodeInvalidRequest means the caller supplied invalid issuance inputs.
	CodeInvalidRequest Code = "invalid_request"

	// CodeCacheUnavailable means the key cache backend failed.
	CodeCacheUnavailable Code = "cache_unavailable"

	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal_error"
)

// Error is the structured error type returned by this module.
type Error struct {
	code       Code
	httpStatus int
	message    string
	cause      error
	metadata   map[string]any
}

// New creates an Error with the given code, HTTP status, and message.
func New(code Code, httpStatus int, message string) *Error {
	return &Error{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the machine-readable error code.
func (e *Error) Code() Code { return e.code }

// HTTPStatus returns the HTTP status this error maps to.
func (e *Error) HTTPStatus() int { return e.httpStatus }

// Unwrap returns the underlying cause for errors.Is / errors.As traversal.
func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches the underlying error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// WithMetadata attaches a metadata key/value pair and returns the receiver.
func (e *Error) WithMetadata(key string, value any) *Error {
	if e.metadata == nil {
		e.metadata = make(map[string]any)
	}
	e.metadata[key] = value
	return e
}

// Metadata returns the attached metadata, or nil.
func (e *Error) Metadata() map[string]any { return e.metadata }

// KeyGenerationFailed reports a data-key generation failure at issuance.
func KeyGenerationFailed(message string) *Error {
	return New(CodeKeyGenerationFailed, http.StatusBadGateway, message)
}

// KeyDecryptionFailed reports a data-key decryption failure at verification.
func KeyDecryptionFailed(message string) *Error {
	return New(CodeKeyDecryptionFailed, http.StatusBadGateway, message)
}

// MalformedEnvelope reports missing or invalid envelope headers.
func MalformedEnvelope(message string) *Error {
	return New(CodeMalformedEnvelope, http.StatusBadRequest, message)
}

// MalformedToken reports a token that failed to parse.
func MalformedToken(message string) *Error {
	return New(CodeMalformedToken, http.StatusBadRequest, message)
}

// InvalidSignature reports a signature mismatch over the token payload.
func InvalidSignature() *Error {
	return New(CodeInvalidSignature, http.StatusUnauthorized, "token signature verification failed")
}

// ExpiredToken reports a token past its exp claim.
func ExpiredToken() *Error {
	return New(CodeExpiredToken, http.StatusUnauthorized, "token has expired")
}

// ClaimConflict reports a custom claim colliding with a standard claim.
func ClaimConflict(claim string) *Error {
	return New(CodeClaimConflict, http.StatusBadRequest,
		fmt.Sprintf("custom claim %q collides with a standard claim", claim)).
		WithMetadata("claim", claim)
}

// InvalidRequest reports invalid issuance inputs.
func InvalidRequest(message string) *Error {
	return New(CodeInvalidRequest, http.StatusBadRequest, message)
}

// CacheUnavailable reports a key cache backend failure.
func CacheUnavailable(message string) *Error {
	return New(CodeCacheUnavailable, http.StatusServiceUnavailable, message)
}

// Internal reports an unexpected failure.
func Internal(message string) *Error {
	return New(CodeInternal, http.StatusInternalServerError, message)
}

// CodeOf extracts the Code from err, or CodeInternal when err is not an Error.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return CodeInternal
}

// HTTPStatusOf extracts the HTTP status from err, defaulting to 500.
func HTTPStatusOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.httpStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code == code
	}
	return false
}

// IsKeyGenerationFailed reports whether err is a key generation failure.
func IsKeyGenerationFailed(err error) bool { return HasCode(err, CodeKeyGenerationFailed) }

// IsKeyDecryptionFailed reports whether err is a key decryption failure.
func IsKeyDecryptionFailed(err error) bool { return HasCode(err, CodeKeyDecryptionFailed) }

// IsMalformedEnvelope reports whether err is a malformed envelope failure.
func IsMalformedEnvelope(err error) bool { return HasCode(err, CodeMalformedEnvelope) }

// IsMalformedToken reports whether err is a malformed token failure.
func IsMalformedToken(err error) bool { return HasCode(err, CodeMalformedToken) }

// IsInvalidSignature reports whether err is a signature verification failure.
func IsInvalidSignature(err error) bool { return HasCode(err, CodeInvalidSignature) }

// IsExpiredToken reports whether err is an expired token failure.
func IsExpiredToken(err error) bool { return HasCode(err, CodeExpiredToken) }

// IsClaimConflict reports whether err is a claim conflict failure.
func IsClaimConflict(err error) bool { return HasCode(err, CodeClaimConflict) }

// Is re-exports the standard library errors.Is.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As re-exports the standard library errors.As.
func As(err error, target any) bool { return stderrors.As(err, target) }

// ErrorResponse is the JSON body returned for failed HTTP requests.
type ErrorResponse struct {
	Error            string         `json:"error"`
	ErrorDescription string         `json:"error_description"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ToErrorResponse converts any error into an ErrorResponse. Non-Error values
// collapse to internal_error so internals never leak to clients.
func ToErrorResponse(err error) *ErrorResponse {
	var e *Error
	if stderrors.As(err, &e) {
		return &ErrorResponse{
			Error:            string(e.code),
			ErrorDescription: e.message,
			Metadata:         e.metadata,
		}
	}
	return &ErrorResponse{
		Error:            string(CodeInternal),
		ErrorDescription: "an unexpected error occurred",
	}
}
