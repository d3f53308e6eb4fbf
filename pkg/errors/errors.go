// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

// Package errors carries the coded error taxonomy shared by every stage of
// the authentication pipeline. The host only ever sees a PAM status code; the
// codes here exist so the diagnostic log can say why an attempt failed.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Token errors
	ErrCodeMalformedToken    ErrorCode = "MALFORMED_TOKEN"
	ErrCodeSignatureMismatch ErrorCode = "SIGNATURE_MISMATCH"
	ErrCodeIssuerMismatch    ErrorCode = "ISSUER_MISMATCH"
	ErrCodeAudienceMismatch  ErrorCode = "AUDIENCE_MISMATCH"
	ErrCodeTokenExpired      ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenNotYetValid  ErrorCode = "TOKEN_NOT_YET_VALID"
	ErrCodeClaimMissing      ErrorCode = "CLAIM_MISSING"
	ErrCodeClaimMismatch     ErrorCode = "CLAIM_MISMATCH"

	// Provider errors
	ErrCodeNetworkFailure     ErrorCode = "NETWORK_FAILURE"
	ErrCodeProtocol           ErrorCode = "PROTOCOL_ERROR"
	ErrCodeDiscoveryMalformed ErrorCode = "DISCOVERY_MALFORMED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"

	// Configuration errors
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Host errors
	ErrCodeCredentialsUnavailable ErrorCode = "CREDENTIALS_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Class groups error codes by the pipeline stage that produces them.
type Class string

const (
	ClassToken         Class = "token"
	ClassProvider      Class = "provider"
	ClassConfiguration Class = "configuration"
	ClassRetrieval     Class = "retrieval"
	ClassInternal      Class = "internal"
)

// AuthError represents a standardized error with context
type AuthError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"cause,omitempty"`
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Class reports the pipeline stage the error belongs to.
func (e *AuthError) Class() Class {
	return classOf(e.Code)
}

// WithDetails adds additional context to the error
func (e *AuthError) WithDetails(key string, value interface{}) *AuthError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AuthError with the given code and message
func New(code ErrorCode, message string) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AuthError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AuthError {
	return &AuthError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AuthError {
	return &AuthError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

func classOf(code ErrorCode) Class {
	switch code {
	case ErrCodeMalformedToken, ErrCodeSignatureMismatch, ErrCodeIssuerMismatch, ErrCodeAudienceMismatch,
		ErrCodeTokenExpired, ErrCodeTokenNotYetValid, ErrCodeClaimMissing, ErrCodeClaimMismatch:
		return ClassToken
	case ErrCodeNetworkFailure, ErrCodeProtocol, ErrCodeDiscoveryMalformed, ErrCodeTimeout:
		return ClassProvider
	case ErrCodeMissingConfig, ErrCodeInvalidConfig:
		return ClassConfiguration
	case ErrCodeCredentialsUnavailable:
		return ClassRetrieval
	default:
		return ClassInternal
	}
}

// AsAuthError returns the outermost AuthError in err's chain.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if stderrors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	if authErr, ok := AsAuthError(err); ok {
		return authErr.Code
	}
	return ErrCodeInternal
}

// GetClass extracts the error class from an error
func GetClass(err error) Class {
	return classOf(GetErrorCode(err))
}

// HasCode reports whether any AuthError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if authErr, ok := err.(*AuthError); ok && authErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}
