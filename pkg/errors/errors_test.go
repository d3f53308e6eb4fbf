// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthError(t *testing.T) {
	t.Run("message without cause", func(t *testing.T) {
		err := New(ErrCodeTokenExpired, "token has expired")
		assert.Equal(t, "[TOKEN_EXPIRED] token has expired", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("message with cause", func(t *testing.T) {
		cause := stderrors.New("connection refused")
		err := Wrap(cause, ErrCodeNetworkFailure, "failed to dial")
		assert.Equal(t, "[NETWORK_FAILURE] failed to dial: connection refused", err.Error())
		assert.True(t, stderrors.Is(err, cause))
	})

	t.Run("details", func(t *testing.T) {
		err := New(ErrCodeProtocol, "unexpected status").WithDetails("status_code", 404)
		require.NotNil(t, err.Details)
		assert.Equal(t, 404, err.Details["status_code"])
	})
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct", New(ErrCodeClaimMismatch, "x"), ErrCodeClaimMismatch},
		{"wrapped by fmt", fmt.Errorf("outer: %w", New(ErrCodeTimeout, "x")), ErrCodeTimeout},
		{"outermost wins", Wrap(New(ErrCodeNetworkFailure, "x"), ErrCodeDiscoveryMalformed, "y"), ErrCodeDiscoveryMalformed},
		{"plain error", stderrors.New("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCode(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	inner := New(ErrCodeNetworkFailure, "dial failed")
	outer := Wrap(inner, ErrCodeDiscoveryMalformed, "could not resolve")

	assert.True(t, HasCode(outer, ErrCodeDiscoveryMalformed))
	assert.True(t, HasCode(outer, ErrCodeNetworkFailure))
	assert.False(t, HasCode(outer, ErrCodeTimeout))
	assert.False(t, HasCode(nil, ErrCodeTimeout))
}

func TestClass(t *testing.T) {
	assert.Equal(t, ClassToken, New(ErrCodeSignatureMismatch, "").Class())
	assert.Equal(t, ClassProvider, New(ErrCodeDiscoveryMalformed, "").Class())
	assert.Equal(t, ClassConfiguration, New(ErrCodeMissingConfig, "").Class())
	assert.Equal(t, ClassRetrieval, New(ErrCodeCredentialsUnavailable, "").Class())
	assert.Equal(t, ClassInternal, GetClass(stderrors.New("boom")))
}
