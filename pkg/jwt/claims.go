// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openchami/pam-oidc/pkg/errors"
)

// Claims is the decoded payload of a verified token.
type Claims map[string]interface{}

func (c Claims) mapClaims() jwt.MapClaims {
	return jwt.MapClaims(c)
}

// Issuer returns the iss claim.
func (c Claims) Issuer() (string, error) {
	return c.mapClaims().GetIssuer()
}

// Subject returns the sub claim.
func (c Claims) Subject() (string, error) {
	return c.mapClaims().GetSubject()
}

// Audience returns the aud claim, which may be a string or an array of strings.
func (c Claims) Audience() ([]string, error) {
	return c.mapClaims().GetAudience()
}

// ExpiresAt returns the exp claim, or the zero time when absent.
func (c Claims) ExpiresAt() time.Time {
	exp, err := c.mapClaims().GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// HasAudience reports whether aud equals or contains audience.
func (c Claims) HasAudience(audience string) bool {
	aud, err := c.Audience()
	if err != nil {
		return false
	}
	for _, a := range aud {
		if a == audience {
			return true
		}
	}
	return false
}

// String returns a string-valued claim. An absent claim is CLAIM_MISSING;
// a claim of another JSON type is CLAIM_MISMATCH.
func (c Claims) String(name string) (string, error) {
	raw, ok := c[name]
	if !ok || raw == nil {
		return "", errors.Newf(errors.ErrCodeClaimMissing, "claim %q not present", name).
			WithDetails("claim", name)
	}
	value, ok := raw.(string)
	if !ok {
		return "", errors.Newf(errors.ErrCodeClaimMismatch, "claim %q is not a string", name).
			WithDetails("claim", name)
	}
	return value, nil
}
