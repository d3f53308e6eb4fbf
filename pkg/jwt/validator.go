// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package jwt

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openchami/pam-oidc/pkg/errors"
)

// DefaultLeeway is the clock skew tolerated on exp and nbf.
const DefaultLeeway = 30 * time.Second

// Expectations describes what a token must assert to be accepted.
type Expectations struct {
	Issuer   string
	Audience string

	// Identity claim stage. When MatchUsername is false the token is only
	// checked for signature, lifetime, issuer and audience.
	MatchUsername bool
	UsernameClaim string
	Username      string
}

// Outcome is the result of validating one token: valid, or invalid with a
// coded reason.
type Outcome struct {
	err *errors.AuthError
}

// Valid returns a successful outcome.
func Valid() Outcome {
	return Outcome{}
}

// Invalid returns a failed outcome. Errors without a code are reported as
// INTERNAL_ERROR.
func Invalid(err error) Outcome {
	if err == nil {
		err = errors.New(errors.ErrCodeInternal, "invalid outcome without a reason")
	}
	authErr, ok := errors.AsAuthError(err)
	if !ok {
		authErr = errors.Wrap(err, errors.ErrCodeInternal, "validation failed")
	}
	return Outcome{err: authErr}
}

// IsValid reports whether the token was accepted.
func (o Outcome) IsValid() bool {
	return o.err == nil
}

// Reason returns the failure code, or "" for a valid outcome.
func (o Outcome) Reason() errors.ErrorCode {
	if o.err == nil {
		return ""
	}
	return o.err.Code
}

// Err returns the failure, or nil for a valid outcome.
func (o Outcome) Err() error {
	if o.err == nil {
		return nil
	}
	return o.err
}

func (o Outcome) String() string {
	if o.err == nil {
		return "valid"
	}
	return "invalid: " + string(o.err.Code)
}

// Validator verifies compact JWTs against a key set.
type Validator struct {
	keys        *KeySet
	allowedAlgs []string
	leeway      time.Duration
	now         func() time.Time
}

// ValidatorOption configures a Validator
type ValidatorOption func(*Validator)

// WithAllowedAlgorithms restricts the accepted header alg values. Only
// FIPS-approved algorithms are kept.
func WithAllowedAlgorithms(algs []string) ValidatorOption {
	return func(v *Validator) {
		v.allowedAlgs = v.allowedAlgs[:0]
		for _, alg := range algs {
			if ValidateAlgorithm(alg) == nil {
				v.allowedAlgs = append(v.allowedAlgs, alg)
			}
		}
	}
}

// WithLeeway sets the clock skew tolerance.
func WithLeeway(leeway time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.leeway = leeway
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator creates a validator for tokens signed by keys.
func NewValidator(keys *KeySet, opts ...ValidatorOption) *Validator {
	v := &Validator{
		keys:        keys,
		allowedAlgs: GetFIPSApprovedAlgorithms(),
		leeway:      DefaultLeeway,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks structure, algorithm, signature, lifetime, issuer and
// audience, in that order. The returned claims are nil unless the signature
// verified.
func (v *Validator) Validate(token string, exp Expectations) (Claims, Outcome) {
	if err := checkStructure(token); err != nil {
		return nil, Invalid(err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.allowedAlgs),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)

	mapClaims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, mapClaims, v.keyFunc)
	if err != nil {
		return nil, Invalid(classify(err))
	}
	claims := Claims(mapClaims)

	// iss and aud are compared here rather than by the parser so that an
	// absent claim reports as a mismatch instead of a malformed token.
	iss, err := claims.Issuer()
	if err != nil {
		return claims, Invalid(errors.Wrap(err, errors.ErrCodeMalformedToken, "invalid iss claim"))
	}
	if iss != exp.Issuer {
		return claims, Invalid(errors.New(errors.ErrCodeIssuerMismatch, "token issuer does not match").
			WithDetails("token_issuer", iss).
			WithDetails("expected_issuer", exp.Issuer))
	}

	if _, err := claims.Audience(); err != nil {
		return claims, Invalid(errors.Wrap(err, errors.ErrCodeMalformedToken, "invalid aud claim"))
	}
	if !claims.HasAudience(exp.Audience) {
		return claims, Invalid(errors.New(errors.ErrCodeAudienceMismatch, "token audience does not contain the expected audience").
			WithDetails("expected_audience", exp.Audience))
	}

	return claims, Valid()
}

// Verify runs Validate and, when exp.MatchUsername is set, the identity
// claim stage.
func (v *Validator) Verify(token string, exp Expectations) (Claims, Outcome) {
	claims, outcome := v.Validate(token, exp)
	if !outcome.IsValid() || !exp.MatchUsername {
		return claims, outcome
	}
	claimName := exp.UsernameClaim
	if claimName == "" {
		claimName = "sub"
	}
	return claims, MatchIdentity(claims, claimName, exp.Username)
}

// MatchIdentity compares a string claim with username, ignoring case.
func MatchIdentity(claims Claims, claimName, username string) Outcome {
	value, err := claims.String(claimName)
	if err != nil {
		return Invalid(err)
	}
	if !strings.EqualFold(value, username) {
		return Invalid(errors.Newf(errors.ErrCodeClaimMismatch, "claim %q does not match user", claimName).
			WithDetails("claim", claimName))
	}
	return Valid()
}

func (v *Validator) keyFunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	candidates := v.keys.Candidates(kid, token.Method.Alg())
	if len(candidates) == 0 {
		return nil, errors.New(errors.ErrCodeSignatureMismatch, "no signing key matches the token").
			WithDetails("kid", kid).
			WithDetails("alg", token.Method.Alg())
	}

	set := jwt.VerificationKeySet{Keys: make([]jwt.VerificationKey, 0, len(candidates))}
	for _, key := range candidates {
		set.Keys = append(set.Keys, key.Key)
	}
	return set, nil
}

// checkStructure requires three non-empty dot-separated segments.
func checkStructure(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return errors.Newf(errors.ErrCodeMalformedToken, "token has %d segments, want 3", len(parts))
	}
	for _, part := range parts {
		if part == "" {
			return errors.New(errors.ErrCodeMalformedToken, "token has an empty segment")
		}
	}
	return nil
}

// classify maps a golang-jwt parse error onto the validation taxonomy.
func classify(err error) error {
	if authErr, ok := errors.AsAuthError(err); ok {
		return authErr
	}

	switch {
	case stderrors.Is(err, jwt.ErrTokenMalformed):
		return errors.Wrap(err, errors.ErrCodeMalformedToken, "malformed token")
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid), stderrors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.Wrap(err, errors.ErrCodeSignatureMismatch, "signature verification failed")
	case stderrors.Is(err, jwt.ErrTokenRequiredClaimMissing), stderrors.Is(err, jwt.ErrInvalidType):
		return errors.Wrap(err, errors.ErrCodeMalformedToken, "malformed time claims")
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return errors.Wrap(err, errors.ErrCodeTokenExpired, "token expired")
	case stderrors.Is(err, jwt.ErrTokenNotValidYet):
		return errors.Wrap(err, errors.ErrCodeTokenNotYetValid, "token not yet valid")
	default:
		return errors.Wrap(err, errors.ErrCodeMalformedToken, "token rejected")
	}
}
