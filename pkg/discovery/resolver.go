// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

// Package discovery resolves an OpenID Connect discovery document and the
// signing keys it points to.
package discovery

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/openchami/pam-oidc/pkg/errors"
	"github.com/openchami/pam-oidc/pkg/jwt"
	"github.com/openchami/pam-oidc/pkg/logging"
)

// Fetcher retrieves the body of a successful GET.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, rawURL string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f(ctx, rawURL)
}

// Source resolves a discovery URL into a configuration and key set.
type Source interface {
	Resolve(ctx context.Context, discoveryURL string) (*Configuration, *jwt.KeySet, error)
}

// Configuration is the subset of the OIDC provider metadata this module
// reads. Only Issuer and JWKSURI are required.
type Configuration struct {
	Issuer                           string   `json:"issuer"`
	JWKSURI                          string   `json:"jwks_uri"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                    string   `json:"token_endpoint,omitempty"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint,omitempty"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// ParseConfiguration decodes a discovery document and checks its required
// fields.
func ParseConfiguration(data []byte) (*Configuration, error) {
	var config Configuration
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDiscoveryMalformed, "invalid discovery document")
	}

	if config.Issuer == "" {
		return nil, errors.New(errors.ErrCodeDiscoveryMalformed, "discovery document missing required field: issuer")
	}
	if config.JWKSURI == "" {
		return nil, errors.New(errors.ErrCodeDiscoveryMalformed, "discovery document missing required field: jwks_uri")
	}

	u, err := url.Parse(config.JWKSURI)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New(errors.ErrCodeDiscoveryMalformed, "jwks_uri is not an absolute http(s) URL").
			WithDetails("jwks_uri", config.JWKSURI)
	}

	return &config, nil
}

// Resolver fetches the discovery document and then the JWKS it names.
type Resolver struct {
	fetcher Fetcher
}

// NewResolver creates a resolver that retrieves documents through fetcher.
func NewResolver(fetcher Fetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve fetches and parses both documents. A discovery URL served over
// https may not point at a plain http JWKS.
func (r *Resolver) Resolve(ctx context.Context, discoveryURL string) (*Configuration, *jwt.KeySet, error) {
	logger := logging.NewStructuredLoggerFromContext(ctx, "discovery")

	config, err := r.FetchConfiguration(ctx, discoveryURL)
	if err != nil {
		logger.WithError(err).WithField("discovery_url", discoveryURL).Warn("failed to resolve discovery document")
		return nil, nil, err
	}

	keys, err := r.FetchKeySet(ctx, config.JWKSURI)
	if err != nil {
		logger.WithError(err).WithField("jwks_uri", config.JWKSURI).Warn("failed to resolve signing keys")
		return nil, nil, err
	}

	logger.WithFields(map[string]interface{}{
		"issuer":   config.Issuer,
		"jwks_uri": config.JWKSURI,
		"keys":     keys.Len(),
	}).Debug("resolved provider metadata")

	return config, keys, nil
}

// FetchConfiguration retrieves and parses the discovery document.
func (r *Resolver) FetchConfiguration(ctx context.Context, discoveryURL string) (*Configuration, error) {
	body, err := r.fetcher.Fetch(ctx, discoveryURL)
	if err != nil {
		return nil, err
	}

	config, err := ParseConfiguration(body)
	if err != nil {
		return nil, err
	}

	if downgraded(discoveryURL, config.JWKSURI) {
		return nil, errors.New(errors.ErrCodeDiscoveryMalformed, "https discovery document points at an http jwks_uri").
			WithDetails("jwks_uri", config.JWKSURI)
	}
	return config, nil
}

// FetchKeySet retrieves and parses the JWKS.
func (r *Resolver) FetchKeySet(ctx context.Context, jwksURI string) (*jwt.KeySet, error) {
	body, err := r.fetcher.Fetch(ctx, jwksURI)
	if err != nil {
		return nil, err
	}
	return jwt.ParseKeySet(body)
}

func downgraded(discoveryURL, jwksURI string) bool {
	d, err := url.Parse(discoveryURL)
	if err != nil || d.Scheme != "https" {
		return false
	}
	j, err := url.Parse(jwksURI)
	return err != nil || j.Scheme != "https"
}
