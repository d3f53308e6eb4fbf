// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

// Package oidctest runs an in-process identity provider that serves an OIDC
// discovery document and a JWKS, and mints tokens for the keys it publishes.
package oidctest

import (
	"crypto/x509"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-jose/go-jose/v4"
	openchami_logger "github.com/openchami/chi-middleware/log"
	"github.com/rs/zerolog"
)

const (
	DiscoveryPath = "/.well-known/openid-configuration"
	JWKSPath      = "/jwks"
)

// Provider is a fixture identity provider backed by httptest.
type Provider struct {
	server *httptest.Server

	mu        sync.RWMutex
	signers   []*Signer
	issuer    string
	jwksURI   *string
	discovery []byte
	jwks      []byte
	chunked   bool
	status    int
	logger    zerolog.Logger

	discoveryHits atomic.Int64
	jwksHits      atomic.Int64
}

// Option configures a Provider
type Option func(*Provider)

// WithSigner publishes the signer's public key in the JWKS.
func WithSigner(s *Signer) Option {
	return func(p *Provider) {
		p.signers = append(p.signers, s)
	}
}

// WithIssuer overrides the issuer advertised in discovery. The default is
// the server URL.
func WithIssuer(issuer string) Option {
	return func(p *Provider) {
		p.issuer = issuer
	}
}

// WithChunkedResponses makes both documents use chunked transfer encoding.
func WithChunkedResponses() Option {
	return func(p *Provider) {
		p.chunked = true
	}
}

// WithRequestLogger logs every request the provider serves. Requests are
// not logged by default.
func WithRequestLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider starts a plain HTTP provider.
func NewProvider(opts ...Option) *Provider {
	return newProvider(false, opts...)
}

// NewTLSProvider starts a provider behind TLS. Clients must trust CertPool.
func NewTLSProvider(opts ...Option) *Provider {
	return newProvider(true, opts...)
}

func newProvider(secure bool, opts ...Option) *Provider {
	p := &Provider{status: http.StatusOK, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}

	r := chi.NewRouter()
	r.Use(openchami_logger.OpenCHAMILogger(p.logger))
	r.Get(DiscoveryPath, p.handleDiscovery)
	r.Get(JWKSPath, p.handleJWKS)

	if secure {
		p.server = httptest.NewTLSServer(r)
	} else {
		p.server = httptest.NewServer(r)
	}
	return p
}

// Close shuts the server down.
func (p *Provider) Close() {
	p.server.Close()
}

// URL returns the base URL of the server.
func (p *Provider) URL() string {
	return p.server.URL
}

// DiscoveryURL returns the URL of the discovery document.
func (p *Provider) DiscoveryURL() string {
	return p.server.URL + DiscoveryPath
}

// JWKSURL returns the URL of the key set.
func (p *Provider) JWKSURL() string {
	return p.server.URL + JWKSPath
}

// Issuer returns the advertised issuer.
func (p *Provider) Issuer() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.issuer != "" {
		return p.issuer
	}
	return p.server.URL
}

// Certificate returns the TLS server certificate, or nil for plain HTTP.
func (p *Provider) Certificate() *x509.Certificate {
	return p.server.Certificate()
}

// CertPool trusts the server certificate. It is nil for plain HTTP.
func (p *Provider) CertPool() *x509.CertPool {
	cert := p.server.Certificate()
	if cert == nil {
		return nil
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return pool
}

// AddSigner publishes another key.
func (p *Provider) AddSigner(s *Signer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signers = append(p.signers, s)
}

// SetJWKSURI overrides the advertised jwks_uri. An empty value drops the field.
func (p *Provider) SetJWKSURI(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jwksURI = &uri
}

// SetDiscoveryDocument serves body verbatim as the discovery document.
func (p *Provider) SetDiscoveryDocument(body []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discovery = body
}

// SetJWKSDocument serves body verbatim as the JWKS.
func (p *Provider) SetJWKSDocument(body []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jwks = body
}

// SetStatus makes both endpoints answer with status and an empty body.
func (p *Provider) SetStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// DiscoveryHits counts requests for the discovery document.
func (p *Provider) DiscoveryHits() int64 {
	return p.discoveryHits.Load()
}

// JWKSHits counts requests for the key set.
func (p *Provider) JWKSHits() int64 {
	return p.jwksHits.Load()
}

func (p *Provider) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	p.discoveryHits.Add(1)

	p.mu.RLock()
	body := p.discovery
	jwksURI := p.jwksURI
	p.mu.RUnlock()

	if body == nil {
		doc := map[string]interface{}{
			"issuer":                                p.Issuer(),
			"authorization_endpoint":                p.server.URL + "/authorize",
			"token_endpoint":                        p.server.URL + "/token",
			"userinfo_endpoint":                     p.server.URL + "/userinfo",
			"response_types_supported":              []string{"code"},
			"id_token_signing_alg_values_supported": p.algorithms(),
		}
		switch {
		case jwksURI == nil:
			doc["jwks_uri"] = p.JWKSURL()
		case *jwksURI != "":
			doc["jwks_uri"] = *jwksURI
		}
		body, _ = json.Marshal(doc)
	}
	p.write(w, body)
}

func (p *Provider) handleJWKS(w http.ResponseWriter, r *http.Request) {
	p.jwksHits.Add(1)

	p.mu.RLock()
	body := p.jwks
	p.mu.RUnlock()

	if body == nil {
		body, _ = json.Marshal(p.KeySet())
	}
	p.write(w, body)
}

// KeySet returns the JWKS the provider publishes.
func (p *Provider) KeySet() jose.JSONWebKeySet {
	p.mu.RLock()
	defer p.mu.RUnlock()

	set := jose.JSONWebKeySet{}
	for _, s := range p.signers {
		set.Keys = append(set.Keys, s.PublicJWK())
	}
	return set
}

func (p *Provider) algorithms() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := map[string]bool{}
	var algs []string
	for _, s := range p.signers {
		if !seen[s.Algorithm] {
			seen[s.Algorithm] = true
			algs = append(algs, s.Algorithm)
		}
	}
	return algs
}

func (p *Provider) write(w http.ResponseWriter, body []byte) {
	p.mu.RLock()
	status := p.status
	chunked := p.chunked
	p.mu.RUnlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !chunked || len(body) < 2 {
		_, _ = w.Write(body)
		return
	}

	// Flushing before the body is complete forces chunked framing.
	half := len(body) / 2
	_, _ = w.Write(body[:half])
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	_, _ = w.Write(body[half:])
}
