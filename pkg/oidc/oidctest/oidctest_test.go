// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package oidctest

import (
	"bytes"
	"crypto"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTripThroughPEM(t *testing.T) {
	tests := []struct {
		name string
		new  func() (*Signer, error)
	}{
		{"rsa", func() (*Signer, error) { return NewRSASigner("rsa", "PS256") }},
		{"ec", func() (*Signer, error) { return NewECSigner("ec", "ES384") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.new()
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "key.pem")
			require.NoError(t, s.SavePrivateKey(path))

			loaded, err := LoadSigner(path, s.KeyID, s.Algorithm)
			require.NoError(t, err)
			pub, ok := s.PublicKey().(interface{ Equal(crypto.PublicKey) bool })
			require.True(t, ok)
			assert.True(t, pub.Equal(loaded.PublicKey()))

			token, err := loaded.Sign(jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Minute).Unix()})
			require.NoError(t, err)

			parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return s.PublicKey(), nil })
			require.NoError(t, err)
			assert.Equal(t, s.KeyID, parsed.Header["kid"])
		})
	}
}

func TestSignerRejectsUnapprovedAlgorithms(t *testing.T) {
	_, err := NewRSASigner("k", "HS256")
	assert.Error(t, err)
	_, err = NewECSigner("k", "RS256")
	assert.Error(t, err)
	_, err = LoadSigner(filepath.Join(t.TempDir(), "missing.pem"), "k", "RS256")
	assert.Error(t, err)
}

func TestProviderDocuments(t *testing.T) {
	s, err := NewRSASigner("key-1", "RS256")
	require.NoError(t, err)
	p := NewProvider(WithSigner(s), WithIssuer("https://idp.example"))
	defer p.Close()

	get := func(url string) map[string]interface{} {
		resp, err := http.Get(url)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &doc))
		return doc
	}

	doc := get(p.DiscoveryURL())
	assert.Equal(t, "https://idp.example", doc["issuer"])
	assert.Equal(t, p.JWKSURL(), doc["jwks_uri"])

	jwks := get(p.JWKSURL())
	keys, ok := jwks["keys"].([]interface{})
	require.True(t, ok)
	require.Len(t, keys, 1)
	assert.Equal(t, "key-1", keys[0].(map[string]interface{})["kid"])

	p.SetJWKSURI("")
	_, present := get(p.DiscoveryURL())["jwks_uri"]
	assert.False(t, present)

	assert.Equal(t, int64(3), p.DiscoveryHits())
	assert.Equal(t, int64(1), p.JWKSHits())
	assert.Nil(t, p.CertPool())
}

func TestProviderRequestsNotLoggedByDefault(t *testing.T) {
	p := NewProvider()
	defer p.Close()
	assert.Equal(t, zerolog.Disabled, p.logger.GetLevel())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProviderRequestLogger(t *testing.T) {
	s, err := NewRSASigner("key-1", "RS256")
	require.NoError(t, err)

	logs := &lockedBuffer{}
	p := NewProvider(WithSigner(s), WithRequestLogger(zerolog.New(logs).Level(zerolog.DebugLevel)))
	defer p.Close()

	resp, err := http.Get(p.JWKSURL())
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	assert.Eventually(t, func() bool {
		return logs.String() != ""
	}, time.Second, 10*time.Millisecond)
}
