// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package jwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/openchami/pam-oidc/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwksJSON(t *testing.T, entries ...interface{}) []byte {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		switch e := entry.(type) {
		case string:
			raw = append(raw, json.RawMessage(e))
		default:
			b, err := json.Marshal(e)
			require.NoError(t, err)
			raw = append(raw, b)
		}
	}
	b, err := json.Marshal(map[string]interface{}{"keys": raw})
	require.NoError(t, err)
	return b
}

func TestParseKeySet(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	weakKey, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	data := jwksJSON(t,
		jose.JSONWebKey{Key: &rsaKey.PublicKey, KeyID: "rsa-1", Algorithm: "RS256", Use: "sig"},
		jose.JSONWebKey{Key: []byte("0123456789abcdef0123456789abcdef"), KeyID: "hmac"},
		jose.JSONWebKey{Key: &rsaKey.PublicKey, KeyID: "rsa-enc", Use: "enc"},
		jose.JSONWebKey{Key: &weakKey.PublicKey, KeyID: "rsa-weak"},
		`{"kty":"RSA","kid":"broken","n":"!!","e":"AQAB"}`,
		jose.JSONWebKey{Key: ecKey, KeyID: "ec-private"},
		jose.JSONWebKey{Key: &ecKey.PublicKey, KeyID: "ec-1"},
	)

	set, err := ParseKeySet(data)
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())

	assert.Equal(t, "rsa-1", set.Keys[0].KeyID)
	assert.Equal(t, "RS256", set.Keys[0].Algorithm)
	assert.Equal(t, "RSA", set.Keys[0].Type())

	assert.Equal(t, "ec-private", set.Keys[1].KeyID)
	assert.IsType(t, &ecdsa.PublicKey{}, set.Keys[1].Key)

	assert.Equal(t, "ec-1", set.Keys[2].KeyID)
	assert.Equal(t, "EC", set.Keys[2].Type())

	_, ok := set.Lookup("hmac")
	assert.False(t, ok)
}

func TestParseKeySetErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "<html>"},
		{"keys not an array", `{"keys":{}}`},
		{"no keys field", `{}`},
		{"empty keys", `{"keys":[]}`},
		{"only unusable keys", `{"keys":[{"kty":"oct","k":"c2VjcmV0"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseKeySet([]byte(tt.data))
			require.Error(t, err)
			assert.Nil(t, set)
			assert.Equal(t, errors.ErrCodeDiscoveryMalformed, errors.GetErrorCode(err))
		})
	}
}

func TestKeySetCandidates(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ec256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ec384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	set := &KeySet{Keys: []SigningKey{
		{KeyID: "a", Algorithm: "RS256", Key: &rsaKey.PublicKey},
		{KeyID: "b", Key: &rsaKey.PublicKey},
		{KeyID: "c", Key: &ec256.PublicKey},
		{KeyID: "d", Key: &ec384.PublicKey},
	}}

	ids := func(keys []SigningKey) []string {
		var out []string
		for _, k := range keys {
			out = append(out, k.KeyID)
		}
		return out
	}

	tests := []struct {
		name string
		kid  string
		alg  string
		want []string
	}{
		{"kid selects one key", "a", "RS256", []string{"a"}},
		{"kid with conflicting alg", "a", "PS256", nil},
		{"unknown kid", "zz", "RS256", nil},
		{"no kid tries all rsa keys", "", "RS256", []string{"a", "b"}},
		{"no kid pss skips pinned alg", "", "PS384", []string{"b"}},
		{"no kid matches curve", "", "ES256", []string{"c"}},
		{"no kid p384", "", "ES384", []string{"d"}},
		{"no kid no match", "", "ES512", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(set.Candidates(tt.kid, tt.alg)))
		})
	}

	var empty *KeySet
	assert.Nil(t, empty.Candidates("", "RS256"))
	assert.Equal(t, 0, empty.Len())
}

func TestAlgorithmAllowlist(t *testing.T) {
	for _, alg := range GetFIPSApprovedAlgorithms() {
		method, err := GetSigningMethod(alg)
		require.NoError(t, err, alg)
		assert.Equal(t, alg, method.Alg())
	}

	for _, alg := range []string{"HS256", "none", "EdDSA", ""} {
		err := ValidateAlgorithm(alg)
		require.Error(t, err, alg)
		assert.Contains(t, err.Error(), "not FIPS-approved")
	}

	assert.Equal(t, []string{"ES256", "ES384", "ES512", "PS256", "PS384", "PS512", "RS256", "RS384", "RS512"},
		GetFIPSApprovedAlgorithms())
}
