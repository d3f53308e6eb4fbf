// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/json"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/openchami/pam-oidc/pkg/errors"
)

// SigningKey is one public verification key taken from a JWKS.
type SigningKey struct {
	KeyID     string
	Algorithm string
	Use       string
	Key       crypto.PublicKey
}

// Type returns the JWK key type of the key material: RSA, EC or "".
func (k SigningKey) Type() string {
	switch k.Key.(type) {
	case *rsa.PublicKey:
		return "RSA"
	case *ecdsa.PublicKey:
		return "EC"
	default:
		return ""
	}
}

// compatible reports whether the key can verify a signature made with alg.
func (k SigningKey) compatible(alg string) bool {
	if k.Algorithm != "" && k.Algorithm != alg {
		return false
	}

	switch key := k.Key.(type) {
	case *rsa.PublicKey:
		return strings.HasPrefix(alg, "RS") || strings.HasPrefix(alg, "PS")
	case *ecdsa.PublicKey:
		switch alg {
		case "ES256":
			return key.Curve.Params().BitSize == 256
		case "ES384":
			return key.Curve.Params().BitSize == 384
		case "ES512":
			return key.Curve.Params().BitSize == 521
		}
	}
	return false
}

// KeySet is an ordered set of signing keys.
type KeySet struct {
	Keys []SigningKey
}

// Candidates returns the keys that may have signed a token with the given
// header kid and alg. An empty kid selects every compatible key.
func (s *KeySet) Candidates(kid, alg string) []SigningKey {
	if s == nil {
		return nil
	}

	var out []SigningKey
	for _, key := range s.Keys {
		if kid != "" && key.KeyID != kid {
			continue
		}
		if !key.compatible(alg) {
			continue
		}
		out = append(out, key)
	}
	return out
}

// Lookup returns the first key with the given id.
func (s *KeySet) Lookup(kid string) (SigningKey, bool) {
	if s == nil {
		return SigningKey{}, false
	}
	for _, key := range s.Keys {
		if key.KeyID == kid {
			return key, true
		}
	}
	return SigningKey{}, false
}

// Len returns the number of keys in the set.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Keys)
}

type jwksDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

// ParseKeySet parses a JSON Web Key Set. Entries that do not parse, are not
// asymmetric, are meant for encryption, or are weaker than the FIPS minimum
// are skipped. A document with no usable key is an error.
func ParseKeySet(data []byte) (*KeySet, error) {
	var doc jwksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDiscoveryMalformed, "invalid JWKS document")
	}

	set := &KeySet{}
	for _, raw := range doc.Keys {
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(raw); err != nil {
			continue
		}
		key, ok := signingKeyFromJWK(jwk)
		if !ok {
			continue
		}
		set.Keys = append(set.Keys, key)
	}

	if len(set.Keys) == 0 {
		return nil, errors.New(errors.ErrCodeDiscoveryMalformed, "JWKS contains no usable signing keys").
			WithDetails("entries", len(doc.Keys))
	}
	return set, nil
}

func signingKeyFromJWK(jwk jose.JSONWebKey) (SigningKey, bool) {
	if jwk.Use != "" && jwk.Use != "sig" {
		return SigningKey{}, false
	}
	if !jwk.Valid() {
		return SigningKey{}, false
	}
	if !jwk.IsPublic() {
		// A private JWK published by mistake still carries a usable public half.
		jwk = jwk.Public()
		if !jwk.Valid() {
			return SigningKey{}, false
		}
	}
	if jwk.Algorithm != "" && ValidateAlgorithm(jwk.Algorithm) != nil {
		return SigningKey{}, false
	}

	switch pub := jwk.Key.(type) {
	case *rsa.PublicKey:
		if pub.N.BitLen() < MinRSAKeySize {
			return SigningKey{}, false
		}
	case *ecdsa.PublicKey:
		if pub.Curve.Params().BitSize < MinECKeySize {
			return SigningKey{}, false
		}
	default:
		return SigningKey{}, false
	}

	return SigningKey{
		KeyID:     jwk.KeyID,
		Algorithm: jwk.Algorithm,
		Use:       jwk.Use,
		Key:       jwk.Key,
	}, true
}
