// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package oidctest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	pamjwt "github.com/openchami/pam-oidc/pkg/jwt"
)

// Signer holds a private key and mints tokens the way an identity provider
// would.
type Signer struct {
	KeyID     string
	Algorithm string

	// When false the published JWK omits "alg".
	PublishAlgorithm bool

	privateKey crypto.Signer
	method     jwt.SigningMethod
}

// NewRSASigner generates an RSA key of the FIPS minimum size for alg
// (RS* or PS*).
func NewRSASigner(kid, alg string) (*Signer, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, pamjwt.MinRSAKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}
	return newSigner(kid, alg, privateKey)
}

// NewECSigner generates an ECDSA key on the curve alg requires.
func NewECSigner(kid, alg string) (*Signer, error) {
	var curve elliptic.Curve
	switch alg {
	case "ES256":
		curve = elliptic.P256()
	case "ES384":
		curve = elliptic.P384()
	case "ES512":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("algorithm %s is not an ECDSA algorithm", alg)
	}

	privateKey, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA key pair: %w", err)
	}
	return newSigner(kid, alg, privateKey)
}

// LoadSigner reads a PKCS#1 RSA or SEC 1 EC private key from a PEM file.
func LoadSigner(path, kid, alg string) (*Signer, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return newSigner(kid, alg, privateKey)
	case "EC PRIVATE KEY":
		privateKey, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return newSigner(kid, alg, privateKey)
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

func newSigner(kid, alg string, privateKey crypto.Signer) (*Signer, error) {
	method, err := pamjwt.GetSigningMethod(alg)
	if err != nil {
		return nil, err
	}
	return &Signer{
		KeyID:            kid,
		Algorithm:        alg,
		PublishAlgorithm: true,
		privateKey:       privateKey,
		method:           method,
	}, nil
}

// SavePrivateKey writes the private key as PEM.
func (s *Signer) SavePrivateKey(path string) error {
	var block *pem.Block
	switch key := s.privateKey.(type) {
	case *rsa.PrivateKey:
		block = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(key)
		if err != nil {
			return fmt.Errorf("failed to marshal private key: %w", err)
		}
		block = &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}
	default:
		return fmt.Errorf("unsupported private key type %T", s.privateKey)
	}

	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		return fmt.Errorf("failed to write private key file: %w", err)
	}
	return nil
}

// PublicKey returns the verification half of the key pair.
func (s *Signer) PublicKey() crypto.PublicKey {
	return s.privateKey.Public()
}

// PublicJWK returns the key as it would appear in a JWKS.
func (s *Signer) PublicJWK() jose.JSONWebKey {
	jwk := jose.JSONWebKey{
		Key:   s.PublicKey(),
		KeyID: s.KeyID,
		Use:   "sig",
	}
	if s.PublishAlgorithm {
		jwk.Algorithm = s.Algorithm
	}
	return jwk
}

// Sign mints a compact JWT. The kid header is set when the signer has one.
func (s *Signer) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.method, claims)
	if s.KeyID != "" {
		token.Header["kid"] = s.KeyID
	}
	return token.SignedString(s.privateKey)
}

// SignWithoutKeyID mints a token whose header carries no kid.
func (s *Signer) SignWithoutKeyID(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.method, claims)
	return token.SignedString(s.privateKey)
}
