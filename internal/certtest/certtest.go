// Copyright 2024 The Sigstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package certtest builds certificates and signatures with exact identifiers
// for tests.
package certtest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	cms "github.com/sigstore/sigverify/internal/fork/ietf-cms"
)

// Identity is a certificate together with its private key.
type Identity struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.Signer
}

// DER returns the DER encoded certificate.
func (i *Identity) DER() []byte {
	return i.Certificate.Raw
}

// PEM returns the PEM encoded certificate.
func (i *Identity) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: i.Certificate.Raw})
}

// New creates a certificate from tmpl. The certificate is issued by issuer, or
// self-signed when issuer is nil. Zero validity and serial fields get
// defaults.
func New(t testing.TB, tmpl *x509.Certificate, issuer *Identity) *Identity {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("error generating private key: %v", err)
	}

	if tmpl.SerialNumber == nil {
		tmpl.SerialNumber = big.NewInt(1)
	}
	if tmpl.NotBefore.IsZero() {
		tmpl.NotBefore = time.Now().Add(-time.Hour)
	}
	if tmpl.NotAfter.IsZero() {
		tmpl.NotAfter = time.Now().Add(time.Hour)
	}

	parent, signer := tmpl, crypto.Signer(priv)
	if issuer != nil {
		parent, signer = issuer.Certificate, issuer.PrivateKey
	}

	raw, err := x509.CreateCertificate(rand.Reader, tmpl, parent, &priv.PublicKey, signer)
	if err != nil {
		t.Fatalf("error generating certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	return &Identity{Certificate: cert, PrivateKey: priv}
}

// NewCA creates a self-signed CA certificate.
func NewCA(t testing.TB, cn string, ski []byte) *Identity {
	t.Helper()
	return New(t, &x509.Certificate{
		SerialNumber:          big.NewInt(1000),
		Subject:               pkix.Name{CommonName: cn},
		SubjectKeyId:          ski,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}, nil)
}

// Signing returns the self-signed certificate used by the signing scenarios:
// serial 12345, subject key id AABBCC, authority key id DEAD and common name
// "Tan Signing".
func Signing(t testing.TB) *Identity {
	t.Helper()
	return New(t, &x509.Certificate{
		SerialNumber:   big.NewInt(12345),
		Subject:        pkix.Name{CommonName: "Tan Signing"},
		SubjectKeyId:   []byte{0xAA, 0xBB, 0xCC},
		AuthorityKeyId: []byte{0xDE, 0xAD},
		KeyUsage:       x509.KeyUsageDigitalSignature,
	}, nil)
}

// SignDetached creates a detached PKCS7 signature over content with signer.
// The signer certificate and chain are embedded in the signature.
func SignDetached(t testing.TB, content []byte, signer *Identity, chain ...*x509.Certificate) []byte {
	t.Helper()

	sig, err := cms.SignDetached(content, append([]*x509.Certificate{signer.Certificate}, chain...), signer.PrivateKey)
	if err != nil {
		t.Fatalf("error signing content: %v", err)
	}
	return sig
}

// Sign creates a PKCS7 signature with the content embedded.
func Sign(t testing.TB, content []byte, signer *Identity, chain ...*x509.Certificate) []byte {
	t.Helper()

	sig, err := cms.Sign(content, append([]*x509.Certificate{signer.Certificate}, chain...), signer.PrivateKey)
	if err != nil {
		t.Fatalf("error signing content: %v", err)
	}
	return sig
}
