// Copyright 2022 The Sigstore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package signer produces PKCS7 signatures that sigverify accepts. It is used
// to build test bundles.
package signer

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/sigstore/sigstore/pkg/cryptoutils"

	cms "github.com/sigstore/sigverify/internal/fork/ietf-cms"
	"github.com/sigstore/sigverify/pkg/certificate"
	"github.com/sigstore/sigverify/pkg/identity"
)

type SignOptions struct {
	// Make a detached signature
	Detached bool
	// Create ascii armored output
	Armor bool
	// IncludeCerts is the number of chain certificates to embed, counted
	// from the signing certificate. -1 embeds the whole chain, -2 all but a
	// self-signed root, -3 additionally stops at issuers reachable through
	// an Authority Information Access URL.
	IncludeCerts int

	// CommonNameContent and CommonNameSuffix must match the signing
	// certificate common name when set.
	CommonNameContent string
	CommonNameSuffix  string
}

// Identity is a signing certificate, its chain and private key.
type Identity interface {
	// Certificate gets the identity's certificate.
	Certificate() (*x509.Certificate, error)
	// CertificateChain gets the identity's chain, starting with the
	// certificate itself.
	CertificateChain() ([]*x509.Certificate, error)
	// Signer gets a crypto.Signer that uses the identity's private key.
	Signer() (crypto.Signer, error)
}

// SignResponse is the response from Sign containing the signature and other related metadata.
type SignResponse struct {
	Signature []byte
	Cert      *x509.Certificate
}

// Sign signs a given payload for the given identity.
// The resulting signature and cert used is returned.
func Sign(ident Identity, body []byte, opts SignOptions) (*SignResponse, error) {
	cert, err := ident.Certificate()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity certificate: %w", err)
	}

	if opts.CommonNameContent != "" || opts.CommonNameSuffix != "" {
		m, err := certificate.FromX509(cert)
		if err != nil {
			return nil, err
		}
		if !identity.CommonName(m, opts.CommonNameContent, opts.CommonNameSuffix) {
			cn, _ := m.CommonName()
			return nil, fmt.Errorf("signer.matchCommonName: certificate common name %q does not match config - want content %q, suffix %q",
				cn, opts.CommonNameContent, opts.CommonNameSuffix)
		}
	}

	signer, err := ident.Signer()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity signer: %w", err)
	}

	sd, err := cms.NewSignedData(body)
	if err != nil {
		return nil, fmt.Errorf("failed to create signed data: %w", err)
	}

	if err := sd.Sign([]*x509.Certificate{cert}, signer); err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	if opts.Detached {
		sd.Detached()
	}

	chain, err := ident.CertificateChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity certificate chain: %w", err)
	}
	if chain, err = certsForSignature(chain, opts.IncludeCerts); err != nil {
		return nil, fmt.Errorf("failed to extract certificates from chain: %w", err)
	}
	if err := sd.SetCertificates(chain); err != nil {
		return nil, fmt.Errorf("failed to set certificates: %w", err)
	}

	der, err := sd.ToDER()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize signature: %w", err)
	}

	if opts.Armor {
		return &SignResponse{
			Signature: pem.EncodeToMemory(&pem.Block{
				Type:  "PKCS7",
				Bytes: der,
			}),
			Cert: cert,
		}, nil
	}
	return &SignResponse{
		Signature: der,
		Cert:      cert,
	}, nil
}

// Values of SignOptions.IncludeCerts with a special meaning.
const (
	includeWithoutIssuerAIA = -3
	includeWithoutRoot      = -2
	includeAll              = -1
)

// certsForSignature picks the certificates embedded next to the signature.
// chain starts with the signing certificate. Values below -3 behave like -2,
// values above len(chain) like -1.
func certsForSignature(chain []*x509.Certificate, include int) ([]*x509.Certificate, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("empty certificate chain")
	}

	switch {
	case include == includeAll, include > len(chain):
		return chain, nil
	case include == includeWithoutIssuerAIA:
		return withoutRoot(truncateAtAIA(chain)), nil
	case include < includeAll:
		return withoutRoot(chain), nil
	default:
		return chain[:include], nil
	}
}

// truncateAtAIA drops everything above the first certificate, counted from
// the root, that names its issuer in an Authority Information Access URL.
func truncateAtAIA(chain []*x509.Certificate) []*x509.Certificate {
	for i := len(chain) - 1; i > 0; i-- {
		child := chain[i-1]
		if len(child.IssuingCertificateURL) > 0 && bytes.Equal(chain[i].RawSubject, child.RawIssuer) {
			chain = chain[:i]
		}
	}
	return chain
}

// withoutRoot drops a trailing self-issued certificate. A chain made of a
// single self-signed certificate becomes empty.
func withoutRoot(chain []*x509.Certificate) []*x509.Certificate {
	if n := len(chain); n > 0 && bytes.Equal(chain[n-1].RawIssuer, chain[n-1].RawSubject) {
		return chain[:n-1]
	}
	return chain
}

// FileIdentity is an Identity read from PEM files.
type FileIdentity struct {
	cert  *x509.Certificate
	chain []*x509.Certificate
	priv  crypto.Signer
}

// LoadIdentity reads the private key at keyPath and the certificate at
// certPath. chainPath is optional and holds the issuing certificates, leaf
// first.
func LoadIdentity(keyPath, certPath, chainPath string, pf cryptoutils.PassFunc) (*FileIdentity, error) {
	if pf == nil {
		pf = cryptoutils.SkipPassword
	}

	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("error reading private key: %w", err)
	}
	key, err := cryptoutils.UnmarshalPEMToPrivateKey(keyPEM, pf)
	if err != nil {
		return nil, fmt.Errorf("error parsing private key: %w", err)
	}
	priv, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("private key %T cannot sign", key)
	}

	certs, err := loadCertificates(certPath)
	if err != nil {
		return nil, err
	}
	id := &FileIdentity{cert: certs[0], chain: certs, priv: priv}

	if chainPath != "" {
		chain, err := loadCertificates(chainPath)
		if err != nil {
			return nil, err
		}
		id.chain = append([]*x509.Certificate{id.cert}, chain...)
	}

	if err := cryptoutils.EqualKeys(id.cert.PublicKey, priv.Public()); err != nil {
		return nil, fmt.Errorf("private key does not match certificate %s: %w", certPath, err)
	}
	return id, nil
}

func loadCertificates(path string) ([]*x509.Certificate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	certs, err := cryptoutils.LoadCertificatesFromPEM(f)
	if err != nil {
		return nil, fmt.Errorf("error loading certs from %s: %w", path, err)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return certs, nil
}

func (i *FileIdentity) Certificate() (*x509.Certificate, error) {
	return i.cert, nil
}

func (i *FileIdentity) CertificateChain() ([]*x509.Certificate, error) {
	return i.chain, nil
}

func (i *FileIdentity) Signer() (crypto.Signer, error) {
	return i.priv, nil
}
