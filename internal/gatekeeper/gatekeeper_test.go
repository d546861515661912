// Copyright 2024 The Sigstore Authors
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

package gatekeeper

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigstore/sigverify/internal/certtest"
	"github.com/sigstore/sigverify/internal/config"
	"github.com/sigstore/sigverify/pkg/bundle"
	"github.com/sigstore/sigverify/pkg/verdict"
)

// pki is a root and a leaf shaped like the production signing setup.
type pki struct {
	root, leaf *certtest.Identity
	rootPath   string
}

func newPKI(t *testing.T) *pki {
	root := certtest.NewCA(t, "Staat der Nederlanden Root CA - G3", []byte{0x54, 0xAD, 0xFA, 0xC7})
	leaf := certtest.New(t, &x509.Certificate{
		SerialNumber: big.NewInt(4242),
		Subject:      pkix.Name{CommonName: "Signing coronamelder-api.nl"},
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}, root)

	path := filepath.Join(t.TempDir(), "root.pem")
	require.NoError(t, os.WriteFile(path, root.PEM(), 0o600))
	return &pki{root: root, leaf: leaf, rootPath: path}
}

func (p *pki) config() *config.Config {
	return &config.Config{
		RootCertificate:          p.rootPath,
		RootSerial:               "1000",
		RootSubjectKeyIdentifier: "54:AD:FA:C7",
		AuthorityKeyIdentifier:   "54adfac7",
		CommonNameContent:        "coronamelder",
		CommonNameSuffix:         ".nl",
	}
}

func TestVerify(t *testing.T) {
	p := newPKI(t)
	payload := []byte("exposure keys")
	sig := certtest.SignDetached(t, payload, p.leaf, p.root.Certificate)

	for _, tc := range []struct {
		name    string
		mutate  func(*config.Config)
		content []byte
		want    verdict.Result
	}{
		{"valid", func(*config.Config) {}, payload, verdict.Success},
		{"tampered", func(*config.Config) {}, []byte("exposure keys!"), verdict.VerificationFailed},
		{"wrong root serial", func(c *config.Config) { c.RootSerial = "1001" }, payload, verdict.GenericError},
		{"wrong root key", func(c *config.Config) { c.RootSubjectKeyIdentifier = "54:AD" }, payload, verdict.GenericError},
		{"wrong suffix", func(c *config.Config) { c.CommonNameSuffix = ".com" }, payload, verdict.IncorrectCommonName},
		{"wrong authority", func(c *config.Config) { c.AuthorityKeyIdentifier = "beef" }, payload, verdict.IncorrectAuthorityKeyIdentifier},
		{"missing root", func(c *config.Config) { c.RootCertificate = filepath.Join(t.TempDir(), "none.pem") }, payload, verdict.GenericError},
		{"no root configured", func(c *config.Config) { c.RootCertificate = "" }, payload, verdict.GenericError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := p.config()
			tc.mutate(cfg)

			v, err := NewVerifier(cfg, nil)
			require.NoError(t, err)
			require.Equal(t, tc.want, v.Verify(sig, tc.content))
		})
	}
}

func TestVerifyBundle(t *testing.T) {
	p := newPKI(t)
	keys := []byte("export")

	v, err := NewVerifier(p.config(), nil)
	require.NoError(t, err)
	require.Equal(t, p.root.DER(), v.Root())

	b := &bundle.Bundle{
		Signature:   certtest.SignDetached(t, keys, p.leaf, p.root.Certificate),
		Content:     keys,
		ContentName: bundle.ExportFile,
	}
	require.Equal(t, verdict.Success, v.VerifyBundle(b))
}

func TestNewVerifierErrors(t *testing.T) {
	p := newPKI(t)
	cfg := p.config()
	cfg.AuthorityKeyIdentifier = "not hex"

	_, err := NewVerifier(cfg, nil)
	require.Error(t, err)
}
