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

package show

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"github.com/spf13/cobra"

	"github.com/sigstore/sigverify/internal"
	"github.com/sigstore/sigverify/internal/config"
	"github.com/sigstore/sigverify/pkg/certificate"
	"github.com/sigstore/sigverify/pkg/signature"
)

// CertificateInfo is the JSON form of a certificate's identifying fields.
type CertificateInfo struct {
	SerialNumber           string `json:"serialNumber"`
	SubjectKeyIdentifier   string `json:"subjectKeyIdentifier,omitempty"`
	AuthorityKeyIdentifier string `json:"authorityKeyIdentifier,omitempty"`
	CommonName             string `json:"commonName,omitempty"`
	Issuer                 string `json:"issuer"`
	SHA1Fingerprint        string `json:"sha1Fingerprint"`
	// Signer is set on the certificate that made a signature.
	Signer      bool   `json:"signer,omitempty"`
	Certificate string `json:"certificate"`
}

type options struct {
	Config *config.Config
}

func (o *options) Run(w io.Writer, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	out, err := describe(raw)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}

	return nil
}

// describe reads raw as a certificate, or failing that as a signature whose
// embedded certificates are listed.
func describe(raw []byte) ([]*CertificateInfo, error) {
	if m, err := certificate.Parse(raw); err == nil {
		info, err := certificateInfo(m)
		if err != nil {
			return nil, err
		}
		return []*CertificateInfo{info}, nil
	}

	sd, err := signature.ParseEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("input is neither a certificate nor a signature: %w", err)
	}
	certs, err := sd.GetCertificates()
	if err != nil {
		return nil, err
	}
	// The signer may be missing from the envelope; that is not an error here.
	signer, _ := sd.SignerCertificate()

	out := make([]*CertificateInfo, 0, len(certs))
	for _, cert := range certs {
		m, err := certificate.FromX509(cert)
		if err != nil {
			return nil, err
		}
		info, err := certificateInfo(m)
		if err != nil {
			return nil, err
		}
		info.Signer = signer != nil && cert.Equal(signer)
		out = append(out, info)
	}
	return out, nil
}

func certificateInfo(m *certificate.Material) (*CertificateInfo, error) {
	cert := m.Certificate()
	b, err := cryptoutils.MarshalCertificateToPEM(cert)
	if err != nil {
		return nil, err
	}
	cn, _ := m.CommonName()
	return &CertificateInfo{
		SerialNumber:           m.SerialNumber().String(),
		SubjectKeyIdentifier:   internal.FormatKeyID(m.SubjectKeyIdentifier()),
		AuthorityKeyIdentifier: internal.FormatKeyID(m.AuthorityKeyIdentifier()),
		CommonName:             cn,
		Issuer:                 cert.Issuer.String(),
		SHA1Fingerprint:        internal.CertHexFingerprint(cert),
		Certificate:            string(b),
	}, nil
}

func New(cfg *config.Config) *cobra.Command {
	o := &options{Config: cfg}

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Show certificate identifiers",
		Long: `Show certificate identifiers.

FILE is a PEM or DER certificate, or a PKCS7 signature. For a signature, every
embedded certificate is shown and the signing certificate is marked.

The output includes the values sigverify checks: serial number, subject and
authority key identifiers and common name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.OutOrStdout(), args)
		},
	}

	return cmd
}
