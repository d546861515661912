//
// Copyright 2024 The Sigstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package certificate extracts the fields used for signature gatekeeping from
// X.509 certificates.
package certificate

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

var oidCommonName = asn1.ObjectIdentifier{2, 5, 4, 3}

// ParseError is returned for any certificate input that cannot be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing certificate: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Material is the parsed view of a certificate. It must not be modified after
// Parse returns it.
type Material struct {
	cert *x509.Certificate

	serialNumber  *big.Int
	commonName    string
	hasCommonName bool
}

// Parse decodes a DER encoded certificate. A PEM CERTIFICATE block is
// accepted as well.
func Parse(data []byte) (*Material, error) {
	if len(data) == 0 {
		return nil, &ParseError{Err: errors.New("empty input")}
	}

	der := data
	if blk, _ := pem.Decode(data); blk != nil {
		if blk.Type != "CERTIFICATE" {
			return nil, &ParseError{Err: fmt.Errorf("unexpected PEM block type %q", blk.Type)}
		}
		der = blk.Bytes
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return FromX509(cert)
}

// FromX509 builds Material from an already parsed certificate.
func FromX509(cert *x509.Certificate) (*Material, error) {
	if cert == nil {
		return nil, &ParseError{Err: errors.New("nil certificate")}
	}
	if cert.SerialNumber == nil {
		return nil, &ParseError{Err: errors.New("missing serial number")}
	}

	m := &Material{
		cert:         cert,
		serialNumber: new(big.Int).Set(cert.SerialNumber),
	}

	// pkix.Name.CommonName can't tell an absent attribute from an empty one.
	for _, atv := range cert.Subject.Names {
		if !atv.Type.Equal(oidCommonName) {
			continue
		}
		if s, ok := atv.Value.(string); ok {
			m.commonName = s
			m.hasCommonName = true
		}
		break
	}

	return m, nil
}

// CommonName parses data and returns the subject common name, if any.
func CommonName(data []byte) (string, bool) {
	m, err := Parse(data)
	if err != nil {
		return "", false
	}
	return m.CommonName()
}

// SerialNumber returns a copy of the certificate serial number.
func (m *Material) SerialNumber() *big.Int {
	return new(big.Int).Set(m.serialNumber)
}

// SubjectKeyIdentifier returns the subject key identifier, or nil when the
// extension is absent.
func (m *Material) SubjectKeyIdentifier() []byte {
	return clone(m.cert.SubjectKeyId)
}

// AuthorityKeyIdentifier returns the key identifier of the authority key
// identifier extension, or nil when it is absent.
func (m *Material) AuthorityKeyIdentifier() []byte {
	return clone(m.cert.AuthorityKeyId)
}

// CommonName returns the first common name attribute of the subject.
func (m *Material) CommonName() (string, bool) {
	return m.commonName, m.hasCommonName
}

// PublicKey returns the certified public key.
func (m *Material) PublicKey() crypto.PublicKey {
	return m.cert.PublicKey
}

// Certificate returns a copy of the underlying certificate. Changes to the
// copy do not affect m.
func (m *Material) Certificate() *x509.Certificate {
	c := *m.cert
	c.SubjectKeyId = clone(m.cert.SubjectKeyId)
	c.AuthorityKeyId = clone(m.cert.AuthorityKeyId)
	c.Raw = clone(m.cert.Raw)
	c.SerialNumber = new(big.Int).Set(m.cert.SerialNumber)
	return &c
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
