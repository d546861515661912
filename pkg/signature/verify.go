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

// Package signature verifies PKCS7 signatures made by a certificate's key
// and checks the signer's authority key identifier.
package signature

import (
	"crypto/x509"
	"encoding/pem"
	"time"

	"github.com/pkg/errors"
	cms "github.com/sigstore/sigverify/internal/fork/ietf-cms"
	"github.com/sigstore/sigverify/pkg/certificate"
	"github.com/sigstore/sigverify/pkg/identity"
)

// Outcome distinguishes an invalid signature from a valid signature made
// under the wrong authority.
type Outcome int

const (
	OK Outcome = iota
	// SignatureInvalid covers malformed signer information, unsupported
	// algorithms, digest or signature mismatches and broken chains.
	SignatureInvalid
	// AuthorityMismatch means the signature is valid but the signer's
	// authority key identifier is not the expected one.
	AuthorityMismatch
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case SignatureInvalid:
		return "signature invalid"
	case AuthorityMismatch:
		return "authority mismatch"
	default:
		return "unknown"
	}
}

type options struct {
	anchors     []*x509.Certificate
	currentTime time.Time
}

// Option configures Verify.
type Option func(*options)

// WithTrustAnchor adds a certificate the signer certificate must chain to.
// Without trust anchors the signer certificate is its own anchor.
func WithTrustAnchor(cert *x509.Certificate) Option {
	return func(o *options) {
		if cert != nil {
			o.anchors = append(o.anchors, cert)
		}
	}
}

// WithCurrentTime sets the time certificate validity is checked at.
func WithCurrentTime(t time.Time) Option {
	return func(o *options) {
		o.currentTime = t
	}
}

// ParseEnvelope parses a PKCS7 SignedData. PEM armored input is accepted.
// Malformed input is reported as an error, including input the BER decoder
// panics on.
func ParseEnvelope(sig []byte) (sd *cms.SignedData, err error) {
	defer func() {
		if r := recover(); r != nil {
			sd, err = nil, errors.Errorf("failed to parse signature: malformed encoding: %v", r)
		}
	}()

	// Try decoding as PEM
	var der []byte
	if blk, _ := pem.Decode(sig); blk != nil {
		der = blk.Bytes
	} else {
		der = sig
	}

	sd, err = cms.ParseSignedData(der)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse signature")
	}
	return sd, nil
}

// Verify checks that env carries a valid signature over content made with
// the key of signer, that signer chains to the configured trust anchors, and
// that the signer's authority key identifier equals expectedAKI. An empty
// expectedAKI skips the authority check.
//
// The cryptographic check always runs first, so an invalid signature is never
// reported as an authority mismatch.
//
// WARNING: this function doesn't do any revocation checking.
func Verify(env *cms.SignedData, content []byte, signer *certificate.Material, expectedAKI []byte, opts ...Option) (Outcome, error) {
	if env == nil || signer == nil {
		return SignatureInvalid, errors.New("missing signature or signer certificate")
	}

	o := &options{}
	for _, fn := range opts {
		fn(o)
	}

	cert := signer.Certificate()
	if err := env.CheckSignature(content, cert); err != nil {
		return SignatureInvalid, errors.Wrap(err, "failed to verify signature")
	}

	roots := x509.NewCertPool()
	if len(o.anchors) == 0 {
		roots.AddCert(cert)
	}
	for _, c := range o.anchors {
		roots.AddCert(c)
	}
	if _, err := env.VerifyChain(cert, x509.VerifyOptions{
		Roots:       roots,
		CurrentTime: o.currentTime,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}); err != nil {
		return SignatureInvalid, errors.Wrap(err, "failed to verify signer certificate")
	}

	if len(expectedAKI) > 0 && !identity.AuthorityKeyIdentifier(expectedAKI, signer) {
		return AuthorityMismatch, errors.Errorf("authority key identifier %x does not match expected %x",
			signer.AuthorityKeyIdentifier(), expectedAKI)
	}

	return OK, nil
}
