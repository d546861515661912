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

// Package validator decides whether signed content can be trusted. It runs
// the certificate, identity and signature checks in a fixed order and maps
// the first failure to a verdict.Result.
package validator

import (
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/sigstore/sigverify/pkg/certificate"
	"github.com/sigstore/sigverify/pkg/identity"
	"github.com/sigstore/sigverify/pkg/signature"
	"github.com/sigstore/sigverify/pkg/verdict"
)

// Constraints are the expected values for a single validation. Nil or empty
// fields are not checked.
type Constraints struct {
	// SerialNumber of the supplied certificate.
	SerialNumber *big.Int
	// SubjectKeyIdentifier of the supplied certificate.
	SubjectKeyIdentifier []byte
	// AuthorityKeyIdentifier of the signing certificate.
	AuthorityKeyIdentifier []byte
	// CommonNameContent must occur in the signing certificate common name.
	CommonNameContent string
	// CommonNameSuffix must end the signing certificate common name.
	CommonNameSuffix string
}

// Validator validates PKCS7 signatures. It holds no per-call state and is
// safe for concurrent use.
type Validator struct {
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Validator)

// WithLogger sets the logger validation results are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithCurrentTime sets the clock used for certificate validity checks.
func WithCurrentTime(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate checks signatureData over contentData. certificateData is the
// trusted certificate: it is matched against the serial number and subject
// key identifier constraints, and the signer must be it or chain to it. The
// common name and authority key identifier constraints apply to the signing
// certificate.
//
// Checks run in this order, and the first failure decides the result:
//
//	parse inputs, resolve the signer          GenericError
//	serial number, subject key identifier     GenericError
//	common name                               IncorrectCommonName
//	signature and chain                       VerificationFailed
//	authority key identifier                  IncorrectAuthorityKeyIdentifier
func (v *Validator) Validate(signatureData, contentData, certificateData []byte, c Constraints) (result verdict.Result) {
	s := v.begin()
	defer func() {
		// A panic in a parser or the x509 library rejects the signature.
		if r := recover(); r != nil {
			result = s.fail(verdict.GenericError, fmt.Errorf("panic during %s: %v", s.stage, r))
		}
		s.end(result)
	}()

	s.stage = stageParse
	trusted, err := certificate.Parse(certificateData)
	if err != nil {
		return s.fail(verdict.GenericError, err)
	}
	env, err := signature.ParseEnvelope(signatureData)
	if err != nil {
		return s.fail(verdict.GenericError, err)
	}
	signerCert, err := env.SignerCertificate(trusted.Certificate())
	if err != nil {
		return s.fail(verdict.GenericError, err)
	}
	signer, err := certificate.FromX509(signerCert)
	if err != nil {
		return s.fail(verdict.GenericError, err)
	}
	s.signer = signer

	s.stage = stageIdentity
	if c.SerialNumber != nil && !identity.SerialNumber(c.SerialNumber, trusted) {
		return s.fail(verdict.GenericError, errSerialNumber)
	}
	if len(c.SubjectKeyIdentifier) > 0 && !identity.SubjectKeyIdentifier(c.SubjectKeyIdentifier, trusted) {
		return s.fail(verdict.GenericError, errSubjectKeyIdentifier)
	}

	s.stage = stageCommonName
	if !identity.CommonName(signer, c.CommonNameContent, c.CommonNameSuffix) {
		return s.fail(verdict.IncorrectCommonName, errCommonName)
	}

	s.stage = stageSignature
	outcome, err := signature.Verify(env, contentData, signer, c.AuthorityKeyIdentifier,
		signature.WithTrustAnchor(trusted.Certificate()),
		signature.WithCurrentTime(v.now()),
	)
	switch outcome {
	case signature.OK:
		return verdict.Success
	case signature.AuthorityMismatch:
		s.stage = stageAuthority
		return s.fail(verdict.IncorrectAuthorityKeyIdentifier, err)
	default:
		return s.fail(verdict.VerificationFailed, err)
	}
}

// ValidateSerialNumber reports whether certificateData is a certificate with
// the given serial number.
func (v *Validator) ValidateSerialNumber(serialNumber uint64, certificateData []byte) bool {
	m, err := certificate.Parse(certificateData)
	if err != nil {
		v.logger.Debug("certificate rejected", zap.Error(err))
		return false
	}
	return identity.SerialNumber(new(big.Int).SetUint64(serialNumber), m)
}

// ValidateSubjectKeyIdentifier reports whether certificateData is a
// certificate with the given subject key identifier.
func (v *Validator) ValidateSubjectKeyIdentifier(subjectKeyIdentifier, certificateData []byte) bool {
	m, err := certificate.Parse(certificateData)
	if err != nil {
		v.logger.Debug("certificate rejected", zap.Error(err))
		return false
	}
	return identity.SubjectKeyIdentifier(subjectKeyIdentifier, m)
}

// GetCommonName returns the subject common name of certificateData.
func (v *Validator) GetCommonName(certificateData []byte) (string, bool) {
	return certificate.CommonName(certificateData)
}

// ValidatePKCS7Signature validates signatureData over contentData against the
// trusted certificate in certificateData. Empty authorityKeyIdentifier,
// requiredCommonNameContent or requiredCommonNameSuffix are not checked.
func (v *Validator) ValidatePKCS7Signature(signatureData, contentData, certificateData, authorityKeyIdentifier []byte, requiredCommonNameContent, requiredCommonNameSuffix string) verdict.Result {
	return v.Validate(signatureData, contentData, certificateData, Constraints{
		AuthorityKeyIdentifier: authorityKeyIdentifier,
		CommonNameContent:      requiredCommonNameContent,
		CommonNameSuffix:       requiredCommonNameSuffix,
	})
}

var std = New()

// ValidateSerialNumber calls Validator.ValidateSerialNumber on a default
// Validator.
func ValidateSerialNumber(serialNumber uint64, certificateData []byte) bool {
	return std.ValidateSerialNumber(serialNumber, certificateData)
}

// ValidateSubjectKeyIdentifier calls Validator.ValidateSubjectKeyIdentifier on
// a default Validator.
func ValidateSubjectKeyIdentifier(subjectKeyIdentifier, certificateData []byte) bool {
	return std.ValidateSubjectKeyIdentifier(subjectKeyIdentifier, certificateData)
}

// GetCommonName calls Validator.GetCommonName on a default Validator.
func GetCommonName(certificateData []byte) (string, bool) {
	return std.GetCommonName(certificateData)
}

// ValidatePKCS7Signature calls Validator.ValidatePKCS7Signature on a default
// Validator.
func ValidatePKCS7Signature(signatureData, contentData, certificateData, authorityKeyIdentifier []byte, requiredCommonNameContent, requiredCommonNameSuffix string) verdict.Result {
	return std.ValidatePKCS7Signature(signatureData, contentData, certificateData, authorityKeyIdentifier, requiredCommonNameContent, requiredCommonNameSuffix)
}
