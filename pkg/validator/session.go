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

package validator

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sigstore/sigverify/internal"
	"github.com/sigstore/sigverify/pkg/certificate"
	"github.com/sigstore/sigverify/pkg/verdict"
)

type stage string

const (
	stageParse      stage = "parse"
	stageIdentity   stage = "identity"
	stageCommonName stage = "common-name"
	stageSignature  stage = "signature"
	stageAuthority  stage = "authority"
)

var (
	errSerialNumber         = errors.New("serial number mismatch")
	errSubjectKeyIdentifier = errors.New("subject key identifier mismatch")
	errCommonName           = errors.New("common name does not satisfy constraints")
)

// session holds everything a single Validate call knows. It is never shared
// between calls.
type session struct {
	logger *zap.Logger
	start  time.Time

	stage  stage
	err    error
	signer *certificate.Material
}

func (v *Validator) begin() *session {
	return &session{
		logger: v.logger,
		start:  time.Now(),
	}
}

func (s *session) fail(r verdict.Result, err error) verdict.Result {
	s.err = err
	return r
}

// end reports the result. It runs on every return path of Validate.
func (s *session) end(r verdict.Result) {
	fields := []zap.Field{
		zap.Stringer("verdict", r),
		zap.Duration("duration", time.Since(s.start)),
	}
	if s.signer != nil {
		fields = append(fields, zap.String("signer", internal.CertHexFingerprint(s.signer.Certificate())))
	}

	if r == verdict.Success {
		s.logger.Info("signature accepted", fields...)
		return
	}
	fields = append(fields, zap.String("stage", string(s.stage)), zap.Error(s.err))
	s.logger.Warn("signature rejected", fields...)
}
