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

// Package gatekeeper validates downloads against the configured root of
// trust.
package gatekeeper

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sigstore/sigverify/internal/config"
	"github.com/sigstore/sigverify/pkg/bundle"
	"github.com/sigstore/sigverify/pkg/validator"
	"github.com/sigstore/sigverify/pkg/verdict"
)

type Verifier struct {
	root        []byte
	rootErr     error
	constraints validator.Constraints
	validator   *validator.Validator
	logger      *zap.Logger
}

// NewVerifier builds a Verifier from cfg. Malformed constraints are an error.
// A root certificate that cannot be loaded is not: every verification then
// fails with GenericError.
func NewVerifier(cfg *config.Config, logger *zap.Logger) (*Verifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := cfg.Constraints()
	if err != nil {
		return nil, fmt.Errorf("error parsing constraints: %w", err)
	}
	root, rootErr := cfg.LoadRootCertificate()
	if rootErr != nil {
		logger.Warn("root certificate unavailable", zap.Error(rootErr))
	}
	return &Verifier{
		root:        root,
		rootErr:     rootErr,
		constraints: c,
		validator:   validator.New(validator.WithLogger(logger)),
		logger:      logger,
	}, nil
}

// Verify validates sig over content. The root certificate serial number and
// subject key identifier are checked before the signature is looked at.
func (v *Verifier) Verify(sig, content []byte) verdict.Result {
	if v.rootErr != nil {
		v.logger.Warn("signature rejected", zap.Stringer("verdict", verdict.GenericError), zap.Error(v.rootErr))
		return verdict.GenericError
	}
	return v.validator.Validate(sig, content, v.root, v.constraints)
}

// VerifyBundle validates a loaded bundle.
func (v *Verifier) VerifyBundle(b *bundle.Bundle) verdict.Result {
	return v.Verify(b.Signature, b.Content)
}

// Root returns the DER of the root certificate, or nil if it could not be
// loaded.
func (v *Verifier) Root() []byte {
	return v.root
}
