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

// Package identity checks certificate identity claims against expected
// values. All comparisons are exact: no case folding, no normalization.
package identity

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/sigstore/sigverify/pkg/certificate"
)

// SerialNumber reports whether the certificate serial number equals expected.
func SerialNumber(expected *big.Int, m *certificate.Material) bool {
	if expected == nil || m == nil {
		return false
	}
	return expected.Cmp(m.SerialNumber()) == 0
}

// SubjectKeyIdentifier reports whether the certificate subject key identifier
// equals expected byte for byte.
func SubjectKeyIdentifier(expected []byte, m *certificate.Material) bool {
	if m == nil {
		return false
	}
	return equalIdentifier(expected, m.SubjectKeyIdentifier())
}

// AuthorityKeyIdentifier reports whether the certificate authority key
// identifier equals expected byte for byte.
func AuthorityKeyIdentifier(expected []byte, m *certificate.Material) bool {
	if m == nil {
		return false
	}
	return equalIdentifier(expected, m.AuthorityKeyIdentifier())
}

// CommonName reports whether the certificate common name contains
// requiredContent and ends with requiredSuffix. An empty requirement always
// holds.
func CommonName(m *certificate.Material, requiredContent, requiredSuffix string) bool {
	if requiredContent == "" && requiredSuffix == "" {
		return true
	}
	if m == nil {
		return false
	}

	cn, ok := m.CommonName()
	if !ok {
		return false
	}
	if requiredContent != "" && !strings.Contains(cn, requiredContent) {
		return false
	}
	if requiredSuffix != "" && !strings.HasSuffix(cn, requiredSuffix) {
		return false
	}
	return true
}

// An absent identifier never matches, not even an absent expectation.
func equalIdentifier(expected, actual []byte) bool {
	if len(expected) == 0 || len(actual) == 0 {
		return false
	}
	return bytes.Equal(expected, actual)
}
