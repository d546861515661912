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

// Package verdict defines the closed set of signature validation results.
package verdict

import (
	"errors"
	"fmt"
)

// Result is the outcome of a signature validation. Anything other than
// Success means the payload must be rejected.
type Result int

const (
	Success Result = iota
	GenericError
	IncorrectCommonName
	VerificationFailed
	IncorrectAuthorityKeyIdentifier
)

var (
	ErrGeneric                         = errors.New("signature validation failed")
	ErrIncorrectCommonName             = errors.New("incorrect common name")
	ErrVerificationFailed              = errors.New("signature verification failed")
	ErrIncorrectAuthorityKeyIdentifier = errors.New("incorrect authority key identifier")
)

var names = map[Result]string{
	Success:                         "Success",
	GenericError:                    "GenericError",
	IncorrectCommonName:             "IncorrectCommonName",
	VerificationFailed:              "VerificationFailed",
	IncorrectAuthorityKeyIdentifier: "IncorrectAuthorityKeyIdentifier",
}

// All returns every result in declaration order.
func All() []Result {
	return []Result{Success, GenericError, IncorrectCommonName, VerificationFailed, IncorrectAuthorityKeyIdentifier}
}

// IsValid reports whether r is one of the declared results.
func (r Result) IsValid() bool {
	_, ok := names[r]
	return ok
}

func (r Result) String() string {
	if s, ok := names[r]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(%d)", int(r))
}

// Err returns nil for Success and a sentinel error otherwise. Undeclared
// results map to ErrGeneric.
func (r Result) Err() error {
	switch r {
	case Success:
		return nil
	case IncorrectCommonName:
		return ErrIncorrectCommonName
	case VerificationFailed:
		return ErrVerificationFailed
	case IncorrectAuthorityKeyIdentifier:
		return ErrIncorrectAuthorityKeyIdentifier
	default:
		return ErrGeneric
	}
}

func (r Result) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("verdict: undeclared result %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(text []byte) error {
	for k, v := range names {
		if v == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("verdict: unknown result %q", text)
}
