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

package verdict

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestErr(t *testing.T) {
	if err := Success.Err(); err != nil {
		t.Fatalf("Success.Err() = %v", err)
	}
	for _, tc := range []struct {
		r    Result
		want error
	}{
		{GenericError, ErrGeneric},
		{IncorrectCommonName, ErrIncorrectCommonName},
		{VerificationFailed, ErrVerificationFailed},
		{IncorrectAuthorityKeyIdentifier, ErrIncorrectAuthorityKeyIdentifier},
		{Result(42), ErrGeneric},
	} {
		if err := tc.r.Err(); !errors.Is(err, tc.want) {
			t.Errorf("%v.Err() = %v, want %v", tc.r, err, tc.want)
		}
	}
}

func TestText(t *testing.T) {
	for _, r := range All() {
		b, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		var got Result
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatal(err)
		}
		if got != r {
			t.Errorf("got %v, want %v", got, r)
		}
	}

	if _, err := json.Marshal(Result(42)); err == nil {
		t.Error("expected error marshalling undeclared result")
	}
	var r Result
	if err := r.UnmarshalText([]byte("Maybe")); err == nil {
		t.Error("expected error for unknown result name")
	}
	if s := Result(-1).String(); s != "Unknown(-1)" {
		t.Errorf("String() = %q", s)
	}
}
