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

package signature

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/sigstore/sigverify/internal/certtest"
	"github.com/sigstore/sigverify/pkg/certificate"
)

var (
	content  = []byte("payload-v1")
	deadAKI  = []byte{0xDE, 0xAD}
	beefAKI  = []byte{0xBE, 0xEF}
	caSKI    = []byte{0x01, 0x02, 0x03, 0x04}
	otherSKI = []byte{0x05, 0x06, 0x07, 0x08}
)

func mustParse(t *testing.T, id *certtest.Identity) *certificate.Material {
	t.Helper()
	m, err := certificate.Parse(id.DER())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestVerify(t *testing.T) {
	signer := certtest.Signing(t)
	stranger := certtest.Signing(t)
	sig := certtest.SignDetached(t, content, signer)

	env, err := ParseEnvelope(sig)
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name    string
		content []byte
		signer  *certtest.Identity
		aki     []byte
		opts    []Option
		want    Outcome
	}{
		{name: "valid", content: content, signer: signer, aki: deadAKI, want: OK},
		{name: "valid without authority check", content: content, signer: signer, want: OK},
		{name: "tampered content", content: []byte("payload-v2"), signer: signer, aki: deadAKI, want: SignatureInvalid},
		{name: "empty content", content: nil, signer: signer, aki: deadAKI, want: SignatureInvalid},
		{name: "wrong authority", content: content, signer: signer, aki: beefAKI, want: AuthorityMismatch},
		{name: "tampered content and wrong authority", content: []byte("payload-v2"), signer: signer, aki: beefAKI, want: SignatureInvalid},
		{name: "different key", content: content, signer: stranger, aki: deadAKI, want: SignatureInvalid},
		{
			name:    "expired",
			content: content,
			signer:  signer,
			aki:     deadAKI,
			opts:    []Option{WithCurrentTime(time.Now().Add(24 * time.Hour))},
			want:    SignatureInvalid,
		},
		{
			name:    "untrusted anchor",
			content: content,
			signer:  signer,
			aki:     deadAKI,
			opts:    []Option{WithTrustAnchor(stranger.Certificate)},
			want:    SignatureInvalid,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Verify(env, tc.content, mustParse(t, tc.signer), tc.aki, tc.opts...)
			if got != tc.want {
				t.Fatalf("Verify() = %v (%v), want %v", got, err, tc.want)
			}
			if (err == nil) != (tc.want == OK) {
				t.Fatalf("unexpected error state: %v", err)
			}
		})
	}
}

func TestVerifyChain(t *testing.T) {
	ca := certtest.NewCA(t, "Staat der Nederlanden Test Root", caSKI)
	otherCA := certtest.NewCA(t, "Other Root", otherSKI)
	leaf := certtest.New(t, &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "Test Signing coronamelder.nl"},
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}, ca)

	sig := certtest.SignDetached(t, content, leaf, ca.Certificate)
	env, err := ParseEnvelope(sig)
	if err != nil {
		t.Fatal(err)
	}
	m := mustParse(t, leaf)

	if got, err := Verify(env, content, m, caSKI, WithTrustAnchor(ca.Certificate)); got != OK {
		t.Fatalf("Verify() = %v (%v), want %v", got, err, OK)
	}
	if got, _ := Verify(env, content, m, caSKI, WithTrustAnchor(otherCA.Certificate)); got != SignatureInvalid {
		t.Fatalf("Verify() = %v, want %v", got, SignatureInvalid)
	}
	if got, _ := Verify(env, content, m, otherSKI, WithTrustAnchor(ca.Certificate)); got != AuthorityMismatch {
		t.Fatalf("Verify() = %v, want %v", got, AuthorityMismatch)
	}
}

func TestVerifyMissingInputs(t *testing.T) {
	if got, err := Verify(nil, content, nil, nil); got != SignatureInvalid || err == nil {
		t.Fatalf("Verify() = %v, %v", got, err)
	}
}

func TestParseEnvelope(t *testing.T) {
	sig := certtest.SignDetached(t, content, certtest.Signing(t))

	if _, err := ParseEnvelope(sig); err != nil {
		t.Fatalf("DER: %v", err)
	}
	armored := pem.EncodeToMemory(&pem.Block{Type: "PKCS7", Bytes: sig})
	if _, err := ParseEnvelope(armored); err != nil {
		t.Fatalf("PEM: %v", err)
	}
	if _, err := ParseEnvelope(sig[:len(sig)/2]); err == nil {
		t.Fatal("expected error for truncated signature")
	}
	if _, err := ParseEnvelope([]byte("garbage")); err == nil {
		t.Fatal("expected error for garbage")
	}
	// Short prefixes with a long-form length header.
	for n := 0; n <= 4; n++ {
		if _, err := ParseEnvelope(sig[:n]); err == nil {
			t.Fatalf("expected error for %x", sig[:n])
		}
	}
}
