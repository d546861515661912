package cms

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestSign(t *testing.T) {
	data := []byte("hello, world!")

	ci, err := Sign(data, leaf.Chain(), leaf.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}

	sd2, err := ParseSignedData(ci)
	if err != nil {
		t.Fatal(err)
	}

	if sd2.IsDetached() {
		t.Fatal("expected attached signature")
	}
	if _, err = sd2.Verify(rootOpts); err != nil {
		t.Fatal(err)
	}

	checkChainIncluded(t, sd2)
	checkSigningTime(t, sd2)
}

func TestSignDetached(t *testing.T) {
	data := []byte("hello, world!")

	ci, err := SignDetached(data, leaf.Chain(), leaf.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}

	sd2, err := ParseSignedData(ci)
	if err != nil {
		t.Fatal(err)
	}

	if !sd2.IsDetached() {
		t.Fatal("expected detached signature")
	}
	if _, err = sd2.VerifyDetached(data, rootOpts); err != nil {
		t.Fatal(err)
	}

	checkChainIncluded(t, sd2)
	checkSigningTime(t, sd2)
}

func TestSignDetachedWithOpenSSL(t *testing.T) {
	// Do not require this test to pass if openssl is not in the path
	opensslPath, err := exec.LookPath("openssl")
	if err != nil {
		t.Skip("could not find openssl in path")
	}

	content := []byte("hello, world!")

	signatureDER, err := SignDetached(content, leaf.Chain(), leaf.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	signatureFile := filepath.Join(dir, "content.sig")
	contentFile := filepath.Join(dir, "content.bin")
	certsFile := filepath.Join(dir, "certs.pem")

	if err := os.WriteFile(signatureFile, signatureDER, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(contentFile, content, 0o600); err != nil {
		t.Fatal(err)
	}

	var certsPEM []byte
	for _, cert := range leaf.Chain() {
		certsPEM = append(certsPEM, pem.EncodeToMemory(&pem.Block{
			Type:  "CERTIFICATE",
			Bytes: cert.Raw,
		})...)
	}
	if err := os.WriteFile(certsFile, certsPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(opensslPath, "cms", "-verify",
		"-content", contentFile, "-binary",
		"-in", signatureFile, "-inform", "DER",
		"-CAfile", certsFile)

	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("openssl: %v\n%s", err, out)
	}
}

func TestSignRemoveHeaders(t *testing.T) {
	sd, err := NewSignedData([]byte("hello, world"))
	if err != nil {
		t.Fatal(err)
	}
	if err = sd.Sign(leaf.Chain(), leaf.PrivateKey); err != nil {
		t.Fatal(err)
	}
	if err = sd.SetCertificates([]*x509.Certificate{}); err != nil {
		t.Fatal(err)
	}
	if certs, err := sd.GetCertificates(); err != nil {
		t.Fatal(err)
	} else if len(certs) != 0 {
		t.Fatal("expected 0 certs")
	}

	der, err := sd.ToDER()
	if err != nil {
		t.Fatal(err)
	}
	if sd, err = ParseSignedData(der); err != nil {
		t.Fatal(err)
	}
	if err := sd.SetCertificates([]*x509.Certificate{leaf.Certificate}); err != nil {
		t.Fatal(err)
	}

	opts := x509.VerifyOptions{
		Roots:         root.ChainPool(),
		Intermediates: leaf.ChainPool(),
	}

	if _, err := sd.Verify(opts); err != nil {
		t.Fatal(err)
	}
}

func checkChainIncluded(t *testing.T, sd *SignedData) {
	t.Helper()

	sdCerts, err := sd.GetCertificates()
	if err != nil {
		t.Fatal(err)
	}
	for _, chainCert := range leaf.Chain() {
		var found bool
		for _, sdCert := range sdCerts {
			if sdCert.Equal(chainCert) {
				if found {
					t.Fatal("duplicate cert in sd")
				}
				found = true
			}
		}
		if !found {
			t.Fatal("missing cert in sd")
		}
	}
}

func checkSigningTime(t *testing.T, sd *SignedData) {
	t.Helper()

	si, err := sd.Signer()
	if err != nil {
		t.Fatal(err)
	}
	st, err := si.GetSigningTimeAttribute()
	if err != nil {
		t.Fatal(err)
	}
	delta := 5 * time.Second
	if st.After(time.Now().Add(delta)) || st.Before(time.Now().Add(-1*delta)) {
		t.Fatal("expected SigningTime to be now. Difference was", time.Until(st))
	}
}
