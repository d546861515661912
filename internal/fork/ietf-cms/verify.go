package cms

import (
	"bytes"
	"crypto/x509"
	"errors"

	"github.com/github/smimesign/ietf-cms/protocol"
)

// ErrContentMismatch is returned when a SignedData embeds content that differs
// from the content supplied by the caller.
var ErrContentMismatch = errors.New("cms: embedded content does not match supplied content")

// Verify verifies the SingerInfos' signatures. Each signature's associated
// certificate is verified using the provided roots. Nil may be provided to use
// system roots. The full chains for the certificates whose keys made the
// signatures are returned.
//
// WARNING: this function doesn't do any revocation checking.
func (sd *SignedData) Verify(opts x509.VerifyOptions) ([][][]*x509.Certificate, error) {
	econtent, err := sd.psd.EncapContentInfo.EContentValue()
	if err != nil {
		return nil, err
	}
	if econtent == nil {
		return nil, errors.New("detached signature")
	}

	return sd.verify(econtent, opts)
}

// VerifyDetached verifies the SingerInfos' detached signatures over the
// provided data message. Each signature's associated certificate is verified
// using the provided roots. Nil may be provided to use system roots. The full
// chains for the certificates whose keys made the signatures are returned.
//
// WARNING: this function doesn't do any revocation checking.
func (sd *SignedData) VerifyDetached(message []byte, opts x509.VerifyOptions) ([][][]*x509.Certificate, error) {
	if sd.psd.EncapContentInfo.EContent.Bytes != nil {
		return nil, errors.New("signature not detached")
	}
	return sd.verify(message, opts)
}

// CheckSignature verifies that the only signer's signature is valid over
// content and was made by the key of cert. The certificate itself is not
// verified.
//
// For detached signatures content is the signed message. For attached
// signatures the encapsulated content is used; if content is also given it
// must be identical to it.
func (sd *SignedData) CheckSignature(content []byte, cert *x509.Certificate) error {
	si, err := sd.Signer()
	if err != nil {
		return err
	}

	econtent, err := sd.signedContent(content)
	if err != nil {
		return err
	}

	return sd.checkSignerInfo(si, econtent, cert)
}

// VerifyChain verifies cert against opts. Certificates embedded in the
// SignedData are added to the intermediates.
func (sd *SignedData) VerifyChain(cert *x509.Certificate, opts x509.VerifyOptions) ([][]*x509.Certificate, error) {
	certs, err := sd.psd.X509Certificates()
	if err != nil {
		return nil, err
	}

	if opts.Intermediates == nil {
		opts.Intermediates = x509.NewCertPool()
	}
	for _, c := range certs {
		opts.Intermediates.AddCert(c)
	}

	return cert.Verify(opts)
}

func (sd *SignedData) signedContent(supplied []byte) ([]byte, error) {
	if sd.IsDetached() {
		return supplied, nil
	}

	econtent, err := sd.psd.EncapContentInfo.EContentValue()
	if err != nil {
		return nil, err
	}
	if len(supplied) > 0 && !bytes.Equal(supplied, econtent) {
		return nil, ErrContentMismatch
	}
	return econtent, nil
}

func (sd *SignedData) verify(econtent []byte, opts x509.VerifyOptions) ([][][]*x509.Certificate, error) {
	if len(sd.psd.SignerInfos) == 0 {
		return nil, protocol.ASN1Error{Message: "no signatures found"}
	}

	certs, err := sd.psd.X509Certificates()
	if err != nil {
		return nil, err
	}

	if opts.Intermediates == nil {
		opts.Intermediates = x509.NewCertPool()
	}

	for _, cert := range certs {
		opts.Intermediates.AddCert(cert)
	}

	chains := make([][][]*x509.Certificate, 0, len(sd.psd.SignerInfos))

	for _, si := range sd.psd.SignerInfos {
		cert, err := si.FindCertificate(certs)
		if err != nil {
			return nil, err
		}

		if err := sd.checkSignerInfo(si, econtent, cert); err != nil {
			return nil, err
		}

		chain, err := cert.Verify(opts)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}

	// OK
	return chains, nil
}

func (sd *SignedData) checkSignerInfo(si protocol.SignerInfo, econtent []byte, cert *x509.Certificate) error {
	var signedMessage []byte

	// SignedAttrs is optional if EncapContentInfo eContentType isn't id-data.
	if si.SignedAttrs == nil {
		// SignedAttrs may only be absent if EncapContentInfo eContentType is
		// id-data.
		if !sd.psd.EncapContentInfo.IsTypeData() {
			return protocol.ASN1Error{Message: "missing SignedAttrs"}
		}

		// If SignedAttrs is absent, the signature is over the original
		// encapsulated content itself.
		signedMessage = econtent
	} else {
		// If SignedAttrs is present, we validate the mandatory ContentType and
		// MessageDigest attributes.
		siContentType, err := si.GetContentTypeAttribute()
		if err != nil {
			return err
		}
		if !siContentType.Equal(sd.psd.EncapContentInfo.EContentType) {
			return protocol.ASN1Error{Message: "invalid SignerInfo ContentType attribute"}
		}

		// Calculate the digest over the actual message.
		hash, err := si.Hash()
		if err != nil {
			return err
		}
		actualMessageDigest := hash.New()
		if _, err = actualMessageDigest.Write(econtent); err != nil {
			return err
		}

		// Get the digest from the SignerInfo.
		messageDigestAttr, err := si.GetMessageDigestAttribute()
		if err != nil {
			return err
		}

		// Make sure message digests match.
		if !bytes.Equal(messageDigestAttr, actualMessageDigest.Sum(nil)) {
			return errors.New("invalid message digest")
		}

		// The signature is over the DER encoded signed attributes, minus the
		// leading class/tag/length bytes. This includes the digest of the
		// original message, so it is implicitly signed too.
		if signedMessage, err = si.SignedAttrs.MarshaledForVerification(); err != nil {
			return err
		}
	}

	algo := si.X509SignatureAlgorithm()
	if algo == x509.UnknownSignatureAlgorithm {
		return protocol.ErrUnsupported
	}

	return cert.CheckSignature(algo, signedMessage, si.Signature)
}
