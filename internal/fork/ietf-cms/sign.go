package cms

import (
	"crypto"
	"crypto/x509"
)

// Sign creates a CMS SignedData from the content and signs it with signer. At
// minimum, chain must contain the leaf certificate associated with the signer.
// Any additional intermediates will also be added to the SignedData. The DER
// encoded CMS message is returned.
func Sign(data []byte, chain []*x509.Certificate, signer crypto.Signer) ([]byte, error) {
	return sign(data, chain, signer, false)
}

// SignDetached creates a detached CMS SignedData from the content and signs it
// with signer. The content itself is not included in the returned message.
func SignDetached(data []byte, chain []*x509.Certificate, signer crypto.Signer) ([]byte, error) {
	return sign(data, chain, signer, true)
}

func sign(data []byte, chain []*x509.Certificate, signer crypto.Signer, detached bool) ([]byte, error) {
	sd, err := NewSignedData(data)
	if err != nil {
		return nil, err
	}

	if err = sd.Sign(chain, signer); err != nil {
		return nil, err
	}

	if detached {
		sd.Detached()
	}

	return sd.ToDER()
}

// Sign adds a signature to the SignedData. At minimum, chain must contain the
// leaf certificate associated with the signer. Any additional intermediates
// will also be added to the SignedData.
func (sd *SignedData) Sign(chain []*x509.Certificate, signer crypto.Signer) error {
	return sd.psd.AddSignerInfo(chain, signer)
}
