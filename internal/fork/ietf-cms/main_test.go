package cms

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"time"

	"github.com/github/smimesign/fakeca"
)

var (
	// fake PKI setup
	root      = fakeca.New(fakeca.IsCA)
	otherRoot = fakeca.New(fakeca.IsCA)

	intermediateKey, _ = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	intermediate       = root.Issue(fakeca.IsCA, fakeca.PrivateKey(intermediateKey))

	leaf = intermediate.Issue(
		fakeca.NotBefore(time.Now().Add(-time.Hour)),
		fakeca.NotAfter(time.Now().Add(time.Hour)),
	)

	otherLeaf = otherRoot.Issue()

	rootOpts         = x509.VerifyOptions{Roots: root.ChainPool()}
	otherRootOpts    = x509.VerifyOptions{Roots: otherRoot.ChainPool()}
	intermediateOpts = x509.VerifyOptions{Roots: intermediate.ChainPool()}
)
