// Copyright 2022 The Sigstore Authors
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

package sign

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sigstore/sigverify/internal"
	"github.com/sigstore/sigverify/internal/config"
	gsio "github.com/sigstore/sigverify/internal/io"
	"github.com/sigstore/sigverify/internal/signer"
)

type options struct {
	Config *config.Config

	FlagKey               string
	FlagCert              string
	FlagChain             string
	FlagOutput            string
	FlagDetachedSignature bool
	FlagArmor             bool
	FlagIncludeCerts      int
	FlagMatchCommonName   bool
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.FlagKey, "key", "", "PEM encoded private key")
	cmd.Flags().StringVar(&o.FlagCert, "cert", "", "PEM encoded signing certificate")
	cmd.Flags().StringVar(&o.FlagChain, "chain", "", "PEM encoded issuing certificates, closest issuer first")
	cmd.Flags().StringVarP(&o.FlagOutput, "output", "o", "", "write the signature to a file instead of stdout")
	cmd.Flags().BoolVarP(&o.FlagDetachedSignature, "detach-sign", "b", false, "make a detached signature")
	cmd.Flags().BoolVarP(&o.FlagArmor, "armor", "a", false, "create ascii armored output")
	cmd.Flags().IntVar(&o.FlagIncludeCerts, "include-certs", -2, "certificates to embed, counted from the signing certificate: -1 all, -2 all but a self-signed root, -3 as -2 but stop at issuers named in an AIA URL")
	cmd.Flags().BoolVar(&o.FlagMatchCommonName, "match-common-name", true, "refuse to sign unless the certificate common name matches the configured constraints")

	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("cert")
}

func (o *options) Run(s *gsio.Streams, args []string) error {
	id, err := signer.LoadIdentity(o.FlagKey, o.FlagCert, o.FlagChain, nil)
	if err != nil {
		return fmt.Errorf("failed to get identity: %w", err)
	}

	var f io.Reader
	if len(args) == 1 {
		f2, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open message file (%s): %w", args[0], err)
		}
		defer f2.Close()
		f = f2
	} else {
		f = s.In
	}

	dataBuf := new(bytes.Buffer)
	if _, err = io.Copy(dataBuf, f); err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}

	opts := signer.SignOptions{
		Detached:     o.FlagDetachedSignature,
		Armor:        o.FlagArmor,
		IncludeCerts: o.FlagIncludeCerts,
	}
	if o.FlagMatchCommonName {
		opts.CommonNameContent = o.Config.CommonNameContent
		opts.CommonNameSuffix = o.Config.CommonNameSuffix
	}

	resp, err := signer.Sign(id, dataBuf.Bytes(), opts)
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}
	s.Logger.Info("signature created",
		zap.String("signer", internal.CertHexFingerprint(resp.Cert)),
		zap.Bool("detached", opts.Detached),
	)

	if o.FlagOutput != "" {
		return os.WriteFile(o.FlagOutput, resp.Signature, 0o644) // nolint:gosec
	}
	if _, err := s.Out.Write(resp.Signature); err != nil {
		return errors.New("failed to write signature")
	}

	return nil
}

func New(cfg *config.Config) *cobra.Command {
	o := &options{Config: cfg}

	cmd := &cobra.Command{
		Use:          "sign --key KEY --cert CERT [CONTENT]",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		Short:        "Sign content",
		Long: `Sign content.

sign produces a PKCS7 signature over CONTENT, or stdin when CONTENT is
omitted, with a key and certificate read from PEM files. It is meant for
building bundles to test verification against.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := gsio.New(o.Config.LogPath)
			s.In = cmd.InOrStdin()
			s.Out = cmd.OutOrStdout()
			defer s.Close()
			// Wrap reports the error.
			cmd.SilenceErrors = true
			return s.Wrap(func() error {
				return o.Run(s, args)
			})
		},
	}
	o.AddFlags(cmd)

	return cmd
}
