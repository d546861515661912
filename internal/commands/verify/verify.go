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

package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigstore/sigverify/internal/config"
	"github.com/sigstore/sigverify/internal/gatekeeper"
	gsio "github.com/sigstore/sigverify/internal/io"
	"github.com/sigstore/sigverify/pkg/bundle"
	"github.com/sigstore/sigverify/pkg/verdict"
)

type options struct {
	Config *config.Config

	FlagBundle   string
	FlagRootCert string
	FlagJSON     bool
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.FlagBundle, "bundle", "", "directory or zip archive holding content.sig and content.bin (or export.bin)")
	cmd.Flags().StringVar(&o.FlagRootCert, "root-cert", "", "trusted root certificate, overrides the configured one")
	cmd.Flags().BoolVar(&o.FlagJSON, "json", false, "print a JSON report")
}

// Report is the JSON form of a verification.
type Report struct {
	Verdict verdict.Result `json:"verdict"`
	Content string         `json:"content"`
}

func (o *options) Run(s *gsio.Streams, args []string) error {
	if (o.FlagBundle == "") == (len(args) == 0) {
		return errors.New("specify either --bundle or SIGNATURE CONTENT")
	}

	var b *bundle.Bundle
	if o.FlagBundle != "" {
		var err error
		if b, err = bundle.Load(o.FlagBundle); err != nil {
			return err
		}
	} else {
		sig, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("error reading signature: %w", err)
		}
		content, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("error reading content: %w", err)
		}
		b = &bundle.Bundle{Signature: sig, Content: content, ContentName: args[1]}
	}

	cfg := *o.Config
	if o.FlagRootCert != "" {
		cfg.RootCertificate = o.FlagRootCert
	}
	v, err := gatekeeper.NewVerifier(&cfg, s.Logger)
	if err != nil {
		return err
	}

	r := v.VerifyBundle(b)
	if err := PrintReport(s.Out, &Report{Verdict: r, Content: b.ContentName}, o.FlagJSON); err != nil {
		return err
	}
	return r.Err()
}

func PrintReport(w io.Writer, r *Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := fmt.Fprintf(w, "sigverify: %s: %s\n", r.Content, r.Verdict)
	return err
}

func New(cfg *config.Config) *cobra.Command {
	o := &options{Config: cfg}

	cmd := &cobra.Command{
		Use:          "verify [--bundle PATH | SIGNATURE CONTENT]",
		Args:         cobra.RangeArgs(0, 2),
		SilenceUsage: true,
		Short:        "Verify signed content",
		Long: `Verify signed content.

verify checks a PKCS7 signature against the configured root certificate,
root serial number and subject key identifier, the authority key identifier
of the signing certificate and its common name constraints.

The verdict is printed and the command exits non-zero unless it is Success.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return errors.New("CONTENT is required with SIGNATURE")
			}
			s := gsio.New(o.Config.LogPath)
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
