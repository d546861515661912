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

package root

import (
	"github.com/spf13/cobra"

	"github.com/sigstore/sigverify/internal/commands/show"
	"github.com/sigstore/sigverify/internal/commands/sign"
	"github.com/sigstore/sigverify/internal/commands/verify"
	"github.com/sigstore/sigverify/internal/commands/version"
	"github.com/sigstore/sigverify/internal/config"
)

type options struct {
	// Config is shared with every subcommand. It is filled in once flags
	// are parsed.
	Config *config.Config

	FlagConfig string
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.FlagConfig, "config", "", "path to a YAML or TOML config file (default $SIGVERIFY_CONFIG)")
}

func (o *options) load(_ *cobra.Command, _ []string) error {
	cfg, err := config.Get(o.FlagConfig)
	if err != nil {
		return err
	}
	*o.Config = *cfg
	return nil
}

func New() *cobra.Command {
	cfg := &config.Config{}
	o := &options{Config: cfg}

	rootCmd := &cobra.Command{
		Use:               "sigverify",
		Short:             "Validate PKCS7 signed content against a pinned root certificate",
		Args:              cobra.NoArgs,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		PersistentPreRunE: o.load,
	}

	rootCmd.AddCommand(version.New(cfg))
	rootCmd.AddCommand(show.New(cfg))
	rootCmd.AddCommand(verify.New(cfg))
	rootCmd.AddCommand(sign.New(cfg))
	o.AddFlags(rootCmd)

	return rootCmd
}
