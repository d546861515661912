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

package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigstore/sigverify/internal/config"
	"github.com/sigstore/sigverify/pkg/version"
)

func New(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "print sigverify version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			v := version.GetVersionInfo()
			fmt.Fprintln(w, "sigverify version", v.GitVersion)
			fmt.Fprintln(w, "go version", v.GoVersion, v.Platform)
			if len(v.Env) > 0 {
				fmt.Fprintln(w, "env:")
				for _, e := range v.Env {
					fmt.Fprintln(w, "\t", e)
				}
			}
			fmt.Fprintln(w, "parsed config:")
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")

			return enc.Encode(cfg)
		},
	}
	return cmd
}
