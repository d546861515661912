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

package config

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"gopkg.in/yaml.v3"

	"github.com/sigstore/sigverify/internal"
	"github.com/sigstore/sigverify/pkg/validator"
)

var (
	// readFileFn reads the config file.
	// Configurable to allow for overriding for testing.
	readFileFn = os.ReadFile
)

// Config represents configuration options for sigverify.
type Config struct {
	// Path to the trusted root certificate, PEM or DER encoded.
	RootCertificate string `yaml:"rootCertificate" toml:"rootCertificate"`
	// Expected serial number of the root certificate. Decimal, or hex with a
	// 0x prefix.
	RootSerial string `yaml:"rootSerial" toml:"rootSerial"`
	// Expected subject key identifier of the root certificate, hex encoded.
	RootSubjectKeyIdentifier string `yaml:"rootSubjectKeyIdentifier" toml:"rootSubjectKeyIdentifier"`

	// Expected authority key identifier of the signing certificate, hex
	// encoded.
	AuthorityKeyIdentifier string `yaml:"authorityKeyIdentifier" toml:"authorityKeyIdentifier"`
	// Text the signing certificate common name must contain.
	CommonNameContent string `yaml:"commonNameContent" toml:"commonNameContent"`
	// Text the signing certificate common name must end with.
	CommonNameSuffix string `yaml:"commonNameSuffix" toml:"commonNameSuffix"`

	// Path to log validation output.
	LogPath string `yaml:"logPath" toml:"logPath"`
}

// Get loads the sigverify config. path names a YAML or TOML file; when empty,
// $SIGVERIFY_CONFIG is used, and when that is unset only defaults and
// environment variables apply.
func Get(path string) (*Config, error) {
	// Start with default config
	out := &Config{
		CommonNameContent: "coronamelder",
		CommonNameSuffix:  ".nl",
	}

	// Get values from config file.
	if path == "" {
		path = os.Getenv("SIGVERIFY_CONFIG")
	}
	if path != "" {
		if err := applyFile(out, path); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Get values from env vars.
	out.RootCertificate = envOrValue("SIGVERIFY_ROOT_CERT", out.RootCertificate)
	out.RootSerial = envOrValue("SIGVERIFY_ROOT_SERIAL", out.RootSerial)
	out.RootSubjectKeyIdentifier = envOrValue("SIGVERIFY_ROOT_SKI", out.RootSubjectKeyIdentifier)
	out.AuthorityKeyIdentifier = envOrValue("SIGVERIFY_AKI", out.AuthorityKeyIdentifier)
	out.CommonNameContent = envOrValue("SIGVERIFY_CN_CONTENT", out.CommonNameContent)
	out.CommonNameSuffix = envOrValue("SIGVERIFY_CN_SUFFIX", out.CommonNameSuffix)
	out.LogPath = envOrValue("SIGVERIFY_LOG", out.LogPath)

	return out, nil
}

// applyFile decodes the file at path over out. Keys missing from the file
// keep their current value.
func applyFile(out *Config, path string) error {
	data, err := readFileFn(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), out); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	default:
		return fmt.Errorf("%s: unsupported config format %q", path, ext)
	}
	return nil
}

// Constraints returns the validation constraints the config describes.
func (c *Config) Constraints() (validator.Constraints, error) {
	var out validator.Constraints
	if c.RootSerial != "" {
		serial, ok := new(big.Int).SetString(c.RootSerial, 0)
		if !ok || serial.Sign() < 0 {
			return out, fmt.Errorf("invalid root serial %q", c.RootSerial)
		}
		out.SerialNumber = serial
	}

	var err error
	if out.SubjectKeyIdentifier, err = ParseKeyID(c.RootSubjectKeyIdentifier); err != nil {
		return out, fmt.Errorf("root subject key identifier: %w", err)
	}
	if out.AuthorityKeyIdentifier, err = ParseKeyID(c.AuthorityKeyIdentifier); err != nil {
		return out, fmt.Errorf("authority key identifier: %w", err)
	}
	out.CommonNameContent = c.CommonNameContent
	out.CommonNameSuffix = c.CommonNameSuffix
	return out, nil
}

// LoadRootCertificate reads the configured root certificate. PEM input is
// returned as the DER of its first certificate.
func (c *Config) LoadRootCertificate() ([]byte, error) {
	if c.RootCertificate == "" {
		return nil, fmt.Errorf("no root certificate configured")
	}
	data, err := readFileFn(c.RootCertificate)
	if err != nil {
		return nil, fmt.Errorf("error reading root certificate: %w", err)
	}
	if !bytes.Contains(data, []byte("-----BEGIN")) {
		return data, nil
	}
	certs, err := cryptoutils.UnmarshalCertificatesFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing root certificate: %w", err)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificate found in %s", c.RootCertificate)
	}
	return certs[0].Raw, nil
}

// ParseKeyID decodes a hex key identifier. Colons and whitespace between
// bytes are ignored, so both "2afdb92b" and "2A:FD:B9:2B" are accepted.
// The DER OCTET STRING form ("04:14:...") is rejected: identifiers are
// compared as raw key id bytes.
func ParseKeyID(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', ' ', '\t', '\n':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, nil
	}
	id, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(id) >= 2 && id[0] == 0x04 && int(id[1]) == len(id)-2 {
		return nil, fmt.Errorf("key identifier is DER encoded (OCTET STRING header %02X %02X), use %s instead",
			id[0], id[1], internal.FormatKeyID(id[2:]))
	}
	return id, nil
}

func envOrValue(env, value string) string {
	// Only override values if the environment variable is set.
	if v, ok := os.LookupEnv(env); ok {
		return v
	}
	return value
}
