//
// Copyright 2022 The Sigstore Authors.
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

package version

import (
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVersionText(t *testing.T) {
	sut := GetVersionInfo()
	if sut.GitVersion != gitVersion {
		t.Errorf("GetVersionInfo: got %q, want %q", sut.GitVersion, gitVersion)
	}
	if sut.GoVersion == "" || !strings.Contains(sut.Platform, "/") {
		t.Errorf("GetVersionInfo: missing runtime info: %+v", sut)
	}
}

func TestEnv(t *testing.T) {
	for _, envVar := range os.Environ() {
		for _, prefix := range envVarPrefixes {
			if strings.HasPrefix(envVar, prefix) {
				t.Setenv(strings.Split(envVar, "=")[0], "") // t.Setenv restores value during cleanup
				break
			}
		}
	}

	t.Setenv("SIGVERIFY_AKI", "2afdb92b")
	t.Setenv("SIGVERIFY_CN_SUFFIX", ".nl")
	t.Setenv("SIGSTORE_ROOT_FILE", "ignored")
	got := GetVersionInfo()
	want := []string{
		"SIGVERIFY_AKI=2afdb92b",
		"SIGVERIFY_CN_SUFFIX=.nl",
	}

	if diff := cmp.Diff(got.Env, want); diff != "" {
		t.Error(diff)
	}

	// want doesn't change because the variable is set to nothing and must be
	// ignored
	t.Setenv("SIGVERIFY_ROOT_CERT", "")
	got = GetVersionInfo()
	if diff := cmp.Diff(got.Env, want); diff != "" {
		t.Error(diff)
	}
}
