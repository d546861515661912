//
// Copyright 2024 The Sigstore Authors.
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

// Package bundle reads signed downloads: a directory or zip archive holding a
// PKCS7 signature next to the content it signs.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

const (
	// SignatureFile holds the DER or PEM encoded PKCS7 signature.
	SignatureFile = "content.sig"
	// ContentFile holds the signed content.
	ContentFile = "content.bin"
	// ExportFile holds the signed content of key export archives, which
	// have no ContentFile.
	ExportFile = "export.bin"

	// MaxFileSize bounds each file read from a bundle.
	MaxFileSize = 64 << 20
)

var ErrMissingFile = errors.New("bundle file not found")

// Bundle is a signature and the content it covers.
type Bundle struct {
	Signature []byte
	Content   []byte
	// ContentName is the file the content was read from.
	ContentName string
}

// Load reads the bundle at path, which is either a directory or a zip archive.
func Load(path string) (*Bundle, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return Read(os.DirFS(path))
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("error opening bundle %s: %w", path, err)
	}
	defer zr.Close()
	return Read(zr)
}

// Read reads a bundle from fsys.
func Read(fsys fs.FS) (*Bundle, error) {
	sig, err := readFile(fsys, SignatureFile)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Signature: sig, ContentName: ContentFile}
	b.Content, err = readFile(fsys, ContentFile)
	if errors.Is(err, ErrMissingFile) {
		b.ContentName = ExportFile
		b.Content, err = readFile(fsys, ExportFile)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func readFile(fsys fs.FS, name string) ([]byte, error) {
	f, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", name)
	}
	if fi.Size() > MaxFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", name, MaxFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", name, MaxFileSize)
	}
	return data, nil
}
