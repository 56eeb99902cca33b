// Copyright 2025 walteh LLC
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

// Package text reads, writes and renders text files.
package text

import (
	"io"
	"os"
	"strings"

	"github.com/walteh/copytree/pkg/fault"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// 📖 ReadFile returns the contents of path decoded from the named IANA
// encoding. An empty encoding means UTF-8, read as is.
func ReadFile(path, enc string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fault.IO(err, "opening %s", path)
	}
	defer f.Close()

	return Read(f, enc)
}

// Read decodes everything in r from the named IANA encoding
func Read(r io.Reader, enc string) (string, error) {
	decoded, err := decoder(r, enc)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, decoded); err != nil {
		return "", fault.IO(err, "reading %s text", enc)
	}
	return sb.String(), nil
}

// Lookup resolves an IANA or WHATWG encoding name such as "latin1" or
// "shift_jis"
func Lookup(name string) (encoding.Encoding, error) {
	e, err := htmlindex.Get(name)
	if err != nil {
		return nil, fault.Invalid("unknown encoding %q", name)
	}
	return e, nil
}

func decoder(r io.Reader, enc string) (io.Reader, error) {
	if enc == "" {
		return r, nil
	}
	e, err := Lookup(enc)
	if err != nil {
		return nil, err
	}
	return e.NewDecoder().Reader(r), nil
}
