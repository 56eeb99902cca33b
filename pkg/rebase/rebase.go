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

// Package rebase maps paths from one mount point to another.
//
//	/src/mount/point/subDir/file.txt
//	|-sourceRoot----|--relative----|
//
//	/dest/mount/point/subDir/file.txt
//	|-destRoot-------|--relative----|
package rebase

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/walteh/copytree/pkg/fault"
	"gitlab.com/tozd/go/errors"
)

// 🔀 Rebase moves file from sourceRoot onto destRoot, keeping every
// intermediate segment. file must be sourceRoot itself or nested below it.
func Rebase(sourceRoot, destRoot, file string) (string, error) {
	src, err := canonical("source root", sourceRoot)
	if err != nil {
		return "", err
	}
	dst, err := canonical("destination root", destRoot)
	if err != nil {
		return "", err
	}
	f, err := canonical("file", file)
	if err != nil {
		return "", err
	}

	if f == src {
		return dst, nil
	}

	rel, ok := relative(src, f)
	if !ok {
		return "", fault.Invalid("%q is not nested under %q", file, sourceRoot)
	}

	return filepath.Join(dst, rel), nil
}

// 🔍 IsNested reports whether path is root or lies below it. Both are made
// absolute first; partial segment matches ("/src2" under "/src") do not count.
func IsNested(root, path string) bool {
	r, err := canonical("root", root)
	if err != nil {
		return false
	}
	p, err := canonical("path", path)
	if err != nil {
		return false
	}
	if r == p {
		return true
	}
	_, ok := relative(r, p)
	return ok
}

func relative(root, path string) (string, bool) {
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	return path[len(prefix):], true
}

func canonical(what, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fault.Invalid("%s must not be empty", what)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.Errorf("%w: resolving %s %q: %w", fault.ErrInvalidArgument, what, p, err)
	}
	return abs, nil
}
