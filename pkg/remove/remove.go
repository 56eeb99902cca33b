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

// Package remove deletes files and directories on explicit request. Nothing
// in this module removes destination content implicitly.
package remove

import (
	"os"
	"path/filepath"

	"github.com/walteh/copytree/pkg/fault"
	"github.com/walteh/copytree/pkg/filter"
	"github.com/walteh/copytree/pkg/rebase"
)

// 📄 Entry is one removed file
type Entry struct {
	Path string
	Size int64
}

// 🗑️ DeleteDirectory removes the entries of dir accepted by f and returns the
// files it removed. With recursive set it descends into subdirectories,
// removing those left empty. With deleteItself set, dir is removed too once
// it is empty.
func DeleteDirectory(dir string, f filter.Filter, recursive, deleteItself bool) ([]Entry, error) {
	if dir == "" {
		return nil, fault.Invalid("directory is required")
	}
	if f == nil {
		f = filter.All
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fault.IO(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return nil, fault.Invalid("%s is not a directory", dir)
	}

	var removed []Entry
	if err := deleteEntries(dir, dir, f, recursive, &removed); err != nil {
		return removed, err
	}

	if deleteItself {
		if _, err := removeIfEmpty(dir); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// 🧽 EmptyDirectory removes every file in dir, and every subdirectory when
// recursive is set. dir itself is kept unless deleteItself is set.
func EmptyDirectory(dir string, recursive, deleteItself bool) error {
	_, err := DeleteDirectory(dir, filter.All, recursive, deleteItself)
	return err
}

// Files removes each path. Missing files are not an error.
func Files(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fault.IO(err, "removing %s", p)
		}
	}
	return nil
}

// 🌿 PruneParents removes the directories holding paths once they are empty,
// walking up towards root and stopping at the first directory that still
// has entries. root itself, and anything outside it, is never removed.
func PruneParents(root string, paths []string) error {
	root = filepath.Clean(root)
	for _, p := range paths {
		for dir := filepath.Dir(filepath.Clean(p)); dir != root && rebase.IsNested(root, dir); dir = filepath.Dir(dir) {
			gone, err := removeIfEmpty(dir)
			if err != nil {
				return err
			}
			if !gone {
				break
			}
		}
	}
	return nil
}

func deleteEntries(root, dir string, f filter.Filter, recursive bool, removed *[]Entry) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fault.IO(err, "reading %s", dir)
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fault.IO(err, "relativizing %s", path)
		}

		if e.IsDir() {
			if !recursive || !f.Accept(rel, true) {
				continue
			}
			if err := deleteEntries(root, path, f, recursive, removed); err != nil {
				return err
			}
			if _, err := removeIfEmpty(path); err != nil {
				return err
			}
			continue
		}

		if !f.Accept(rel, false) {
			continue
		}

		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fault.IO(err, "removing %s", path)
		}
		*removed = append(*removed, Entry{Path: path, Size: size})
	}
	return nil
}

// removeIfEmpty reports whether dir is gone afterwards
func removeIfEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fault.IO(err, "reading %s", dir)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		return false, fault.IO(err, "removing %s", dir)
	}
	return true, nil
}
