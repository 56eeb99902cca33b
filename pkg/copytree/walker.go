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

package copytree

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/copytree/pkg/fault"
	"github.com/walteh/copytree/pkg/filter"
	"github.com/walteh/copytree/pkg/progress"
)

// 🚦 walkOutcome is how a traversal ended
type walkOutcome int

const (
	walkCompleted walkOutcome = iota + 1
	walkCancelled
	walkFailed
)

func (o walkOutcome) String() string {
	switch o {
	case walkCompleted:
		return "completed"
	case walkCancelled:
		return "cancelled"
	case walkFailed:
		return "failed"
	default:
		return "not started"
	}
}

type entryKind int

const (
	entrySkip entryKind = iota
	entryFile
	entryDir
)

// 🚶 walker is a depth first, pre-order traversal that polls for
// cancellation before every directory and every file
type walker struct {
	root       string
	filter     filter.Filter
	maxDepth   int // 0 means unlimited
	collection progress.Listener
	logger     zerolog.Logger

	// cancelled is polled at every node
	cancelled func(ctx context.Context) bool
	// file is called for every accepted regular file. It may block; an error
	// returned once cancellation was requested ends the walk as cancelled.
	file func(ctx context.Context, path string, info fs.FileInfo) error
}

func (w *walker) walk(ctx context.Context) (walkOutcome, error) {
	w.collection.SetStarted()
	w.collection.SetTask("starting collection from " + w.root)
	w.collection.SetProgress(0)

	outcome, err := w.dir(ctx, w.root, 0)
	w.logger.Debug().Str("root", w.root).Stringer("outcome", outcome).Err(err).Msg("walk finished")
	return outcome, err
}

func (w *walker) dir(ctx context.Context, dir string, depth int) (walkOutcome, error) {
	if w.cancelled(ctx) {
		return walkCancelled, nil
	}
	if w.maxDepth > 0 && depth >= w.maxDepth {
		return walkCompleted, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return walkFailed, fault.IO(err, "reading directory %s", dir)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return walkFailed, fault.IO(err, "relativizing %s", path)
		}

		kind, info, err := w.classify(path, entry)
		if err != nil {
			return walkFailed, err
		}

		switch kind {
		case entryDir:
			if !w.filter.Accept(rel, true) {
				continue
			}
			if outcome, err := w.dir(ctx, path, depth+1); outcome != walkCompleted {
				return outcome, err
			}
		case entryFile:
			if !w.filter.Accept(rel, false) {
				continue
			}
			if w.cancelled(ctx) {
				return walkCancelled, nil
			}
			if err := w.file(ctx, path, info); err != nil {
				if w.cancelled(ctx) {
					return walkCancelled, nil
				}
				return walkFailed, err
			}
		}
	}

	return walkCompleted, nil
}

// classify resolves what an entry is. Symlinks to files are followed,
// symlinks to directories are not, to keep the walk free of cycles.
func (w *walker) classify(path string, entry fs.DirEntry) (entryKind, fs.FileInfo, error) {
	mode := entry.Type()

	switch {
	case mode.IsDir():
		return entryDir, nil, nil

	case mode.IsRegular():
		info, err := entry.Info()
		if os.IsNotExist(err) {
			w.collection.ReportWarning("walker", path, "file vanished while collecting")
			return entrySkip, nil, nil
		}
		if err != nil {
			return entrySkip, nil, fault.IO(err, "stat %s", path)
		}
		return entryFile, info, nil

	case mode&fs.ModeSymlink != 0:
		info, err := os.Stat(path)
		if err != nil {
			w.collection.ReportWarning("walker", path, "skipping dangling symlink")
			return entrySkip, nil, nil
		}
		if info.IsDir() {
			w.collection.ReportWarning("walker", path, "skipping symlinked directory")
			return entrySkip, nil, nil
		}
		if !info.Mode().IsRegular() {
			w.collection.ReportWarning("walker", path, "skipping symlink to irregular file")
			return entrySkip, nil, nil
		}
		return entryFile, info, nil

	default:
		w.collection.ReportWarning("walker", path, "skipping irregular file "+mode.String())
		return entrySkip, nil, nil
	}
}
