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
	"gitlab.com/tozd/go/errors"
)

// 🔎 Collect returns every regular file below root that f accepts, in walk
// order, without copying anything. Directories rejected by f are not
// entered. A nil f accepts everything.
func Collect(ctx context.Context, root string, f filter.Filter) ([]string, error) {
	if root == "" {
		return nil, fault.Invalid("root directory is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fault.Invalid("root %s is not accessible: %v", root, err)
	}
	if !info.IsDir() {
		return nil, fault.Invalid("root %s is not a directory", root)
	}
	if f == nil {
		f = filter.All
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fault.Invalid("resolving root %s: %v", root, err)
	}

	logger := zerolog.Ctx(ctx).With().Str("root", abs).Logger()

	var files []string
	w := &walker{
		root:       abs,
		filter:     f,
		collection: progress.NewList("collect", logger),
		logger:     logger,
		cancelled: func(ctx context.Context) bool {
			return ctx.Err() != nil
		},
		file: func(_ context.Context, path string, _ fs.FileInfo) error {
			files = append(files, path)
			return nil
		},
	}

	outcome, err := w.walk(ctx)
	switch outcome {
	case walkCancelled:
		return files, errors.Errorf("collecting %s: %w", abs, ctx.Err())
	case walkFailed:
		return files, err
	}

	logger.Debug().Int("files", len(files)).Msg("collected")
	return files, nil
}
