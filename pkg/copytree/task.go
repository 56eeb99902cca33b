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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/walteh/copytree/pkg/dispatch"
	"github.com/walteh/copytree/pkg/fault"
	"github.com/walteh/copytree/pkg/progress"
	"github.com/walteh/copytree/pkg/rebase"
	"gitlab.com/tozd/go/errors"
)

// 📄 CopyTask identifies one file to copy. Size is captured when the file is
// enumerated, not when it is copied.
type CopyTask struct {
	Source          string
	SourceRoot      string
	DestinationRoot string
	Size            int64
}

// Destination computes where Source lands under DestinationRoot
func (t CopyTask) Destination() (string, error) {
	return rebase.Rebase(t.SourceRoot, t.DestinationRoot, t.Source)
}

// 🔌 Dispatcher is what the tree needs from a worker pool. SubmitWait may
// block until the pool has room, and must give up once ctx is done.
// *dispatch.Pool implements it.
type Dispatcher interface {
	SubmitWait(ctx context.Context, task dispatch.Task) (*dispatch.Handle, error)
}

var _ Dispatcher = (*dispatch.Pool)(nil)

// job binds a CopyTask to its listener and completion callback so it can run
// on a Dispatcher
type job struct {
	task     CopyTask
	listener progress.Listener
	done     func(task CopyTask, dest string, err error)
}

var _ dispatch.Task = (*job)(nil)

// 🏃 Run performs the three observable steps of a file copy
func (j *job) Run(ctx context.Context) (dest string, err error) {
	defer func() {
		if err != nil {
			j.listener.ReportFailure(err)
			j.listener.Cancel()
		}
		if j.done != nil {
			j.done(j.task, dest, err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", errors.Errorf("copying %s: %w", j.task.Source, err)
	}

	j.listener.SetTask("rebase file path")
	j.listener.SetStarted()
	dest, err = j.task.Destination()
	if err != nil {
		return "", err
	}
	j.listener.SetCompleted()
	j.listener.SetProgress(10)

	j.listener.SetTask("building directory structure")
	j.listener.SetStarted()
	if mkErr := os.MkdirAll(filepath.Dir(dest), 0o755); mkErr != nil {
		// a concurrent task may have created it already; the copy step decides
		j.listener.ReportWarning("copytree", filepath.Dir(dest),
			fmt.Sprintf("unable to create the destination directory structure: %v", mkErr))
	}
	j.listener.SetCompleted()
	j.listener.SetProgress(30)

	j.listener.SetTask(fmt.Sprintf("copying %s to %s", j.task.Source, dest))
	j.listener.SetStarted()
	if err := copyFile(ctx, j.task.Source, dest); err != nil {
		return "", err
	}
	j.listener.SetCompleted()
	j.listener.SetProgress(100)

	return dest, nil
}

// copyFile streams src into a temp file next to dst and renames it into
// place, so an interrupted copy never leaves a truncated dst behind.
func copyFile(ctx context.Context, src, dst string) (retErr error) {
	in, err := os.Open(src)
	if err != nil {
		return fault.IO(err, "opening source %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fault.IO(err, "stat source %s", src)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".copytree-*")
	if err != nil {
		return fault.IO(err, "creating temp file for %s", dst)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: in}); err != nil {
		if ctx.Err() != nil {
			return errors.Errorf("copying %s: %w", src, ctx.Err())
		}
		return fault.IO(err, "copying %s to %s", src, dst)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return fault.IO(err, "chmod %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return fault.IO(err, "closing %s", tmpPath)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fault.IO(err, "renaming %s to %s", tmpPath, dst)
	}
	return nil
}

// ctxReader stops a stream copy between reads once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
