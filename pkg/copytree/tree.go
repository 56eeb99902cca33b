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
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/walteh/copytree/pkg/dispatch"
	"github.com/walteh/copytree/pkg/fault"
	"github.com/walteh/copytree/pkg/filter"
	"github.com/walteh/copytree/pkg/progress"
	"github.com/walteh/copytree/pkg/rebase"
	"github.com/walteh/copytree/pkg/remove"
	"gitlab.com/tozd/go/errors"
)

// NoWork is returned by Copy when the run was cancelled before it began
const NoWork = -1

// ⚙️ Options configures a Tree
type Options struct {
	// Source is the directory to copy. It must exist.
	Source string
	// Destination is the directory receiving the copy. It may not exist yet
	// and may not live inside Source.
	Destination string
	// Dispatcher runs the per file copy tasks. Required.
	Dispatcher Dispatcher
	// Filter selects the entries to copy. Defaults to filter.All.
	Filter filter.Filter
	// MaxDepth limits how many directory levels are walked, 0 is unlimited
	MaxDepth int
	// TaskListener builds the listener for one file copy. Defaults to a
	// progress.Recorder per file.
	TaskListener func(task CopyTask) progress.Listener
}

// 🌳 Tree copies one directory tree onto another. It walks the source on the
// calling goroutine and hands each file to the Dispatcher as it is found.
//
// Progress is reported on two channels: collection, for the walk, and copy,
// for the bytes written. A Tree runs at most once.
type Tree struct {
	source       string
	destination  string
	dispatcher   Dispatcher
	filter       filter.Filter
	maxDepth     int
	taskListener func(task CopyTask) progress.Listener
	logger       zerolog.Logger

	collection         *progress.List
	copying            *progress.List
	collectionRecorder *progress.Recorder
	copyRecorder       *progress.Recorder

	handles handleSet
	walkErr error
	// closed once, when the tree is cancelled for any reason
	aborted chan struct{}

	ran            atomic.Bool
	cancelled      atomic.Bool
	collectionDone atomic.Bool
	copyStarted    atomic.Bool

	total     atomic.Int64
	copied    atomic.Int64
	files     atomic.Int64
	filesDone atomic.Int64
	resolved  atomic.Int64 // tasks that ran to an end, whichever end

	publishMu   sync.Mutex
	lastPercent float64
	copyEnded   bool
}

// 🏭 New validates opts and resolves both roots
func New(ctx context.Context, opts Options) (*Tree, error) {
	if opts.Dispatcher == nil {
		return nil, fault.Invalid("a dispatcher is required")
	}
	if opts.Source == "" {
		return nil, fault.Invalid("source directory is required")
	}
	if opts.Destination == "" {
		return nil, fault.Invalid("destination directory is required")
	}
	if opts.MaxDepth < 0 {
		return nil, fault.Invalid("max depth must not be negative, got %d", opts.MaxDepth)
	}

	source, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, fault.Invalid("resolving source %s: %v", opts.Source, err)
	}
	source, err = filepath.EvalSymlinks(source)
	if err != nil {
		return nil, fault.Invalid("source %s is not accessible: %v", opts.Source, err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return nil, fault.Invalid("source %s is not accessible: %v", opts.Source, err)
	}
	if !info.IsDir() {
		return nil, fault.Invalid("source %s is not a directory", opts.Source)
	}

	destination, err := filepath.Abs(opts.Destination)
	if err != nil {
		return nil, fault.Invalid("resolving destination %s: %v", opts.Destination, err)
	}
	if resolved, err := filepath.EvalSymlinks(destination); err == nil {
		destination = resolved
	}
	if rebase.IsNested(source, destination) {
		return nil, fault.Invalid("destination %s is inside source %s", destination, source)
	}
	if info, err := os.Stat(destination); err == nil && !info.IsDir() {
		return nil, fault.Invalid("destination %s is not a directory", destination)
	}

	logger := zerolog.Ctx(ctx).With().Str("source", source).Str("destination", destination).Logger()

	t := &Tree{
		source:             source,
		destination:        destination,
		dispatcher:         opts.Dispatcher,
		filter:             opts.Filter,
		maxDepth:           opts.MaxDepth,
		taskListener:       opts.TaskListener,
		logger:             logger,
		collection:         progress.NewList("collection", logger),
		copying:            progress.NewList("copy", logger),
		collectionRecorder: progress.NewRecorder("collection["+filepath.Base(source)+"]", logger),
		copyRecorder:       progress.NewRecorder("copy["+filepath.Base(source)+"]", logger),
		aborted:            make(chan struct{}),
		lastPercent:        -1,
	}
	if t.filter == nil {
		t.filter = filter.All
	}
	t.collection.Add(t.collectionRecorder)
	t.copying.Add(t.copyRecorder)

	return t, nil
}

func (t *Tree) Source() string      { return t.source }
func (t *Tree) Destination() string { return t.destination }

// AddCollectionListener registers l for walk progress. Nil is rejected.
func (t *Tree) AddCollectionListener(l progress.Listener) bool {
	return t.collection.Add(l)
}

// AddCopyListener registers l for copy progress. Nil is rejected.
func (t *Tree) AddCopyListener(l progress.Listener) bool {
	return t.copying.Add(l)
}

// CollectionState is the last known state of the walk
func (t *Tree) CollectionState() progress.State { return t.collectionRecorder.State() }

// CopyState is the last known state of the copy
func (t *Tree) CopyState() progress.State { return t.copyRecorder.State() }

// Warnings returns the warnings reported on both channels so far
func (t *Tree) Warnings() []progress.Warning {
	return append(t.collectionRecorder.Warnings(), t.copyRecorder.Warnings()...)
}

// Err is the traversal failure that aborted Copy, if any. Only meaningful
// once Copy has returned.
func (t *Tree) Err() error { return t.walkErr }

func (t *Tree) TotalBytes() int64  { return t.total.Load() }
func (t *Tree) CopiedBytes() int64 { return t.copied.Load() }
func (t *Tree) Cancelled() bool    { return t.cancelled.Load() }

// Handles returns the handles of every submitted task, in submission order
func (t *Tree) Handles() []*dispatch.Handle {
	return t.handles.snapshot()
}

// 🚀 Copy walks the source and submits one task per accepted file. It
// returns once the walk ends, which is usually before the copies do; use
// Wait to block on them. While the dispatcher's queue is full the walk waits
// for a free slot.
//
// The result is the number of tasks submitted, or NoWork when the tree was
// cancelled before Copy was called.
func (t *Tree) Copy(ctx context.Context) int {
	if !t.ran.CompareAndSwap(false, true) {
		t.logger.Warn().Msg("copy already ran on this tree")
		return NoWork
	}
	if t.cancelled.Load() {
		t.logger.Info().Msg("copy cancelled before it started")
		return NoWork
	}

	// a walk blocked on a full queue must still notice Cancel
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-t.aborted:
			stop()
		case <-runCtx.Done():
		}
	}()

	w := &walker{
		root:       t.source,
		filter:     t.filter,
		maxDepth:   t.maxDepth,
		collection: t.collection,
		logger:     t.logger,
		cancelled: func(ctx context.Context) bool {
			if err := ctx.Err(); err != nil {
				t.abort("context", err.Error())
			}
			return t.cancelled.Load()
		},
		file: t.submit,
	}

	outcome, err := w.walk(runCtx)
	switch outcome {
	case walkCompleted:
		t.collection.SetCompleted()
		t.collection.SetProgress(100)
		t.collectionDone.Store(true)
		t.startCopyPhase()
		t.settle()
	case walkCancelled:
		t.logger.Info().Int("submitted", t.handles.len()).Msg("collection cancelled")
	case walkFailed:
		t.logger.Error().Err(err).Msg("collection failed")
		t.walkErr = err
		t.collection.ReportFailure(err)
		t.copying.ReportFailure(err)
		t.abort("walker", err.Error())
	}

	return t.handles.len()
}

// 🛑 Cancel stops the walk at its next poll and cancels every task that is
// not finished. Calling it again does nothing.
func (t *Tree) Cancel() {
	t.abort("copytree", "copy was cancelled manually")
}

// abort moves the tree to the cancelled state once, whatever the cause
func (t *Tree) abort(source, message string) bool {
	if !t.cancelled.CompareAndSwap(false, true) {
		return false
	}
	close(t.aborted)

	// hold the publish lock so no percent is emitted after the cancel event
	t.publishMu.Lock()
	t.collection.Cancel()
	t.collection.ReportWarning(source, t.source, message)
	t.copying.Cancel()
	t.copying.ReportWarning(source, t.source, message)
	t.publishMu.Unlock()

	cancelled := t.handles.cancelAll()
	t.logger.Info().Str("cause", source).Int("tasks_cancelled", cancelled).Msg(message)
	return true
}

// 📬 Wait blocks until every submitted task has resolved, returning the
// destinations written and the joined task errors. Cancelled tasks are not
// reported as errors.
func (t *Tree) Wait(ctx context.Context) ([]string, error) {
	var written []string
	var errs []error

	for _, h := range t.handles.snapshot() {
		dest, err := h.Wait(ctx)
		if ctx.Err() != nil {
			return written, errors.Errorf("waiting for copy tasks: %w", ctx.Err())
		}
		if err != nil {
			if !fault.IsCancellation(err) {
				errs = append(errs, err)
			}
			continue
		}
		written = append(written, dest)
	}

	return written, errors.Join(errs...)
}

// 🧹 Cleanup removes the files this tree wrote, then the directories holding
// them that are left empty, up to but not including the destination. It
// waits for outstanding tasks first. Files and directories the run did not
// write are left alone, unless this run overwrote them.
func (t *Tree) Cleanup(ctx context.Context) error {
	written, _ := t.Wait(ctx)
	if err := ctx.Err(); err != nil {
		return errors.Errorf("cleaning up %s: %w", t.destination, err)
	}

	if err := remove.Files(written); err != nil {
		return errors.Errorf("cleaning up %s: %w", t.destination, err)
	}
	if err := remove.PruneParents(t.destination, written); err != nil {
		return errors.Errorf("pruning %s: %w", t.destination, err)
	}

	t.logger.Info().Int("files", len(written)).Msg("cleaned up copied files")
	return nil
}

// submit runs on the walking goroutine for every accepted file
func (t *Tree) submit(ctx context.Context, path string, info fs.FileInfo) error {
	t.total.Add(info.Size())
	t.files.Add(1)
	t.startCopyPhase()

	task := CopyTask{
		Source:          path,
		SourceRoot:      t.source,
		DestinationRoot: t.destination,
		Size:            info.Size(),
	}

	listener := t.listenerFor(task)
	h, err := t.dispatcher.SubmitWait(ctx, &job{task: task, listener: listener, done: t.taskDone})
	if err != nil {
		if t.cancelled.Load() || ctx.Err() != nil {
			return errors.Errorf("submitting %s: %w", path, err)
		}
		listener.ReportFailure(err)
		listener.Cancel()
		return errors.Errorf("submitting %s: %w", path, err)
	}

	t.handles.add(h)
	t.collection.SetTask("collected " + path)
	return nil
}

func (t *Tree) listenerFor(task CopyTask) progress.Listener {
	if t.taskListener != nil {
		if l := t.taskListener(task); l != nil {
			return l
		}
	}
	return progress.NewRecorder("copy["+filepath.Base(task.Source)+"]", t.logger)
}

// startCopyPhase opens the copy channel the first time it is called
func (t *Tree) startCopyPhase() {
	if !t.copyStarted.CompareAndSwap(false, true) {
		return
	}

	t.publishMu.Lock()
	defer t.publishMu.Unlock()
	if t.cancelled.Load() {
		return
	}
	t.copying.SetStarted()
	t.copying.SetTask("starting copy")
	t.copying.SetProgress(0)
	t.lastPercent = 0
}

// taskDone runs on a worker after each task resolves
func (t *Tree) taskDone(task CopyTask, dest string, err error) {
	if err != nil {
		if !fault.IsCancellation(err) {
			t.copying.ReportFailure(err)
		}
		t.resolved.Add(1)
		if t.collectionDone.Load() {
			t.settle()
		}
		return
	}

	t.copied.Add(task.Size)
	t.filesDone.Add(1)
	t.resolved.Add(1)

	if !t.collectionDone.Load() {
		t.copying.ReportWarning("copytree", task.Source,
			"copied "+dest+"; overall percent is provisional until collection completes")
		return
	}
	t.settle()
}

// settle publishes the copy percent if it grew. Once every enumerated file
// is copied the copy channel completes; once every task ended but some did
// not copy their file, it is cancelled instead. Only valid after collection
// completed.
func (t *Tree) settle() {
	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	if t.cancelled.Load() || t.copyEnded {
		return
	}

	total, copied := t.total.Load(), t.copied.Load()
	files, filesDone := t.files.Load(), t.filesDone.Load()

	pct := percent(copied, total, filesDone, files)
	if pct > t.lastPercent {
		t.lastPercent = pct
		t.copying.SetProgress(pct)
	}

	switch {
	case filesDone == files && copied >= total:
		t.copyEnded = true
		t.copying.SetTask("copy completed")
		t.copying.SetCompleted()
	case t.resolved.Load() == files:
		t.copyEnded = true
		t.copying.SetTask(fmt.Sprintf("copy ended, %d of %d files not copied", files-filesDone, files))
		t.copying.Cancel()
	}
}

// percent is byte based, falling back to file counts when every file is empty
func percent(copied, total, filesDone, files int64) float64 {
	var p int64
	switch {
	case total > 0:
		p = copied * 100 / total
	case files > 0:
		p = filesDone * 100 / files
	default:
		p = 100
	}
	if p > 100 {
		p = 100
	}
	return float64(p)
}
