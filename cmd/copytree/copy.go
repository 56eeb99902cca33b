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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/copytree/pkg/config"
	"github.com/walteh/copytree/pkg/copytree"
	"github.com/walteh/copytree/pkg/dispatch"
	"github.com/walteh/copytree/pkg/fault"
	"github.com/walteh/copytree/pkg/log"
	"github.com/walteh/copytree/pkg/progress"
	"gitlab.com/tozd/go/errors"
)

type copyOpts struct {
	source      string
	destination string
	workers     int
	queue       int
	maxDepth    int
	include     []string
	exclude     []string
	progress    bool
}

func newCopyCmd(root *rootOpts) *cobra.Command {
	opts := &copyOpts{}

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy a directory tree",
		Long: `Copy walks --source and copies every accepted file below --destination,
keeping the relative layout. Flags override values from --config.

Existing destination files with the same path are replaced. Nothing else in the
destination is touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd, root)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if !root.debug && cfg.LogLevel != "" {
				logger := zerolog.Ctx(ctx).Level(cfg.Level())
				ctx = logger.WithContext(ctx)
			}

			return runCopy(ctx, cfg, opts.progress)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.source, "source", "s", "", "directory to copy")
	flags.StringVarP(&opts.destination, "destination", "o", "", "directory to copy into")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "number of copy workers (default: number of CPUs)")
	flags.IntVar(&opts.queue, "queue", 0, "max tasks waiting for a worker")
	flags.IntVar(&opts.maxDepth, "max-depth", 0, "max directory levels to walk, 0 for unlimited")
	flags.StringSliceVar(&opts.include, "include", nil, "glob patterns of files to copy")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "glob patterns of files and directories to skip")
	flags.BoolVar(&opts.progress, "progress", true, "show a progress bar")

	return cmd
}

// config merges --config with the flags that were set explicitly
func (o *copyOpts) config(cmd *cobra.Command, root *rootOpts) (*config.Config, error) {
	cfg := &config.Config{}
	if root.configFile != "" {
		loaded, err := config.Load(cmd.Context(), root.configFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = o.source
	}
	if flags.Changed("destination") {
		cfg.Destination = o.destination
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("queue") {
		cfg.QueueSize = o.queue
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = o.maxDepth
	}
	if flags.Changed("include") {
		cfg.Include = o.include
	}
	if flags.Changed("exclude") {
		cfg.Exclude = o.exclude
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating options: %w", err)
	}
	return cfg, nil
}

func runCopy(ctx context.Context, cfg *config.Config, showBar bool) error {
	logger := zerolog.Ctx(ctx)
	console := log.FromContext(ctx)

	glob, err := cfg.Filter()
	if err != nil {
		return err
	}

	pool, err := dispatch.New(ctx, cfg.PoolOptions())
	if err != nil {
		return errors.Errorf("starting workers: %w", err)
	}

	tree, err := copytree.New(ctx, copytree.Options{
		Source:      cfg.Source,
		Destination: cfg.Destination,
		Dispatcher:  pool,
		Filter:      glob.WithLogger(*logger),
		MaxDepth:    cfg.MaxDepth,
		TaskListener: func(task copytree.CopyTask) progress.Listener {
			return console.File(task.Source, task.Size)
		},
	})
	if err != nil {
		_ = pool.Shutdown()
		return errors.Errorf("preparing copy: %w", err)
	}

	console.Header("copying " + tree.Source() + " to " + tree.Destination())
	tree.AddCollectionListener(console.Phase("collection"))
	tree.AddCopyListener(console.Phase("copy").WithBytes(func() (int64, int64) {
		return tree.CopiedBytes(), tree.TotalBytes()
	}))
	if showBar {
		bar := newBar("copy")
		tree.AddCopyListener(bar)
		defer bar.Stop()
	}

	stop := cancelOnInterrupt(ctx, tree)
	defer stop()

	submitted := tree.Copy(ctx)
	logger.Debug().Int("submitted", submitted).Msg("collection ended")

	_, waitErr := tree.Wait(ctx)
	if err := pool.Close(); err != nil {
		logger.Warn().Err(err).Msg("stopping workers")
	}

	console.Summary()

	switch {
	case tree.Err() != nil:
		return errors.Errorf("collecting %s: %w", tree.Source(), tree.Err())
	case waitErr != nil:
		return errors.Errorf("copying %s: %w", tree.Source(), waitErr)
	case tree.Cancelled():
		return errors.Errorf("copying %s: %w", tree.Source(), fault.ErrCancelled)
	}
	return nil
}

// cancelOnInterrupt cancels tree on SIGINT or SIGTERM until the returned
// func is called
func cancelOnInterrupt(ctx context.Context, tree *copytree.Tree) func() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case s := <-sig:
			zerolog.Ctx(ctx).Warn().Stringer("signal", s).Msg("interrupted, cancelling copy")
			tree.Cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sig)
		close(done)
	}
}
