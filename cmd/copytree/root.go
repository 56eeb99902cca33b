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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/copytree/pkg/log"
)

type rootOpts struct {
	configFile string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}

	cmd := &cobra.Command{
		Use:   "copytree",
		Short: "Copy directory trees on a pool of workers",
		Long: `copytree walks a source directory and copies every file it finds
into a destination directory, starting copies while the walk is still running.

Progress is reported for the walk and for the copy separately. Press Ctrl-C to
cancel a running copy; files already copied are kept.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if opts.debug {
				level = zerolog.DebugLevel
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).
				With().Timestamp().Logger()

			ctx := logger.WithContext(cmd.Context())
			ctx = log.NewContext(ctx, log.New(cmd.OutOrStdout(), logger))
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (.yaml, .yml, .json or .hcl)")
	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")

	cmd.AddCommand(
		newCopyCmd(opts),
		newCleanCmd(),
		newExtractCmd(),
		newRenderCmd(),
		newVersionCmd(),
	)

	return cmd
}
