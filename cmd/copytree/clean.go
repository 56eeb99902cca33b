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
	"github.com/spf13/cobra"
	"github.com/walteh/copytree/pkg/filter"
	"github.com/walteh/copytree/pkg/log"
	"github.com/walteh/copytree/pkg/remove"
	"gitlab.com/tozd/go/errors"
)

// newCleanCmd creates the clean command
func newCleanCmd() *cobra.Command {
	var (
		include  []string
		exclude  []string
		keepRoot bool
	)

	cmd := &cobra.Command{
		Use:   "clean <dir>",
		Short: "Delete the contents of a directory",
		Long: `Clean removes files below dir, descending into subdirectories and
removing those left empty.

--include limits removal to matching files. --exclude keeps matching files and
directories. dir itself is removed too unless --keep-root is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			console := log.FromContext(cmd.Context())

			glob, err := filter.NewGlob(include, exclude)
			if err != nil {
				return err
			}

			removed, err := remove.DeleteDirectory(args[0], glob, true, !keepRoot)
			for _, r := range removed {
				console.LogFileOperation(cmd.Context(), log.FileOperation{Path: r.Path, Size: r.Size, Status: log.StatusRemoved})
			}
			if err != nil {
				return errors.Errorf("cleaning %s: %w", args[0], err)
			}

			console.Successf("cleaned %s, %d files removed", args[0], console.Count(log.StatusRemoved))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", nil, "glob patterns of files to remove")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns of files and directories to keep")
	cmd.Flags().BoolVar(&keepRoot, "keep-root", true, "keep dir itself")

	return cmd
}
