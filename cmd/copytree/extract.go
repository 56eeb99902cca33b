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
	"github.com/walteh/copytree/pkg/extract"
	"github.com/walteh/copytree/pkg/log"
	"gitlab.com/tozd/go/errors"
)

func newExtractCmd() *cobra.Command {
	var flat bool

	cmd := &cobra.Command{
		Use:   "extract <archive> <dest>",
		Short: "Unpack a zip, gzip or bzip2 archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			console := log.FromContext(ctx)

			var written []string
			var err error
			if flat {
				written, err = extract.UnzipFlat(ctx, args[0], args[1])
			} else {
				written, err = extract.Extract(ctx, args[0], args[1])
			}
			if err != nil {
				return errors.Errorf("extracting %s: %w", args[0], err)
			}

			for _, w := range written {
				console.LogFileOperation(ctx, log.FileOperation{Path: w, Status: log.StatusExtracted})
			}
			console.Successf("extracted %d files from %s", len(written), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&flat, "flat", false, "drop directories from zip entries")

	return cmd
}
