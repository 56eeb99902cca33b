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
	"bytes"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/copytree/pkg/fault"
	"github.com/walteh/copytree/pkg/log"
	"github.com/walteh/copytree/pkg/text"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

func newRenderCmd() *cobra.Command {
	var (
		dataFile string
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "render <template> <output>",
		Short: "Render a Go template into a file",
		Long: `Render executes template with the values read from --data, a YAML or
JSON document, and writes the result to output.

--encoding names the charset of the template file, UTF-8 when unset.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			console := log.FromContext(cmd.Context())

			data := map[string]any{}
			if dataFile != "" {
				raw, err := os.ReadFile(dataFile)
				if err != nil {
					return fault.IO(err, "reading %s", dataFile)
				}
				if err := yaml.Unmarshal(raw, &data); err != nil {
					return errors.Errorf("%w: parsing %s: %w", fault.ErrInvalidArgument, dataFile, err)
				}
			}

			tmpl, err := text.ReadFile(args[0], encoding)
			if err != nil {
				return err
			}

			var out bytes.Buffer
			if err := text.Render(strings.NewReader(tmpl), data, &out); err != nil {
				return errors.Errorf("rendering %s: %w", args[0], err)
			}
			if err := os.WriteFile(args[1], out.Bytes(), 0o644); err != nil {
				return fault.IO(err, "writing %s", args[1])
			}

			console.Successf("rendered %s", args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "YAML or JSON file with template values")
	cmd.Flags().StringVar(&encoding, "encoding", "", "charset of the template file")

	return cmd
}
