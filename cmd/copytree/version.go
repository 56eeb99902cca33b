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
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// tracked lists the dependencies whose versions change what a copy run
// prints or accepts
var tracked = []string{
	"github.com/bmatcuk/doublestar/v4",
	"github.com/rs/zerolog",
	"github.com/spf13/cobra",
}

// 🏷️ build describes the running binary
type build struct {
	Module   string            `yaml:"module"`
	Version  string            `yaml:"version"`
	Commit   string            `yaml:"commit,omitempty"`
	Built    string            `yaml:"built,omitempty"`
	Dirty    bool              `yaml:"dirty,omitempty"`
	Go       string            `yaml:"go"`
	Platform string            `yaml:"platform"`
	Deps     map[string]string `yaml:"deps,omitempty"`
}

func currentBuild() build {
	b := build{
		Module:   "github.com/walteh/copytree",
		Version:  "dev",
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	if info.Main.Path != "" {
		b.Module = info.Main.Path
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		b.Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Commit = s.Value
		case "vcs.time":
			b.Built = s.Value
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	for _, dep := range info.Deps {
		for _, want := range tracked {
			if dep.Path == want {
				if b.Deps == nil {
					b.Deps = map[string]string{}
				}
				b.Deps[dep.Path] = dep.Version
			}
		}
	}
	return b
}

// short is the version plus the first 7 characters of the commit
func (b build) short() string {
	if len(b.Commit) >= 7 {
		return b.Version + "+" + b.Commit[:7]
	}
	return b.Version
}

func (b build) print(w io.Writer) {
	commit := b.Commit
	if commit == "" {
		commit = "unknown"
	}
	if b.Dirty {
		commit += " (modified)"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🚀 copytree %s\n", b.Version)
	fmt.Fprintf(&sb, "   module:   %s\n", b.Module)
	fmt.Fprintf(&sb, "   commit:   %s\n", commit)
	if b.Built != "" {
		fmt.Fprintf(&sb, "   built:    %s\n", b.Built)
	}
	fmt.Fprintf(&sb, "   go:       %s on %s\n", b.Go, b.Platform)
	for _, path := range tracked {
		if v, ok := b.Deps[path]; ok {
			fmt.Fprintf(&sb, "   uses:     %s %s\n", path, v)
		}
	}
	fmt.Fprint(w, sb.String())
}

func newVersionCmd() *cobra.Command {
	var (
		short  bool
		asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := currentBuild()
			out := cmd.OutOrStdout()

			switch {
			case short:
				fmt.Fprintln(out, b.short())
			case asYAML:
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(b); err != nil {
					return errors.Errorf("encoding version: %w", err)
				}
				return enc.Close()
			default:
				b.print(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the version")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print version information as YAML")
	cmd.MarkFlagsMutuallyExclusive("short", "yaml")

	return cmd
}
