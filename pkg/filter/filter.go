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

// Package filter decides which entries of a tree walk are visited.
package filter

import (
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/copytree/pkg/fault"
)

// 🔍 Filter is consulted for every entry below the walk root. rel is the
// entry's path relative to the root using the OS separator.
type Filter interface {
	Accept(rel string, isDir bool) bool
}

// FilterFunc adapts a function into a Filter
type FilterFunc func(rel string, isDir bool) bool

func (f FilterFunc) Accept(rel string, isDir bool) bool {
	return f(rel, isDir)
}

// All accepts everything
var All Filter = FilterFunc(func(string, bool) bool { return true })

// 🌟 Glob filters with doublestar patterns matched against the slash
// separated relative path and against the base name.
//
// Exclude patterns apply to files and directories; an excluded directory is
// not descended into. Include patterns, when present, apply to files only so
// that directories holding matching files are still walked.
type Glob struct {
	include []string
	exclude []string
	logger  zerolog.Logger
}

// 🏭 NewGlob validates every pattern up front
func NewGlob(include, exclude []string) (*Glob, error) {
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fault.Invalid("bad glob pattern %q", p)
		}
	}
	return &Glob{include: include, exclude: exclude, logger: zerolog.Nop()}, nil
}

// WithLogger returns a copy of g that logs rejected entries at trace level
func (g *Glob) WithLogger(logger zerolog.Logger) *Glob {
	cp := *g
	cp.logger = logger
	return &cp
}

func (g *Glob) Accept(rel string, isDir bool) bool {
	name := filepath.ToSlash(rel)

	for _, pattern := range g.exclude {
		if match(pattern, name) {
			g.logger.Trace().Str("path", name).Str("pattern", pattern).Msg("excluded by pattern")
			return false
		}
	}

	if isDir || len(g.include) == 0 {
		return true
	}

	for _, pattern := range g.include {
		if match(pattern, name) {
			return true
		}
	}
	g.logger.Trace().Str("path", name).Msg("not matched by any include pattern")
	return false
}

func match(pattern, name string) bool {
	if ok, _ := doublestar.Match(pattern, name); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, path.Base(name))
	return ok
}
