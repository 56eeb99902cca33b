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

package extract_test

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/copytree/pkg/extract"
	"github.com/walteh/copytree/pkg/fault"
)

// "hello bzip2\n" compressed with bzip2 -9
var helloBzip2 = []byte{
	0x42, 0x5a, 0x68, 0x39, 0x31, 0x41, 0x59, 0x26, 0x53, 0x59, 0xab, 0x6b, 0xa1, 0xf1, 0x00, 0x00,
	0x02, 0xd9, 0x80, 0x00, 0x10, 0x40, 0x00, 0x10, 0x00, 0x12, 0x64, 0xc0, 0x10, 0x20, 0x00, 0x31,
	0x00, 0xd3, 0x4d, 0x04, 0x00, 0x1e, 0xa3, 0xef, 0x4e, 0x51, 0xa2, 0x07, 0x8b, 0xb9, 0x22, 0x9c,
	0x28, 0x48, 0x55, 0xb5, 0xd0, 0xf8, 0x80,
}

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestUnzip(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	archive := filepath.Join(dir, "in.zip")
	writeZip(t, archive, map[string]string{
		"a.txt":         "a",
		"nested/b.txt":  "b",
		"nested/empty/": "",
	})

	dest := filepath.Join(dir, "out")
	written, err := extract.Unzip(ctx, archive, dest)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dest, "a.txt"), filepath.Join(dest, "nested", "b.txt")}, written)

	got, err := os.ReadFile(filepath.Join(dest, "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
	assert.DirExists(t, filepath.Join(dest, "nested", "empty"))
}

func TestUnzipFlat(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	archive := filepath.Join(dir, "in.zip")
	writeZip(t, archive, map[string]string{"x/y/deep.txt": "deep", "top.txt": "top"})

	dest := filepath.Join(dir, "out")
	written, err := extract.UnzipFlat(ctx, archive, dest)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dest, "deep.txt"), filepath.Join(dest, "top.txt")}, written)
	assert.NoDirExists(t, filepath.Join(dest, "x"))
}

func TestUnzipRejectsEscapingEntries(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{"../../escaped.txt": "gotcha"})

	dest := filepath.Join(dir, "a", "b", "out")
	_, err := extract.Unzip(ctx, archive, dest)
	assert.ErrorIs(t, err, fault.ErrCorruptArchive)
	assert.NoFileExists(t, filepath.Join(dir, "a", "escaped.txt"))
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) string
		check func(t *testing.T, dest string, written []string, err error)
	}{
		{
			name: "gzip",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "data.txt.gz")
				writeGzip(t, p, "hello gzip\n")
				return p
			},
			check: func(t *testing.T, dest string, written []string, err error) {
				require.NoError(t, err)
				require.Equal(t, []string{filepath.Join(dest, "data.txt")}, written)
				got, err := os.ReadFile(written[0])
				require.NoError(t, err)
				assert.Equal(t, "hello gzip\n", string(got))
			},
		},
		{
			name: "bzip2",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "data.txt.bz2")
				require.NoError(t, os.WriteFile(p, helloBzip2, 0o644))
				return p
			},
			check: func(t *testing.T, dest string, written []string, err error) {
				require.NoError(t, err)
				got, err := os.ReadFile(filepath.Join(dest, "data.txt"))
				require.NoError(t, err)
				assert.Equal(t, "hello bzip2\n", string(got))
			},
		},
		{
			name: "zip",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "bundle.ZIP")
				writeZip(t, p, map[string]string{"one": "1"})
				return p
			},
			check: func(t *testing.T, dest string, written []string, err error) {
				require.NoError(t, err)
				assert.Equal(t, []string{filepath.Join(dest, "one")}, written)
			},
		},
		{
			name: "corrupt_gzip",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "bad.gz")
				require.NoError(t, os.WriteFile(p, []byte("definitely not gzip"), 0o644))
				return p
			},
			check: func(t *testing.T, dest string, written []string, err error) {
				assert.ErrorIs(t, err, fault.ErrCorruptArchive)
			},
		},
		{
			name: "corrupt_bzip2",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "bad.bz2")
				require.NoError(t, os.WriteFile(p, []byte("BZh9 garbage that is not a block"), 0o644))
				return p
			},
			check: func(t *testing.T, dest string, written []string, err error) {
				assert.ErrorIs(t, err, fault.ErrCorruptArchive)
				assert.NoFileExists(t, filepath.Join(dest, "bad"))
			},
		},
		{
			name: "corrupt_zip",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "bad.zip")
				require.NoError(t, os.WriteFile(p, []byte("PK nope"), 0o644))
				return p
			},
			check: func(t *testing.T, dest string, written []string, err error) {
				assert.ErrorIs(t, err, fault.ErrCorruptArchive)
			},
		},
		{
			name: "missing_file",
			setup: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "missing.gz")
			},
			check: func(t *testing.T, dest string, written []string, err error) {
				assert.ErrorIs(t, err, fault.ErrIOFailure)
			},
		},
		{
			name: "unsupported",
			setup: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "file.rar")
			},
			check: func(t *testing.T, dest string, written []string, err error) {
				assert.ErrorIs(t, err, fault.ErrInvalidArgument)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := tt.setup(t, dir)
			dest := filepath.Join(dir, "out")
			written, err := extract.Extract(testContext(t), archive, dest)
			tt.check(t, dest, written, err)
		})
	}
}

func TestExtractHonoursCancelledContext(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "data.gz")
	writeGzip(t, archive, "x")

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	_, err := extract.Extract(ctx, archive, dir)
	assert.ErrorIs(t, err, context.Canceled)
}
