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

// Package extract unpacks zip, gzip and bzip2 archives.
package extract

import (
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/copytree/pkg/fault"
	"github.com/walteh/copytree/pkg/rebase"
	"gitlab.com/tozd/go/errors"
)

// 📦 Extract unpacks archive into destDir, choosing the format from the file
// extension. It returns the paths written.
func Extract(ctx context.Context, archive, destDir string) ([]string, error) {
	lower := strings.ToLower(archive)

	switch {
	case strings.HasSuffix(lower, ".zip"):
		return Unzip(ctx, archive, destDir)
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".gzip"):
		out := filepath.Join(destDir, stripExt(filepath.Base(archive)))
		if err := Gunzip(ctx, archive, out); err != nil {
			return nil, err
		}
		return []string{out}, nil
	case strings.HasSuffix(lower, ".bz2"), strings.HasSuffix(lower, ".bzip2"):
		out := filepath.Join(destDir, stripExt(filepath.Base(archive)))
		if err := Bunzip2(ctx, archive, out); err != nil {
			return nil, err
		}
		return []string{out}, nil
	default:
		return nil, fault.Invalid("unsupported archive type %q", filepath.Ext(archive))
	}
}

// 🗜️ Unzip extracts every entry of archive below destDir, keeping the
// archive's directory layout. Entries resolving outside destDir are rejected
// before anything is written for them.
func Unzip(ctx context.Context, archive, destDir string) ([]string, error) {
	return unzip(ctx, archive, destDir, false)
}

// UnzipFlat extracts every file entry of archive directly into destDir,
// dropping the archive's directories. Later entries overwrite earlier ones
// with the same base name.
func UnzipFlat(ctx context.Context, archive, destDir string) ([]string, error) {
	return unzip(ctx, archive, destDir, true)
}

func unzip(ctx context.Context, archive, destDir string, flat bool) ([]string, error) {
	logger := zerolog.Ctx(ctx).With().Str("archive", archive).Logger()

	if _, err := os.Stat(archive); err != nil {
		return nil, fault.IO(err, "opening %s", archive)
	}

	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fault.Corrupt(err, "reading zip %s", archive)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fault.IO(err, "creating %s", destDir)
	}

	var written []string
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return written, errors.Errorf("extracting %s: %w", archive, err)
		}

		name := f.Name
		if flat {
			if f.FileInfo().IsDir() {
				continue
			}
			name = filepath.Base(filepath.FromSlash(name))
		}

		target := filepath.Join(destDir, filepath.FromSlash(name))
		if !rebase.IsNested(destDir, target) {
			return written, fault.Corrupt(nil, "entry %q escapes %s", f.Name, destDir)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fault.IO(err, "creating %s", target)
			}
			continue
		}

		if err := writeEntry(f, target); err != nil {
			return written, err
		}
		logger.Trace().Str("entry", f.Name).Str("target", target).Msg("extracted")
		written = append(written, target)
	}

	logger.Debug().Int("files", len(written)).Str("destination", destDir).Msg("unzipped")
	return written, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fault.IO(err, "creating %s", filepath.Dir(target))
	}

	rc, err := f.Open()
	if err != nil {
		return fault.Corrupt(err, "opening entry %s", f.Name)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	return writeStream(rc, target, mode, f.Name)
}

// 🫧 Gunzip decompresses the gzip file in into out
func Gunzip(ctx context.Context, in, out string) error {
	return decompress(ctx, in, out, func(r io.Reader) (io.Reader, error) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	})
}

// 🫧 Bunzip2 decompresses the bzip2 file in into out
func Bunzip2(ctx context.Context, in, out string) error {
	return decompress(ctx, in, out, func(r io.Reader) (io.Reader, error) {
		return bzip2.NewReader(r), nil
	})
}

func decompress(ctx context.Context, in, out string, open func(io.Reader) (io.Reader, error)) error {
	if err := ctx.Err(); err != nil {
		return errors.Errorf("decompressing %s: %w", in, err)
	}

	f, err := os.Open(in)
	if err != nil {
		return fault.IO(err, "opening %s", in)
	}
	defer f.Close()

	r, err := open(f)
	if err != nil {
		return fault.Corrupt(err, "reading header of %s", in)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fault.IO(err, "creating %s", filepath.Dir(out))
	}

	if err := writeStream(r, out, 0o644, in); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("from", in).Str("to", out).Msg("decompressed")
	return nil
}

// writeStream copies r into target, removing target again if the stream
// turns out to be corrupt
func writeStream(r io.Reader, target string, mode os.FileMode, name string) (retErr error) {
	w, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fault.IO(err, "creating %s", target)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && retErr == nil {
			retErr = fault.IO(cerr, "closing %s", target)
		}
		if retErr != nil {
			_ = os.Remove(target)
		}
	}()

	if _, err := io.Copy(w, r); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return fault.IO(err, "writing %s", target)
		}
		return fault.Corrupt(err, "decoding %s", name)
	}
	return nil
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
