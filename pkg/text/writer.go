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

package text

import (
	"io"
	"os"
	"path/filepath"

	"github.com/walteh/copytree/pkg/fault"
)

// ➕ AppendFile appends the contents of src to dst, creating dst if needed
func AppendFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fault.IO(err, "opening %s", src)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fault.IO(err, "creating %s", filepath.Dir(dst))
	}

	out, err := os.OpenFile(dst, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fault.IO(err, "opening %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fault.IO(err, "appending %s to %s", src, dst)
	}
	if err := out.Close(); err != nil {
		return fault.IO(err, "closing %s", dst)
	}
	return nil
}
