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
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/walteh/copytree/pkg/fault"
	"gitlab.com/tozd/go/errors"
)

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
	"join":  strings.Join,
	"base":  filepath.Base,
	"default": func(def, v any) any {
		if v == nil || v == "" {
			return def
		}
		return v
	},
}

// 🖨️ Render executes the template read from src against data. Nothing is
// written to out unless the whole template executes.
func Render(src io.Reader, data any, out io.Writer) error {
	raw, err := io.ReadAll(src)
	if err != nil {
		return fault.IO(err, "reading template")
	}
	return render("template", string(raw), data, out)
}

// RenderFile renders the template at templatePath into outputPath
func RenderFile(templatePath string, data any, outputPath string) error {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return fault.IO(err, "reading template %s", templatePath)
	}

	var buf bytes.Buffer
	if err := render(filepath.Base(templatePath), string(raw), data, &buf); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fault.IO(err, "creating %s", filepath.Dir(outputPath))
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return fault.IO(err, "writing %s", outputPath)
	}
	return nil
}

func render(name, src string, data any, out io.Writer) error {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(src)
	if err != nil {
		return errors.Errorf("%w: parsing %s: %w", fault.ErrTemplate, name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return errors.Errorf("%w: executing %s: %w", fault.ErrTemplate, name, err)
	}

	if _, err := buf.WriteTo(out); err != nil {
		return fault.IO(err, "writing rendered %s", name)
	}
	return nil
}
