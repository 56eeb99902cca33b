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

package log

import (
	"context"
	"fmt"
	"sync"

	"github.com/walteh/copytree/pkg/progress"
)

// 📡 PhaseListener prints the milestones of one progress channel. Percent
// changes only reach zerolog, at debug level.
type PhaseListener struct {
	logger *Logger
	name   string
	bytes  func() (done, total int64)

	mu   sync.Mutex
	task string
}

var _ progress.Listener = (*PhaseListener)(nil)

// Phase returns a listener printing milestones prefixed with name
func (l *Logger) Phase(name string) *PhaseListener {
	return &PhaseListener{logger: l, name: name}
}

// WithBytes makes p print the byte count reported by bytes when the phase
// completes or is cancelled
func (p *PhaseListener) WithBytes(bytes func() (done, total int64)) *PhaseListener {
	p.bytes = bytes
	return p
}

func (p *PhaseListener) printBytes() {
	if p.bytes == nil {
		return
	}
	done, total := p.bytes()
	p.logger.Info(FormatProgress(done, total))
}

func (p *PhaseListener) SetTask(task string) {
	p.mu.Lock()
	p.task = task
	p.mu.Unlock()
}

func (p *PhaseListener) SetStarted() {
	p.logger.Infof("%s started", p.name)
}

func (p *PhaseListener) SetProgress(percent float64) {
	p.logger.zlog.Debug().Str("phase", p.name).Float64("percent", percent).Msg("progress")
}

func (p *PhaseListener) SetCompleted() {
	p.logger.Successf("%s completed", p.name)
	p.printBytes()
}

func (p *PhaseListener) Cancel() {
	p.logger.Warningf("%s cancelled", p.name)
	p.printBytes()
}

func (p *PhaseListener) ReportWarning(source, location, message string) {
	p.logger.zlog.Warn().Str("phase", p.name).Str("source", source).Str("location", location).Msg(message)
}

func (p *PhaseListener) ReportFailure(err error) {
	p.mu.Lock()
	task := p.task
	p.mu.Unlock()
	p.logger.Errorf("%s failed during %q: %v", p.name, task, err)
}

func (p *PhaseListener) Reset() {
	p.SetTask("")
}

// 📄 FileListener prints a single line once a file copy ends, whichever
// way it ends
type FileListener struct {
	logger *Logger
	path   string
	size   int64
	once   sync.Once
}

var _ progress.Listener = (*FileListener)(nil)

// File returns a listener for the copy of path
func (l *Logger) File(path string, size int64) *FileListener {
	return &FileListener{logger: l, path: path, size: size}
}

func (f *FileListener) finish(status Status, err error) {
	f.once.Do(func() {
		f.logger.LogFileOperation(context.Background(), FileOperation{Path: f.path, Size: f.size, Status: status, Err: err})
	})
}

func (f *FileListener) SetProgress(percent float64) {
	if percent >= 100 {
		f.finish(StatusCopied, nil)
	}
}

func (f *FileListener) ReportFailure(err error) { f.finish(StatusFailed, err) }
func (f *FileListener) Cancel()                 { f.finish(StatusCancelled, nil) }
func (f *FileListener) SetTask(string)          {}
func (f *FileListener) SetStarted()             {}
func (f *FileListener) SetCompleted()           {}
func (f *FileListener) Reset()                  {}

func (f *FileListener) ReportWarning(source, location, message string) {
	f.logger.zlog.Warn().Str("file", f.path).Str("source", source).Str("location", location).Msg(message)
}

func (f *FileListener) String() string {
	return fmt.Sprintf("file[%s]", f.path)
}
