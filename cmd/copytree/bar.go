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
	"sync"

	"github.com/pterm/pterm"
	"github.com/walteh/copytree/pkg/progress"
)

// 📊 bar draws the copy percent as a pterm progress bar
type bar struct {
	mu      sync.Mutex
	title   string
	printer *pterm.ProgressbarPrinter
	current int
	stopped bool
}

var _ progress.Listener = (*bar)(nil)

func newBar(title string) *bar {
	return &bar{title: title}
}

// start lazily so nothing is drawn for runs that never reach the copy phase
func (b *bar) start() {
	if b.printer != nil || b.stopped {
		return
	}
	p, err := pterm.DefaultProgressbar.WithTotal(100).WithTitle(b.title).Start()
	if err != nil {
		b.stopped = true
		return
	}
	b.printer = p
}

func (b *bar) SetStarted() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start()
}

func (b *bar) SetTask(task string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.printer != nil && !b.stopped {
		b.printer.UpdateTitle(b.title + ": " + task)
	}
}

func (b *bar) SetProgress(percent float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start()
	if b.printer == nil || b.stopped {
		return
	}
	target := int(percent)
	if target > 100 {
		target = 100
	}
	if delta := target - b.current; delta > 0 {
		b.printer.Add(delta)
		b.current = target
	}
}

func (b *bar) SetCompleted() { b.Stop() }
func (b *bar) Cancel()       { b.Stop() }
func (b *bar) Reset()        {}

func (b *bar) ReportWarning(source, location, message string) {}

func (b *bar) ReportFailure(err error) {}

// Stop removes the bar from the terminal; safe to call more than once
func (b *bar) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	if b.printer != nil {
		_, _ = b.printer.Stop()
	}
}
