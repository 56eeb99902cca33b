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

package progress

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// 📢 List fans every call out to its listeners in registration order.
// The zero value is ready to use and logs nothing.
type List struct {
	name      string
	logger    zerolog.Logger
	mu        sync.RWMutex
	listeners []Listener
}

var _ Listener = (*List)(nil)

// 🏭 NewList creates a named list; recovered listener panics are logged to logger
func NewList(name string, logger zerolog.Logger) *List {
	return &List{
		name:   name,
		logger: logger.With().Str("sink", name).Logger(),
	}
}

// ➕ Add registers a listener. A nil listener is ignored and false is returned.
func (l *List) Add(listener Listener) bool {
	if listener == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, listener)
	return true
}

// Len returns the number of registered listeners
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.listeners)
}

func (l *List) SetTask(task string) {
	l.each("SetTask", func(p Listener) { p.SetTask(task) })
}

func (l *List) SetStarted() {
	l.each("SetStarted", func(p Listener) { p.SetStarted() })
}

func (l *List) SetProgress(percent float64) {
	l.each("SetProgress", func(p Listener) { p.SetProgress(percent) })
}

func (l *List) SetCompleted() {
	l.each("SetCompleted", func(p Listener) { p.SetCompleted() })
}

func (l *List) Cancel() {
	l.each("Cancel", func(p Listener) { p.Cancel() })
}

func (l *List) ReportWarning(source, location, message string) {
	l.each("ReportWarning", func(p Listener) { p.ReportWarning(source, location, message) })
}

func (l *List) ReportFailure(err error) {
	l.each("ReportFailure", func(p Listener) { p.ReportFailure(err) })
}

func (l *List) Reset() {
	l.each("Reset", func(p Listener) { p.Reset() })
}

// each delivers to a snapshot so listeners may register more listeners
// without deadlocking the broadcast.
func (l *List) each(call string, fn func(Listener)) {
	l.mu.RLock()
	snapshot := make([]Listener, len(l.listeners))
	copy(snapshot, l.listeners)
	l.mu.RUnlock()

	for i, p := range snapshot {
		l.deliver(call, i, p, fn)
	}
}

func (l *List) deliver(call string, index int, p Listener, fn func(Listener)) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().
				Str("call", call).
				Int("listener", index).
				Str("panic", fmt.Sprint(r)).
				Msg("listener failed, continuing with the next one")
		}
	}()
	fn(p)
}
