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
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// 📸 State is a point in time view of a Recorder
type State struct {
	Task      string
	Started   bool
	Completed bool
	Cancelled bool
	Percent   float64
}

// 📼 Recorder is the default Listener. It tracks state, keeps every warning
// and failure until Reset, and logs each call.
type Recorder struct {
	name   string
	logger zerolog.Logger

	mu       sync.RWMutex
	state    State
	warnings []Warning
	failures []error
	events   []Event
}

var _ Listener = (*Recorder)(nil)

// 🏭 NewRecorder creates a recorder; name shows up in every log line
func NewRecorder(name string, logger zerolog.Logger) *Recorder {
	return &Recorder{
		name:   name,
		logger: logger.With().Str("listener", name).Logger(),
	}
}

// Name returns the name given at construction
func (r *Recorder) Name() string {
	return r.name
}

func (r *Recorder) record(e Event) {
	e.Time = time.Now()
	r.events = append(r.events, e)
}

func (r *Recorder) SetTask(task string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Task = task
	r.record(Event{Kind: KindTaskChanged, Task: task})
	r.logger.Debug().Str("task", task).Msg("task changed")
}

func (r *Recorder) SetStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Started = true
	r.state.Completed = false
	r.state.Cancelled = false
	r.record(Event{Kind: KindStarted})
	r.logger.Debug().Msg("started")
}

func (r *Recorder) SetProgress(percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Trace().Float64("old_progress", r.state.Percent).Float64("new_progress", percent).Msg("progress")
	r.state.Percent = percent
	r.record(Event{Kind: KindProgress, Percent: percent})
}

func (r *Recorder) SetCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Completed = true
	r.record(Event{Kind: KindCompleted})
	r.logger.Debug().Msg("completed")
}

func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Cancelled = true
	r.record(Event{Kind: KindCancelled})
	r.logger.Debug().Msg("cancelled")
}

func (r *Recorder) ReportWarning(source, location, message string) {
	w := Warning{Source: source, Location: location, Message: message}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, w)
	r.record(Event{Kind: KindWarning, Warning: w})
	r.logger.Debug().Str("source", source).Str("location", location).Msg(message)
}

func (r *Recorder) ReportFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
	r.record(Event{Kind: KindFailure, Err: err})
	r.logger.Debug().Err(err).Msg("failure")
}

// Reset drops warnings and failures. State and the event log are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = nil
	r.failures = nil
	r.logger.Debug().Msg("reset")
}

// State returns the current state
func (r *Recorder) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Warnings returns a copy of the warnings recorded since the last Reset
func (r *Recorder) Warnings() []Warning {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Warning(nil), r.warnings...)
}

// Failures returns a copy of the failures recorded since the last Reset
func (r *Recorder) Failures() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]error(nil), r.failures...)
}

// Events returns a copy of every event in arrival order
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.events...)
}

// Percents returns every reported percent in arrival order
func (r *Recorder) Percents() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []float64
	for _, e := range r.events {
		if e.Kind == KindProgress {
			out = append(out, e.Percent)
		}
	}
	return out
}
