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
	"time"
)

// 🎧 Listener receives progress events for one logical operation
type Listener interface {
	// SetTask describes what the operation is doing now
	SetTask(task string)
	// SetStarted marks the operation as running
	SetStarted()
	// SetProgress reports percent complete, 0 to 100
	SetProgress(percent float64)
	// SetCompleted marks the operation as done
	SetCompleted()
	// Cancel marks the operation as cancelled
	Cancel()
	// ReportWarning records a non fatal problem
	ReportWarning(source, location, message string)
	// ReportFailure records a fatal problem
	ReportFailure(err error)
	// Reset clears accumulated warnings and failures
	Reset()
}

// ⚠️ Warning is a non fatal problem reported to a listener
type Warning struct {
	Source   string // what raised it
	Location string // where it happened (a path, a goroutine role)
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s]: %s", w.Source, w.Location, w.Message)
}

// 📊 Kind tags an Event
type Kind int

const (
	KindTaskChanged Kind = iota + 1
	KindStarted
	KindProgress
	KindCompleted
	KindWarning
	KindFailure
	KindCancelled
)

var kindNames = [...]string{
	KindTaskChanged: "task",
	KindStarted:     "started",
	KindProgress:    "progress",
	KindCompleted:   "completed",
	KindWarning:     "warning",
	KindFailure:     "failure",
	KindCancelled:   "cancelled",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// 📨 Event is one listener call captured as a value
type Event struct {
	Kind    Kind
	Time    time.Time
	Task    string  // KindTaskChanged
	Percent float64 // KindProgress
	Warning Warning // KindWarning
	Err     error   // KindFailure
}

func (e Event) String() string {
	switch e.Kind {
	case KindTaskChanged:
		return fmt.Sprintf("task(%s)", e.Task)
	case KindProgress:
		return fmt.Sprintf("progress(%.0f)", e.Percent)
	case KindWarning:
		return fmt.Sprintf("warning(%s)", e.Warning)
	case KindFailure:
		return fmt.Sprintf("failure(%v)", e.Err)
	default:
		return e.Kind.String()
	}
}

// 🔁 Func adapts a callback into a Listener; every call becomes an Event.
// Reset is ignored since a Func keeps no history.
type Func func(Event)

func (f Func) emit(e Event) {
	e.Time = time.Now()
	f(e)
}

func (f Func) SetTask(task string)         { f.emit(Event{Kind: KindTaskChanged, Task: task}) }
func (f Func) SetStarted()                 { f.emit(Event{Kind: KindStarted}) }
func (f Func) SetProgress(percent float64) { f.emit(Event{Kind: KindProgress, Percent: percent}) }
func (f Func) SetCompleted()               { f.emit(Event{Kind: KindCompleted}) }
func (f Func) Cancel()                     { f.emit(Event{Kind: KindCancelled}) }
func (f Func) ReportFailure(err error)     { f.emit(Event{Kind: KindFailure, Err: err}) }
func (f Func) Reset()                      {}

func (f Func) ReportWarning(source, location, message string) {
	f.emit(Event{Kind: KindWarning, Warning: Warning{Source: source, Location: location, Message: message}})
}
