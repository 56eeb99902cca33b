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

package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/walteh/copytree/pkg/fault"
	"gitlab.com/tozd/go/errors"
)

// 📊 State of a submitted task
type State int32

const (
	StatePending State = iota
	StateRunning
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// 🎫 Handle is the asynchronous result of one submitted Task
type Handle struct {
	id     uint64
	task   Task
	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32
	done   chan struct{}

	// written once before done is closed
	result string
	err    error
}

func newHandle(parent context.Context, id uint64, task Task) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{
		id:     id,
		task:   task,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID is unique within the pool that created the handle
func (h *Handle) ID() uint64 {
	return h.id
}

// Task returns the submitted task
func (h *Handle) Task() Task {
	return h.task
}

// State returns the current state
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Done is closed once the handle resolves
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ⏳ Wait blocks until the handle resolves or ctx is done
func (h *Handle) Wait(ctx context.Context) (string, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return "", errors.Errorf("waiting for task %d: %w", h.id, ctx.Err())
	}
}

// 🛑 Cancel requests cancellation. A pending handle resolves immediately with
// fault.ErrCancelled and never runs; a running handle has its context
// cancelled and may still finish on its own. Returns false if the handle had
// already resolved.
func (h *Handle) Cancel() bool {
	if h.state.CompareAndSwap(int32(StatePending), int32(StateCancelled)) {
		h.cancel()
		h.resolve("", errors.Errorf("task %d: %w", h.id, fault.ErrCancelled))
		return true
	}
	if h.State() == StateRunning {
		h.cancel()
		return true
	}
	return false
}

// run executes the task unless it was cancelled while queued
func (h *Handle) run() {
	if !h.state.CompareAndSwap(int32(StatePending), int32(StateRunning)) {
		return
	}
	defer h.cancel()

	result, err := h.runTask()

	if err != nil && h.ctx.Err() != nil && fault.IsCancellation(err) {
		h.state.Store(int32(StateCancelled))
	} else {
		h.state.Store(int32(StateDone))
	}
	h.resolve(result, err)
}

func (h *Handle) runTask() (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task %d panicked: %v", h.id, r)
		}
	}()
	return h.task.Run(h.ctx)
}

func (h *Handle) resolve(result string, err error) {
	h.result = result
	h.err = err
	close(h.done)
}

// CancelAll requests cancellation of every handle and returns how many were
// still pending or running. Nil handles are skipped.
func CancelAll(handles []*Handle) int {
	n := 0
	for _, h := range handles {
		if h != nil && h.Cancel() {
			n++
		}
	}
	return n
}
