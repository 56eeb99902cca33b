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

// Package dispatch runs tasks on a bounded pool of worker goroutines and hands
// back a Handle per submission.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/walteh/copytree/pkg/fault"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultQueueSize is used when Options.QueueSize is not set
const DefaultQueueSize = 1024

// 🔧 Task is one unit of work; the string result is handed back through its Handle
type Task interface {
	Run(ctx context.Context) (string, error)
}

// TaskFunc adapts a function into a Task
type TaskFunc func(ctx context.Context) (string, error)

func (f TaskFunc) Run(ctx context.Context) (string, error) {
	return f(ctx)
}

// ⚙️ Options configures a Pool
type Options struct {
	// Workers is the number of goroutines executing tasks. Required.
	Workers int
	// QueueSize bounds how many submitted tasks may wait for a worker.
	// Submit fails with fault.ErrRejected once the queue is full, SubmitWait
	// blocks until a slot frees up.
	QueueSize int
}

// 🏊 Pool is a fixed size worker pool with a bounded queue
type Pool struct {
	ctx    context.Context
	stop   context.CancelFunc
	logger zerolog.Logger
	queue  chan *Handle
	group  errgroup.Group
	nextID atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// 🏭 New starts opts.Workers goroutines. Cancelling ctx cancels every running
// task; use Close for an orderly shutdown.
func New(ctx context.Context, opts Options) (*Pool, error) {
	if opts.Workers < 1 {
		return nil, fault.Invalid("workers must be at least 1, got %d", opts.Workers)
	}
	if opts.QueueSize < 0 {
		return nil, fault.Invalid("queue size must not be negative, got %d", opts.QueueSize)
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = DefaultQueueSize
	}

	pctx, stop := context.WithCancel(ctx)
	p := &Pool{
		ctx:    pctx,
		stop:   stop,
		logger: zerolog.Ctx(ctx).With().Str("component", "dispatch").Logger(),
		queue:  make(chan *Handle, opts.QueueSize),
	}

	for i := 0; i < opts.Workers; i++ {
		worker := i
		p.group.Go(func() error {
			p.work(worker)
			return nil
		})
	}

	p.logger.Debug().Int("workers", opts.Workers).Int("queue", opts.QueueSize).Msg("pool started")
	return p, nil
}

func (p *Pool) work(worker int) {
	for h := range p.queue {
		p.logger.Trace().Int("worker", worker).Uint64("task", h.id).Msg("running task")
		h.run()
	}
}

// 📥 Submit queues task without blocking. A nil pool or task yields
// fault.ErrInvalidArgument; a full queue or a closed pool yields fault.ErrRejected.
func (p *Pool) Submit(task Task) (*Handle, error) {
	if p == nil {
		return nil, fault.Invalid("nil dispatcher")
	}
	if task == nil {
		return nil, fault.Invalid("nil task")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, fault.Rejected("dispatcher is shut down")
	}

	h := newHandle(p.ctx, p.nextID.Add(1), task)
	select {
	case p.queue <- h:
		return h, nil
	default:
		h.cancel()
		return nil, fault.Rejected("dispatcher queue is full (%d tasks waiting)", cap(p.queue))
	}
}

// ⏳ SubmitWait queues task, blocking while the queue is full. It gives up
// with ctx's error once ctx is done, and with fault.ErrRejected when the pool
// is closed or shut down.
func (p *Pool) SubmitWait(ctx context.Context, task Task) (*Handle, error) {
	if p == nil {
		return nil, fault.Invalid("nil dispatcher")
	}
	if task == nil {
		return nil, fault.Invalid("nil task")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, fault.Rejected("dispatcher is shut down")
	}

	h := newHandle(p.ctx, p.nextID.Add(1), task)
	select {
	case p.queue <- h:
		return h, nil
	default:
	}

	p.logger.Trace().Uint64("task", h.id).Msg("queue full, waiting for a slot")
	select {
	case p.queue <- h:
		return h, nil
	case <-ctx.Done():
		h.cancel()
		return nil, errors.Errorf("waiting for a queue slot: %w", ctx.Err())
	case <-p.ctx.Done():
		h.cancel()
		return nil, fault.Rejected("dispatcher is shut down")
	}
}

// 🔒 Close stops accepting tasks, lets queued tasks drain, and waits for the
// workers. Calling Close more than once is safe.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	err := p.group.Wait()
	p.stop()
	p.logger.Debug().Msg("pool closed")
	return err
}

// 💥 Shutdown cancels every running task, resolves queued ones as cancelled
// and waits for the workers.
func (p *Pool) Shutdown() error {
	p.stop()

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	// queued handles see a cancelled context; cancel them before a worker picks them up
	CancelAll(p.drain())
	return p.group.Wait()
}

// drain takes whatever is still queued, racing the workers for it
func (p *Pool) drain() []*Handle {
	var out []*Handle
	for h := range p.queue {
		out = append(out, h)
	}
	return out
}
