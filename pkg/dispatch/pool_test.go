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

package dispatch_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/copytree/pkg/dispatch"
	"github.com/walteh/copytree/pkg/fault"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func newPool(t *testing.T, opts dispatch.Options) *dispatch.Pool {
	p, err := dispatch.New(testContext(t), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown() })
	return p
}

// blocker parks until released or its context ends
type blocker struct {
	started chan struct{}
	release chan struct{}
}

func newBlocker() *blocker {
	return &blocker{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blocker) Run(ctx context.Context) (string, error) {
	close(b.started)
	select {
	case <-b.release:
		return "released", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := dispatch.New(testContext(t), dispatch.Options{Workers: 0})
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)

	_, err = dispatch.New(testContext(t), dispatch.Options{Workers: 1, QueueSize: -1})
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)
}

func TestSubmitRunsTasks(t *testing.T) {
	p := newPool(t, dispatch.Options{Workers: 4})
	ctx := testContext(t)

	var handles []*dispatch.Handle
	for i := 0; i < 50; i++ {
		i := i
		h, err := p.Submit(dispatch.TaskFunc(func(context.Context) (string, error) {
			return fmt.Sprintf("task-%d", i), nil
		}))
		require.NoError(t, err)
		handles = append(handles, h)
	}

	for i, h := range handles {
		got, err := h.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("task-%d", i), got)
		assert.Equal(t, dispatch.StateDone, h.State())
	}
}

func TestSubmitInvalidArguments(t *testing.T) {
	var nilPool *dispatch.Pool
	_, err := nilPool.Submit(dispatch.TaskFunc(func(context.Context) (string, error) { return "", nil }))
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)

	p := newPool(t, dispatch.Options{Workers: 1})
	_, err = p.Submit(nil)
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)
}

func TestSubmitRejectsWhenSaturated(t *testing.T) {
	p := newPool(t, dispatch.Options{Workers: 1, QueueSize: 1})

	running := newBlocker()
	_, err := p.Submit(running)
	require.NoError(t, err)
	<-running.started

	queued := newBlocker()
	_, err = p.Submit(queued)
	require.NoError(t, err, "one slot in the queue")

	_, err = p.Submit(newBlocker())
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrRejected)

	close(running.release)
	close(queued.release)
}

func TestSubmitRejectsAfterClose(t *testing.T) {
	p, err := dispatch.New(testContext(t), dispatch.Options{Workers: 2})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "close twice is fine")

	_, err = p.Submit(dispatch.TaskFunc(func(context.Context) (string, error) { return "", nil }))
	assert.ErrorIs(t, err, fault.ErrRejected)
}

func TestCloseDrainsQueuedTasks(t *testing.T) {
	p, err := dispatch.New(testContext(t), dispatch.Options{Workers: 1, QueueSize: 10})
	require.NoError(t, err)

	var ran atomic.Int32
	var handles []*dispatch.Handle
	for i := 0; i < 10; i++ {
		h, err := p.Submit(dispatch.TaskFunc(func(context.Context) (string, error) {
			ran.Add(1)
			return "", nil
		}))
		require.NoError(t, err)
		handles = append(handles, h)
	}

	require.NoError(t, p.Close())
	assert.Equal(t, int32(10), ran.Load())
	for _, h := range handles {
		assert.Equal(t, dispatch.StateDone, h.State())
	}
}

func TestCancelPendingHandle(t *testing.T) {
	p := newPool(t, dispatch.Options{Workers: 1, QueueSize: 4})
	ctx := testContext(t)

	running := newBlocker()
	_, err := p.Submit(running)
	require.NoError(t, err)
	<-running.started

	var ran atomic.Bool
	pending, err := p.Submit(dispatch.TaskFunc(func(context.Context) (string, error) {
		ran.Store(true)
		return "should not run", nil
	}))
	require.NoError(t, err)

	assert.True(t, pending.Cancel())
	assert.Equal(t, dispatch.StateCancelled, pending.State())
	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, fault.ErrCancelled)

	close(running.release)
	require.NoError(t, p.Close())
	assert.False(t, ran.Load(), "a cancelled pending task never runs")
	assert.False(t, pending.Cancel(), "cancelling a resolved handle is a no-op")
}

func TestCancelRunningHandle(t *testing.T) {
	p := newPool(t, dispatch.Options{Workers: 1})
	ctx := testContext(t)

	running := newBlocker()
	h, err := p.Submit(running)
	require.NoError(t, err)
	<-running.started

	assert.True(t, h.Cancel())
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, dispatch.StateCancelled, h.State())
}

func TestCancelAllSkipsCompleted(t *testing.T) {
	p := newPool(t, dispatch.Options{Workers: 1, QueueSize: 4})
	ctx := testContext(t)

	done, err := p.Submit(dispatch.TaskFunc(func(context.Context) (string, error) { return "ok", nil }))
	require.NoError(t, err)
	_, err = done.Wait(ctx)
	require.NoError(t, err)

	running := newBlocker()
	r, err := p.Submit(running)
	require.NoError(t, err)
	<-running.started

	q, err := p.Submit(newBlocker())
	require.NoError(t, err)

	assert.Equal(t, 2, dispatch.CancelAll([]*dispatch.Handle{done, r, q, nil}))

	got, err := done.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", got, "completed handles keep their result")
}

func TestTaskErrorAndPanic(t *testing.T) {
	p := newPool(t, dispatch.Options{Workers: 2})
	ctx := testContext(t)

	failing, err := p.Submit(dispatch.TaskFunc(func(context.Context) (string, error) {
		return "", errors.New("copy failed")
	}))
	require.NoError(t, err)
	_, err = failing.Wait(ctx)
	assert.EqualError(t, err, "copy failed")
	assert.Equal(t, dispatch.StateDone, failing.State())

	panicking, err := p.Submit(dispatch.TaskFunc(func(context.Context) (string, error) {
		panic("kaboom")
	}))
	require.NoError(t, err)
	_, err = panicking.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestWaitHonorsContext(t *testing.T) {
	p := newPool(t, dispatch.Options{Workers: 1})

	running := newBlocker()
	h, err := p.Submit(running)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(testContext(t), 20*time.Millisecond)
	defer cancel()
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(running.release)
}

// saturate fills a single worker and a single queue slot, returning the
// release funcs in submission order
func saturate(t *testing.T, p *dispatch.Pool) (release func()) {
	t.Helper()
	running := newBlocker()
	_, err := p.Submit(running)
	require.NoError(t, err)
	<-running.started

	queued := newBlocker()
	_, err = p.Submit(queued)
	require.NoError(t, err)

	return func() {
		close(running.release)
		close(queued.release)
	}
}

func TestSubmitWaitBlocksUntilSlotFrees(t *testing.T) {
	p := newPool(t, dispatch.Options{Workers: 1, QueueSize: 1})
	release := saturate(t, p)

	type submitted struct {
		h   *dispatch.Handle
		err error
	}
	result := make(chan submitted, 1)
	go func() {
		h, err := p.SubmitWait(testContext(t), dispatch.TaskFunc(func(context.Context) (string, error) {
			return "late", nil
		}))
		result <- submitted{h, err}
	}()

	select {
	case <-result:
		t.Fatal("SubmitWait returned while the queue was full")
	case <-time.After(30 * time.Millisecond):
	}

	release()

	got := <-result
	require.NoError(t, got.err)
	out, err := got.h.Wait(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "late", out)
}

func TestSubmitWaitHonorsContext(t *testing.T) {
	p := newPool(t, dispatch.Options{Workers: 1, QueueSize: 1})
	release := saturate(t, p)
	defer release()

	ctx, cancel := context.WithTimeout(testContext(t), 20*time.Millisecond)
	defer cancel()

	_, err := p.SubmitWait(ctx, newBlocker())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitWaitRejectsAfterClose(t *testing.T) {
	p, err := dispatch.New(testContext(t), dispatch.Options{Workers: 1})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.SubmitWait(testContext(t), newBlocker())
	assert.ErrorIs(t, err, fault.ErrRejected)

	_, err = p.SubmitWait(testContext(t), nil)
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)
}
