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

package copytree

import (
	"sync"

	"github.com/walteh/copytree/pkg/dispatch"
)

// handleSet collects the handles of one run. Once cancelled, any handle added
// afterwards is cancelled on insertion, so a submit racing Cancel is never missed.
type handleSet struct {
	mu        sync.Mutex
	handles   []*dispatch.Handle
	cancelled bool
}

func (s *handleSet) add(h *dispatch.Handle) {
	s.mu.Lock()
	s.handles = append(s.handles, h)
	cancelled := s.cancelled
	s.mu.Unlock()

	if cancelled {
		h.Cancel()
	}
}

func (s *handleSet) cancelAll() int {
	s.mu.Lock()
	s.cancelled = true
	snapshot := append([]*dispatch.Handle(nil), s.handles...)
	s.mu.Unlock()

	return dispatch.CancelAll(snapshot)
}

func (s *handleSet) snapshot() []*dispatch.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*dispatch.Handle(nil), s.handles...)
}

func (s *handleSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
