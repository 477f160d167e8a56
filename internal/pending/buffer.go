// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

// Package pending holds native events that occur while nobody can receive them.
//
// Each event kind is in one of three states. With no listener the slot is
// either empty or holds exactly one event: a newer occurrence replaces the
// older one. With a listener, occurrences are delivered immediately. A kind
// whose listener is registered while the bridge channel is inactive behaves
// like a kind without a listener until Resume is called. The same holds when
// an active channel could not take the event: it stays held.
package pending

import (
	"sync"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/event"
)

type State int

const (
	StateEmpty State = iota
	StatePending
	StateListening
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePending:
		return "pending"
	case StateListening:
		return "listening"
	default:
		return "unknown"
	}
}

type slot struct {
	listening bool
	held      event.Event
}

// DeliverFunc hands an event on and reports whether it was consumed. An event
// that was not consumed is held again.
type DeliverFunc func(event.Event) bool

// Buffer is the only writer of the pending slots. deliver is called with the
// buffer lock held, so per kind it observes events in occurrence order.
type Buffer struct {
	mu      sync.Mutex
	slots   map[event.Kind]*slot
	active  func() bool
	deliver DeliverFunc
}

func New(active func() bool, deliver DeliverFunc) *Buffer {
	if active == nil {
		active = func() bool { return true }
	}
	return &Buffer{
		slots:   make(map[event.Kind]*slot),
		active:  active,
		deliver: deliver,
	}
}

func (b *Buffer) slot(k event.Kind) *slot {
	s, ok := b.slots[k]
	if !ok {
		s = &slot{}
		b.slots[k] = s
	}
	return s
}

// Occur records an occurrence and reports whether it was delivered now.
func (b *Buffer) Occur(evt event.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.slot(evt.Kind())
	if s.listening && b.active() && b.deliver(evt) {
		s.held = nil
		return true
	}
	s.held = evt
	return false
}

// Listen marks the kind as listened to and flushes its held event if the
// channel is active. It reports whether an event was delivered.
func (b *Buffer) Listen(k event.Kind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.slot(k)
	s.listening = true
	return b.flush(s)
}

// Unlisten returns the kind to the empty state, discarding any held event.
func (b *Buffer) Unlisten(k event.Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.slot(k)
	s.listening = false
	s.held = nil
}

// Resume flushes held events of listened kinds once the channel is active.
func (b *Buffer) Resume() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for _, k := range event.Kinds() {
		s, ok := b.slots[k]
		if !ok || !s.listening {
			continue
		}
		if b.flush(s) {
			delivered++
		}
	}
	return delivered
}

func (b *Buffer) flush(s *slot) bool {
	if s.held == nil || !b.active() {
		return false
	}
	if !b.deliver(s.held) {
		return false
	}
	s.held = nil
	return true
}

// State reports the observable state of a kind. A listened kind holding an
// event because the channel is inactive reports StatePending.
func (b *Buffer) State(k event.Kind) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[k]
	switch {
	case !ok:
		return StateEmpty
	case s.held != nil:
		return StatePending
	case s.listening:
		return StateListening
	default:
		return StateEmpty
	}
}

// Pending returns the held event of a kind, if any.
func (b *Buffer) Pending(k event.Kind) (event.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[k]
	if !ok || s.held == nil {
		return nil, false
	}
	return s.held, true
}

func (b *Buffer) Listening(k event.Kind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[k]
	return ok && s.listening
}
