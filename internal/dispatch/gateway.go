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

package dispatch

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/logging"
	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/pending"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/event"
)

type Stats struct {
	Delivered uint64
	Dropped   uint64
}

// Gateway is the single emission point for native events. Every event passes
// through the pending buffer, and delivered events are encoded and handed to
// the emitter.
type Gateway struct {
	emitter  core.Emitter
	buffer   *pending.Buffer
	logger   *slog.Logger
	eventLog *logging.EventLogger

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func NewGateway(emitter core.Emitter, logger *slog.Logger, eventLog *logging.EventLogger) *Gateway {
	g := &Gateway{
		emitter:  emitter,
		logger:   logger,
		eventLog: eventLog,
	}
	g.buffer = pending.New(emitter.Active, g.deliver)
	return g
}

// Emit records an occurrence. It reports whether the event was delivered now.
func (g *Gateway) Emit(evt event.Event) bool {
	return g.buffer.Occur(evt)
}

func (g *Gateway) StartObserving(k event.Kind) bool {
	delivered := g.buffer.Listen(k)
	g.logger.Debug("listener registered", "event", k.Name(), "flushed", delivered)
	return delivered
}

func (g *Gateway) StopObserving(k event.Kind) {
	g.buffer.Unlisten(k)
	g.logger.Debug("listener removed", "event", k.Name())
}

func (g *Gateway) Observing(k event.Kind) bool {
	return g.buffer.Listening(k)
}

// Resume flushes events held while no listener channel could take them.
func (g *Gateway) Resume() int {
	n := g.buffer.Resume()
	if n > 0 {
		g.logger.Info("flushed held events", "count", n)
	}
	return n
}

func (g *Gateway) State(k event.Kind) pending.State {
	return g.buffer.State(k)
}

func (g *Gateway) Stats() Stats {
	return Stats{
		Delivered: g.delivered.Load(),
		Dropped:   g.dropped.Load(),
	}
}

// deliver reports false when no listener channel took the event, so the
// buffer holds it until the next Resume. An event that cannot be encoded is
// consumed and dropped.
func (g *Gateway) deliver(evt event.Event) bool {
	name := evt.Kind().Name()
	body, err := evt.Encode()
	if err != nil {
		g.dropped.Add(1)
		g.logger.Error("empty data to send for event", "event", name, "error", err)
		return true
	}

	wire := core.WireEvent{Name: name, Body: body, Timestamp: time.Now()}
	channels := g.emitter.Emit(wire)
	if channels == 0 {
		g.logger.Debug("no listener channel took event, holding it", "event", name)
		return false
	}
	g.delivered.Add(1)
	if g.eventLog != nil {
		g.eventLog.Log(wire, channels)
	}
	return true
}
