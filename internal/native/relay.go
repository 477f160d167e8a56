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

// Package native links the bridge module to a native SDK reachable through
// broker endpoints. Relay publishes commands, Ingestor consumes callbacks
// and fetch replies.
package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/logging"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/bridge"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/sdkconfig"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	SourceID            = "engagement-bridge"

	// An endpoint is skipped after this many consecutive send failures
	// until breakerCooldown has passed.
	breakerTrip     = 5
	breakerCooldown = 30 * time.Second
)

// Endpoints is the set of broker endpoints commands are published to.
type Endpoints interface {
	Endpoints() map[string]core.Endpoint
	IsEndpointHealthy(name string) bool
}

type commandEnvelope struct {
	CorrelationID string `json:"correlationId,omitempty"`
	bridge.Command
}

type reply struct {
	data any
	err  error
}

// Relay implements bridge.SDK on top of broker endpoints. Every command is
// published to each healthy endpoint. A fetch waits for the first reply
// carrying its correlation id.
type Relay struct {
	endpoints  Endpoints
	timeout    time.Duration
	logger     *slog.Logger
	messageLog *logging.EventLogger

	waiting sync.Map

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
}

func NewRelay(endpoints Endpoints, timeout time.Duration, logger *slog.Logger, messageLog *logging.EventLogger) *Relay {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Relay{
		endpoints:  endpoints,
		timeout:    timeout,
		logger:     logger,
		messageLog: messageLog,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (r *Relay) Configure(ctx context.Context, cfg *sdkconfig.Configuration) error {
	return r.Execute(ctx, bridge.Command{Name: "configure", Args: cfg.ToMap()})
}

func (r *Relay) Execute(ctx context.Context, cmd bridge.Command) error {
	return r.publish(ctx, "", cmd)
}

func (r *Relay) Fetch(ctx context.Context, cmd bridge.Command) (any, error) {
	id := uuid.New().String()
	ch := make(chan reply, 1)
	r.waiting.Store(id, ch)
	defer r.waiting.Delete(id)

	if err := r.publish(ctx, id, cmd); err != nil {
		return nil, err
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case rep := <-ch:
		return rep.data, rep.err
	case <-timer.C:
		r.logger.Warn("fetch timed out", "command", cmd.Name, "correlation_id", id)
		return nil, core.FetchFailed(fmt.Sprintf("no reply to %s within %s", cmd.Name, r.timeout))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Complete resolves a waiting fetch. It reports false when nothing waits on
// the correlation id, e.g. a late reply after a timeout.
func (r *Relay) Complete(correlationID string, data any, errMsg string) bool {
	v, ok := r.waiting.LoadAndDelete(correlationID)
	if !ok {
		return false
	}
	rep := reply{data: data}
	if errMsg != "" {
		rep.err = core.FetchFailed(errMsg)
	}
	v.(chan reply) <- rep
	return true
}

// Waiting returns the number of fetches without a reply.
func (r *Relay) Waiting() int {
	n := 0
	r.waiting.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (r *Relay) publish(ctx context.Context, correlationID string, cmd bridge.Command) error {
	payload, err := json.Marshal(commandEnvelope{CorrelationID: correlationID, Command: cmd})
	if err != nil {
		return fmt.Errorf("encode command %s: %w", cmd.Name, err)
	}

	msg := core.Message{
		ID:        uuid.New().String(),
		SourceID:  SourceID,
		Payload:   payload,
		Metadata:  map[string]string{"command": cmd.Name},
		Timestamp: time.Now(),
	}
	if correlationID != "" {
		msg.Metadata["correlation_id"] = correlationID
	}

	sent := 0
	var errs []error
	for name, ep := range r.endpoints.Endpoints() {
		if !r.endpoints.IsEndpointHealthy(name) {
			continue
		}
		if err := r.send(ctx, ep, msg); err != nil {
			r.logger.Error("command send failed", "endpoint", name, "command", cmd.Name, "error", err)
			errs = append(errs, fmt.Errorf("%w: name=%s: %v", core.ErrEndpointUnavailable, name, err))
			continue
		}
		sent++
		r.messageLog.LogMessage(msg, name, "out")
	}

	if sent == 0 {
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		return fmt.Errorf("%w: command=%s", core.ErrNoEndpoints, cmd.Name)
	}
	return nil
}

func (r *Relay) breaker(name string) *gobreaker.CircuitBreaker {
	r.breakerMu.Lock()
	defer r.breakerMu.Unlock()
	cb, ok := r.breakers[name]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerTrip
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.logger.Warn("endpoint breaker state changed", "endpoint", name, "from", from.String(), "to", to.String())
			},
		})
		r.breakers[name] = cb
	}
	return cb
}

func (r *Relay) send(ctx context.Context, ep core.Endpoint, msg core.Message) error {
	_, err := r.breaker(ep.Name()).Execute(func() (interface{}, error) {
		return nil, ep.Send(ctx, msg)
	})
	return err
}
