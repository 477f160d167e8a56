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

package native

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/logging"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
)

// Handler receives native callbacks.
type Handler interface {
	HandleNative(ctx context.Context, kind string, data map[string]any) error
}

// envelope is the broker payload sent by the native SDK. A message with a
// correlation id answers a fetch, anything else is a callback of Kind.
type envelope struct {
	Kind          string `json:"kind"`
	CorrelationID string `json:"correlationId"`
	Data          any    `json:"data"`
	Error         string `json:"error"`
}

type Ingestor struct {
	relay      *Relay
	handler    Handler
	logger     *slog.Logger
	messageLog *logging.EventLogger
}

func NewIngestor(relay *Relay, handler Handler, logger *slog.Logger, messageLog *logging.EventLogger) *Ingestor {
	return &Ingestor{
		relay:      relay,
		handler:    handler,
		logger:     logger,
		messageLog: messageLog,
	}
}

// Run consumes broker messages until ctx is done or ch is closed.
func (i *Ingestor) Run(ctx context.Context, ch <-chan core.BrokerMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			i.Process(ctx, msg)
		}
	}
}

// Process handles one broker message. Every message that was read is acked,
// including malformed ones and rejected callbacks. Only a panic nacks.
func (i *Ingestor) Process(ctx context.Context, msg core.BrokerMessage) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("ingest panic recovered", "message_id", msg.Message.ID, "error", r)
			nack(msg)
		}
	}()

	i.messageLog.LogMessage(msg.Message, msg.Message.SourceID, "in")

	var env envelope
	if err := json.Unmarshal(msg.Message.Payload, &env); err != nil {
		i.logger.Error("malformed native message", "message_id", msg.Message.ID, "error", err)
		ack(msg)
		return
	}

	if env.CorrelationID != "" {
		if !i.relay.Complete(env.CorrelationID, env.Data, env.Error) {
			i.logger.Warn("reply without waiting fetch", "correlation_id", env.CorrelationID)
		}
		ack(msg)
		return
	}

	if err := i.handle(ctx, env); err != nil {
		i.logger.Error("native callback rejected",
			"message_id", msg.Message.ID,
			"kind", env.Kind,
			"error", err,
		)
	}
	ack(msg)
}

// handle passes callback data on only when it is an object or absent.
func (i *Ingestor) handle(ctx context.Context, env envelope) error {
	var data map[string]any
	if env.Data != nil {
		m, ok := env.Data.(map[string]any)
		if !ok {
			return core.InvalidType("data", "Map", marshal.TypeName(env.Data))
		}
		data = m
	}
	return i.handler.HandleNative(ctx, env.Kind, data)
}

func ack(msg core.BrokerMessage) {
	if msg.Ack != nil {
		_ = msg.Ack()
	}
}

func nack(msg core.BrokerMessage) {
	if msg.Nack != nil {
		_ = msg.Nack()
	}
}
