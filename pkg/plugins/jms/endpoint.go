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

package jms

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Azure/go-amqp"
	"github.com/google/uuid"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

// Endpoint speaks AMQP 1.0 to a JMS-style broker queue pair.
type Endpoint struct {
	name     string
	url      string
	queueIn  string
	queueOut string
	conn     *amqp.Conn
	sendSess *amqp.Session
	logger   *slog.Logger

	// amqp senders are not safe for concurrent use.
	sendMu sync.Mutex
	sender *amqp.Sender
}

func New(name, url, queueIn, queueOut string, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		name:     name,
		url:      url,
		queueIn:  queueIn,
		queueOut: queueOut,
		logger:   logger,
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "jms" }

func (e *Endpoint) Connect(ctx context.Context) error {
	var err error
	e.conn, err = amqp.Dial(ctx, e.url, nil)
	if err != nil {
		return fmt.Errorf("jms dial: %w", err)
	}

	if e.queueOut != "" {
		e.sendSess, err = e.conn.NewSession(ctx, nil)
		if err != nil {
			return fmt.Errorf("jms send session: %w", err)
		}
		e.sender, err = e.sendSess.NewSender(ctx, e.queueOut, nil)
		if err != nil {
			return fmt.Errorf("jms sender: %w", err)
		}
	}

	e.logger.Info("jms endpoint connected", "name", e.name, "url", e.url, "queue_in", e.queueIn, "queue_out", e.queueOut)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	e.sendMu.Lock()
	if e.sender != nil {
		e.sender.Close(ctx)
		e.sender = nil
	}
	e.sendMu.Unlock()
	if e.sendSess != nil {
		e.sendSess.Close(ctx)
	}
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}

func (e *Endpoint) StartConsumer(ctx context.Context, ch chan<- core.BrokerMessage) error {
	if e.queueIn == "" {
		<-ctx.Done()
		return nil
	}
	if e.conn == nil {
		return fmt.Errorf("%w: name=%s not connected", core.ErrEndpointUnavailable, e.name)
	}

	recvSess, err := e.conn.NewSession(ctx, nil)
	if err != nil {
		return fmt.Errorf("jms consumer session: %w", err)
	}

	receiver, err := recvSess.NewReceiver(ctx, e.queueIn, &amqp.ReceiverOptions{
		Credit: 1,
	})
	if err != nil {
		recvSess.Close(ctx)
		return fmt.Errorf("jms receiver: %w", err)
	}

	// Closing with ctx would fail once it is cancelled.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		receiver.Close(closeCtx)
		recvSess.Close(closeCtx)
	}()

	for {
		msg, err := receiver.Receive(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("jms receive: %w", err)
		}

		amqpMsg := msg
		brokerMsg := core.BrokerMessage{
			Message: core.Message{
				ID:        messageID(amqpMsg),
				SourceID:  e.name,
				Payload:   amqpMsg.GetData(),
				Metadata:  metadata(e.queueIn, amqpMsg),
				Timestamp: time.Now().UTC(),
			},
			Ack:  func() error { return receiver.AcceptMessage(context.Background(), amqpMsg) },
			Nack: func() error { return receiver.RejectMessage(context.Background(), amqpMsg, nil) },
		}

		select {
		case ch <- brokerMsg:
		case <-ctx.Done():
			return nil
		}
	}
}

func messageID(msg *amqp.Message) string {
	if msg.Properties != nil {
		if id, ok := msg.Properties.MessageID.(string); ok && id != "" {
			return id
		}
	}
	return uuid.New().String()
}

func metadata(queue string, msg *amqp.Message) map[string]string {
	md := map[string]string{"jms_queue": queue}
	if msg.Properties != nil {
		if id, ok := msg.Properties.CorrelationID.(string); ok && id != "" {
			md["correlation_id"] = id
		}
	}
	for k, v := range msg.ApplicationProperties {
		if s, ok := v.(string); ok {
			md[k] = s
		}
	}
	return md
}

func (e *Endpoint) Send(ctx context.Context, msg core.Message) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	if e.sender == nil {
		return fmt.Errorf("%w: name=%s has no outbound queue", core.ErrEndpointUnavailable, e.name)
	}

	props := make(map[string]any, len(msg.Metadata))
	for k, v := range msg.Metadata {
		props[k] = v
	}
	out := &amqp.Message{
		Data: [][]byte{msg.Payload},
		Properties: &amqp.MessageProperties{
			MessageID:   msg.ID,
			ContentType: strPtr("application/json"),
		},
		ApplicationProperties: props,
	}
	if id := msg.Metadata["correlation_id"]; id != "" {
		out.Properties.CorrelationID = id
	}
	return e.sender.Send(ctx, out, nil)
}

func strPtr(s string) *string { return &s }
