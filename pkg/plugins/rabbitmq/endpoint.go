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

package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

type Endpoint struct {
	name     string
	url      string
	queueIn  string
	queueOut string
	conn     *amqp.Connection
	logger   *slog.Logger

	// amqp channels are not safe for concurrent publishing.
	pubMu sync.Mutex
	pubCh *amqp.Channel
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
func (e *Endpoint) Type() string { return "rabbitmq" }

func (e *Endpoint) Connect(ctx context.Context) error {
	var err error
	e.conn, err = amqp.Dial(e.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	e.pubCh, err = e.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq publish channel: %w", err)
	}

	for _, q := range []string{e.queueIn, e.queueOut} {
		if q != "" {
			_, err := e.pubCh.QueueDeclare(q, true, false, false, false, nil)
			if err != nil {
				return fmt.Errorf("rabbitmq queue declare %s: %w", q, err)
			}
		}
	}

	e.logger.Info("rabbitmq endpoint connected", "name", e.name, "queue_in", e.queueIn, "queue_out", e.queueOut)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	e.pubMu.Lock()
	if e.pubCh != nil {
		e.pubCh.Close()
	}
	e.pubMu.Unlock()
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

	consumerCh, err := e.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq consumer channel: %w", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}

	consumerTag := fmt.Sprintf("engagement-bridge-%s-%s", e.name, uuid.New().String()[:8])
	deliveries, err := consumerCh.Consume(
		e.queueIn,
		consumerTag,
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			delivery := d
			id := delivery.MessageId
			if id == "" {
				id = uuid.New().String()
			}
			brokerMsg := core.BrokerMessage{
				Message: core.Message{
					ID:        id,
					SourceID:  e.name,
					Payload:   delivery.Body,
					Metadata:  metadata(delivery),
					Timestamp: time.Now().UTC(),
				},
				Ack:  func() error { return delivery.Ack(false) },
				Nack: func() error { return delivery.Nack(false, true) },
			}

			select {
			case ch <- brokerMsg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func metadata(d amqp.Delivery) map[string]string {
	md := map[string]string{"rabbitmq_routing_key": d.RoutingKey}
	if d.CorrelationId != "" {
		md["correlation_id"] = d.CorrelationId
	}
	for k, v := range d.Headers {
		if s, ok := v.(string); ok {
			md[k] = s
		}
	}
	return md
}

func (e *Endpoint) Send(ctx context.Context, msg core.Message) error {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if e.queueOut == "" || e.pubCh == nil {
		return fmt.Errorf("%w: name=%s has no outbound queue", core.ErrEndpointUnavailable, e.name)
	}

	hdrs := amqp.Table{}
	for k, v := range msg.Metadata {
		hdrs[k] = v
	}
	return e.pubCh.PublishWithContext(ctx,
		"",
		e.queueOut,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          msg.Payload,
			MessageId:     msg.ID,
			CorrelationId: msg.Metadata["correlation_id"],
			Headers:       hdrs,
			Timestamp:     msg.Timestamp,
		},
	)
}
