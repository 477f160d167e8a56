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

package solace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"solace.dev/go/messaging"
	"solace.dev/go/messaging/pkg/solace"
	"solace.dev/go/messaging/pkg/solace/config"
	"solace.dev/go/messaging/pkg/solace/message"
	"solace.dev/go/messaging/pkg/solace/resource"
)

const terminateGrace = 5 * time.Second

type Endpoint struct {
	name      string
	host      string
	vpn       string
	username  string
	password  string
	topicIn   string
	topicOut  string
	service   solace.MessagingService
	publisher solace.DirectMessagePublisher
	logger    *slog.Logger
}

func New(name, host, vpn, username, password, topicIn, topicOut string, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		name:     name,
		host:     host,
		vpn:      vpn,
		username: username,
		password: password,
		topicIn:  topicIn,
		topicOut: topicOut,
		logger:   logger,
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "solace" }

func (e *Endpoint) Connect(ctx context.Context) error {
	var err error
	e.service, err = messaging.NewMessagingServiceBuilder().
		FromConfigurationProvider(config.ServicePropertyMap{
			config.TransportLayerPropertyHost:                e.host,
			config.ServicePropertyVPNName:                    e.vpn,
			config.AuthenticationPropertySchemeBasicUserName: e.username,
			config.AuthenticationPropertySchemeBasicPassword: e.password,
		}).Build()
	if err != nil {
		return fmt.Errorf("solace build: %w", err)
	}
	if err = e.service.Connect(); err != nil {
		return fmt.Errorf("solace connect: %w", err)
	}

	if e.topicOut != "" {
		e.publisher, err = e.service.CreateDirectMessagePublisherBuilder().Build()
		if err != nil {
			return fmt.Errorf("solace publisher build: %w", err)
		}
		if err = e.publisher.Start(); err != nil {
			return fmt.Errorf("solace publisher start: %w", err)
		}
	}

	e.logger.Info("solace endpoint connected", "name", e.name, "host", e.host, "topic_in", e.topicIn, "topic_out", e.topicOut)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	if e.publisher != nil {
		e.publisher.Terminate(terminateGrace)
	}
	if e.service != nil {
		return e.service.Disconnect()
	}
	return nil
}

// StartConsumer subscribes to topicIn. Direct messaging has no
// acknowledgement, so Ack and Nack are no-ops.
func (e *Endpoint) StartConsumer(ctx context.Context, ch chan<- core.BrokerMessage) error {
	if e.topicIn == "" {
		<-ctx.Done()
		return nil
	}
	if e.service == nil {
		return fmt.Errorf("%w: name=%s not connected", core.ErrEndpointUnavailable, e.name)
	}

	receiver, err := e.service.CreateDirectMessageReceiverBuilder().
		WithSubscriptions(resource.TopicSubscriptionOf(e.topicIn)).
		Build()
	if err != nil {
		return fmt.Errorf("solace receiver build: %w", err)
	}
	if err = receiver.Start(); err != nil {
		return fmt.Errorf("solace receiver start: %w", err)
	}
	defer receiver.Terminate(terminateGrace)

	err = receiver.ReceiveAsync(func(inMsg message.InboundMessage) {
		payload, _ := inMsg.GetPayloadAsBytes()
		md := map[string]string{"solace_topic": inMsg.GetDestinationName()}
		if id, ok := inMsg.GetCorrelationID(); ok && id != "" {
			md["correlation_id"] = id
		}
		brokerMsg := core.BrokerMessage{
			Message: core.Message{
				ID:        uuid.New().String(),
				SourceID:  e.name,
				Payload:   payload,
				Metadata:  md,
				Timestamp: time.Now().UTC(),
			},
			Ack:  func() error { return nil },
			Nack: func() error { return nil },
		}

		select {
		case ch <- brokerMsg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("solace receive: %w", err)
	}

	<-ctx.Done()
	return nil
}

func (e *Endpoint) Send(ctx context.Context, msg core.Message) error {
	if e.publisher == nil {
		return fmt.Errorf("%w: name=%s has no outbound topic", core.ErrEndpointUnavailable, e.name)
	}

	builder := e.service.MessageBuilder()
	for k, v := range msg.Metadata {
		builder = builder.WithProperty(config.MessageProperty(k), v)
	}
	if id := msg.Metadata["correlation_id"]; id != "" {
		builder = builder.WithCorrelationID(id)
	}
	out, err := builder.BuildWithByteArrayPayload(msg.Payload)
	if err != nil {
		return fmt.Errorf("solace build message: %w", err)
	}
	return e.publisher.Publish(out, resource.TopicOf(e.topicOut))
}
