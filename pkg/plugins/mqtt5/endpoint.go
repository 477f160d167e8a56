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

package mqtt5

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

const inboundBuffer = 64

type Endpoint struct {
	name      string
	brokerURL string
	topicIn   string
	topicOut  string
	cm        *autopaho.ConnectionManager
	logger    *slog.Logger
	router    paho.Router
	inbound   chan *paho.Publish
}

func New(name, brokerURL, topicIn, topicOut string, logger *slog.Logger) *Endpoint {
	e := &Endpoint{
		name:      name,
		brokerURL: brokerURL,
		topicIn:   topicIn,
		topicOut:  topicOut,
		logger:    logger,
		router:    paho.NewStandardRouter(),
		inbound:   make(chan *paho.Publish, inboundBuffer),
	}
	if topicIn != "" {
		e.router.RegisterHandler(topicIn, e.receive)
	}
	return e
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "mqtt5" }

func (e *Endpoint) receive(p *paho.Publish) {
	select {
	case e.inbound <- p:
	default:
		e.logger.Warn("mqtt5 inbound buffer full, callback dropped", "name", e.name, "topic", p.Topic)
	}
}

func (e *Endpoint) Connect(ctx context.Context) error {
	serverURL, err := url.Parse(e.brokerURL)
	if err != nil {
		return fmt.Errorf("mqtt5 invalid URL: %w", err)
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			e.logger.Info("mqtt5 connection up", "name", e.name)
			if e.topicIn == "" {
				return
			}
			// Subscriptions do not survive a clean start, so renew them on every connection.
			if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{{Topic: e.topicIn, QoS: 1}},
			}); err != nil {
				e.logger.Error("mqtt5 subscribe failed", "name", e.name, "topic", e.topicIn, "error", err)
			}
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "engagement-bridge-" + e.name + "-" + uuid.New().String()[:8],
			Router:   e.router,
		},
	}

	e.cm, err = autopaho.NewConnection(ctx, cfg)
	if err != nil {
		return fmt.Errorf("mqtt5 connection: %w", err)
	}

	if err := e.cm.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("mqtt5 await connection: %w", err)
	}

	e.logger.Info("mqtt5 endpoint connected", "name", e.name, "broker", e.brokerURL)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	if e.cm != nil {
		return e.cm.Disconnect(ctx)
	}
	return nil
}

func (e *Endpoint) StartConsumer(ctx context.Context, ch chan<- core.BrokerMessage) error {
	if e.topicIn == "" {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case pub := <-e.inbound:
			md := map[string]string{"mqtt_topic": pub.Topic}
			if pub.Properties != nil {
				for _, p := range pub.Properties.User {
					md[p.Key] = p.Value
				}
				if len(pub.Properties.CorrelationData) > 0 {
					md["correlation_id"] = string(pub.Properties.CorrelationData)
				}
			}
			brokerMsg := core.BrokerMessage{
				Message: core.Message{
					ID:        uuid.New().String(),
					SourceID:  e.name,
					Payload:   pub.Payload,
					Metadata:  md,
					Timestamp: time.Now().UTC(),
				},
			}

			select {
			case ch <- brokerMsg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (e *Endpoint) Send(ctx context.Context, msg core.Message) error {
	if e.topicOut == "" || e.cm == nil {
		return fmt.Errorf("%w: name=%s has no outbound topic", core.ErrEndpointUnavailable, e.name)
	}

	props := &paho.PublishProperties{ContentType: "application/json"}
	for k, v := range msg.Metadata {
		props.User.Add(k, v)
	}
	if id := msg.Metadata["correlation_id"]; id != "" {
		props.CorrelationData = []byte(id)
	}

	_, err := e.cm.Publish(ctx, &paho.Publish{
		Topic:      e.topicOut,
		QoS:        1,
		Payload:    msg.Payload,
		Properties: props,
	})
	return err
}
