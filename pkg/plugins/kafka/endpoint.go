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

package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

// Endpoint publishes SDK commands to topicOut and consumes native callbacks
// from topicIn. All bridge instances of one endpoint share a consumer group.
type Endpoint struct {
	name     string
	brokers  []string
	topicIn  string
	topicOut string
	groupID  string
	writer   *kafka.Writer
	logger   *slog.Logger

	mu     sync.Mutex
	reader *kafka.Reader
}

func New(name string, brokers []string, topicIn, topicOut, groupID string, logger *slog.Logger) *Endpoint {
	if groupID == "" {
		groupID = "engagement-bridge-" + name
	}
	return &Endpoint{
		name:     name,
		brokers:  brokers,
		topicIn:  topicIn,
		topicOut: topicOut,
		groupID:  groupID,
		logger:   logger,
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "kafka" }

func (e *Endpoint) Connect(ctx context.Context) error {
	if e.topicOut != "" {
		e.writer = &kafka.Writer{
			Addr:         kafka.TCP(e.brokers...),
			Topic:        e.topicOut,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	e.logger.Info("kafka endpoint connected",
		"name", e.name,
		"brokers", strings.Join(e.brokers, ","),
		"topic_in", e.topicIn,
		"topic_out", e.topicOut,
		"group_id", e.groupID,
	)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	e.mu.Lock()
	if e.reader != nil {
		e.reader.Close()
		e.reader = nil
	}
	e.mu.Unlock()
	if e.writer != nil {
		return e.writer.Close()
	}
	return nil
}

func (e *Endpoint) StartConsumer(ctx context.Context, ch chan<- core.BrokerMessage) error {
	if e.topicIn == "" {
		<-ctx.Done()
		return nil
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  e.brokers,
		Topic:    e.topicIn,
		GroupID:  e.groupID,
		MaxWait:  500 * time.Millisecond,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	e.mu.Lock()
	e.reader = reader
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		if e.reader == reader {
			e.reader = nil
		}
		e.mu.Unlock()
		reader.Close()
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.logger.Error("kafka fetch error", "name", e.name, "error", err)
			return err
		}

		brokerMsg := core.BrokerMessage{
			Message: core.Message{
				ID:        string(msg.Key),
				SourceID:  e.name,
				Payload:   msg.Value,
				Metadata:  headers(msg),
				Timestamp: msg.Time,
			},
			Ack: func() error {
				return reader.CommitMessages(ctx, msg)
			},
			Nack: func() error {
				return nil
			},
		}

		select {
		case ch <- brokerMsg:
		case <-ctx.Done():
			return nil
		}
	}
}

func headers(msg kafka.Message) map[string]string {
	md := map[string]string{"kafka_key": string(msg.Key), "kafka_topic": msg.Topic}
	for _, h := range msg.Headers {
		md[h.Key] = string(h.Value)
	}
	return md
}

func (e *Endpoint) Send(ctx context.Context, msg core.Message) error {
	if e.writer == nil {
		return fmt.Errorf("%w: name=%s has no outbound topic", core.ErrEndpointUnavailable, e.name)
	}
	hs := make([]kafka.Header, 0, len(msg.Metadata))
	for k, v := range msg.Metadata {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return e.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.ID),
		Value:   msg.Payload,
		Headers: hs,
		Time:    msg.Timestamp,
	})
}
