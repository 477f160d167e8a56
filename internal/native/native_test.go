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
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/logging"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/bridge"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

type mockEndpoint struct {
	name     string
	mu       sync.Mutex
	sent     []core.Message
	attempts int
	sendErr  error
	onSend   func(core.Message)
}

func (m *mockEndpoint) Name() string                     { return m.name }
func (m *mockEndpoint) Type() string                     { return "mock" }
func (m *mockEndpoint) Connect(context.Context) error    { return nil }
func (m *mockEndpoint) Disconnect(context.Context) error { return nil }

func (m *mockEndpoint) StartConsumer(ctx context.Context, _ chan<- core.BrokerMessage) error {
	<-ctx.Done()
	return nil
}

func (m *mockEndpoint) Send(_ context.Context, msg core.Message) error {
	m.mu.Lock()
	m.attempts++
	if m.sendErr != nil {
		m.mu.Unlock()
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	hook := m.onSend
	m.mu.Unlock()
	if hook != nil {
		go hook(msg)
	}
	return nil
}

func (m *mockEndpoint) messages() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Message(nil), m.sent...)
}

type staticEndpoints struct {
	endpoints map[string]core.Endpoint
	unhealthy map[string]bool
}

func (s staticEndpoints) Endpoints() map[string]core.Endpoint { return s.endpoints }

func (s staticEndpoints) IsEndpointHealthy(name string) bool { return !s.unhealthy[name] }

type recordingHandler struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (h *recordingHandler) HandleNative(_ context.Context, kind string, _ map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kinds = append(h.kinds, kind)
	return h.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRelay(timeout time.Duration, endpoints ...*mockEndpoint) *Relay {
	set := staticEndpoints{endpoints: map[string]core.Endpoint{}}
	for _, ep := range endpoints {
		set.endpoints[ep.name] = ep
	}
	logger := testLogger()
	return NewRelay(set, timeout, logger, logging.NewEventLogger(logger))
}

func decodeCommand(t *testing.T, msg core.Message) commandEnvelope {
	t.Helper()
	var env commandEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		t.Fatalf("invalid command payload: %v", err)
	}
	return env
}

func TestExecutePublishesToEveryEndpoint(t *testing.T) {
	a := &mockEndpoint{name: "a"}
	b := &mockEndpoint{name: "b"}
	relay := newTestRelay(time.Second, a, b)

	cmd := bridge.Command{Name: "trackEvent", Args: map[string]any{"eventName": "purchase"}}
	if err := relay.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ep := range []*mockEndpoint{a, b} {
		msgs := ep.messages()
		if len(msgs) != 1 {
			t.Fatalf("endpoint %s: expected 1 message, got %d", ep.name, len(msgs))
		}
		env := decodeCommand(t, msgs[0])
		if env.Name != "trackEvent" || env.CorrelationID != "" || env.Args["eventName"] != "purchase" {
			t.Fatalf("unexpected envelope: %+v", env)
		}
		if msgs[0].Metadata["command"] != "trackEvent" {
			t.Fatalf("unexpected metadata: %v", msgs[0].Metadata)
		}
	}
}

func TestExecuteWithoutEndpoints(t *testing.T) {
	relay := newTestRelay(time.Second)
	err := relay.Execute(context.Background(), bridge.Command{Name: "flushData"})
	if !errors.Is(err, core.ErrNoEndpoints) {
		t.Fatalf("expected ErrNoEndpoints, got %v", err)
	}
}

func TestExecuteAllEndpointsFail(t *testing.T) {
	ep := &mockEndpoint{name: "broken", sendErr: errors.New("connection refused")}
	relay := newTestRelay(time.Second, ep)
	err := relay.Execute(context.Background(), bridge.Command{Name: "flushData"})
	if !errors.Is(err, core.ErrEndpointUnavailable) {
		t.Fatalf("expected ErrEndpointUnavailable, got %v", err)
	}
}

func TestBreakerSkipsFailingEndpoint(t *testing.T) {
	ep := &mockEndpoint{name: "broken", sendErr: errors.New("connection refused")}
	relay := newTestRelay(time.Second, ep)

	for i := 0; i < breakerTrip+3; i++ {
		err := relay.Execute(context.Background(), bridge.Command{Name: "flushData"})
		if !errors.Is(err, core.ErrEndpointUnavailable) {
			t.Fatalf("attempt %d: expected ErrEndpointUnavailable, got %v", i, err)
		}
	}

	ep.mu.Lock()
	attempts := ep.attempts
	ep.mu.Unlock()
	if attempts != breakerTrip {
		t.Fatalf("expected %d send attempts before the breaker opened, got %d", breakerTrip, attempts)
	}
}

func TestFetchCorrelatesReply(t *testing.T) {
	ep := &mockEndpoint{name: "kafka-main"}
	relay := newTestRelay(time.Second, ep)
	ep.onSend = func(msg core.Message) {
		relay.Complete(msg.Metadata["correlation_id"], []any{"consent"}, "")
	}

	got, err := relay.Fetch(context.Background(), bridge.Command{Name: "fetchConsents"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 1 || list[0] != "consent" {
		t.Fatalf("unexpected reply: %v", got)
	}
	if relay.Waiting() != 0 {
		t.Fatalf("expected no waiting fetches, got %d", relay.Waiting())
	}
}

func TestFetchReplyError(t *testing.T) {
	ep := &mockEndpoint{name: "kafka-main"}
	relay := newTestRelay(time.Second, ep)
	ep.onSend = func(msg core.Message) {
		relay.Complete(msg.Metadata["correlation_id"], nil, "server unavailable")
	}

	_, err := relay.Fetch(context.Background(), bridge.Command{Name: "fetchConsents"})
	if !errors.Is(err, core.ErrFetchFailed) || err.Error() != "Data fetching failed: server unavailable" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	relay := newTestRelay(20*time.Millisecond, &mockEndpoint{name: "silent"})
	_, err := relay.Fetch(context.Background(), bridge.Command{Name: "fetchAppInbox"})
	if !errors.Is(err, core.ErrFetchFailed) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if relay.Complete("unknown", nil, "") {
		t.Fatal("expected late reply to be ignored")
	}
}

func brokerMessage(t *testing.T, payload any) (core.BrokerMessage, *int, *int) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	acks, nacks := new(int), new(int)
	return core.BrokerMessage{
		Message: core.Message{ID: "m1", SourceID: "native", Payload: body},
		Ack:     func() error { *acks++; return nil },
		Nack:    func() error { *nacks++; return nil },
	}, acks, nacks
}

func TestIngestorRoutesCallbacks(t *testing.T) {
	handler := &recordingHandler{}
	logger := testLogger()
	ing := NewIngestor(newTestRelay(time.Second), handler, logger, logging.NewEventLogger(logger))

	msg, acks, _ := brokerMessage(t, map[string]any{"kind": "pushReceived", "data": map[string]any{"k": "v"}})
	ing.Process(context.Background(), msg)

	if len(handler.kinds) != 1 || handler.kinds[0] != "pushReceived" {
		t.Fatalf("unexpected callbacks: %v", handler.kinds)
	}
	if *acks != 1 {
		t.Fatalf("expected message acked, got %d", *acks)
	}
}

func TestIngestorCompletesFetch(t *testing.T) {
	ep := &mockEndpoint{name: "mqtt"}
	relay := newTestRelay(time.Second, ep)
	handler := &recordingHandler{}
	logger := testLogger()
	ing := NewIngestor(relay, handler, logger, logging.NewEventLogger(logger))

	ep.onSend = func(sent core.Message) {
		msg, _, _ := brokerMessage(t, map[string]any{
			"correlationId": sent.Metadata["correlation_id"],
			"data":          "cookie-123",
		})
		ing.Process(context.Background(), msg)
	}

	got, err := relay.Fetch(context.Background(), bridge.Command{Name: "getCustomerCookie"})
	if err != nil || got != "cookie-123" {
		t.Fatalf("unexpected reply: %v, %v", got, err)
	}
	if len(handler.kinds) != 0 {
		t.Fatalf("expected reply not treated as callback, got %v", handler.kinds)
	}
}

func TestIngestorAcksRejectedAndMalformed(t *testing.T) {
	handler := &recordingHandler{err: errors.New("bad data")}
	logger := testLogger()
	ing := NewIngestor(newTestRelay(time.Second), handler, logger, logging.NewEventLogger(logger))

	msg, acks, nacks := brokerMessage(t, map[string]any{"kind": "inAppAction"})
	ing.Process(context.Background(), msg)
	if *acks != 1 || *nacks != 0 {
		t.Fatalf("expected rejected callback acked, acks=%d nacks=%d", *acks, *nacks)
	}

	malformed := core.BrokerMessage{Message: core.Message{ID: "m2", Payload: []byte("{")}}
	count := 0
	malformed.Ack = func() error { count++; return nil }
	ing.Process(context.Background(), malformed)
	if count != 1 {
		t.Fatalf("expected malformed message acked, got %d", count)
	}
}

func TestIngestorRejectsNonObjectData(t *testing.T) {
	handler := &recordingHandler{}
	logger := testLogger()
	ing := NewIngestor(newTestRelay(time.Second), handler, logger, logging.NewEventLogger(logger))

	for _, data := range []any{[]any{1, 2}, "text", 3} {
		msg, acks, nacks := brokerMessage(t, map[string]any{"kind": "pushReceived", "data": data})
		ing.Process(context.Background(), msg)
		if *acks != 1 || *nacks != 0 {
			t.Fatalf("data %v: expected rejected callback acked, acks=%d nacks=%d", data, *acks, *nacks)
		}
	}
	if len(handler.kinds) != 0 {
		t.Fatalf("expected no callback handled, got %v", handler.kinds)
	}

	msg, _, _ := brokerMessage(t, map[string]any{"kind": "pushReceived"})
	ing.Process(context.Background(), msg)
	if len(handler.kinds) != 1 {
		t.Fatalf("expected absent data to be handled, got %v", handler.kinds)
	}
}

func TestIngestorRunStopsOnClose(t *testing.T) {
	handler := &recordingHandler{}
	logger := testLogger()
	ing := NewIngestor(newTestRelay(time.Second), handler, logger, logging.NewEventLogger(logger))

	ch := make(chan core.BrokerMessage, 1)
	msg, _, _ := brokerMessage(t, map[string]any{"kind": "pushOpened", "data": map[string]any{}})
	ch <- msg
	close(ch)

	done := make(chan struct{})
	go func() {
		ing.Run(context.Background(), ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
	if len(handler.kinds) != 1 {
		t.Fatalf("expected one callback, got %v", handler.kinds)
	}
}
