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

package core

import "context"

// Entrypoint accepts listener channels from the JavaScript runtime.
type Entrypoint interface {
	Name() string
	Type() string
	Start(ctx context.Context, manager SessionManager) error
	Stop(ctx context.Context) error
}

// Endpoint links the bridge to the native SDK through a broker.
// Commands go out through Send, native callbacks come in through StartConsumer.
type Endpoint interface {
	Name() string
	Type() string
	StartConsumer(ctx context.Context, ch chan<- BrokerMessage) error
	Send(ctx context.Context, msg Message) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

type HealthChecker interface {
	IsEndpointHealthy(name string) bool
}

type SessionManager interface {
	CreateSession(ctx context.Context, entrypointName string, clientID string) (*Session, error)
	DestroySession(sessionID string) error
	Invoke(ctx context.Context, call Call) Result
}

// Invoker executes inbound calls.
type Invoker interface {
	Invoke(ctx context.Context, call Call) Result
}

// Emitter pushes wire events to the listener layer.
// Active reports whether at least one channel to the listener layer is open.
type Emitter interface {
	Emit(evt WireEvent) int
	Active() bool
}

type Session struct {
	ID             string
	ClientID       string
	EntrypointName string
	Downstream     chan Frame
	Upstream       chan Call
	Cancel         context.CancelFunc
}
