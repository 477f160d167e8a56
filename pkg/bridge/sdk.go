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

// Package bridge exposes the engagement SDK to the JavaScript runtime.
//
// Module validates every inbound call with the accessor and converter layers
// before anything reaches the native SDK, and turns native callbacks into
// events for the dispatch gateway.
package bridge

import (
	"context"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/event"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/sdkconfig"
)

// Command is a validated instruction for the native SDK. Args only holds
// normalized values.
type Command struct {
	Name string         `json:"command"`
	Args map[string]any `json:"args,omitempty"`
}

// SDK is the native engagement SDK as seen from the bridge.
type SDK interface {
	Configure(ctx context.Context, cfg *sdkconfig.Configuration) error
	// Execute delivers a command without waiting for an answer.
	Execute(ctx context.Context, cmd Command) error
	// Fetch delivers a command and waits for the native reply.
	Fetch(ctx context.Context, cmd Command) (any, error)
}

// EventSink receives converted native events and listener registrations.
type EventSink interface {
	Emit(evt event.Event) bool
	StartObserving(k event.Kind) bool
	StopObserving(k event.Kind)
}
