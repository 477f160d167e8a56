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

import "time"

type Platform int

const (
	PlatformAndroid Platform = iota
	PlatformIOS
)

func (p Platform) String() string {
	if p == PlatformIOS {
		return "iOS"
	}
	return "Android"
}

type FrameType string

const (
	FrameResult FrameType = "result"
	FrameEvent  FrameType = "event"
)

// Call is a single inbound invocation from the JavaScript runtime.
type Call struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// Rejection is the error triple returned to the caller of a failed call.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
}

// Result resolves or rejects a Call exactly once.
type Result struct {
	ID    string
	Value any
	Error *Rejection
}

func (r Result) Rejected() bool { return r.Error != nil }

// WireEvent is an outbound event on a named channel.
type WireEvent struct {
	Name      string
	Body      any
	Timestamp time.Time
}

// Frame is the unit written to a listener channel.
type Frame struct {
	Type   FrameType  `json:"type"`
	ID     string     `json:"id,omitempty"`
	Result any        `json:"result,omitempty"`
	Error  *Rejection `json:"error,omitempty"`
	Name   string     `json:"name,omitempty"`
	Body   any        `json:"body,omitempty"`
}

func ResultFrame(r Result) Frame {
	return Frame{Type: FrameResult, ID: r.ID, Result: r.Value, Error: r.Error}
}

func EventFrame(evt WireEvent) Frame {
	return Frame{Type: FrameEvent, Name: evt.Name, Body: evt.Body}
}

// Message is a payload exchanged with the native SDK over a broker endpoint.
type Message struct {
	ID        string            `json:"id"`
	SourceID  string            `json:"source_id"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp time.Time         `json:"timestamp"`
}

type BrokerMessage struct {
	Message Message
	Ack     func() error
	Nack    func() error
}

// Route restricts an event channel to a set of entrypoints.
// An event without a route is broadcast to every session.
type Route struct {
	Event   string   `yaml:"event"`
	Targets []string `yaml:"targets"`
}

func (r *Route) Allows(entrypoint string) bool {
	if r == nil || len(r.Targets) == 0 {
		return true
	}
	for _, t := range r.Targets {
		if t == entrypoint {
			return true
		}
	}
	return false
}
