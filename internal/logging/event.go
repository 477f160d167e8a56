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

package logging

import (
	"log/slog"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

// EventLogger writes one audit line per event or broker message crossing the bridge.
type EventLogger struct {
	logger *slog.Logger
}

func NewEventLogger(logger *slog.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Log records an outbound event and the number of channels it reached.
func (l *EventLogger) Log(evt core.WireEvent, channels int) {
	l.logger.Info("event",
		"name", evt.Name,
		"body_size", bodySize(evt.Body),
		"channels", channels,
		"timestamp", evt.Timestamp,
	)
}

// LogMessage records a broker message exchanged with the native SDK.
func (l *EventLogger) LogMessage(msg core.Message, endpoint string, direction string) {
	l.logger.Info("message",
		"message_id", msg.ID,
		"source_id", msg.SourceID,
		"endpoint", endpoint,
		"direction", direction,
		"payload_size", len(msg.Payload),
		"timestamp", msg.Timestamp,
	)
}

func bodySize(body any) int {
	switch b := body.(type) {
	case string:
		return len(b)
	case []byte:
		return len(b)
	case nil:
		return 0
	default:
		return -1
	}
}
