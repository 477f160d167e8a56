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

package bridge

import (
	"context"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/event"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/model"
)

// HandleNative converts a callback raised by the native SDK and hands it to
// the event sink. Callbacks that carry nothing deliverable are dropped
// without an error.
func (m *Module) HandleNative(_ context.Context, kind string, data map[string]any) error {
	k, ok := event.KindByName(kind)
	if !ok {
		return core.InvalidValue("kind", kind)
	}
	data, err := marshal.NormalizeMap(data)
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}

	var evt event.Event
	switch k {
	case event.KindPushOpened:
		evt, err = openedPushEvent(data)
	case event.KindPushReceived:
		evt = event.PushReceived{Data: data}
	case event.KindInAppAction:
		evt, err = inAppActionEvent(data)
	case event.KindSegmentsUpdate:
		evt, err = m.segmentsEvent(data)
	}
	if err != nil {
		return err
	}
	if evt == nil {
		m.logger.Debug("native callback dropped", "kind", kind)
		return nil
	}

	m.events.Emit(evt)
	return nil
}

// openedPushEvent accepts either an opened push or a clicked notification action.
func openedPushEvent(data map[string]any) (event.Event, error) {
	if _, ok := data["actionType"]; ok {
		action, err := model.NotificationActionFromMap(data)
		if err != nil || action == nil {
			return nil, err
		}
		additional, err := marshal.Optional[map[string]any](data, "additionalData")
		if err != nil {
			return nil, err
		}
		var extra map[string]any
		if additional != nil {
			extra = *additional
		}
		return event.PushOpened{Push: action.OpenedPush(extra)}, nil
	}

	push, err := model.OpenedPushFromMap(data)
	if err != nil || push == nil {
		return nil, err
	}
	return event.PushOpened{Push: *push}, nil
}

func inAppActionEvent(data map[string]any) (event.Event, error) {
	action, err := model.InAppMessageActionFromMap(data)
	if err != nil || action == nil {
		return nil, err
	}
	return event.InAppAction{Action: *action}, nil
}

func (m *Module) segmentsEvent(data map[string]any) (event.Event, error) {
	update, err := model.SegmentationUpdateFromMap(data)
	if err != nil {
		return nil, err
	}
	if _, ok := m.segmentationCallback(update.CallbackID); !ok {
		m.logger.Warn("segments update for unknown callback dropped", "callback_id", update.CallbackID)
		return nil, nil
	}
	return event.SegmentsUpdate{Update: *update}, nil
}
