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

package model

import (
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
)

type PushAction string

const (
	PushActionApp      PushAction = "app"
	PushActionDeeplink PushAction = "deeplink"
	PushActionWeb      PushAction = "web"
)

func ParsePushAction(s string) (PushAction, bool) {
	switch PushAction(s) {
	case PushActionApp, PushActionDeeplink, PushActionWeb:
		return PushAction(s), true
	}
	return "", false
}

// PushActionFromNative maps a native notification action type.
func PushActionFromNative(actionType string) PushAction {
	switch actionType {
	case "deeplink":
		return PushActionDeeplink
	case "browser", "web":
		return PushActionWeb
	default:
		return PushActionApp
	}
}

// OpenedPush is emitted when the user opens a notification.
type OpenedPush struct {
	Action         PushAction
	URL            *string
	AdditionalData map[string]any
}

// OpenedPushFromMap returns nil for an action this bridge does not know.
func OpenedPushFromMap(m map[string]any) (*OpenedPush, error) {
	raw, err := marshal.Required[string](m, "action")
	if err != nil {
		return nil, err
	}
	action, ok := ParsePushAction(raw)
	if !ok {
		return nil, nil
	}
	url, err := marshal.Optional[string](m, "url")
	if err != nil {
		return nil, err
	}
	data, err := optionalJSON(m, "additionalData")
	if err != nil {
		return nil, err
	}
	return &OpenedPush{Action: action, URL: url, AdditionalData: data}, nil
}

func (p OpenedPush) ToMap() map[string]any {
	out := map[string]any{"action": string(p.Action)}
	put(out, "url", p.URL)
	putMap(out, "additionalData", p.AdditionalData)
	return out
}

// NotificationAction is the button or body action of a clicked notification.
type NotificationAction struct {
	ActionType string
	ActionName *string
	URL        *string
}

// NotificationActionFromMap returns nil when no actionType is given.
func NotificationActionFromMap(m map[string]any) (*NotificationAction, error) {
	actionType, err := marshal.Optional[string](m, "actionType")
	if err != nil || actionType == nil {
		return nil, err
	}
	name, err := marshal.Optional[string](m, "actionName")
	if err != nil {
		return nil, err
	}
	url, err := marshal.Optional[string](m, "url")
	if err != nil {
		return nil, err
	}
	return &NotificationAction{ActionType: *actionType, ActionName: name, URL: url}, nil
}

func (a NotificationAction) ToMap() map[string]any {
	out := map[string]any{"actionType": a.ActionType}
	put(out, "actionName", a.ActionName)
	put(out, "url", a.URL)
	return out
}

// OpenedPush converts a clicked notification action into the opened push event.
func (a NotificationAction) OpenedPush(additionalData map[string]any) OpenedPush {
	return OpenedPush{Action: PushActionFromNative(a.ActionType), URL: a.URL, AdditionalData: additionalData}
}

// IsEnginePush reports whether push data originates from the engagement platform.
func IsEnginePush(data map[string]any) bool {
	source, _ := data["source"].(string)
	return source == "xnpe_platform"
}
