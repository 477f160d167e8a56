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

type InboxMessage struct {
	ID           string
	Type         string
	Read         *bool
	ReceivedTime *float64
	Content      map[string]any
}

// InboxMessageFromMap returns nil when id or type is blank.
func InboxMessageFromMap(m map[string]any) (*InboxMessage, error) {
	id, err := marshal.Optional[string](m, "id")
	if err != nil {
		return nil, err
	}
	msgType, err := marshal.Optional[string](m, "type")
	if err != nil {
		return nil, err
	}
	if blank(id) || blank(msgType) {
		return nil, nil
	}
	read, err := marshal.Optional[bool](m, "is_read")
	if err != nil {
		return nil, err
	}
	received, err := marshal.Optional[float64](m, "create_time")
	if err != nil {
		return nil, err
	}
	content, err := optionalJSON(m, "content")
	if err != nil {
		return nil, err
	}
	return &InboxMessage{
		ID:           *id,
		Type:         *msgType,
		Read:         read,
		ReceivedTime: received,
		Content:      content,
	}, nil
}

func (msg InboxMessage) ToMap() map[string]any {
	out := map[string]any{"id": msg.ID, "type": msg.Type}
	put(out, "is_read", msg.Read)
	put(out, "create_time", msg.ReceivedTime)
	putMap(out, "content", msg.Content)
	return out
}

// InboxMessagesFromList converts a fetched inbox, skipping entries that are not messages.
func InboxMessagesFromList(list []any) ([]InboxMessage, error) {
	out := make([]InboxMessage, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		msg, err := InboxMessageFromMap(m)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			out = append(out, *msg)
		}
	}
	return out, nil
}

type InboxActionType string

const (
	InboxActionApp      InboxActionType = "app"
	InboxActionBrowser  InboxActionType = "browser"
	InboxActionDeeplink InboxActionType = "deeplink"
)

type InboxAction struct {
	Type  InboxActionType
	Title *string
	URL   *string
}

// InboxActionFromMap returns nil for a missing or unknown action type.
func InboxActionFromMap(m map[string]any) (*InboxAction, error) {
	rawType, err := marshal.Optional[string](m, "type")
	if err != nil || rawType == nil {
		return nil, err
	}
	actionType := InboxActionType(*rawType)
	switch actionType {
	case InboxActionApp, InboxActionBrowser, InboxActionDeeplink:
	default:
		return nil, nil
	}
	title, err := marshal.Optional[string](m, "title")
	if err != nil {
		return nil, err
	}
	url, err := marshal.Optional[string](m, "url")
	if err != nil {
		return nil, err
	}
	return &InboxAction{Type: actionType, Title: title, URL: url}, nil
}

func (a InboxAction) ToMap() map[string]any {
	out := map[string]any{"type": string(a.Type)}
	put(out, "title", a.Title)
	put(out, "url", a.URL)
	return out
}
