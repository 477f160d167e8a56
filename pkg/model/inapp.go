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
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
)

type InAppMessage struct {
	ID                      string
	Name                    string
	MessageType             *string
	Frequency               string
	Payload                 map[string]any
	VariantID               int
	VariantName             string
	Trigger                 map[string]any
	DateFilter              map[string]any
	LoadPriority            *int
	LoadDelay               *int
	CloseTimeout            *int
	PayloadHTML             *string
	IsHTML                  *bool
	HasTrackingConsent      *bool
	ConsentCategoryTracking *string
}

func InAppMessageFromMap(m map[string]any) (*InAppMessage, error) {
	var (
		msg InAppMessage
		err error
	)
	if msg.ID, err = marshal.Required[string](m, "id"); err != nil {
		return nil, err
	}
	if msg.Name, err = marshal.Required[string](m, "name"); err != nil {
		return nil, err
	}
	if msg.MessageType, err = marshal.Optional[string](m, "message_type"); err != nil {
		return nil, err
	}
	if msg.Frequency, err = marshal.Required[string](m, "frequency"); err != nil {
		return nil, err
	}
	if msg.Payload, err = optionalJSON(m, "payload"); err != nil {
		return nil, err
	}
	if msg.VariantID, err = marshal.RequiredInt(m, "variant_id"); err != nil {
		return nil, err
	}
	if msg.VariantName, err = marshal.Required[string](m, "variant_name"); err != nil {
		return nil, err
	}
	if msg.Trigger, err = optionalJSON(m, "trigger"); err != nil {
		return nil, err
	}
	if msg.DateFilter, err = optionalJSON(m, "date_filter"); err != nil {
		return nil, err
	}
	if msg.LoadPriority, err = marshal.OptionalInt(m, "load_priority"); err != nil {
		return nil, err
	}
	if msg.LoadDelay, err = marshal.OptionalInt(m, "load_delay"); err != nil {
		return nil, err
	}
	if msg.CloseTimeout, err = marshal.OptionalInt(m, "close_timeout"); err != nil {
		return nil, err
	}
	if msg.PayloadHTML, err = marshal.Optional[string](m, "payload_html"); err != nil {
		return nil, err
	}
	if msg.IsHTML, err = marshal.Optional[bool](m, "is_html"); err != nil {
		return nil, err
	}
	if msg.HasTrackingConsent, err = marshal.Optional[bool](m, "has_tracking_consent"); err != nil {
		return nil, err
	}
	if msg.ConsentCategoryTracking, err = marshal.Optional[string](m, "consent_category_tracking"); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (msg InAppMessage) ToMap() map[string]any {
	out := map[string]any{
		"id":           msg.ID,
		"name":         msg.Name,
		"frequency":    msg.Frequency,
		"variant_id":   float64(msg.VariantID),
		"variant_name": msg.VariantName,
	}
	put(out, "message_type", msg.MessageType)
	putMap(out, "payload", msg.Payload)
	putMap(out, "trigger", msg.Trigger)
	putMap(out, "date_filter", msg.DateFilter)
	putInt(out, "load_priority", msg.LoadPriority)
	putInt(out, "load_delay", msg.LoadDelay)
	putInt(out, "close_timeout", msg.CloseTimeout)
	put(out, "payload_html", msg.PayloadHTML)
	put(out, "is_html", msg.IsHTML)
	put(out, "has_tracking_consent", msg.HasTrackingConsent)
	put(out, "consent_category_tracking", msg.ConsentCategoryTracking)
	return out
}

type InAppMessageButton struct {
	Text *string
	URL  *string
}

func InAppMessageButtonFromMap(m map[string]any) (*InAppMessageButton, error) {
	text, err := marshal.Optional[string](m, "text")
	if err != nil {
		return nil, err
	}
	url, err := marshal.Optional[string](m, "url")
	if err != nil {
		return nil, err
	}
	return &InAppMessageButton{Text: text, URL: url}, nil
}

func (b InAppMessageButton) ToMap() map[string]any {
	out := map[string]any{}
	put(out, "text", b.Text)
	put(out, "url", b.URL)
	return out
}

type InAppActionType string

const (
	InAppShow   InAppActionType = "SHOW"
	InAppAction InAppActionType = "ACTION"
	InAppClose  InAppActionType = "CLOSE"
	InAppError  InAppActionType = "ERROR"
)

func ParseInAppActionType(s string) (InAppActionType, error) {
	switch InAppActionType(s) {
	case InAppShow, InAppAction, InAppClose, InAppError:
		return InAppActionType(s), nil
	}
	return "", core.InvalidValue("type", s)
}

// InAppMessageAction is emitted for every in-app message lifecycle step.
// Only ERROR actions may come without a message.
type InAppMessageAction struct {
	Type         InAppActionType
	Message      *InAppMessage
	Button       *InAppMessageButton
	Interaction  *bool
	ErrorMessage *string
}

// InAppMessageActionFromMap fails on an unknown type and returns nil for a
// non-error action that carries no message.
func InAppMessageActionFromMap(m map[string]any) (*InAppMessageAction, error) {
	rawType, err := marshal.Required[string](m, "type")
	if err != nil {
		return nil, err
	}
	actionType, err := ParseInAppActionType(rawType)
	if err != nil {
		return nil, err
	}
	action := &InAppMessageAction{Type: actionType}

	rawMessage, err := marshal.Optional[map[string]any](m, "message")
	if err != nil {
		return nil, err
	}
	if rawMessage != nil {
		if action.Message, err = InAppMessageFromMap(*rawMessage); err != nil {
			return nil, err
		}
	} else if actionType != InAppError {
		return nil, nil
	}

	rawButton, err := marshal.Optional[map[string]any](m, "button")
	if err != nil {
		return nil, err
	}
	if rawButton != nil {
		if action.Button, err = InAppMessageButtonFromMap(*rawButton); err != nil {
			return nil, err
		}
	}
	if action.Interaction, err = marshal.Optional[bool](m, "interaction"); err != nil {
		return nil, err
	}
	if action.ErrorMessage, err = marshal.Optional[string](m, "errorMessage"); err != nil {
		return nil, err
	}
	return action, nil
}

func (a InAppMessageAction) ToMap() map[string]any {
	out := map[string]any{"type": string(a.Type)}
	if a.Message != nil {
		out["message"] = a.Message.ToMap()
	}
	if a.Button != nil {
		out["button"] = a.Button.ToMap()
	}
	put(out, "interaction", a.Interaction)
	put(out, "errorMessage", a.ErrorMessage)
	return out
}
