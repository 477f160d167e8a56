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

// Package event defines the native-originated events delivered to listeners.
package event

import (
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/model"
)

type Kind int

const (
	KindPushOpened Kind = iota
	KindPushReceived
	KindInAppAction
	KindSegmentsUpdate
)

// Encoding tells the receiving side whether a body must be parsed as JSON text.
type Encoding int

const (
	EncodingText Encoding = iota
	EncodingRaw
)

var kinds = []Kind{KindPushOpened, KindPushReceived, KindInAppAction, KindSegmentsUpdate}

// Name is the outbound channel name of the kind.
func (k Kind) Name() string {
	switch k {
	case KindPushOpened:
		return "pushOpened"
	case KindPushReceived:
		return "pushReceived"
	case KindInAppAction:
		return "inAppAction"
	case KindSegmentsUpdate:
		return "newSegments"
	default:
		return "unknown"
	}
}

func (k Kind) String() string { return k.Name() }

func (k Kind) Encoding() Encoding {
	return EncodingText
}

func KindByName(name string) (Kind, bool) {
	for _, k := range kinds {
		if k.Name() == name {
			return k, true
		}
	}
	return 0, false
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Event is one occurrence ready for dispatch. Encode produces the body in the
// form given by Kind().Encoding().
type Event interface {
	Kind() Kind
	Encode() (any, error)
}

type PushOpened struct {
	Push model.OpenedPush
}

func (PushOpened) Kind() Kind { return KindPushOpened }

func (e PushOpened) Encode() (any, error) {
	return encode(KindPushOpened, e.Push.ToMap())
}

// PushReceived carries the raw notification data.
type PushReceived struct {
	Data map[string]any
}

func (PushReceived) Kind() Kind { return KindPushReceived }

func (e PushReceived) Encode() (any, error) {
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	return encode(KindPushReceived, data)
}

type InAppAction struct {
	Action model.InAppMessageAction
}

func (InAppAction) Kind() Kind { return KindInAppAction }

func (e InAppAction) Encode() (any, error) {
	return encode(KindInAppAction, e.Action.ToMap())
}

type SegmentsUpdate struct {
	Update model.SegmentationUpdate
}

func (SegmentsUpdate) Kind() Kind { return KindSegmentsUpdate }

func (e SegmentsUpdate) Encode() (any, error) {
	return encode(KindSegmentsUpdate, e.Update.ToMap())
}

func encode(k Kind, v any) (any, error) {
	if k.Encoding() == EncodingRaw {
		return marshal.Normalize(v)
	}
	return marshal.EncodeText(v)
}
