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
	"errors"
	"reflect"
	"testing"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

func testMessageMap() map[string]any {
	return map[string]any{
		"id":           "5dd86f44511946ea55132f29",
		"name":         "Test serving in-app message",
		"message_type": "modal",
		"frequency":    "unknown",
		"payload": map[string]any{
			"title":   "filip.vozar@exponea.com",
			"buttons": []any{map[string]any{"button_type": "deep-link", "button_text": "Action", "button_link": "https://example.com"}},
		},
		"variant_id":   0.0,
		"variant_name": "Variant A",
		"trigger":      map[string]any{"event_type": "session_start", "filter": []any{}},
		"date_filter":  map[string]any{"enabled": false},
	}
}

func TestInAppMessageFromMap(t *testing.T) {
	msg, err := InAppMessageFromMap(testMessageMap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ID != "5dd86f44511946ea55132f29" || msg.VariantName != "Variant A" || msg.VariantID != 0 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.MessageType == nil || *msg.MessageType != "modal" {
		t.Fatalf("unexpected message type: %v", msg.MessageType)
	}
	if msg.LoadPriority != nil || msg.IsHTML != nil {
		t.Fatal("expected absent optionals to stay nil")
	}
	if !reflect.DeepEqual(msg.ToMap(), testMessageMap()) {
		t.Fatalf("expected ToMap to reproduce input, got %v", msg.ToMap())
	}
}

func TestInAppMessageRequiredFields(t *testing.T) {
	for _, key := range []string{"id", "name", "frequency", "variant_id", "variant_name"} {
		t.Run(key, func(t *testing.T) {
			m := testMessageMap()
			delete(m, key)
			_, err := InAppMessageFromMap(m)
			if !errors.Is(err, core.ErrMissingProperty) {
				t.Fatalf("expected ErrMissingProperty, got %v", err)
			}
			var e *core.Error
			if !errors.As(err, &e) || e.Field != key {
				t.Fatalf("expected field %s, got %+v", key, e)
			}
		})
	}
}

func TestInAppActionClose(t *testing.T) {
	m := map[string]any{
		"type":        "CLOSE",
		"message":     testMessageMap(),
		"button":      map[string]any{"text": "Click me!"},
		"interaction": true,
	}
	a, err := InAppMessageActionFromMap(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Type != InAppClose || a.Button == nil || a.Button.URL != nil {
		t.Fatalf("unexpected action: %+v", a)
	}
	if a.Interaction == nil || !*a.Interaction {
		t.Fatal("expected interaction true")
	}
	if !reflect.DeepEqual(a.ToMap(), m) {
		t.Fatalf("expected ToMap to reproduce input, got %v", a.ToMap())
	}
}

func TestInAppActionErrorWithoutMessage(t *testing.T) {
	a, err := InAppMessageActionFromMap(map[string]any{"type": "ERROR", "errorMessage": "boom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == nil || a.Message != nil || a.ErrorMessage == nil || *a.ErrorMessage != "boom" {
		t.Fatalf("unexpected action: %+v", a)
	}
}

func TestInAppActionWithoutMessage(t *testing.T) {
	a, err := InAppMessageActionFromMap(map[string]any{"type": "SHOW"})
	if err != nil || a != nil {
		t.Fatalf("expected nil action, got %v, %v", a, err)
	}
}

func TestInAppActionUnknownType(t *testing.T) {
	_, err := InAppMessageActionFromMap(map[string]any{"type": "WAVE", "message": testMessageMap()})
	if !errors.Is(err, core.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if err.Error() != "Incorrect value 'WAVE' for key type." {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestInAppActionNestedTypeError(t *testing.T) {
	msg := testMessageMap()
	msg["variant_id"] = "zero"
	_, err := InAppMessageActionFromMap(map[string]any{"type": "SHOW", "message": msg})
	if !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}
