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

package sdkconfig

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
)

func minimal() map[string]any {
	return map[string]any{
		"projectToken":       "mock-project-token",
		"authorizationToken": "mock-authorization-token",
	}
}

func loadFixture(t *testing.T, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	m, err := marshal.DecodeMap(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return m
}

func TestParseMinimal(t *testing.T) {
	cfg, err := Parse(minimal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProjectToken != "mock-project-token" {
		t.Fatalf("expected mock-project-token, got %s", cfg.ProjectToken)
	}
	if cfg.Authorization() != "Token mock-authorization-token" {
		t.Fatalf("unexpected authorization %s", cfg.Authorization())
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("expected default base url, got %s", cfg.BaseURL)
	}
	if cfg.FlushMaxRetries != DefaultFlushMaxRetries {
		t.Fatalf("expected %d retries, got %d", DefaultFlushMaxRetries, cfg.FlushMaxRetries)
	}
	if cfg.SessionTimeout != DefaultSessionTimeout {
		t.Fatalf("expected session timeout %v, got %v", DefaultSessionTimeout, cfg.SessionTimeout)
	}
	if !cfg.AutomaticSessionTracking || !cfg.AllowDefaultCustomerProperties || !cfg.ManualSessionAutoClose {
		t.Fatalf("expected boolean defaults to be true, got %+v", cfg)
	}
	if cfg.AdvancedAuthEnabled {
		t.Fatal("expected advanced auth disabled by default")
	}
	if cfg.PushTokenTrackingFrequency != TokenOnChange {
		t.Fatalf("expected ON_TOKEN_CHANGE, got %s", cfg.PushTokenTrackingFrequency)
	}
	if cfg.LogLevel != LogInfo {
		t.Fatalf("expected INFO, got %s", cfg.LogLevel)
	}
	if cfg.ApplicationID != DefaultApplicationID {
		t.Fatalf("expected default application id, got %s", cfg.ApplicationID)
	}
	if cfg.ProjectMapping != nil || cfg.DefaultProperties != nil || cfg.Android != nil || cfg.IOS != nil {
		t.Fatalf("expected optional blocks to be absent, got %+v", cfg)
	}
}

func TestParseRequiredFieldOrder(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  string
	}{
		{"both missing", map[string]any{}, "Required property 'projectToken' missing in configuration object"},
		{"project token null", map[string]any{"projectToken": nil, "authorizationToken": "a"}, "Required property 'projectToken' missing in configuration object"},
		{"authorization missing", map[string]any{"projectToken": "p"}, "Required property 'authorizationToken' missing in configuration object"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.input)
		if !errors.Is(err, core.ErrMissingProperty) {
			t.Fatalf("%s: expected ErrMissingProperty, got %v", tt.name, err)
		}
		if err.Error() != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.want, err.Error())
		}
	}
}

func TestParseInvalidTypes(t *testing.T) {
	tests := []struct {
		key   string
		value any
		want  string
	}{
		{"projectToken", 1.0, "Incorrect type for key 'projectToken'. Expected String got Double"},
		{"baseUrl", true, "Incorrect type for key 'baseUrl'. Expected String got Boolean"},
		{"flushMaxRetries", "10", "Incorrect type for key 'flushMaxRetries'. Expected Double got String"},
		{"sessionTimeout", []any{}, "Incorrect type for key 'sessionTimeout'. Expected Double got List"},
		{"automaticSessionTracking", "yes", "Incorrect type for key 'automaticSessionTracking'. Expected Boolean got String"},
		{"pushTokenTrackingFrequency", 1.0, "Incorrect type for key 'pushTokenTrackingFrequency'. Expected String got Double"},
	}
	for _, tt := range tests {
		input := minimal()
		input[tt.key] = tt.value
		_, err := Parse(input)
		if !errors.Is(err, core.ErrInvalidType) {
			t.Fatalf("%s: expected ErrInvalidType, got %v", tt.key, err)
		}
		if err.Error() != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.key, tt.want, err.Error())
		}
	}
}

func TestParseIgnoresUnknownKeys(t *testing.T) {
	input := minimal()
	input["somethingNew"] = map[string]any{"x": 1.0}
	if _, err := Parse(input); err != nil {
		t.Fatalf("unknown keys must be ignored, got %v", err)
	}
}

func TestParseInvalidEnums(t *testing.T) {
	tests := []struct {
		input map[string]any
		want  string
	}{
		{map[string]any{"pushTokenTrackingFrequency": "HOURLY"}, "Incorrect value 'HOURLY' for key pushTokenTrackingFrequency."},
		{map[string]any{"logLevel": "LOUD"}, "Incorrect value 'LOUD' for key logLevel."},
		{map[string]any{"android": map[string]any{"pushNotificationImportance": "URGENT"}}, "Incorrect value 'URGENT' for key pushNotificationImportance."},
		{map[string]any{"android": map[string]any{"httpLoggingLevel": "ALL"}}, "Incorrect value 'ALL' for key httpLoggingLevel."},
	}
	for _, tt := range tests {
		input := minimal()
		for k, v := range tt.input {
			input[k] = v
		}
		_, err := Parse(input)
		if !errors.Is(err, core.ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue, got %v", err)
		}
		if err.Error() != tt.want {
			t.Fatalf("expected %q, got %q", tt.want, err.Error())
		}
	}
}

func TestParseProjectMappingInvalidEventType(t *testing.T) {
	_, err := ParseProjectMapping(map[string]any{"NOT_A_TYPE": []any{}})
	if !errors.Is(err, core.ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}
	want := "Invalid event type NOT_A_TYPE found in project configuration"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}

	input := minimal()
	input["projectMapping"] = map[string]any{"NOT_A_TYPE": []any{}}
	_, err = Parse(input)
	if err == nil || err.Error() != want {
		t.Fatalf("expected %q from Parse, got %v", want, err)
	}
}

func TestParseProjectMappingMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input any
		kind  error
		want  string
	}{
		{"not a map", []any{}, core.ErrInvalidType, "Unable to parse project mapping, expected map of event types to list of Exponea projects"},
		{"not a list", map[string]any{"TRACK_EVENT": "x"}, core.ErrInvalidProject, "Invalid project definition for event type TRACK_EVENT"},
		{"item not a map", map[string]any{"PAYMENT": []any{"x"}}, core.ErrInvalidProject, "Invalid project definition for event type PAYMENT"},
		{"missing token", map[string]any{"PAYMENT": []any{map[string]any{"authorizationToken": "a"}}}, core.ErrMissingProperty, "Property 'projectToken' cannot be null."},
	}
	for _, tt := range tests {
		_, err := ParseProjectMapping(tt.input)
		if !errors.Is(err, tt.kind) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.kind, err)
		}
		if err.Error() != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.want, err.Error())
		}
	}
}

func TestParseComplete(t *testing.T) {
	cfg, err := Parse(loadFixture(t, "complete.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://mock-base-url.com" {
		t.Fatalf("unexpected base url %s", cfg.BaseURL)
	}
	wantMapping := map[EventType][]Project{
		EventTrackEvent: {
			{ProjectToken: "other-project", AuthorizationToken: "other-auth", BaseURL: "https://other-base-url.com"},
		},
		EventPayment: {
			{ProjectToken: "payment-project", AuthorizationToken: "payment-auth", BaseURL: "https://mock-base-url.com"},
		},
	}
	if !reflect.DeepEqual(cfg.ProjectMapping, wantMapping) {
		t.Fatalf("unexpected mapping %+v", cfg.ProjectMapping)
	}
	if cfg.DefaultProperties["string"] != "value" || cfg.DefaultProperties["number"] != 1.0 {
		t.Fatalf("unexpected default properties %+v", cfg.DefaultProperties)
	}
	if cfg.FlushMaxRetries != 11 || cfg.SessionTimeout != 20 {
		t.Fatalf("unexpected numeric settings %d %v", cfg.FlushMaxRetries, cfg.SessionTimeout)
	}
	if cfg.AutomaticSessionTracking || cfg.AllowDefaultCustomerProperties {
		t.Fatal("expected boolean overrides to be applied")
	}
	if cfg.PushTokenTrackingFrequency != TokenDaily {
		t.Fatalf("expected DAILY, got %s", cfg.PushTokenTrackingFrequency)
	}
	if !reflect.DeepEqual(cfg.InAppContentBlockPlaceholdersAutoLoad, []string{"placeholder_1", "placeholder_2"}) {
		t.Fatalf("unexpected placeholders %v", cfg.InAppContentBlockPlaceholdersAutoLoad)
	}

	a := cfg.Android
	if a == nil {
		t.Fatal("expected android block")
	}
	if a.AutomaticPushNotifications || *a.PushIcon != 12345 || a.PushChannelID != "mock-push-channel-id" {
		t.Fatalf("unexpected android block %+v", a)
	}
	if a.PushNotificationImportance != ImportanceHigh || a.HTTPLoggingLevel != HTTPLogHeaders {
		t.Fatalf("unexpected android enums %s %s", a.PushNotificationImportance, a.HTTPLoggingLevel)
	}
	alpha := uint32(255)
	wantColor := int(int32(alpha<<24 | uint32(10)<<16 | uint32(20)<<8 | uint32(30)))
	if a.PushAccentColor == nil || *a.PushAccentColor != wantColor {
		t.Fatalf("expected packed accent color %d, got %v", wantColor, a.PushAccentColor)
	}

	if cfg.IOS == nil || cfg.IOS.AppGroup != "mock-app-group" || cfg.IOS.RequirePushAuthorization {
		t.Fatalf("unexpected ios block %+v", cfg.IOS)
	}
}

func TestParseAccentColorRGBA(t *testing.T) {
	for _, raw := range []string{"1,2,3", "1,2,3,256", "a,b,c,d", ""} {
		input := minimal()
		input["android"] = map[string]any{"pushAccentColorRGBA": raw}
		_, err := Parse(input)
		if !errors.Is(err, core.ErrInvalidValue) {
			t.Fatalf("%q: expected ErrInvalidValue, got %v", raw, err)
		}
	}
}

func TestParsePlatformBlocksMustBeMaps(t *testing.T) {
	input := minimal()
	input["android"] = "x"
	_, err := Parse(input)
	if err == nil || err.Error() != "Unable to parse android config, expected map of properties" {
		t.Fatalf("unexpected error %v", err)
	}

	input = minimal()
	input["defaultProperties"] = []any{}
	_, err = Parse(input)
	if err == nil || err.Error() != "Unable to parse default properties, expected map of properties" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestConfigurationToMapReparses(t *testing.T) {
	cfg, err := Parse(loadFixture(t, "complete.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, err := Parse(cfg.ToMap())
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, again) {
		t.Fatalf("configuration changed across ToMap:\n got %+v\nwant %+v", again, cfg)
	}
}

func TestLogLevelSlogLevel(t *testing.T) {
	if LogVerbose.SlogLevel() >= LogInfo.SlogLevel() {
		t.Fatal("verbose must be more detailed than info")
	}
	if LogOff.SlogLevel() != LogError.SlogLevel() {
		t.Fatal("off must keep errors only")
	}
}
