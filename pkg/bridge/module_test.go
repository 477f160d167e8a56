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
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/event"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/sdkconfig"
)

type mockSDK struct {
	mu           sync.Mutex
	configured   *sdkconfig.Configuration
	configureErr error
	commands     []Command
	replies      map[string]any
	fetchErr     error

	// When set, Configure signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func newMockSDK() *mockSDK {
	return &mockSDK{replies: map[string]any{}}
}

func (s *mockSDK) Configure(_ context.Context, cfg *sdkconfig.Configuration) error {
	if s.entered != nil {
		close(s.entered)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configureErr != nil {
		return s.configureErr
	}
	s.configured = cfg
	return nil
}

func (s *mockSDK) Execute(_ context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	return nil
}

func (s *mockSDK) Fetch(_ context.Context, cmd Command) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.replies[cmd.Name], nil
}

func (s *mockSDK) last() Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.commands) == 0 {
		return Command{}
	}
	return s.commands[len(s.commands)-1]
}

type recordingSink struct {
	mu        sync.Mutex
	emitted   []event.Event
	observing map[event.Kind]bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{observing: map[event.Kind]bool{}}
}

func (s *recordingSink) Emit(evt event.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitted = append(s.emitted, evt)
	return true
}

func (s *recordingSink) StartObserving(k event.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observing[k] = true
	return false
}

func (s *recordingSink) StopObserving(k event.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observing, k)
}

func (s *recordingSink) isObserving(k event.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observing[k]
}

func (s *recordingSink) events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.emitted...)
}

func newTestModule(platform core.Platform) (*Module, *mockSDK, *recordingSink) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	sdk := newMockSDK()
	sink := newRecordingSink()
	return NewModule(sdk, sink, logger, Options{Platform: platform}), sdk, sink
}

func invoke(m *Module, method string, args ...any) core.Result {
	return m.Invoke(context.Background(), core.Call{ID: "1", Method: method, Args: args})
}

func configured(t *testing.T, platform core.Platform) (*Module, *mockSDK, *recordingSink) {
	t.Helper()
	m, sdk, sink := newTestModule(platform)
	res := invoke(m, "configure", map[string]any{"projectToken": "mock-project-token", "authorizationToken": "mock-auth-token"})
	if res.Rejected() {
		t.Fatalf("configure rejected: %+v", res.Error)
	}
	return m, sdk, sink
}

func TestConfigureOnce(t *testing.T) {
	m, sdk, _ := configured(t, core.PlatformAndroid)
	if sdk.configured == nil || sdk.configured.ProjectToken != "mock-project-token" {
		t.Fatalf("expected configuration handed to sdk, got %+v", sdk.configured)
	}
	if res := invoke(m, "isConfigured"); res.Value != true {
		t.Fatalf("expected configured, got %v", res.Value)
	}

	res := invoke(m, "configure", map[string]any{"projectToken": "a", "authorizationToken": "b"})
	if !res.Rejected() || res.Error.Message != core.ErrAlreadyConfigured.Error() {
		t.Fatalf("expected already configured rejection, got %+v", res)
	}
}

func TestConfigureFailureAllowsRetry(t *testing.T) {
	m, sdk, _ := newTestModule(core.PlatformAndroid)
	sdk.configureErr = errors.New("native failure")

	cfg := map[string]any{"projectToken": "a", "authorizationToken": "b"}
	if res := invoke(m, "configure", cfg); !res.Rejected() {
		t.Fatal("expected configure to fail")
	}
	if m.IsConfigured() {
		t.Fatal("expected module to stay unconfigured")
	}

	sdk.configureErr = nil
	if res := invoke(m, "configure", cfg); res.Rejected() {
		t.Fatalf("expected retry to succeed, got %+v", res.Error)
	}
}

func TestCallsDuringConfigureAreRejected(t *testing.T) {
	m, sdk, _ := newTestModule(core.PlatformAndroid)
	sdk.entered = make(chan struct{})
	sdk.release = make(chan struct{})
	sdk.configureErr = errors.New("native failure")

	done := make(chan core.Result)
	go func() {
		done <- invoke(m, "configure", map[string]any{"projectToken": "a", "authorizationToken": "b"})
	}()
	<-sdk.entered

	if m.IsConfigured() {
		t.Fatal("expected module to be unconfigured while configure is in flight")
	}
	res := invoke(m, "trackEvent", "purchase", map[string]any{})
	if !res.Rejected() || res.Error.Message != core.ErrNotConfigured.Error() {
		t.Fatalf("expected not configured rejection, got %+v", res)
	}

	close(sdk.release)
	if res := <-done; !res.Rejected() {
		t.Fatal("expected configure to fail")
	}
	if m.IsConfigured() {
		t.Fatal("expected module to stay unconfigured after a failed configure")
	}
	if len(sdk.commands) != 0 {
		t.Fatalf("expected nothing sent to the sdk, got %v", sdk.commands)
	}
}

func TestConfigureInvalidConfiguration(t *testing.T) {
	m, _, _ := newTestModule(core.PlatformAndroid)
	res := invoke(m, "configure", map[string]any{})
	if !res.Rejected() || res.Error.Message != "Required property 'projectToken' missing in configuration object" {
		t.Fatalf("unexpected result: %+v", res.Error)
	}
}

func TestNotConfiguredRejects(t *testing.T) {
	m, sdk, _ := newTestModule(core.PlatformAndroid)
	for _, method := range []string{"flushData", "trackEvent", "identifyCustomer", "fetchConsents", "anonymize", "trackPushToken"} {
		res := invoke(m, method)
		if !res.Rejected() || res.Error.Message != core.ErrNotConfigured.Error() {
			t.Fatalf("%s: expected not configured rejection, got %+v", method, res)
		}
	}
	if len(sdk.commands) != 0 {
		t.Fatalf("expected nothing sent to the sdk, got %v", sdk.commands)
	}
}

func TestUnknownMethod(t *testing.T) {
	m, _, _ := newTestModule(core.PlatformAndroid)
	res := invoke(m, "doesNotExist")
	if !res.Rejected() || res.Error.Message != "Method doesNotExist is not supported." {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Error.Code != core.ErrorCode {
		t.Fatalf("expected code %s, got %s", core.ErrorCode, res.Error.Code)
	}
}

func TestPanicBecomesRejection(t *testing.T) {
	m, _, _ := newTestModule(core.PlatformAndroid)
	m.methods["explode"] = func(context.Context, marshal.Args) (any, error) {
		panic("boom")
	}
	res := invoke(m, "explode")
	if !res.Rejected() || res.Error.Message != "Error: boom" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTrackEvent(t *testing.T) {
	m, sdk, _ := configured(t, core.PlatformAndroid)
	res := invoke(m, "trackEvent", "eventName", map[string]any{"key": "value", "gone": nil}, map[string]any{"timestamp": 123.0})
	if res.Rejected() {
		t.Fatalf("unexpected rejection: %+v", res.Error)
	}
	cmd := sdk.last()
	props := cmd.Args["properties"].(map[string]any)
	if cmd.Name != "trackEvent" || props["key"] != "value" || cmd.Args["timestamp"] != 123.0 {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if _, ok := props["gone"]; ok {
		t.Fatal("expected null property dropped")
	}
}

func TestTrackEventInvalidArgument(t *testing.T) {
	m, _, _ := configured(t, core.PlatformAndroid)
	res := invoke(m, "trackEvent", 12.0, map[string]any{})
	if !res.Rejected() || res.Error.Message != "Incorrect type for key 'eventName'. Expected String got Double" {
		t.Fatalf("unexpected result: %+v", res.Error)
	}
}

func TestIdentifyCustomerKeepsStringIDs(t *testing.T) {
	m, sdk, _ := configured(t, core.PlatformAndroid)
	invoke(m, "identifyCustomer", map[string]any{"registered": "id", "count": 1.0}, map[string]any{})
	ids := sdk.last().Args["customerIds"].(map[string]any)
	if len(ids) != 1 || ids["registered"] != "id" {
		t.Fatalf("unexpected customer ids: %v", ids)
	}
}

func TestSessionTimestampGating(t *testing.T) {
	tests := []struct {
		platform core.Platform
		rejected bool
	}{
		{core.PlatformAndroid, false},
		{core.PlatformIOS, true},
	}
	for _, tt := range tests {
		m, _, _ := configured(t, tt.platform)
		res := invoke(m, "trackSessionStart", map[string]any{"timestamp": 10.0})
		if res.Rejected() != tt.rejected {
			t.Fatalf("%s: expected rejected=%v, got %+v", tt.platform, tt.rejected, res.Error)
		}
		if tt.rejected && res.Error.Message != "Setting session start timestamp is not available for iOS platform." {
			t.Fatalf("unexpected message: %s", res.Error.Message)
		}
		if res := invoke(m, "trackSessionEnd", map[string]any{}); res.Rejected() {
			t.Fatalf("%s: session end without timestamp rejected: %+v", tt.platform, res.Error)
		}
	}
}

func TestPlatformOnlyCalls(t *testing.T) {
	ios, _, _ := configured(t, core.PlatformIOS)
	res := invoke(ios, "trackHmsPushToken", "token")
	if !res.Rejected() || res.Error.Message != "HMS push token tracking is not available for iOS platform." {
		t.Fatalf("expected unavailable on iOS, got %+v", res)
	}

	android, _, _ := newTestModule(core.PlatformAndroid)
	res = invoke(android, "requestIosPushAuthorization")
	if !res.Rejected() || res.Error.Message != "Push authorization request is not available for Android platform." {
		t.Fatalf("unexpected result: %+v", res.Error)
	}
}

func TestFlushPeriodRequiresPeriodModeOnIOS(t *testing.T) {
	m, _, _ := newTestModule(core.PlatformIOS)
	res := invoke(m, "getFlushPeriod")
	if !res.Rejected() || res.Error.Message != "Flush mode is not periodic." {
		t.Fatalf("unexpected result: %+v", res.Error)
	}

	if res := invoke(m, "setFlushMode", "PERIOD"); res.Rejected() {
		t.Fatalf("unexpected rejection: %+v", res.Error)
	}
	if res := invoke(m, "setFlushPeriod", 30.0); res.Rejected() {
		t.Fatalf("unexpected rejection: %+v", res.Error)
	}
	if res := invoke(m, "getFlushPeriod"); res.Value != 30.0 {
		t.Fatalf("expected period 30, got %v", res.Value)
	}
}

func TestSetFlushModeInvalid(t *testing.T) {
	m, _, _ := newTestModule(core.PlatformAndroid)
	res := invoke(m, "setFlushMode", "SOMETIMES")
	if !res.Rejected() {
		t.Fatal("expected rejection")
	}
	if res := invoke(m, "getFlushMode"); res.Value != "IMMEDIATE" {
		t.Fatalf("expected flush mode unchanged, got %v", res.Value)
	}
}

func TestSetLogLevelFollowsLevelVar(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	levelVar := new(slog.LevelVar)
	m := NewModule(newMockSDK(), newRecordingSink(), logger, Options{LevelVar: levelVar})

	if res := invoke(m, "setLogLevel", "VERBOSE"); res.Rejected() {
		t.Fatalf("unexpected rejection: %+v", res.Error)
	}
	if levelVar.Level() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", levelVar.Level())
	}
	if res := invoke(m, "getLogLevel"); res.Value != "VERBOSE" {
		t.Fatalf("expected VERBOSE, got %v", res.Value)
	}
}

func TestDefaultPropertiesAsText(t *testing.T) {
	m, _, _ := newTestModule(core.PlatformAndroid)
	invoke(m, "setDefaultProperties", map[string]any{"b": 2.0, "a": "x"})
	res := invoke(m, "getDefaultProperties")
	if res.Value != `{"a":"x","b":2}` {
		t.Fatalf("unexpected default properties: %v", res.Value)
	}
}

func TestAnonymizeMappingWithoutProjectOnIOS(t *testing.T) {
	m, _, _ := configured(t, core.PlatformIOS)
	mapping := map[string]any{"projectMapping": map[string]any{
		"TRACK_EVENT": []any{map[string]any{"projectToken": "t", "authorizationToken": "a"}},
	}}
	res := invoke(m, "anonymize", map[string]any{}, mapping)
	want := "Changing project mapping in anonymize without changing project is not available for iOS platform."
	if !res.Rejected() || res.Error.Message != want {
		t.Fatalf("unexpected result: %+v", res.Error)
	}
}

func TestAnonymizeFillsBaseURL(t *testing.T) {
	m, sdk, _ := configured(t, core.PlatformAndroid)
	project := map[string]any{"exponeaProject": map[string]any{"projectToken": "t", "authorizationToken": "a"}}
	if res := invoke(m, "anonymize", project, map[string]any{}); res.Rejected() {
		t.Fatalf("unexpected rejection: %+v", res.Error)
	}
	got := sdk.last().Args["exponeaProject"].(map[string]any)
	if got["baseUrl"] != sdkconfig.DefaultBaseURL {
		t.Fatalf("expected default base url, got %v", got["baseUrl"])
	}
}

func TestInAppMessageClickInvalidData(t *testing.T) {
	m, _, _ := configured(t, core.PlatformAndroid)
	res := invoke(m, "trackInAppMessageClick", map[string]any{"type": "ACTION"})
	if !res.Rejected() || res.Error.Message != "InApp message data are invalid. See logs" {
		t.Fatalf("unexpected result: %+v", res.Error)
	}
}

func TestFetchConsentsAsText(t *testing.T) {
	m, sdk, _ := configured(t, core.PlatformAndroid)
	sdk.replies["fetchConsents"] = []any{map[string]any{"id": "newsletter", "legitimateInterest": true}}
	res := invoke(m, "fetchConsents")
	if res.Value != `[{"id":"newsletter","legitimateInterest":true}]` {
		t.Fatalf("unexpected consents: %v", res.Value)
	}

	sdk.fetchErr = errors.New("timeout")
	res = invoke(m, "fetchConsents")
	if !res.Rejected() || res.Error.Message != "Data fetching failed: timeout" {
		t.Fatalf("unexpected result: %+v", res.Error)
	}
}

func TestGetSegments(t *testing.T) {
	m, sdk, _ := newTestModule(core.PlatformAndroid)
	sdk.replies["getSegments"] = []any{map[string]any{"id": "s1", "segmentation_id": "g1"}}
	res := invoke(m, "getSegments", map[string]any{"exposingCategory": "discovery"})
	if res.Value != `[{"id":"s1","segmentation_id":"g1"}]` {
		t.Fatalf("unexpected segments: %+v", res)
	}
	if sdk.last().Args["force"] != false {
		t.Fatalf("expected force defaulted to false, got %v", sdk.last().Args["force"])
	}
}

func TestSegmentationCallbacks(t *testing.T) {
	m, _, sink := newTestModule(core.PlatformAndroid)
	res := invoke(m, "registerSegmentationDataCallback", "discovery", true)
	if res.Rejected() {
		t.Fatalf("unexpected rejection: %+v", res.Error)
	}
	id := res.Value.(string)
	if !sink.isObserving(event.KindSegmentsUpdate) {
		t.Fatal("expected segments listener")
	}

	update := map[string]any{"callbackId": id, "data": []any{map[string]any{"id": "s1"}}}
	if err := m.HandleNative(context.Background(), "newSegments", update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unknown := map[string]any{"callbackId": "other", "data": []any{}}
	if err := m.HandleNative(context.Background(), "newSegments", unknown); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(sink.events()); n != 1 {
		t.Fatalf("expected 1 emitted event, got %d", n)
	}

	if res := invoke(m, "unregisterSegmentationDataCallback", id); res.Rejected() {
		t.Fatalf("unexpected rejection: %+v", res.Error)
	}
	if sink.isObserving(event.KindSegmentsUpdate) {
		t.Fatal("expected segments listener removed with the last callback")
	}
	res = invoke(m, "unregisterSegmentationDataCallback", id)
	if !res.Rejected() || res.Error.Message != "Segmentation callback "+id+" has not been found" {
		t.Fatalf("unexpected result: %+v", res.Error)
	}
}

func TestInAppCallbackListens(t *testing.T) {
	m, sdk, sink := newTestModule(core.PlatformAndroid)
	invoke(m, "onInAppMessageCallbackSet", true, false)
	if !sink.isObserving(event.KindInAppAction) {
		t.Fatal("expected in-app listener")
	}
	if sdk.last().Args["overrideDefaultBehavior"] != true {
		t.Fatalf("unexpected command: %+v", sdk.last())
	}

	invoke(m, "onInAppMessageCallbackRemove")
	if sink.isObserving(event.KindInAppAction) {
		t.Fatal("expected in-app listener removed")
	}
	if sdk.last().Args["trackActions"] != true {
		t.Fatalf("expected default tracking restored, got %+v", sdk.last())
	}
}

func TestStartObservingUnknownEvent(t *testing.T) {
	m, _, _ := newTestModule(core.PlatformAndroid)
	res := invoke(m, "startObserving", "somethingElse")
	if !res.Rejected() || res.Error.Message != "Incorrect value 'somethingElse' for key eventName." {
		t.Fatalf("unexpected result: %+v", res.Error)
	}
	if res := invoke(m, "startObserving", "pushReceived"); res.Rejected() {
		t.Fatalf("unexpected rejection: %+v", res.Error)
	}
}

func TestIsExponeaPushNotification(t *testing.T) {
	m, _, _ := newTestModule(core.PlatformAndroid)
	if res := invoke(m, "isExponeaPushNotification", map[string]any{"source": "xnpe_platform"}); res.Value != true {
		t.Fatalf("expected engine push, got %v", res.Value)
	}
	if res := invoke(m, "isExponeaPushNotification", map[string]any{"source": 1.0}); res.Value != false {
		t.Fatalf("expected non-engine push, got %v", res.Value)
	}
}

func TestHandleNativePushOpened(t *testing.T) {
	m, _, sink := newTestModule(core.PlatformAndroid)
	err := m.HandleNative(context.Background(), "pushOpened", map[string]any{
		"actionType":     "browser",
		"url":            "https://example.com",
		"additionalData": map[string]any{"k": "v"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := sink.events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	opened := events[0].(event.PushOpened)
	if opened.Push.Action != "web" || *opened.Push.URL != "https://example.com" {
		t.Fatalf("unexpected push: %+v", opened.Push)
	}
}

func TestHandleNativeDropsAndRejects(t *testing.T) {
	m, _, sink := newTestModule(core.PlatformAndroid)
	if err := m.HandleNative(context.Background(), "inAppAction", map[string]any{"type": "SHOW"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.events()) != 0 {
		t.Fatal("expected action without message dropped")
	}

	err := m.HandleNative(context.Background(), "mystery", nil)
	if !errors.Is(err, core.ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
}
