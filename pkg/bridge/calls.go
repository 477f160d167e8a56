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
	"time"

	"github.com/google/uuid"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/event"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/model"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/sdkconfig"
)

const (
	msgInvalidInApp        = "InApp message data are invalid. See logs"
	msgInvalidInboxMessage = "AppInbox message data are invalid. See logs"
	msgInvalidInboxAction  = "AppInbox action data are invalid. See logs"
	msgInboxLoadFailed     = "AppInbox load failed. See logs"
	msgInboxItemNotFound   = "AppInbox message not found. See logs"
)

func (m *Module) register() map[string]handler {
	cfg := m.requireConfigured
	methods := map[string]handler{
		"configure":         m.configure,
		"isConfigured":      m.isConfigured,
		"getCustomerCookie": cfg(m.getCustomerCookie),
		"checkPushSetup":    m.command("checkPushSetup"),

		"getFlushMode":         m.getFlushMode,
		"setFlushMode":         m.setFlushMode,
		"getFlushPeriod":       m.getFlushPeriod,
		"setFlushPeriod":       m.setFlushPeriod,
		"getLogLevel":          m.getLogLevel,
		"setLogLevel":          m.setLogLevel,
		"getDefaultProperties": m.getDefaultProperties,
		"setDefaultProperties": m.setDefaultProperties,

		"anonymize":        cfg(m.anonymize),
		"identifyCustomer": cfg(m.identifyCustomer),
		"flushData":        cfg(m.command("flushData")),

		"trackEvent":        cfg(m.trackEvent),
		"trackSessionStart": cfg(m.trackSession("trackSessionStart", "Setting session start timestamp")),
		"trackSessionEnd":   cfg(m.trackSession("trackSessionEnd", "Setting session end timestamp")),
		"trackPaymentEvent": cfg(m.trackPaymentEvent),

		"trackPushToken":              cfg(m.trackToken("trackPushToken")),
		"trackHmsPushToken":           m.only(core.PlatformAndroid, "HMS push token tracking", cfg(m.trackToken("trackHmsPushToken"))),
		"isExponeaPushNotification":   m.isEnginePush,
		"requestPushAuthorization":    m.requestPushAuthorization,
		"requestIosPushAuthorization": m.only(core.PlatformIOS, "Push authorization request", m.requestPushAuthorization),

		"setAutomaticSessionTracking": m.setting("setAutomaticSessionTracking", "enabled", boolSetting),
		"setSessionTimeout":           m.setting("setSessionTimeout", "timeout", doubleSetting),
		"setAutoPushNotification":     m.setting("setAutoPushNotification", "enabled", boolSetting),
		"setCampaignTTL":              m.setting("setCampaignTTL", "seconds", doubleSetting),
		"setAppInboxProvider":         m.setAppInboxProvider,

		"fetchConsents":        cfg(m.fetchConsents),
		"fetchRecommendations": cfg(m.fetchRecommendations),
		"fetchAppInbox":        cfg(m.fetchAppInbox),
		"fetchAppInboxItem":    cfg(m.fetchAppInboxItem),
		"markAppInboxAsRead":   cfg(m.markAppInboxAsRead),
		"getSegments":          m.getSegments,

		"onPushOpenedListenerSet":      m.listen(event.KindPushOpened),
		"onPushOpenedListenerRemove":   m.unlisten(event.KindPushOpened),
		"onPushReceivedListenerSet":    m.listen(event.KindPushReceived),
		"onPushReceivedListenerRemove": m.unlisten(event.KindPushReceived),
		"onInAppMessageCallbackSet":    m.setInAppCallback,
		"onInAppMessageCallbackRemove": m.removeInAppCallback,

		"registerSegmentationDataCallback":   m.registerSegmentationCallback,
		"unregisterSegmentationDataCallback": m.unregisterSegmentationCallback,

		"startObserving": m.startObserving,
		"stopObserving":  m.stopObserving,
	}

	// Every tracking call needs a configured SDK. Each has a twin that bypasses
	// the tracking consent check.
	for _, name := range []string{"trackDeliveredPush", "trackClickedPush"} {
		methods[name] = cfg(m.trackPush(name))
		methods[name+"WithoutTrackingConsent"] = cfg(m.trackPush(name + "WithoutTrackingConsent"))
	}
	for _, name := range []string{"trackInAppMessageClick", "trackInAppMessageClose"} {
		methods[name] = cfg(m.trackInAppMessage(name))
		methods[name+"WithoutTrackingConsent"] = cfg(m.trackInAppMessage(name + "WithoutTrackingConsent"))
	}
	for _, name := range []string{"trackAppInboxOpened", "trackAppInboxClick"} {
		methods[name] = cfg(m.trackInbox(name))
		methods[name+"WithoutTrackingConsent"] = cfg(m.trackInbox(name + "WithoutTrackingConsent"))
	}
	for _, name := range []string{
		"trackInAppContentBlockClick",
		"trackInAppContentBlockClose",
		"trackInAppContentBlockShown",
		"trackInAppContentBlockError",
	} {
		methods[name] = cfg(m.trackContentBlock(name))
		methods[name+"WithoutTrackingConsent"] = cfg(m.trackContentBlock(name + "WithoutTrackingConsent"))
	}
	return methods
}

func (m *Module) command(name string) handler {
	return func(ctx context.Context, _ marshal.Args) (any, error) {
		return m.execute(ctx, name, nil)
	}
}

func (m *Module) configure(ctx context.Context, args marshal.Args) (any, error) {
	if m.configured.Load() {
		return nil, core.ErrAlreadyConfigured
	}
	raw, err := marshal.ArgMap(args, 0, "configuration")
	if err != nil {
		return nil, err
	}
	cfg, err := sdkconfig.Parse(raw)
	if err != nil {
		return nil, err
	}
	return nil, m.Configure(ctx, cfg)
}

func (m *Module) isConfigured(context.Context, marshal.Args) (any, error) {
	return m.configured.Load(), nil
}

func (m *Module) getCustomerCookie(ctx context.Context, _ marshal.Args) (any, error) {
	reply, err := m.sdk.Fetch(ctx, Command{Name: "getCustomerCookie"})
	if err != nil {
		return nil, fetchError(err)
	}
	cookie, ok := reply.(string)
	if !ok {
		return nil, core.InvalidType("customerCookie", "String", marshal.TypeName(reply))
	}
	return cookie, nil
}

func (m *Module) getFlushMode(context.Context, marshal.Args) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return string(m.flushMode), nil
}

func (m *Module) setFlushMode(ctx context.Context, args marshal.Args) (any, error) {
	raw, err := marshal.Arg[string](args, 0, "flushMode")
	if err != nil {
		return nil, err
	}
	mode, err := sdkconfig.ParseFlushMode("flushMode", raw)
	if err != nil {
		return nil, err
	}
	if _, err := m.execute(ctx, "setFlushMode", map[string]any{"flushMode": string(mode)}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.flushMode = mode
	m.mu.Unlock()
	return nil, nil
}

// checkPeriodic enforces the iOS rule that the flush period only exists in PERIOD mode.
func (m *Module) checkPeriodic() error {
	if m.platform == core.PlatformIOS && m.flushMode != sdkconfig.FlushPeriod {
		return core.ErrFlushModeNotPeriodic
	}
	return nil
}

func (m *Module) getFlushPeriod(context.Context, marshal.Args) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkPeriodic(); err != nil {
		return nil, err
	}
	return m.flushPeriod, nil
}

func (m *Module) setFlushPeriod(ctx context.Context, args marshal.Args) (any, error) {
	period, err := marshal.Arg[float64](args, 0, "period")
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	err = m.checkPeriodic()
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if _, err := m.execute(ctx, "setFlushPeriod", map[string]any{"period": period}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.flushPeriod = period
	m.mu.Unlock()
	return nil, nil
}

func (m *Module) getLogLevel(context.Context, marshal.Args) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return string(m.logLevel), nil
}

func (m *Module) setLogLevel(ctx context.Context, args marshal.Args) (any, error) {
	raw, err := marshal.Arg[string](args, 0, "logLevel")
	if err != nil {
		return nil, err
	}
	level, err := sdkconfig.ParseLogLevel("logLevel", raw)
	if err != nil {
		return nil, err
	}
	if _, err := m.execute(ctx, "setLogLevel", map[string]any{"logLevel": string(level)}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.logLevel = level
	m.mu.Unlock()
	m.applyLogLevel(level)
	return nil, nil
}

// getDefaultProperties resolves with JSON text.
func (m *Module) getDefaultProperties(context.Context, marshal.Args) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return marshal.EncodeText(m.defaultProperties)
}

func (m *Module) setDefaultProperties(ctx context.Context, args marshal.Args) (any, error) {
	props, err := marshal.ArgMap(args, 0, "defaultProperties")
	if err != nil {
		return nil, err
	}
	if _, err := m.execute(ctx, "setDefaultProperties", map[string]any{"defaultProperties": props}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.defaultProperties = props
	m.mu.Unlock()
	return nil, nil
}

// anonymize takes {exponeaProject} and {projectMapping} wrappers, both optional.
func (m *Module) anonymize(ctx context.Context, args marshal.Args) (any, error) {
	projectWrapper, err := marshal.OptionalArgMap(args, 0, "exponeaProject")
	if err != nil {
		return nil, err
	}
	mappingWrapper, err := marshal.OptionalArgMap(args, 1, "projectMapping")
	if err != nil {
		return nil, err
	}

	defaultBaseURL := m.baseURL()
	cmdArgs := map[string]any{}

	hasProject := false
	if rawProject, err := marshal.Optional[map[string]any](projectWrapper, "exponeaProject"); err != nil {
		return nil, err
	} else if rawProject != nil {
		project, err := sdkconfig.ParseProject(*rawProject, defaultBaseURL)
		if err != nil {
			return nil, err
		}
		cmdArgs["exponeaProject"] = project.ToMap()
		hasProject = true
	}

	if rawMapping, ok := mappingWrapper["projectMapping"]; ok && rawMapping != nil {
		mapping, err := sdkconfig.ParseProjectMapping(rawMapping)
		if err != nil {
			return nil, err
		}
		for et, projects := range mapping {
			for i := range projects {
				if projects[i].BaseURL == "" {
					mapping[et][i].BaseURL = defaultBaseURL
				}
			}
		}
		if !hasProject && m.platform == core.PlatformIOS {
			return nil, core.Unavailable("Changing project mapping in anonymize without changing project", m.platform)
		}
		cmdArgs["projectMapping"] = sdkconfig.ProjectMappingToMap(mapping)
	}
	return m.execute(ctx, "anonymize", cmdArgs)
}

func (m *Module) identifyCustomer(ctx context.Context, args marshal.Args) (any, error) {
	rawIDs, err := marshal.ArgMap(args, 0, "customerIds")
	if err != nil {
		return nil, err
	}
	props, err := marshal.ArgMap(args, 1, "properties")
	if err != nil {
		return nil, err
	}
	ids := map[string]any{}
	for k, v := range rawIDs {
		if s, ok := v.(string); ok {
			ids[k] = s
		}
	}
	return m.execute(ctx, "identifyCustomer", map[string]any{
		"customerIds": ids,
		"properties":  withoutNulls(props),
	})
}

func (m *Module) trackEvent(ctx context.Context, args marshal.Args) (any, error) {
	name, err := marshal.Arg[string](args, 0, "eventName")
	if err != nil {
		return nil, err
	}
	props, err := marshal.ArgMap(args, 1, "properties")
	if err != nil {
		return nil, err
	}
	timestamp, err := optionalTimestamp(args, 2)
	if err != nil {
		return nil, err
	}
	cmdArgs := map[string]any{"eventName": name, "properties": withoutNulls(props)}
	if timestamp != nil {
		cmdArgs["timestamp"] = *timestamp
	}
	return m.execute(ctx, "trackEvent", cmdArgs)
}

func (m *Module) trackSession(name, operation string) handler {
	return func(ctx context.Context, args marshal.Args) (any, error) {
		timestamp, err := optionalTimestamp(args, 0)
		if err != nil {
			return nil, err
		}
		if timestamp == nil {
			return m.execute(ctx, name, nil)
		}
		if m.platform == core.PlatformIOS {
			return nil, core.Unavailable(operation, m.platform)
		}
		return m.execute(ctx, name, map[string]any{"timestamp": *timestamp})
	}
}

// optionalTimestamp reads a {timestamp} wrapper argument.
func optionalTimestamp(args marshal.Args, i int) (*float64, error) {
	wrapper, err := marshal.OptionalArgMap(args, i, "timestamp")
	if err != nil || wrapper == nil {
		return nil, err
	}
	return marshal.Optional[float64](wrapper, "timestamp")
}

func (m *Module) trackPaymentEvent(ctx context.Context, args marshal.Args) (any, error) {
	params, err := marshal.ArgMap(args, 0, "params")
	if err != nil {
		return nil, err
	}
	item, err := model.PurchasedItemFromMap(params)
	if err != nil {
		return nil, err
	}
	received, err := receivedSeconds(params)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, "trackPaymentEvent", map[string]any{
		"item":            item.ToMap(),
		"receivedSeconds": received,
	})
}

func receivedSeconds(params map[string]any) (float64, error) {
	v, err := marshal.Optional[float64](params, "receivedSeconds")
	if err != nil {
		return 0, err
	}
	if v == nil {
		return float64(time.Now().UnixMilli()) / 1000, nil
	}
	return *v, nil
}

func (m *Module) trackToken(name string) handler {
	return func(ctx context.Context, args marshal.Args) (any, error) {
		token, err := marshal.Arg[string](args, 0, "token")
		if err != nil {
			return nil, err
		}
		return m.execute(ctx, name, map[string]any{"token": token})
	}
}

func (m *Module) trackPush(name string) handler {
	return func(ctx context.Context, args marshal.Args) (any, error) {
		params, err := marshal.ArgMap(args, 0, "params")
		if err != nil {
			return nil, err
		}
		received, err := receivedSeconds(params)
		if err != nil {
			return nil, err
		}
		cmdArgs := map[string]any{"data": params, "receivedSeconds": received}
		action, err := model.NotificationActionFromMap(params)
		if err != nil {
			return nil, err
		}
		if action != nil {
			cmdArgs["action"] = action.ToMap()
		}
		return m.execute(ctx, name, cmdArgs)
	}
}

// isEnginePush answers locally: only string values take part in the check.
func (m *Module) isEnginePush(_ context.Context, args marshal.Args) (any, error) {
	params, err := marshal.ArgMap(args, 0, "params")
	if err != nil {
		return nil, err
	}
	data := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			data[k] = s
		}
	}
	return model.IsEnginePush(data), nil
}

func (m *Module) requestPushAuthorization(ctx context.Context, _ marshal.Args) (any, error) {
	reply, err := m.sdk.Fetch(ctx, Command{Name: "requestPushAuthorization"})
	if err != nil {
		return nil, fetchError(err)
	}
	granted, ok := reply.(bool)
	if !ok {
		return nil, core.InvalidType("granted", "Boolean", marshal.TypeName(reply))
	}
	return granted, nil
}

type settingKind int

const (
	boolSetting settingKind = iota
	doubleSetting
)

func (m *Module) setting(name, arg string, kind settingKind) handler {
	return func(ctx context.Context, args marshal.Args) (any, error) {
		var (
			value any
			err   error
		)
		switch kind {
		case boolSetting:
			value, err = marshal.Arg[bool](args, 0, arg)
		default:
			value, err = marshal.Arg[float64](args, 0, arg)
		}
		if err != nil {
			return nil, err
		}
		return m.execute(ctx, name, map[string]any{arg: value})
	}
}

func (m *Module) setAppInboxProvider(ctx context.Context, args marshal.Args) (any, error) {
	style, err := marshal.ArgMap(args, 0, "style")
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, "setAppInboxProvider", map[string]any{"style": style})
}

func (m *Module) trackInAppMessage(name string) handler {
	return func(ctx context.Context, args marshal.Args) (any, error) {
		params, err := marshal.ArgMap(args, 0, "params")
		if err != nil {
			return nil, err
		}
		action, err := model.InAppMessageActionFromMap(params)
		if err != nil {
			return nil, err
		}
		if action == nil || action.Message == nil {
			return nil, core.Errorf(core.ErrInvalidData, msgInvalidInApp)
		}
		cmdArgs := map[string]any{"message": action.Message.ToMap()}
		if action.Button != nil {
			if action.Button.Text != nil {
				cmdArgs["buttonText"] = *action.Button.Text
			}
			if action.Button.URL != nil {
				cmdArgs["buttonUrl"] = *action.Button.URL
			}
		}
		if action.Interaction != nil {
			cmdArgs["interaction"] = *action.Interaction
		}
		return m.execute(ctx, name, cmdArgs)
	}
}

func (m *Module) trackContentBlock(name string) handler {
	withAction := name == "trackInAppContentBlockClick" || name == "trackInAppContentBlockClickWithoutTrackingConsent"
	withError := name == "trackInAppContentBlockError" || name == "trackInAppContentBlockErrorWithoutTrackingConsent"

	return func(ctx context.Context, args marshal.Args) (any, error) {
		params, err := marshal.ArgMap(args, 0, "params")
		if err != nil {
			return nil, err
		}
		placeholderID, err := marshal.Required[string](params, "placeholderId")
		if err != nil {
			return nil, err
		}
		rawBlock, err := marshal.Required[map[string]any](params, "inAppContentBlock")
		if err != nil {
			return nil, err
		}
		block, err := model.ContentBlockFromMap(rawBlock)
		if err != nil {
			return nil, err
		}
		cmdArgs := map[string]any{
			"placeholderId":     placeholderID,
			"inAppContentBlock": block.ToMap(),
		}
		if withAction {
			rawAction, err := marshal.Required[map[string]any](params, "inAppContentBlockAction")
			if err != nil {
				return nil, err
			}
			action, err := model.ContentBlockActionFromMap(rawAction)
			if err != nil {
				return nil, err
			}
			cmdArgs["inAppContentBlockAction"] = action.ToMap()
		}
		if withError {
			msg, err := marshal.Required[string](params, "errorMessage")
			if err != nil {
				return nil, err
			}
			cmdArgs["errorMessage"] = msg
		}
		return m.execute(ctx, name, cmdArgs)
	}
}

func inboxMessageArg(args marshal.Args, i int) (*model.InboxMessage, error) {
	raw, err := marshal.ArgMap(args, i, "message")
	if err != nil {
		return nil, err
	}
	msg, err := model.InboxMessageFromMap(raw)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, core.Errorf(core.ErrInvalidData, msgInvalidInboxMessage)
	}
	return msg, nil
}

func (m *Module) trackInbox(name string) handler {
	click := name == "trackAppInboxClick" || name == "trackAppInboxClickWithoutTrackingConsent"

	return func(ctx context.Context, args marshal.Args) (any, error) {
		cmdArgs := map[string]any{}
		messageIndex := 0
		if click {
			rawAction, err := marshal.ArgMap(args, 0, "action")
			if err != nil {
				return nil, err
			}
			action, err := model.InboxActionFromMap(rawAction)
			if err != nil {
				return nil, err
			}
			if action == nil {
				return nil, core.Errorf(core.ErrInvalidData, msgInvalidInboxAction)
			}
			cmdArgs["action"] = action.ToMap()
			messageIndex = 1
		}
		msg, err := inboxMessageArg(args, messageIndex)
		if err != nil {
			return nil, err
		}
		cmdArgs["message"] = msg.ToMap()
		return m.execute(ctx, name, cmdArgs)
	}
}

func (m *Module) markAppInboxAsRead(ctx context.Context, args marshal.Args) (any, error) {
	msg, err := inboxMessageArg(args, 0)
	if err != nil {
		return nil, err
	}
	reply, err := m.sdk.Fetch(ctx, Command{Name: "markAppInboxAsRead", Args: map[string]any{"message": msg.ToMap()}})
	if err != nil {
		return nil, fetchError(err)
	}
	marked, ok := reply.(bool)
	if !ok {
		return nil, core.InvalidType("markedAsRead", "Boolean", marshal.TypeName(reply))
	}
	return marked, nil
}

func (m *Module) fetchConsents(ctx context.Context, _ marshal.Args) (any, error) {
	return m.fetchText(ctx, "fetchConsents", nil)
}

func (m *Module) fetchRecommendations(ctx context.Context, args marshal.Args) (any, error) {
	raw, err := marshal.ArgMap(args, 0, "options")
	if err != nil {
		return nil, err
	}
	options, err := model.RecommendationOptionsFromMap(raw)
	if err != nil {
		return nil, err
	}
	reply, err := m.sdk.Fetch(ctx, Command{Name: "fetchRecommendations", Args: options.ToMap()})
	if err != nil {
		return nil, fetchError(err)
	}
	list, ok := reply.([]any)
	if !ok {
		return nil, core.FetchFailed("unexpected recommendations reply")
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, core.FetchFailed("unexpected recommendation " + marshal.TypeName(item))
		}
		r, err := model.RecommendationFromMap(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r.ToMap())
	}
	return marshal.EncodeText(out)
}

func (m *Module) fetchAppInbox(ctx context.Context, _ marshal.Args) (any, error) {
	reply, err := m.sdk.Fetch(ctx, Command{Name: "fetchAppInbox"})
	if err != nil {
		return nil, fetchError(err)
	}
	list, ok := reply.([]any)
	if !ok {
		return nil, core.FetchFailed(msgInboxLoadFailed)
	}
	messages, err := model.InboxMessagesFromList(list)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(messages))
	for i, msg := range messages {
		out[i] = msg.ToMap()
	}
	return marshal.EncodeText(out)
}

func (m *Module) fetchAppInboxItem(ctx context.Context, args marshal.Args) (any, error) {
	id, err := marshal.Arg[string](args, 0, "messageId")
	if err != nil {
		return nil, err
	}
	reply, err := m.sdk.Fetch(ctx, Command{Name: "fetchAppInboxItem", Args: map[string]any{"messageId": id}})
	if err != nil {
		return nil, fetchError(err)
	}
	raw, ok := reply.(map[string]any)
	if !ok {
		return nil, core.FetchFailed(msgInboxItemNotFound)
	}
	msg, err := model.InboxMessageFromMap(raw)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, core.FetchFailed(msgInboxItemNotFound)
	}
	return marshal.EncodeText(msg.ToMap())
}

// getSegments takes an {exposingCategory, force} argument and resolves with JSON text.
func (m *Module) getSegments(ctx context.Context, args marshal.Args) (any, error) {
	params, err := marshal.ArgMap(args, 0, "params")
	if err != nil {
		return nil, err
	}
	category, err := marshal.Required[string](params, "exposingCategory")
	if err != nil {
		return nil, err
	}
	force, err := marshal.Optional[bool](params, "force")
	if err != nil {
		return nil, err
	}
	cmdArgs := map[string]any{"exposingCategory": category, "force": force != nil && *force}
	reply, err := m.sdk.Fetch(ctx, Command{Name: "getSegments", Args: cmdArgs})
	if err != nil {
		return nil, fetchError(err)
	}
	list, ok := reply.([]any)
	if !ok {
		return nil, core.FetchFailed("unexpected segments reply")
	}
	segments, err := model.SegmentsFromList(list)
	if err != nil {
		return nil, err
	}
	return marshal.EncodeText(model.SegmentsToList(segments))
}

func (m *Module) listen(k event.Kind) handler {
	return func(context.Context, marshal.Args) (any, error) {
		m.events.StartObserving(k)
		return nil, nil
	}
}

func (m *Module) unlisten(k event.Kind) handler {
	return func(context.Context, marshal.Args) (any, error) {
		m.events.StopObserving(k)
		return nil, nil
	}
}

func (m *Module) setInAppCallback(ctx context.Context, args marshal.Args) (any, error) {
	override, err := marshal.Arg[bool](args, 0, "overrideDefaultBehavior")
	if err != nil {
		return nil, err
	}
	track, err := marshal.Arg[bool](args, 1, "trackActions")
	if err != nil {
		return nil, err
	}
	if _, err := m.execute(ctx, "setInAppMessageCallback", map[string]any{
		"overrideDefaultBehavior": override,
		"trackActions":            track,
	}); err != nil {
		return nil, err
	}
	m.events.StartObserving(event.KindInAppAction)
	return nil, nil
}

// removeInAppCallback restores the default native behavior. Actions keep being
// held until a callback is set again.
func (m *Module) removeInAppCallback(ctx context.Context, _ marshal.Args) (any, error) {
	if _, err := m.execute(ctx, "setInAppMessageCallback", map[string]any{
		"overrideDefaultBehavior": false,
		"trackActions":            true,
	}); err != nil {
		return nil, err
	}
	m.events.StopObserving(event.KindInAppAction)
	return nil, nil
}

func (m *Module) registerSegmentationCallback(ctx context.Context, args marshal.Args) (any, error) {
	category, err := marshal.Arg[string](args, 0, "exposingCategory")
	if err != nil {
		return nil, err
	}
	includeFirstLoad, err := marshal.Arg[bool](args, 1, "includeFirstLoad")
	if err != nil {
		return nil, err
	}
	cb := model.SegmentationCallback{
		InstanceID:       uuid.New().String(),
		ExposingCategory: category,
		IncludeFirstLoad: includeFirstLoad,
	}
	if _, err := m.execute(ctx, "registerSegmentationDataCallback", cb.ToMap()); err != nil {
		return nil, err
	}
	m.segmentation.Store(cb.InstanceID, cb)
	m.events.StartObserving(event.KindSegmentsUpdate)
	return cb.InstanceID, nil
}

func (m *Module) unregisterSegmentationCallback(ctx context.Context, args marshal.Args) (any, error) {
	id, err := marshal.Arg[string](args, 0, "callbackInstanceId")
	if err != nil {
		return nil, err
	}
	cb, ok := m.segmentationCallback(id)
	if !ok {
		return nil, core.Errorf(core.ErrInvalidUsage, "Segmentation callback %s has not been found", id)
	}
	if _, err := m.execute(ctx, "unregisterSegmentationDataCallback", cb.ToMap()); err != nil {
		return nil, err
	}
	m.segmentation.Delete(id)
	if m.segmentationCount() == 0 {
		m.events.StopObserving(event.KindSegmentsUpdate)
	}
	return nil, nil
}

func (m *Module) segmentationCount() int {
	n := 0
	m.segmentation.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func eventKindArg(args marshal.Args) (event.Kind, error) {
	name, err := marshal.Arg[string](args, 0, "eventName")
	if err != nil {
		return 0, err
	}
	k, ok := event.KindByName(name)
	if !ok {
		return 0, core.InvalidValue("eventName", name)
	}
	return k, nil
}

func (m *Module) startObserving(_ context.Context, args marshal.Args) (any, error) {
	k, err := eventKindArg(args)
	if err != nil {
		return nil, err
	}
	m.events.StartObserving(k)
	return nil, nil
}

func (m *Module) stopObserving(_ context.Context, args marshal.Args) (any, error) {
	k, err := eventKindArg(args)
	if err != nil {
		return nil, err
	}
	m.events.StopObserving(k)
	return nil, nil
}

func withoutNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
