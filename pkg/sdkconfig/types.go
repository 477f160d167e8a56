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
	"log/slog"
	"slices"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

const (
	DefaultBaseURL                = "https://api.exponea.com"
	DefaultFlushMaxRetries        = 10
	DefaultSessionTimeout         = 60.0
	DefaultApplicationID          = "default-application"
	DefaultPushChannelName        = "Exponea"
	DefaultPushChannelDescription = "Notifications"
	DefaultPushChannelID          = "0"
)

type EventType string

const (
	EventInstall       EventType = "INSTALL"
	EventSessionStart  EventType = "SESSION_START"
	EventSessionEnd    EventType = "SESSION_END"
	EventTrackEvent    EventType = "TRACK_EVENT"
	EventTrackCustomer EventType = "TRACK_CUSTOMER"
	EventPayment       EventType = "PAYMENT"
	EventPushToken     EventType = "PUSH_TOKEN"
	EventPushDelivered EventType = "PUSH_DELIVERED"
	EventPushOpened    EventType = "PUSH_OPENED"
	EventCampaignClick EventType = "CAMPAIGN_CLICK"
	EventBanner        EventType = "BANNER"
)

var eventTypes = []EventType{
	EventInstall, EventSessionStart, EventSessionEnd, EventTrackEvent, EventTrackCustomer,
	EventPayment, EventPushToken, EventPushDelivered, EventPushOpened, EventCampaignClick, EventBanner,
}

func ParseEventType(s string) (EventType, bool) {
	if slices.Contains(eventTypes, EventType(s)) {
		return EventType(s), true
	}
	return "", false
}

type TokenFrequency string

const (
	TokenOnChange    TokenFrequency = "ON_TOKEN_CHANGE"
	TokenEveryLaunch TokenFrequency = "EVERY_LAUNCH"
	TokenDaily       TokenFrequency = "DAILY"
)

type NotificationImportance string

const (
	ImportanceMin     NotificationImportance = "MIN"
	ImportanceLow     NotificationImportance = "LOW"
	ImportanceDefault NotificationImportance = "DEFAULT"
	ImportanceHigh    NotificationImportance = "HIGH"
)

type HTTPLoggingLevel string

const (
	HTTPLogNone    HTTPLoggingLevel = "NONE"
	HTTPLogBasic   HTTPLoggingLevel = "BASIC"
	HTTPLogHeaders HTTPLoggingLevel = "HEADERS"
	HTTPLogBody    HTTPLoggingLevel = "BODY"
)

type LogLevel string

const (
	LogOff     LogLevel = "OFF"
	LogError   LogLevel = "ERROR"
	LogWarn    LogLevel = "WARN"
	LogInfo    LogLevel = "INFO"
	LogDebug   LogLevel = "DEBUG"
	LogVerbose LogLevel = "VERBOSE"
)

// SlogLevel maps the SDK log level onto the host logger. OFF keeps errors only.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogVerbose, LogDebug:
		return slog.LevelDebug
	case LogInfo:
		return slog.LevelInfo
	case LogWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

type FlushMode string

const (
	FlushImmediate FlushMode = "IMMEDIATE"
	FlushPeriod    FlushMode = "PERIOD"
	FlushAppClose  FlushMode = "APP_CLOSE"
	FlushManual    FlushMode = "MANUAL"
)

func ParseTokenFrequency(key, raw string) (TokenFrequency, error) {
	return parseEnum(key, raw, TokenOnChange, TokenEveryLaunch, TokenDaily)
}

func ParseImportance(key, raw string) (NotificationImportance, error) {
	return parseEnum(key, raw, ImportanceMin, ImportanceLow, ImportanceDefault, ImportanceHigh)
}

func ParseHTTPLoggingLevel(key, raw string) (HTTPLoggingLevel, error) {
	return parseEnum(key, raw, HTTPLogNone, HTTPLogBasic, HTTPLogHeaders, HTTPLogBody)
}

func ParseLogLevel(key, raw string) (LogLevel, error) {
	return parseEnum(key, raw, LogOff, LogError, LogWarn, LogInfo, LogDebug, LogVerbose)
}

func ParseFlushMode(key, raw string) (FlushMode, error) {
	return parseEnum(key, raw, FlushImmediate, FlushPeriod, FlushAppClose, FlushManual)
}

func parseEnum[T ~string](key, raw string, allowed ...T) (T, error) {
	for _, v := range allowed {
		if string(v) == raw {
			return v, nil
		}
	}
	var zero T
	return zero, core.InvalidValue(key, raw)
}

// Project is a target analytics project.
type Project struct {
	ProjectToken       string
	AuthorizationToken string
	BaseURL            string
}

// Authorization is the header value sent to the project.
func (p Project) Authorization() string { return "Token " + p.AuthorizationToken }

func (p Project) ToMap() map[string]any {
	return map[string]any{
		"projectToken":       p.ProjectToken,
		"authorizationToken": p.AuthorizationToken,
		"baseUrl":            p.BaseURL,
	}
}

// ProjectMappingToMap renders a mapping with the keys ParseProjectMapping accepts.
func ProjectMappingToMap(mapping map[EventType][]Project) map[string]any {
	out := make(map[string]any, len(mapping))
	for et, projects := range mapping {
		list := make([]any, 0, len(projects))
		for _, p := range projects {
			list = append(list, p.ToMap())
		}
		out[string(et)] = list
	}
	return out
}

type AndroidConfiguration struct {
	AutomaticPushNotifications bool
	PushIcon                   *int
	PushIconResourceName       *string
	PushAccentColor            *int
	PushAccentColorName        *string
	PushChannelName            string
	PushChannelDescription     string
	PushChannelID              string
	PushNotificationImportance NotificationImportance
	HTTPLoggingLevel           HTTPLoggingLevel
}

type IOSConfiguration struct {
	AppGroup                 string
	RequirePushAuthorization bool
}

// Configuration is the immutable result of Parse.
type Configuration struct {
	ProjectToken                          string
	AuthorizationToken                    string
	BaseURL                               string
	ProjectMapping                        map[EventType][]Project
	DefaultProperties                     map[string]any
	FlushMaxRetries                       int
	SessionTimeout                        float64
	AutomaticSessionTracking              bool
	PushTokenTrackingFrequency            TokenFrequency
	AllowDefaultCustomerProperties        bool
	AdvancedAuthEnabled                   bool
	InAppContentBlockPlaceholdersAutoLoad []string
	ManualSessionAutoClose                bool
	ApplicationID                         string
	LogLevel                              LogLevel
	Android                               *AndroidConfiguration
	IOS                                   *IOSConfiguration
}

func (c *Configuration) Authorization() string { return "Token " + c.AuthorizationToken }

// ToMap renders the configuration with the keys Parse accepts.
func (c *Configuration) ToMap() map[string]any {
	out := map[string]any{
		"projectToken":                   c.ProjectToken,
		"authorizationToken":             c.AuthorizationToken,
		"baseUrl":                        c.BaseURL,
		"flushMaxRetries":                float64(c.FlushMaxRetries),
		"sessionTimeout":                 c.SessionTimeout,
		"automaticSessionTracking":       c.AutomaticSessionTracking,
		"pushTokenTrackingFrequency":     string(c.PushTokenTrackingFrequency),
		"allowDefaultCustomerProperties": c.AllowDefaultCustomerProperties,
		"advancedAuthEnabled":            c.AdvancedAuthEnabled,
		"manualSessionAutoClose":         c.ManualSessionAutoClose,
		"applicationId":                  c.ApplicationID,
		"logLevel":                       string(c.LogLevel),
	}
	if len(c.ProjectMapping) > 0 {
		out["projectMapping"] = ProjectMappingToMap(c.ProjectMapping)
	}
	if c.DefaultProperties != nil {
		out["defaultProperties"] = c.DefaultProperties
	}
	if c.InAppContentBlockPlaceholdersAutoLoad != nil {
		ids := make([]any, len(c.InAppContentBlockPlaceholdersAutoLoad))
		for i, id := range c.InAppContentBlockPlaceholdersAutoLoad {
			ids[i] = id
		}
		out["inAppContentBlockPlaceholdersAutoLoad"] = ids
	}
	if a := c.Android; a != nil {
		android := map[string]any{
			"automaticPushNotifications": a.AutomaticPushNotifications,
			"pushChannelName":            a.PushChannelName,
			"pushChannelDescription":     a.PushChannelDescription,
			"pushChannelId":              a.PushChannelID,
			"pushNotificationImportance": string(a.PushNotificationImportance),
			"httpLoggingLevel":           string(a.HTTPLoggingLevel),
		}
		if a.PushIcon != nil {
			android["pushIcon"] = float64(*a.PushIcon)
		}
		if a.PushIconResourceName != nil {
			android["pushIconResourceName"] = *a.PushIconResourceName
		}
		if a.PushAccentColor != nil {
			android["pushAccentColor"] = float64(*a.PushAccentColor)
		}
		if a.PushAccentColorName != nil {
			android["pushAccentColorName"] = *a.PushAccentColorName
		}
		out["android"] = android
	}
	if i := c.IOS; i != nil {
		out["ios"] = map[string]any{
			"appGroup":                 i.AppGroup,
			"requirePushAuthorization": i.RequirePushAuthorization,
		}
	}
	return out
}
