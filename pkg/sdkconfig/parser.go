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

// Package sdkconfig parses the options map passed to configure.
package sdkconfig

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
)

type fieldParser func(c *Configuration, raw map[string]any, key string) error

// Recognized keys in the order they are validated. Anything else is ignored.
var fields = []struct {
	key   string
	parse fieldParser
}{
	{"baseUrl", parseBaseURL},
	{"projectMapping", parseMapping},
	{"defaultProperties", parseDefaultProperties},
	{"flushMaxRetries", parseFlushMaxRetries},
	{"sessionTimeout", parseSessionTimeout},
	{"automaticSessionTracking", boolField(func(c *Configuration, v bool) { c.AutomaticSessionTracking = v })},
	{"pushTokenTrackingFrequency", parseTokenFrequency},
	{"allowDefaultCustomerProperties", boolField(func(c *Configuration, v bool) { c.AllowDefaultCustomerProperties = v })},
	{"advancedAuthEnabled", boolField(func(c *Configuration, v bool) { c.AdvancedAuthEnabled = v })},
	{"inAppContentBlockPlaceholdersAutoLoad", parsePlaceholders},
	{"manualSessionAutoClose", boolField(func(c *Configuration, v bool) { c.ManualSessionAutoClose = v })},
	{"applicationId", stringField(func(c *Configuration, v string) { c.ApplicationID = v })},
	{"logLevel", parseLogLevelField},
	{"android", parseAndroid},
	{"ios", parseIOS},
}

// Parse validates raw and returns a configuration with defaults applied.
func Parse(raw map[string]any) (*Configuration, error) {
	projectToken, err := requiredToken(raw, "projectToken")
	if err != nil {
		return nil, err
	}
	authorizationToken, err := requiredToken(raw, "authorizationToken")
	if err != nil {
		return nil, err
	}

	c := &Configuration{
		ProjectToken:                   projectToken,
		AuthorizationToken:             authorizationToken,
		BaseURL:                        DefaultBaseURL,
		FlushMaxRetries:                DefaultFlushMaxRetries,
		SessionTimeout:                 DefaultSessionTimeout,
		AutomaticSessionTracking:       true,
		PushTokenTrackingFrequency:     TokenOnChange,
		AllowDefaultCustomerProperties: true,
		ManualSessionAutoClose:         true,
		ApplicationID:                  DefaultApplicationID,
		LogLevel:                       LogInfo,
	}

	for _, f := range fields {
		if v, ok := raw[f.key]; !ok || v == nil {
			continue
		}
		if err := f.parse(c, raw, f.key); err != nil {
			return nil, err
		}
	}

	// projectMapping may precede baseUrl in the map but its projects inherit the final base URL.
	for et, projects := range c.ProjectMapping {
		for i := range projects {
			if projects[i].BaseURL == "" {
				c.ProjectMapping[et][i].BaseURL = c.BaseURL
			}
		}
	}
	return c, nil
}

func requiredToken(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", &core.Error{
			Kind:    core.ErrMissingProperty,
			Field:   key,
			Message: "Required property '" + key + "' missing in configuration object",
		}
	}
	return marshal.Required[string](raw, key)
}

// ParseProjectMapping parses a map of event type names to project lists.
// Projects without a baseUrl get an empty one, filled in by Parse.
func ParseProjectMapping(raw any) (map[EventType][]Project, error) {
	source, ok := raw.(map[string]any)
	if !ok {
		return nil, core.Errorf(core.ErrInvalidType,
			"Unable to parse project mapping, expected map of event types to list of Exponea projects")
	}

	keys := make([]string, 0, len(source))
	for k := range source {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mapping := make(map[EventType][]Project, len(source))
	for _, key := range keys {
		et, ok := ParseEventType(key)
		if !ok {
			return nil, core.Errorf(core.ErrInvalidEventType,
				"Invalid event type %s found in project configuration", key)
		}
		list, ok := source[key].([]any)
		if !ok {
			return nil, core.Errorf(core.ErrInvalidProject, "Invalid project definition for event type %s", key)
		}
		projects := make([]Project, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, core.Errorf(core.ErrInvalidProject, "Invalid project definition for event type %s", key)
			}
			p, err := ParseProject(m, "")
			if err != nil {
				return nil, err
			}
			projects = append(projects, p)
		}
		mapping[et] = projects
	}
	return mapping, nil
}

// ParseProject parses a single project definition.
func ParseProject(raw map[string]any, defaultBaseURL string) (Project, error) {
	token, err := marshal.Required[string](raw, "projectToken")
	if err != nil {
		return Project{}, err
	}
	auth, err := marshal.Required[string](raw, "authorizationToken")
	if err != nil {
		return Project{}, err
	}
	baseURL, err := marshal.Optional[string](raw, "baseUrl")
	if err != nil {
		return Project{}, err
	}
	p := Project{ProjectToken: token, AuthorizationToken: auth, BaseURL: defaultBaseURL}
	if baseURL != nil {
		p.BaseURL = *baseURL
	}
	return p, nil
}

func parseBaseURL(c *Configuration, raw map[string]any, key string) error {
	v, err := marshal.Required[string](raw, key)
	if err != nil {
		return err
	}
	c.BaseURL = v
	return nil
}

func parseMapping(c *Configuration, raw map[string]any, key string) error {
	mapping, err := ParseProjectMapping(raw[key])
	if err != nil {
		return err
	}
	c.ProjectMapping = mapping
	return nil
}

func parseDefaultProperties(c *Configuration, raw map[string]any, key string) error {
	m, ok := raw[key].(map[string]any)
	if !ok {
		return core.Errorf(core.ErrInvalidType, "Unable to parse default properties, expected map of properties")
	}
	props, err := marshal.NormalizeMap(m)
	if err != nil {
		return err
	}
	c.DefaultProperties = props
	return nil
}

func parseFlushMaxRetries(c *Configuration, raw map[string]any, key string) error {
	v, err := marshal.RequiredInt(raw, key)
	if err != nil {
		return err
	}
	c.FlushMaxRetries = v
	return nil
}

func parseSessionTimeout(c *Configuration, raw map[string]any, key string) error {
	v, err := marshal.Required[float64](raw, key)
	if err != nil {
		return err
	}
	c.SessionTimeout = v
	return nil
}

func parseTokenFrequency(c *Configuration, raw map[string]any, key string) error {
	s, err := marshal.Required[string](raw, key)
	if err != nil {
		return err
	}
	c.PushTokenTrackingFrequency, err = ParseTokenFrequency(key, s)
	return err
}

func parsePlaceholders(c *Configuration, raw map[string]any, key string) error {
	ids, err := marshal.OptionalStrings(raw, key)
	if err != nil {
		return err
	}
	c.InAppContentBlockPlaceholdersAutoLoad = ids
	return nil
}

func parseLogLevelField(c *Configuration, raw map[string]any, key string) error {
	s, err := marshal.Required[string](raw, key)
	if err != nil {
		return err
	}
	c.LogLevel, err = ParseLogLevel(key, s)
	return err
}

func boolField(set func(*Configuration, bool)) fieldParser {
	return func(c *Configuration, raw map[string]any, key string) error {
		v, err := marshal.Required[bool](raw, key)
		if err != nil {
			return err
		}
		set(c, v)
		return nil
	}
}

func stringField(set func(*Configuration, string)) fieldParser {
	return func(c *Configuration, raw map[string]any, key string) error {
		v, err := marshal.Required[string](raw, key)
		if err != nil {
			return err
		}
		set(c, v)
		return nil
	}
}

func parseAndroid(c *Configuration, raw map[string]any, key string) error {
	block, ok := raw[key].(map[string]any)
	if !ok {
		return core.Errorf(core.ErrInvalidType, "Unable to parse android config, expected map of properties")
	}
	a := &AndroidConfiguration{
		AutomaticPushNotifications: true,
		PushChannelName:            DefaultPushChannelName,
		PushChannelDescription:     DefaultPushChannelDescription,
		PushChannelID:              DefaultPushChannelID,
		PushNotificationImportance: ImportanceDefault,
		HTTPLoggingLevel:           HTTPLogBody,
	}

	if v, err := marshal.Optional[bool](block, "automaticPushNotifications"); err != nil {
		return err
	} else if v != nil {
		a.AutomaticPushNotifications = *v
	}
	var err error
	if a.PushIcon, err = marshal.OptionalInt(block, "pushIcon"); err != nil {
		return err
	}
	if a.PushIconResourceName, err = marshal.Optional[string](block, "pushIconResourceName"); err != nil {
		return err
	}
	if a.PushAccentColor, err = marshal.OptionalInt(block, "pushAccentColor"); err != nil {
		return err
	}
	rgba, err := marshal.Optional[string](block, "pushAccentColorRGBA")
	if err != nil {
		return err
	}
	if rgba != nil {
		color, err := parseRGBA("pushAccentColorRGBA", *rgba)
		if err != nil {
			return err
		}
		a.PushAccentColor = &color
	}
	if a.PushAccentColorName, err = marshal.Optional[string](block, "pushAccentColorName"); err != nil {
		return err
	}
	for _, s := range []struct {
		key string
		dst *string
	}{
		{"pushChannelName", &a.PushChannelName},
		{"pushChannelDescription", &a.PushChannelDescription},
		{"pushChannelId", &a.PushChannelID},
	} {
		v, err := marshal.Optional[string](block, s.key)
		if err != nil {
			return err
		}
		if v != nil {
			*s.dst = *v
		}
	}
	if v, err := marshal.Optional[string](block, "pushNotificationImportance"); err != nil {
		return err
	} else if v != nil {
		if a.PushNotificationImportance, err = ParseImportance("pushNotificationImportance", *v); err != nil {
			return err
		}
	}
	if v, err := marshal.Optional[string](block, "httpLoggingLevel"); err != nil {
		return err
	} else if v != nil {
		if a.HTTPLoggingLevel, err = ParseHTTPLoggingLevel("httpLoggingLevel", *v); err != nil {
			return err
		}
	}
	c.Android = a
	return nil
}

// parseRGBA packs "r,g,b,a" into an ARGB color int.
func parseRGBA(key, raw string) (int, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return 0, core.InvalidValue(key, raw)
	}
	var ch [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return 0, core.InvalidValue(key, raw)
		}
		ch[i] = n
	}
	r, g, b, a := ch[0], ch[1], ch[2], ch[3]
	return int(int32(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))), nil
}

func parseIOS(c *Configuration, raw map[string]any, key string) error {
	block, ok := raw[key].(map[string]any)
	if !ok {
		return core.Errorf(core.ErrInvalidType, "Unable to parse ios config, expected map of properties")
	}
	i := &IOSConfiguration{RequirePushAuthorization: true}
	appGroup, err := marshal.Optional[string](block, "appGroup")
	if err != nil {
		return err
	}
	if appGroup != nil {
		i.AppGroup = *appGroup
	}
	requireAuth, err := marshal.Optional[bool](block, "requirePushAuthorization")
	if err != nil {
		return err
	}
	if requireAuth != nil {
		i.RequirePushAuthorization = *requireAuth
	}
	c.IOS = i
	return nil
}
